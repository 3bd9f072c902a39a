package adminlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/dmitrymomot/renewalkit/pkg/email/templates"
	"github.com/dmitrymomot/renewalkit/pkg/hooks"
	"github.com/dmitrymomot/renewalkit/pkg/logger"
	"github.com/dmitrymomot/renewalkit/pkg/subscription"
)

var ErrInvalidParams = errors.New("invalid list parameters")

// Lister is the part of subscription.Service the screen reads from.
type Lister interface {
	ListSubscriptions(ctx context.Context, f subscription.Filter) ([]*subscription.Subscription, error)
	CountSubscriptions(ctx context.Context, f subscription.Filter) (int, error)
}

// Screen assembles list pages.
type Screen struct {
	subs       Lister
	hooks      *hooks.Dispatcher
	logger     *slog.Logger
	pageSize   int
	dateFormat string
}

// Option configures a Screen.
type Option func(*Screen)

// WithLogger sets the logger. Nil keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Screen) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPageSize sets rows per page. Default 20.
func WithPageSize(n int) Option {
	return func(s *Screen) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithDateFormat sets the Go layout used for date cells.
func WithDateFormat(layout string) Option {
	return func(s *Screen) {
		if layout != "" {
			s.dateFormat = layout
		}
	}
}

// NewScreen returns a screen reading from subs and filtering through d.
func NewScreen(subs Lister, d *hooks.Dispatcher, opts ...Option) *Screen {
	s := &Screen{
		subs:       subs,
		hooks:      d,
		logger:     slog.Default(),
		pageSize:   20,
		dateFormat: "January 2, 2006",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var statusOrder = []subscription.Status{
	subscription.StatusActive,
	subscription.StatusOnHold,
	subscription.StatusPendingCancel,
	subscription.StatusPending,
	subscription.StatusCancelled,
	subscription.StatusExpired,
}

func defaultColumns() []Column {
	return []Column{
		{Key: ColumnID, Label: "Subscription"},
		{Key: ColumnStatus, Label: "Status"},
		{Key: ColumnCustomer, Label: "Customer"},
		{Key: ColumnNextPayment, Label: "Next payment"},
	}
}

// Build renders the page for the given request parameters. Recognised
// parameters are status (repeatable) and page; extensions may read others.
func (s *Screen) Build(ctx context.Context, params url.Values) (*Page, error) {
	if params == nil {
		params = url.Values{}
	}
	ctx = WithParams(ctx, params)

	page := 1
	if raw := params.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: page %q", ErrInvalidParams, raw)
		}
		page = n
	}

	columns := s.applyColumns(ctx)

	query := Query{Params: params}
	for _, st := range params["status"] {
		query.Filter.Statuses = append(query.Filter.Statuses, subscription.Status(st))
	}
	query = apply(ctx, s, FilterQuery, query)
	query.Filter.Limit = s.pageSize
	query.Filter.Offset = (page - 1) * s.pageSize

	subs, err := s.subs.ListSubscriptions(ctx, query.Filter)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	countFilter := query.Filter
	countFilter.Limit, countFilter.Offset = 0, 0
	total, err := s.subs.CountSubscriptions(ctx, countFilter)
	if err != nil {
		return nil, fmt.Errorf("count subscriptions: %w", err)
	}

	views, err := s.defaultViews(ctx, params)
	if err != nil {
		return nil, err
	}
	views = apply(ctx, s, FilterViews, views)

	highlighted := apply(ctx, s, FilterHighlight, []int64{})

	rows := make([]Row, 0, len(subs))
	for _, sub := range subs {
		row := Row{
			ID:          sub.ID,
			Cells:       make(map[string]string, len(columns)),
			Highlighted: slices.Contains(highlighted, sub.ID),
		}
		for _, col := range columns {
			html, err := templates.Render(ctx, baseCell(col.Key, sub, s.dateFormat))
			if err != nil {
				return nil, fmt.Errorf("render %s cell: %w", col.Key, err)
			}
			cell := apply(ctx, s, FilterCell, Cell{Column: col.Key, Subscription: sub, HTML: html})
			row.Cells[col.Key] = cell.HTML
		}
		rows = append(rows, row)
	}

	return &Page{
		Columns: columns,
		Views:   views,
		Rows:    rows,
		Total:   total,
		Notices: apply(ctx, s, FilterNotices, []Notice{}),
	}, nil
}

func (s *Screen) applyColumns(ctx context.Context) []Column {
	return apply(ctx, s, FilterColumns, defaultColumns())
}

func (s *Screen) defaultViews(ctx context.Context, params url.Values) ([]View, error) {
	all, err := s.subs.CountSubscriptions(ctx, subscription.Filter{})
	if err != nil {
		return nil, fmt.Errorf("count subscriptions: %w", err)
	}
	current := params.Get("status")
	views := []View{{Key: "all", Label: "All", Count: all, URL: "?", Current: unfiltered(params)}}

	for _, st := range statusOrder {
		n, err := s.subs.CountSubscriptions(ctx, subscription.Filter{Statuses: []subscription.Status{st}})
		if err != nil {
			return nil, fmt.Errorf("count %s subscriptions: %w", st, err)
		}
		if n == 0 {
			continue
		}
		views = append(views, View{
			Key:     string(st),
			Label:   statusLabel(st),
			Count:   n,
			URL:     "?status=" + url.QueryEscape(string(st)),
			Current: current == string(st),
		})
	}
	return views, nil
}

// apply runs a filter chain. Failing filters are logged and skipped so the
// page still renders.
func apply[T any](ctx context.Context, s *Screen, name string, value T) T {
	if s.hooks == nil {
		return value
	}
	out, err := hooks.Apply(ctx, s.hooks, name, value)
	if err != nil {
		s.logger.WarnContext(ctx, "list filter failed",
			logger.Component("adminlist"),
			slog.String("filter", name),
			logger.Error(err))
	}
	return out
}

func unfiltered(params url.Values) bool {
	for k := range params {
		if k != "page" {
			return false
		}
	}
	return true
}

func statusLabel(st subscription.Status) string {
	words := strings.Split(string(st), "-")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
