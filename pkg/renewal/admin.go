package renewal

import (
	"context"
	"io"
	"slices"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/renewalkit/pkg/adminlist"
	"github.com/dmitrymomot/renewalkit/pkg/email/templates"
	"github.com/dmitrymomot/renewalkit/pkg/hooks"
	"github.com/dmitrymomot/renewalkit/pkg/subscription"
)

const (
	// ColumnOverdue is the admin list column key.
	ColumnOverdue = "renewal_overdue"
	// ViewOverdue is the admin list view key.
	ViewOverdue = "renewal_overdue"
	// ParamOverdue restricts the list to flagged subscriptions when set to "1".
	ParamOverdue = "overdue"
)

// AdminAugmentation adds overdue information to the admin subscription list.
type AdminAugmentation struct {
	subs subscription.Service
	cfg  Config
	opts options
}

// NewAdminAugmentation returns the admin list extension. Call Register to
// attach it to the screen filters.
func NewAdminAugmentation(subs subscription.Service, cfg Config, opts ...Option) *AdminAugmentation {
	return &AdminAugmentation{subs: subs, cfg: cfg, opts: newOptions(opts)}
}

func overdueFilter() subscription.Filter {
	return subscription.Filter{HasMeta: MetaOverdueSince}
}

// Columns inserts the overdue column after status, or appends it.
func (a *AdminAugmentation) Columns(_ context.Context, cols []adminlist.Column) ([]adminlist.Column, error) {
	col := adminlist.Column{Key: ColumnOverdue, Label: "Overdue"}
	i := slices.IndexFunc(cols, func(c adminlist.Column) bool { return c.Key == adminlist.ColumnStatus })
	if i < 0 {
		return append(cols, col), nil
	}
	return slices.Insert(cols, i+1, col), nil
}

// Cell renders the overdue badge or a grey dash.
func (a *AdminAugmentation) Cell(ctx context.Context, cell adminlist.Cell) (adminlist.Cell, error) {
	if cell.Column != ColumnOverdue || cell.Subscription == nil {
		return cell, nil
	}

	var c templ.Component = noBadge()
	if raw, ok := cell.Subscription.Meta.Get(MetaOverdueSince); ok {
		since := raw
		if t, valid := parseMetaTime(raw); valid {
			since = t.Format(a.cfg.DateFormat)
		}
		c = overdueBadge(since)
	}

	html, err := templates.Render(ctx, c)
	if err != nil {
		return cell, err
	}
	cell.HTML = html
	return cell, nil
}

// Views adds "Overdue (N)" when at least one subscription is flagged.
func (a *AdminAugmentation) Views(ctx context.Context, views []adminlist.View) ([]adminlist.View, error) {
	n, err := a.subs.CountSubscriptions(ctx, overdueFilter())
	if err != nil || n == 0 {
		return views, err
	}
	return append(views, adminlist.View{
		Key:     ViewOverdue,
		Label:   "Overdue",
		Count:   n,
		URL:     "?" + ParamOverdue + "=1",
		Current: adminlist.ParamsFromContext(ctx).Get(ParamOverdue) == "1",
	}), nil
}

// Query restricts the listing to flagged subscriptions of any status.
func (a *AdminAugmentation) Query(ctx context.Context, q adminlist.Query) (adminlist.Query, error) {
	if q.Params.Get(ParamOverdue) != "1" && adminlist.ParamsFromContext(ctx).Get(ParamOverdue) != "1" {
		return q, nil
	}
	q.Filter.HasMeta = MetaOverdueSince
	q.Filter.Statuses = nil
	return q, nil
}

// Highlight adds the ids of flagged subscriptions.
func (a *AdminAugmentation) Highlight(ctx context.Context, ids []int64) ([]int64, error) {
	subs, err := a.subs.ListSubscriptions(ctx, overdueFilter())
	if err != nil {
		return ids, err
	}
	for _, s := range subs {
		if !slices.Contains(ids, s.ID) {
			ids = append(ids, s.ID)
		}
	}
	return ids, nil
}

// Register adds the overdue column, cell markup, view, query restriction and
// row highlight to the admin list filters.
func (a *AdminAugmentation) Register(d *hooks.Dispatcher) {
	hooks.Filter(d, adminlist.FilterColumns, hooks.PriorityLate, a.Columns)
	hooks.Filter(d, adminlist.FilterCell, hooks.PriorityLate, a.Cell)
	hooks.Filter(d, adminlist.FilterViews, hooks.PriorityDefault, a.Views)
	hooks.Filter(d, adminlist.FilterQuery, hooks.PriorityDefault, a.Query)
	hooks.Filter(d, adminlist.FilterHighlight, hooks.PriorityDefault, a.Highlight)
}

func overdueBadge(since string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<mark class="renewal-overdue-badge" `+
			`style="background:#e00;color:#fff;padding:2px 7px;border-radius:3px;font-size:11px;font-weight:600;white-space:nowrap;" `+
			`title="`+templ.EscapeString("Overdue since "+since)+`">OVERDUE</mark>`)
		return err
	})
}

func noBadge() templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<span style="color:#ccc;">-</span>`)
		return err
	})
}
