package adminlist

import (
	"context"
	"net/url"

	"github.com/dmitrymomot/renewalkit/pkg/subscription"
)

// Filter names.
const (
	FilterColumns   = "subscription_list_columns"
	FilterViews     = "subscription_list_views"
	FilterQuery     = "subscription_list_query"
	FilterCell      = "subscription_list_cell"
	FilterHighlight = "subscription_list_highlight"
	FilterNotices   = "admin_notices"
)

// Built-in column keys.
const (
	ColumnID          = "id"
	ColumnStatus      = "status"
	ColumnCustomer    = "customer"
	ColumnNextPayment = "next_payment"
)

// Column is one list column. Key matches Cell.Column and Row.Cells.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// View is a filter link shown above the list, e.g. "Active (3)".
type View struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Count   int    `json:"count"`
	URL     string `json:"url"`
	Current bool   `json:"current"`
}

// Query is the listing request before it reaches the store.
type Query struct {
	Params url.Values
	Filter subscription.Filter
}

// Cell carries the HTML for one column of one row. Filters replace HTML.
type Cell struct {
	Column       string
	Subscription *subscription.Subscription
	HTML         string
}

// NoticeLevel selects how a notice is styled.
type NoticeLevel string

const (
	NoticeError   NoticeLevel = "error"
	NoticeWarning NoticeLevel = "warning"
	NoticeInfo    NoticeLevel = "info"
)

// Notice is a message shown above the list.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// Row is one rendered subscription, cells keyed by column.
type Row struct {
	ID          int64             `json:"id"`
	Cells       map[string]string `json:"cells"`
	Highlighted bool              `json:"highlighted,omitempty"`
}

// Page is the rendered list screen.
type Page struct {
	Columns []Column `json:"columns"`
	Views   []View   `json:"views"`
	Rows    []Row    `json:"rows"`
	Total   int      `json:"total"`
	Notices []Notice `json:"notices"`
}

type paramsKey struct{}

// WithParams stores request parameters for filters.
func WithParams(ctx context.Context, params url.Values) context.Context {
	return context.WithValue(ctx, paramsKey{}, params)
}

// ParamsFromContext returns the parameters of the list request being built.
func ParamsFromContext(ctx context.Context) url.Values {
	if p, ok := ctx.Value(paramsKey{}).(url.Values); ok {
		return p
	}
	return url.Values{}
}
