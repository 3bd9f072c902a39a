package adminlist

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/renewalkit/pkg/subscription"
)

func textCell(s string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, templ.EscapeString(s))
		return err
	})
}

func statusCell(s subscription.Status) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<mark class="order-status status-`+templ.EscapeString(string(s))+`">`+
			templ.EscapeString(string(s))+`</mark>`)
		return err
	})
}

func baseCell(column string, sub *subscription.Subscription, dateFormat string) templ.Component {
	switch column {
	case ColumnID:
		return textCell("#" + strconv.FormatInt(sub.ID, 10))
	case ColumnStatus:
		return statusCell(sub.Status)
	case ColumnCustomer:
		name := sub.Billing.FullName()
		if name == "" {
			name = sub.Billing.Email
		}
		return textCell(name)
	case ColumnNextPayment:
		if !sub.HasNextPayment() {
			return textCell("-")
		}
		return textCell(sub.NextPayment.Format(dateFormat))
	}
	return templ.NopComponent
}
