// Package hooks implements a synchronous, priority ordered signal dispatcher.
//
// Two kinds of callbacks are supported:
//
//   - actions react to a named signal carrying a payload (Do)
//   - filters transform a value passing through a named signal (ApplyFilters)
//
// Callbacks for one signal run in ascending priority; callbacks sharing a
// priority run in registration order. A failing callback does not stop the
// chain: every error is collected and returned joined.
//
// The generic helpers On, Filter and Apply add compile-time payload typing on
// top of the untyped dispatcher:
//
//	d := hooks.New()
//	hooks.On(d, "order_paid", hooks.PriorityDefault, func(ctx context.Context, o Order) error {
//	    return nil
//	})
//	_ = d.Do(ctx, "order_paid", order)
//
//	hooks.Filter(d, "mail_content", hooks.PriorityDefault, func(ctx context.Context, body string) (string, error) {
//	    return strings.ReplaceAll(body, "http://", "https://"), nil
//	})
//	body, _ = hooks.Apply(ctx, d, "mail_content", body)
package hooks
