// Package ingress turns signed host HTTP deliveries into dispatcher signals.
//
// The host platform owns subscriptions and orders. Whenever one of them
// changes it posts a small JSON body naming the affected objects. The
// handler loads the current objects from the subscription service and
// dispatches the typed payload the extension handlers expect, so handlers
// never trust object state sent over the wire.
//
// # Signals
//
//	POST /subscription_status_changed            {"subscription_id": 42, "from": "active", "to": "on-hold"}
//	POST /subscription_dates_changed             {"subscription_id": 42, "date": "next_payment", "previous": "2024-03-01T00:00:00Z"}
//	POST /order_status_changed                   {"order_id": 7, "from": "pending", "to": "processing"}
//	POST /subscription_renewal_payment_complete  {"subscription_id": 42, "order_id": 7}
//	POST /generated_manual_renewal_order         {"order_id": 7, "subscription_id": 42}
//
// Signals returns the accepted names.
//
// # Usage
//
//	h := ingress.NewHandler(subs, d, ingress.WithLogger(log))
//	r.With(webhook.Verify(secret)).Mount("/signals", h.Routes())
//
// # Responses
//
// A dispatched delivery is answered with 202 and a JSON body echoing the
// signal and the X-Webhook-ID delivery id. Unknown signals and missing
// subscriptions or orders get 404 (ErrUnknownSignal, ErrObjectNotFound),
// malformed bodies get 400 (ErrInvalidBody), and handler failures get 500 so
// the host retries the delivery.
package ingress
