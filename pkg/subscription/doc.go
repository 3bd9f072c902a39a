// Package subscription models the host platform's subscriptions and renewal
// orders.
//
// It provides:
//
//   - Data types for subscriptions, orders, billing details and notes
//   - Billing interval arithmetic (AddInterval), which clamps month ends so
//     Jan 31 plus one month is Feb 28 or 29
//   - The status lifecycle (CanTransition)
//   - Persistence through the Store interface, implemented by MemoryStore
//     for tests and local runs and by PGStore for PostgreSQL
//   - A Service exposing the object API, which saves every change and then
//     emits the matching lifecycle signal through an Emitter
//
// # Lifecycle
//
//	pending         -> active, on-hold, cancelled
//	active          -> on-hold, pending-cancel, cancelled, expired
//	on-hold         -> active, pending-cancel, cancelled, expired
//	pending-cancel  -> active, cancelled, expired
//
// Cancelled and expired are final. Staying in the same status is always
// allowed.
//
// # Signals
//
// Signals emitted by the Service:
//
//	SignalStatusChanged          StatusChange        after a subscription status change is saved
//	SignalDatesChanged           DatesChange         after next payment date changes
//	SignalOrderStatusChanged     OrderStatusChange   after an order status change is saved
//	SignalRenewalPaymentComplete PaymentComplete     after a renewal order is paid
//	SignalManualRenewalOrder     OrderRef            after an operator generates a renewal order
//
// # Usage
//
//	d := hooks.New()
//	subs := subscription.NewService(subscription.NewPGStore(pool),
//		subscription.WithEmitter(d),
//		subscription.WithLogger(log),
//	)
//
//	sub, err := subs.Subscription(ctx, 42)
//	if err != nil {
//		return err
//	}
//	if err := subs.UpdateStatus(ctx, sub, subscription.StatusOnHold, "Awaiting payment."); err != nil {
//		return err
//	}
//
// # Errors
//
// Lookups return ErrSubscriptionNotFound or ErrOrderNotFound. Disallowed
// status changes return ErrInvalidTransition. All sentinels can be matched
// with errors.Is.
package subscription
