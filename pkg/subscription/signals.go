package subscription

import "time"

// Signals emitted by the Service.
const (
	SignalStatusChanged          = "subscription_status_changed"
	SignalDatesChanged           = "subscription_dates_changed"
	SignalOrderStatusChanged     = "order_status_changed"
	SignalRenewalPaymentComplete = "subscription_renewal_payment_complete"
	SignalManualRenewalOrder     = "generated_manual_renewal_order"
)

// DateNextPayment names the next payment date in DatesChange.
const DateNextPayment = "next_payment"

// StatusChange is the payload of SignalStatusChanged.
type StatusChange struct {
	Subscription *Subscription
	From         Status
	To           Status
}

// DatesChange is the payload of SignalDatesChanged.
type DatesChange struct {
	Subscription *Subscription
	Date         string
	Previous     time.Time
	Current      time.Time
}

// OrderStatusChange is the payload of SignalOrderStatusChanged.
type OrderStatusChange struct {
	Order *Order
	From  OrderStatus
	To    OrderStatus
}

// PaymentComplete is the payload of SignalRenewalPaymentComplete.
type PaymentComplete struct {
	Subscription *Subscription
	Order        *Order
}

// OrderRef is the payload of SignalManualRenewalOrder.
type OrderRef struct {
	OrderID        int64
	SubscriptionID int64
}
