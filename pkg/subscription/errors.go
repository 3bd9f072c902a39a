package subscription

import "errors"

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrInvalidTransition    = errors.New("invalid subscription status transition")
	ErrInvalidPeriod        = errors.New("invalid billing period")
	ErrInvalidInterval      = errors.New("billing interval must be positive")
	ErrNotRenewalOrder      = errors.New("order is not a renewal order")
	ErrFailedToCreateOrder  = errors.New("failed to create renewal order")
	ErrFailedToSave         = errors.New("failed to save record")
)
