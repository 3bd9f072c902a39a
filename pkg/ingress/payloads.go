package ingress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrymomot/renewalkit/pkg/subscription"
)

// decoder builds the dispatcher payload for one signal from the request body.
type decoder func(ctx context.Context, subs subscription.Service, body []byte) (any, error)

var decoders = map[string]decoder{
	subscription.SignalStatusChanged:          decodeStatusChange,
	subscription.SignalDatesChanged:           decodeDatesChange,
	subscription.SignalOrderStatusChanged:     decodeOrderStatusChange,
	subscription.SignalRenewalPaymentComplete: decodePaymentComplete,
	subscription.SignalManualRenewalOrder:     decodeOrderRef,
}

// Signals lists the accepted signal names.
func Signals() []string {
	out := make([]string, 0, len(decoders))
	for name := range decoders {
		out = append(out, name)
	}
	return out
}

type statusChangeBody struct {
	SubscriptionID int64               `json:"subscription_id"`
	From           subscription.Status `json:"from"`
	To             subscription.Status `json:"to"`
}

type datesChangeBody struct {
	SubscriptionID int64     `json:"subscription_id"`
	Date           string    `json:"date"`
	Previous       time.Time `json:"previous"`
}

type orderStatusBody struct {
	OrderID int64                    `json:"order_id"`
	From    subscription.OrderStatus `json:"from"`
	To      subscription.OrderStatus `json:"to"`
}

type paymentCompleteBody struct {
	SubscriptionID int64 `json:"subscription_id"`
	OrderID        int64 `json:"order_id"`
}

type orderRefBody struct {
	OrderID        int64 `json:"order_id"`
	SubscriptionID int64 `json:"subscription_id"`
}

func decodeBody(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return errors.Join(ErrInvalidBody, err)
	}
	return nil
}

func loadSubscription(ctx context.Context, subs subscription.Service, id int64) (*subscription.Subscription, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: subscription_id is required", ErrInvalidBody)
	}
	sub, err := subs.Subscription(ctx, id)
	if errors.Is(err, subscription.ErrSubscriptionNotFound) {
		return nil, fmt.Errorf("%w: subscription %d", ErrObjectNotFound, id)
	}
	return sub, err
}

func loadOrder(ctx context.Context, subs subscription.Service, id int64) (*subscription.Order, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: order_id is required", ErrInvalidBody)
	}
	order, err := subs.Order(ctx, id)
	if errors.Is(err, subscription.ErrOrderNotFound) {
		return nil, fmt.Errorf("%w: order %d", ErrObjectNotFound, id)
	}
	return order, err
}

func decodeStatusChange(ctx context.Context, subs subscription.Service, body []byte) (any, error) {
	var b statusChangeBody
	if err := decodeBody(body, &b); err != nil {
		return nil, err
	}
	if b.To == "" {
		return nil, fmt.Errorf("%w: to is required", ErrInvalidBody)
	}
	sub, err := loadSubscription(ctx, subs, b.SubscriptionID)
	if err != nil {
		return nil, err
	}
	return subscription.StatusChange{Subscription: sub, From: b.From, To: b.To}, nil
}

func decodeDatesChange(ctx context.Context, subs subscription.Service, body []byte) (any, error) {
	var b datesChangeBody
	if err := decodeBody(body, &b); err != nil {
		return nil, err
	}
	if b.Date == "" {
		b.Date = subscription.DateNextPayment
	}
	sub, err := loadSubscription(ctx, subs, b.SubscriptionID)
	if err != nil {
		return nil, err
	}
	return subscription.DatesChange{
		Subscription: sub,
		Date:         b.Date,
		Previous:     b.Previous,
		Current:      sub.NextPayment,
	}, nil
}

func decodeOrderStatusChange(ctx context.Context, subs subscription.Service, body []byte) (any, error) {
	var b orderStatusBody
	if err := decodeBody(body, &b); err != nil {
		return nil, err
	}
	order, err := loadOrder(ctx, subs, b.OrderID)
	if err != nil {
		return nil, err
	}
	to := b.To
	if to == "" {
		to = order.Status
	}
	return subscription.OrderStatusChange{Order: order, From: b.From, To: to}, nil
}

func decodePaymentComplete(ctx context.Context, subs subscription.Service, body []byte) (any, error) {
	var b paymentCompleteBody
	if err := decodeBody(body, &b); err != nil {
		return nil, err
	}
	sub, err := loadSubscription(ctx, subs, b.SubscriptionID)
	if err != nil {
		return nil, err
	}
	p := subscription.PaymentComplete{Subscription: sub}
	if b.OrderID > 0 {
		if p.Order, err = loadOrder(ctx, subs, b.OrderID); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func decodeOrderRef(ctx context.Context, subs subscription.Service, body []byte) (any, error) {
	var b orderRefBody
	if err := decodeBody(body, &b); err != nil {
		return nil, err
	}
	order, err := loadOrder(ctx, subs, b.OrderID)
	if err != nil {
		return nil, err
	}
	return subscription.OrderRef{OrderID: order.ID, SubscriptionID: order.SubscriptionID}, nil
}
