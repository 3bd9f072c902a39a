package renewal

import (
	"context"
	"errors"

	"github.com/dmitrymomot/renewalkit/pkg/hooks"
	"github.com/dmitrymomot/renewalkit/pkg/logger"
	"github.com/dmitrymomot/renewalkit/pkg/subscription"
)

// Coordinator creates payable renewal orders for manual subscriptions and
// holds the subscription until the order is paid.
type Coordinator struct {
	subs  subscription.Service
	queue TaskQueue
	cfg   Config
	opts  options
}

// NewCoordinator returns a Coordinator. The overdue check for every held
// subscription is scheduled in q.
func NewCoordinator(subs subscription.Service, q TaskQueue, cfg Config, opts ...Option) *Coordinator {
	return &Coordinator{subs: subs, queue: q, cfg: cfg, opts: newOptions(opts)}
}

// PendingRenewalOrder returns the newest renewal order of sub that is still
// pending, or nil.
func PendingRenewalOrder(ctx context.Context, subs subscription.Service, sub *subscription.Subscription) (*subscription.Order, error) {
	orders, err := subs.RenewalOrders(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		if o.Status == subscription.OrderPending {
			return o, nil
		}
	}
	return nil, nil
}

// PendingRenewalOrder returns the pending renewal order of sub, or nil.
func (c *Coordinator) PendingRenewalOrder(ctx context.Context, sub *subscription.Subscription) (*subscription.Order, error) {
	return PendingRenewalOrder(ctx, c.subs, sub)
}

// CreateOrder makes sure a manual subscription has a pending renewal order
// once the standard reminder fires. Creation failures are logged only; the
// daily sweep retries.
func (c *Coordinator) CreateOrder(ctx context.Context, args SubscriptionArgs) error {
	sub, err := c.manualSubscription(ctx, args.SubscriptionID)
	if sub == nil || err != nil {
		return err
	}

	pending, err := c.PendingRenewalOrder(ctx, sub)
	if err != nil {
		return err
	}
	if pending != nil {
		return nil
	}

	if _, err := createAutoLoginOrder(ctx, c.subs, sub, "Auto-created for login-free payment link."); err != nil {
		c.opts.logger.ErrorContext(ctx, "Failed to create renewal order",
			logger.SubscriptionID(sub.ID),
			logger.Error(err))
	}
	return nil
}

// PlaceOnHold snapshots the due date, puts the subscription on hold and
// schedules the overdue check one grace period after the due date.
func (c *Coordinator) PlaceOnHold(ctx context.Context, args SubscriptionArgs) error {
	sub, err := c.manualSubscription(ctx, args.SubscriptionID)
	if sub == nil || err != nil {
		return err
	}

	order, err := c.PendingRenewalOrder(ctx, sub)
	if err != nil || order == nil {
		return err
	}
	if !subscription.CanTransition(sub.Status, subscription.StatusOnHold) {
		c.opts.logger.InfoContext(ctx, "subscription cannot be put on hold",
			logger.SubscriptionID(sub.ID),
			logger.Status(string(sub.Status)))
		return nil
	}

	if sub.HasNextPayment() {
		sub.SetMeta(MetaOriginalNextPayment, formatMetaTime(sub.NextPayment))
	}
	if sub.Status == subscription.StatusOnHold {
		if err := c.subs.Save(ctx, sub); err != nil {
			return err
		}
	} else if err := c.subs.UpdateStatus(ctx, sub, subscription.StatusOnHold, "Awaiting manual renewal payment."); err != nil {
		return err
	}

	due := c.opts.now()
	if sub.HasNextPayment() {
		due = sub.NextPayment
	}
	check := OverdueArgs{SubscriptionID: sub.ID, OrderID: order.ID}
	if err := c.queue.Unschedule(ctx, ActionCheckOverdue, check); err != nil {
		return err
	}
	if err := c.queue.Schedule(ctx, ActionCheckOverdue, check, due.Add(c.cfg.GracePeriod)); err != nil {
		return err
	}

	c.opts.logger.InfoContext(ctx, "subscription on hold awaiting renewal payment",
		logger.SubscriptionID(sub.ID),
		logger.OrderID(order.ID))
	return nil
}

// FlagGeneratedOrder makes an admin-generated renewal order payable through
// the login-free link.
func (c *Coordinator) FlagGeneratedOrder(ctx context.Context, ref subscription.OrderRef) error {
	order, err := c.subs.Order(ctx, ref.OrderID)
	if errors.Is(err, subscription.ErrOrderNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if order.Status != subscription.OrderPending {
		if err := c.subs.UpdateOrderStatus(ctx, order, subscription.OrderPending, "Set pending for login-free payment link."); err != nil {
			return err
		}
	}
	order.SetMeta(MetaAutoLogin, "1")
	return c.subs.SaveOrder(ctx, order)
}

// Register runs CreateOrder before and PlaceOnHold after the host's renewal
// notification, so the notice can already link to the new order. Orders
// generated by an operator are flagged through FlagGeneratedOrder.
func (c *Coordinator) Register(d *hooks.Dispatcher) {
	hooks.On(d, ActionRenewalNotification, hooks.PriorityEarly, c.CreateOrder)
	hooks.On(d, ActionRenewalNotification, hooks.PriorityLate, c.PlaceOnHold)
	hooks.On(d, subscription.SignalManualRenewalOrder, hooks.PriorityDefault, c.FlagGeneratedOrder)
}

// manualSubscription loads a subscription requiring manual renewal. Missing
// and automatic subscriptions yield nil without error.
func (c *Coordinator) manualSubscription(ctx context.Context, id int64) (*subscription.Subscription, error) {
	sub, err := c.subs.Subscription(ctx, id)
	if errors.Is(err, subscription.ErrSubscriptionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !sub.RequiresManualRenewal {
		return nil, nil
	}
	return sub, nil
}

// createAutoLoginOrder creates a renewal order, forces it pending with note
// and marks it payable without login.
func createAutoLoginOrder(ctx context.Context, subs subscription.Service, sub *subscription.Subscription, note string) (*subscription.Order, error) {
	order, err := subs.CreateRenewalOrder(ctx, sub)
	if err != nil {
		return nil, err
	}
	if err := subs.UpdateOrderStatus(ctx, order, subscription.OrderPending, note); err != nil {
		return nil, err
	}
	order.SetMeta(MetaAutoLogin, "1")
	if err := subs.SaveOrder(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}
