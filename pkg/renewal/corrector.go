package renewal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrymomot/renewalkit/pkg/hooks"
	"github.com/dmitrymomot/renewalkit/pkg/logger"
	"github.com/dmitrymomot/renewalkit/pkg/subscription"
)

// ScheduleCorrector keeps the billing anchor after a late manual payment:
// next payment becomes the snapshotted due date plus one interval instead of
// the payment date plus one interval.
type ScheduleCorrector struct {
	subs subscription.Service
	cfg  Config
	opts options
}

// NewScheduleCorrector returns a ScheduleCorrector.
func NewScheduleCorrector(subs subscription.Service, cfg Config, opts ...Option) *ScheduleCorrector {
	return &ScheduleCorrector{subs: subs, cfg: cfg, opts: newOptions(opts)}
}

// Restore applies the correction to sub and removes the snapshot.
func (c *ScheduleCorrector) Restore(ctx context.Context, sub *subscription.Subscription) error {
	raw, ok := sub.Meta.Get(MetaOriginalNextPayment)
	if !ok {
		return nil
	}

	original, valid := parseMetaTime(raw)
	if !valid {
		c.opts.logger.WarnContext(ctx, "discarding unreadable due date snapshot",
			logger.SubscriptionID(sub.ID))
	} else {
		correct, err := subscription.AddInterval(original, sub.BillingInterval, sub.BillingPeriod)
		if err != nil {
			return err
		}
		if current := sub.NextPayment; !current.Equal(correct) {
			if err := c.subs.UpdateNextPayment(ctx, sub, correct); err != nil {
				return err
			}
			if err := c.subs.AddNote(ctx, subscription.NoteOnSubscription, sub.ID, fmt.Sprintf(
				"Next payment date corrected from %s to %s to preserve original billing schedule.",
				c.formatDate(current), c.formatDate(correct),
			)); err != nil {
				return err
			}
			c.opts.logger.InfoContext(ctx, "next payment date corrected",
				logger.SubscriptionID(sub.ID))
		}
	}

	sub.DeleteMeta(MetaOriginalNextPayment)
	return c.subs.Save(ctx, sub)
}

// OnPaymentComplete handles SignalRenewalPaymentComplete.
func (c *ScheduleCorrector) OnPaymentComplete(ctx context.Context, p subscription.PaymentComplete) error {
	if p.Subscription == nil {
		return nil
	}
	return c.restoreByID(ctx, p.Subscription.ID)
}

// OnOrderStatusChanged corrects every subscription linked to a renewal order
// that an operator marked processing or completed.
func (c *ScheduleCorrector) OnOrderStatusChanged(ctx context.Context, p subscription.OrderStatusChange) error {
	if p.Order == nil || !p.To.Paid() || p.Order.Relation != subscription.RelationRenewal {
		return nil
	}
	subs, err := c.subs.SubscriptionsForOrder(ctx, p.Order.ID)
	if errors.Is(err, subscription.ErrOrderNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	var errs []error
	for _, sub := range subs {
		if err := c.Restore(ctx, sub); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Register listens for completed renewal payments and order status changes.
func (c *ScheduleCorrector) Register(d *hooks.Dispatcher) {
	hooks.On(d, subscription.SignalRenewalPaymentComplete, hooks.PriorityDefault, c.OnPaymentComplete)
	hooks.On(d, subscription.SignalOrderStatusChanged, hooks.PriorityDefault, c.OnOrderStatusChanged)
}

func (c *ScheduleCorrector) restoreByID(ctx context.Context, id int64) error {
	sub, err := c.subs.Subscription(ctx, id)
	if errors.Is(err, subscription.ErrSubscriptionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return c.Restore(ctx, sub)
}

func (c *ScheduleCorrector) formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(c.cfg.DateFormat)
}
