package renewal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrymomot/renewalkit/pkg/email"
	"github.com/dmitrymomot/renewalkit/pkg/hooks"
	"github.com/dmitrymomot/renewalkit/pkg/logger"
	"github.com/dmitrymomot/renewalkit/pkg/queue"
	"github.com/dmitrymomot/renewalkit/pkg/subscription"
)

// OverdueDetector flags renewals left unpaid past the grace period.
type OverdueDetector struct {
	subs   subscription.Service
	sender email.EmailSender
	msgs   *Messages
	cfg    Config
	opts   options
}

// NewOverdueDetector returns a detector sending alerts through sender. A nil
// msgs uses DefaultMessages.
func NewOverdueDetector(subs subscription.Service, sender email.EmailSender, msgs *Messages, cfg Config, opts ...Option) *OverdueDetector {
	if msgs == nil {
		msgs = DefaultMessages()
	}
	return &OverdueDetector{subs: subs, sender: sender, msgs: msgs, cfg: cfg, opts: newOptions(opts)}
}

// IsOverdue reports whether sub carries the overdue flag.
func IsOverdue(sub *subscription.Subscription) bool {
	_, ok := sub.Meta.Get(MetaOverdueSince)
	return ok
}

// Check flags the subscription when the renewal order is still unpaid and
// sends one customer and one operator notification. Subscriptions already
// flagged are left alone.
func (o *OverdueDetector) Check(ctx context.Context, args OverdueArgs) error {
	sub, err := o.subs.Subscription(ctx, args.SubscriptionID)
	if errors.Is(err, subscription.ErrSubscriptionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	order, err := o.subs.Order(ctx, args.OrderID)
	if errors.Is(err, subscription.ErrOrderNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if order.Status != subscription.OrderPending && order.Status != subscription.OrderFailed {
		return nil
	}
	if IsOverdue(sub) {
		return nil
	}

	sub.SetMeta(MetaOverdueSince, formatMetaTime(o.opts.now()))
	if err := o.subs.Save(ctx, sub); err != nil {
		return err
	}
	// Best effort: once the flag is saved a retry stops at IsOverdue.
	if err := o.subs.AddNote(ctx, subscription.NoteOnSubscription, sub.ID,
		fmt.Sprintf("Subscription marked overdue. Renewal order #%d remains unpaid.", order.ID)); err != nil {
		o.opts.logger.WarnContext(ctx, "failed to add overdue note",
			logger.SubscriptionID(sub.ID),
			logger.OrderID(order.ID),
			logger.Error(err))
	}

	o.opts.logger.InfoContext(ctx, "subscription marked overdue",
		logger.SubscriptionID(sub.ID),
		logger.OrderID(order.ID))

	o.notify(ctx, sub, order)
	return nil
}

// notify sends the overdue emails. Failures are logged: the flag is already
// set and a retry would not send again.
func (o *OverdueDetector) notify(ctx context.Context, sub *subscription.Subscription, order *subscription.Order) {
	customerEmail := order.Billing.Email
	if customerEmail == "" {
		customerEmail = sub.Billing.Email
	}
	contact := order.Billing
	if contact.FullName() == "" {
		contact = sub.Billing
	}

	data := MessageData{
		SiteName:        o.cfg.SiteName,
		CustomerName:    contact.FirstName,
		CustomerEmail:   customerEmail,
		SubscriptionID:  sub.ID,
		OrderID:         order.ID,
		PayURL:          OrderPayURL(o.cfg.CheckoutURL, order, false),
		SubscriptionURL: adminEditURL(o.cfg.AdminURL, "subscriptions", sub.ID),
		OrderURL:        adminEditURL(o.cfg.AdminURL, "orders", order.ID),
	}

	if customerEmail != "" {
		if err := sendMessage(ctx, o.sender, o.msgs, MessageOverdueCustomer, customerEmail, "renewal-overdue", mailText, data); err != nil {
			o.opts.logger.ErrorContext(ctx, "failed to send overdue notice to customer",
				logger.SubscriptionID(sub.ID), logger.OrderID(order.ID), logger.Error(err))
		}
	}

	if o.cfg.OperatorEmail == "" {
		o.opts.logger.WarnContext(ctx, "operator email not configured, overdue alert not sent",
			logger.SubscriptionID(sub.ID))
		return
	}
	data.CustomerName = contact.FullName()
	if err := sendMessage(ctx, o.sender, o.msgs, MessageOverdueOperator, o.cfg.OperatorEmail, "renewal-overdue-operator", mailText, data); err != nil {
		o.opts.logger.ErrorContext(ctx, "failed to send overdue alert to operator",
			logger.SubscriptionID(sub.ID), logger.OrderID(order.ID), logger.Error(err))
	}
}

// ClearFlag removes the overdue flag once the renewal is paid.
func (o *OverdueDetector) ClearFlag(ctx context.Context, p subscription.PaymentComplete) error {
	if p.Subscription == nil {
		return nil
	}
	sub, err := o.subs.Subscription(ctx, p.Subscription.ID)
	if errors.Is(err, subscription.ErrSubscriptionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !sub.DeleteMeta(MetaOverdueSince) {
		return nil
	}
	if err := o.subs.Save(ctx, sub); err != nil {
		return err
	}
	o.opts.logger.InfoContext(ctx, "overdue flag cleared", logger.SubscriptionID(sub.ID))
	return nil
}

// Sweep checks every unflagged on-hold subscription whose grace period has
// elapsed, creating the missing renewal order for manual subscriptions.
func (o *OverdueDetector) Sweep(ctx context.Context) error {
	subs, err := o.subs.ListSubscriptions(ctx, subscription.Filter{
		Statuses:  []subscription.Status{subscription.StatusOnHold},
		LacksMeta: MetaOverdueSince,
	})
	if err != nil {
		return fmt.Errorf("list on-hold subscriptions: %w", err)
	}

	now := o.opts.now()
	var errs []error
	for _, sub := range subs {
		if !sub.HasNextPayment() || sub.NextPayment.Add(o.cfg.GracePeriod).After(now) {
			continue
		}

		order, err := PendingRenewalOrder(ctx, o.subs, sub)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if order == nil {
			if !sub.RequiresManualRenewal {
				continue
			}
			order, err = createAutoLoginOrder(ctx, o.subs, sub, "Auto-created by overdue check.")
			if err != nil {
				o.opts.logger.ErrorContext(ctx, "Failed to create renewal order during overdue check",
					logger.SubscriptionID(sub.ID),
					logger.Error(err))
				continue
			}
		}

		if err := o.Check(ctx, OverdueArgs{SubscriptionID: sub.ID, OrderID: order.ID}); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Register subscribes Check, Sweep and ClearFlag.
func (o *OverdueDetector) Register(d *hooks.Dispatcher) {
	hooks.On(d, ActionCheckOverdue, hooks.PriorityDefault, o.Check)
	d.AddAction(ActionDailyOverdueCheck, hooks.PriorityDefault, func(ctx context.Context, _ any) error {
		return o.Sweep(ctx)
	})
	hooks.On(d, subscription.SignalRenewalPaymentComplete, hooks.PriorityDefault, o.ClearFlag)
}

// RegisterDailySweep adds the daily sweep to s, first due at the next local
// midnight. Registering twice is a no-op.
func RegisterDailySweep(s *queue.Scheduler, opts ...queue.SchedulerTaskOption) error {
	if s.HasTask(ActionDailyOverdueCheck) {
		return nil
	}
	err := s.AddTask(ActionDailyOverdueCheck, queue.DailyAt(0, 0), opts...)
	if errors.Is(err, queue.ErrTaskAlreadyRegistered) {
		return nil
	}
	return err
}

func adminEditURL(adminURL, kind string, id int64) string {
	return fmt.Sprintf("%s/%s/%d/edit", strings.TrimRight(adminURL, "/"), kind, id)
}
