package renewal

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/dmitrymomot/renewalkit/pkg/hooks"
	"github.com/dmitrymomot/renewalkit/pkg/logger"
	"github.com/dmitrymomot/renewalkit/pkg/subscription"
)

// ExtendedScheduler wraps a NotificationScheduler and keeps one early
// reminder per subscription, halfway between the standard notification
// and the due date.
type ExtendedScheduler struct {
	base  NotificationScheduler
	queue TaskQueue
	cfg   Config
	opts  options
}

var _ NotificationScheduler = (*ExtendedScheduler)(nil)

// NewExtendedScheduler wraps base. Early reminders are kept in q.
func NewExtendedScheduler(base NotificationScheduler, q TaskQueue, cfg Config, opts ...Option) *ExtendedScheduler {
	return &ExtendedScheduler{base: base, queue: q, cfg: cfg, opts: newOptions(opts)}
}

// EarlyReminderTime returns standard + (due - standard) / 2, truncated to
// whole seconds.
func EarlyReminderTime(standard, due time.Time) time.Time {
	return standard.Add(due.Sub(standard) / 2).Truncate(time.Second)
}

// NotificationTime is the standard notification time of the wrapped scheduler.
func (e *ExtendedScheduler) NotificationTime(sub *subscription.Subscription, kind string) (time.Time, bool) {
	return e.base.NotificationTime(sub, kind)
}

// ScheduleNotification schedules the standard notification, then the early
// reminder for the next payment date.
func (e *ExtendedScheduler) ScheduleNotification(ctx context.Context, sub *subscription.Subscription, kind string) error {
	if err := e.base.ScheduleNotification(ctx, sub, kind); err != nil {
		return err
	}
	if kind != subscription.DateNextPayment {
		return nil
	}
	return e.scheduleEarlyReminder(ctx, sub)
}

// UpdateDate reschedules both notifications after a next payment change.
func (e *ExtendedScheduler) UpdateDate(ctx context.Context, sub *subscription.Subscription, kind string) error {
	if err := e.base.UpdateDate(ctx, sub, kind); err != nil {
		return err
	}
	if kind != subscription.DateNextPayment {
		return nil
	}
	return e.scheduleEarlyReminder(ctx, sub)
}

// UpdateStatus delegates to the wrapped scheduler, then schedules the early
// reminder on activation and clears it otherwise. A still-future reminder
// survives the move to on-hold.
func (e *ExtendedScheduler) UpdateStatus(ctx context.Context, sub *subscription.Subscription, from, to subscription.Status) error {
	args := SubscriptionArgs{SubscriptionID: sub.ID}

	var saved time.Time
	if to == subscription.StatusOnHold {
		at, ok, err := e.queue.NextScheduled(ctx, ActionEarlyReminder, args)
		if err != nil {
			return err
		}
		if ok {
			saved = at
		}
	}

	if err := e.base.UpdateStatus(ctx, sub, from, to); err != nil {
		return err
	}

	if to == subscription.StatusActive {
		return e.scheduleEarlyReminder(ctx, sub)
	}

	// Covers pending-cancel explicitly and every status the wrapped
	// scheduler answers with UnscheduleAll.
	if err := e.queue.Unschedule(ctx, ActionEarlyReminder, args); err != nil {
		return err
	}

	if !saved.IsZero() && saved.After(e.opts.now()) {
		if err := e.queue.Schedule(ctx, ActionEarlyReminder, args, saved); err != nil {
			return err
		}
		e.opts.logger.DebugContext(ctx, "early reminder kept while on hold",
			logger.SubscriptionID(sub.ID),
			logger.Action(ActionEarlyReminder))
	}
	return nil
}

// UnscheduleAll cancels the wrapped notifications and the early reminder,
// unless ActionEarlyReminder is listed in exceptions.
func (e *ExtendedScheduler) UnscheduleAll(ctx context.Context, sub *subscription.Subscription, exceptions ...string) error {
	if err := e.base.UnscheduleAll(ctx, sub, exceptions...); err != nil {
		return err
	}
	if slices.Contains(exceptions, ActionEarlyReminder) {
		return nil
	}
	return e.queue.Unschedule(ctx, ActionEarlyReminder, SubscriptionArgs{SubscriptionID: sub.ID})
}

func (e *ExtendedScheduler) scheduleEarlyReminder(ctx context.Context, sub *subscription.Subscription) error {
	if !e.cfg.NotificationsEnabled {
		return nil
	}
	if sub.Status != subscription.StatusActive && sub.Status != subscription.StatusPendingCancel {
		return nil
	}
	if periodTooShort(sub) || !sub.HasNextPayment() {
		return nil
	}
	standard, ok := e.base.NotificationTime(sub, subscription.DateNextPayment)
	if !ok {
		return nil
	}

	at := EarlyReminderTime(standard, sub.NextPayment)
	if !at.After(e.opts.now()) {
		return nil
	}

	args := SubscriptionArgs{SubscriptionID: sub.ID}
	current, ok, err := e.queue.NextScheduled(ctx, ActionEarlyReminder, args)
	if err != nil {
		return err
	}
	if ok && current.Equal(at) {
		return nil
	}

	if err := e.queue.Unschedule(ctx, ActionEarlyReminder, args); err != nil {
		return err
	}
	if err := e.queue.Schedule(ctx, ActionEarlyReminder, args, at); err != nil {
		return err
	}
	e.opts.logger.DebugContext(ctx, "early reminder scheduled",
		logger.SubscriptionID(sub.ID),
		logger.Action(ActionEarlyReminder))
	return nil
}

// Register subscribes the scheduler to subscription lifecycle signals.
func (e *ExtendedScheduler) Register(d *hooks.Dispatcher) {
	hooks.On(d, subscription.SignalStatusChanged, hooks.PriorityDefault,
		func(ctx context.Context, p subscription.StatusChange) error {
			return e.UpdateStatus(ctx, p.Subscription, p.From, p.To)
		})
	hooks.On(d, subscription.SignalDatesChanged, hooks.PriorityDefault,
		func(ctx context.Context, p subscription.DatesChange) error {
			return e.UpdateDate(ctx, p.Subscription, p.Date)
		})
}

// EarlyReminderSender handles ActionEarlyReminder by asking the host to send
// the early reminder notification. When nothing listens for it the standard
// renewal notification runs instead.
type EarlyReminderSender struct {
	subs  subscription.Service
	hooks *hooks.Dispatcher
	opts  options
}

// NewEarlyReminderSender returns a sender dispatching through d.
func NewEarlyReminderSender(subs subscription.Service, d *hooks.Dispatcher, opts ...Option) *EarlyReminderSender {
	return &EarlyReminderSender{subs: subs, hooks: d, opts: newOptions(opts)}
}

// Send dispatches the early reminder for a subscription that still has a next
// payment date. Deleted subscriptions are ignored.
func (s *EarlyReminderSender) Send(ctx context.Context, args SubscriptionArgs) error {
	sub, err := s.subs.Subscription(ctx, args.SubscriptionID)
	if errors.Is(err, subscription.ErrSubscriptionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !sub.HasNextPayment() {
		return nil
	}

	if s.hooks.HasAction(SignalEarlyReminderNotification) {
		return s.hooks.Do(ctx, SignalEarlyReminderNotification, EarlyReminder{
			Subscription: sub,
			NextPayment:  sub.NextPayment,
		})
	}

	s.opts.logger.DebugContext(ctx, "no early reminder handler, falling back to renewal notification",
		logger.SubscriptionID(sub.ID))
	return s.hooks.Do(ctx, ActionRenewalNotification, args)
}

// Register handles ActionEarlyReminder.
func (s *EarlyReminderSender) Register(d *hooks.Dispatcher) {
	hooks.On(d, ActionEarlyReminder, hooks.PriorityDefault, s.Send)
}
