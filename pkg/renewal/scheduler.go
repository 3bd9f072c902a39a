package renewal

import (
	"context"
	"slices"
	"time"

	"github.com/dmitrymomot/renewalkit/pkg/logger"
	"github.com/dmitrymomot/renewalkit/pkg/subscription"
)

// TaskQueue schedules one-off actions keyed by name and arguments.
// *queue.Actions satisfies it.
type TaskQueue interface {
	Schedule(ctx context.Context, action string, args any, at time.Time) error
	Unschedule(ctx context.Context, action string, args any) error
	NextScheduled(ctx context.Context, action string, args any) (time.Time, bool, error)
}

// NotificationScheduler keeps per-subscription customer notifications in
// step with the subscription's status and dates.
type NotificationScheduler interface {
	// ScheduleNotification (re)schedules the notification for a date kind.
	ScheduleNotification(ctx context.Context, sub *subscription.Subscription, kind string) error
	// UpdateStatus reacts to a status transition.
	UpdateStatus(ctx context.Context, sub *subscription.Subscription, from, to subscription.Status) error
	// UpdateDate reacts to a change of the named date.
	UpdateDate(ctx context.Context, sub *subscription.Subscription, kind string) error
	// UnscheduleAll cancels every notification except the named actions.
	UnscheduleAll(ctx context.Context, sub *subscription.Subscription, exceptions ...string) error
	// NotificationTime is when the notification for kind fires, if it applies.
	NotificationTime(sub *subscription.Subscription, kind string) (time.Time, bool)
}

// StandardScheduler is the host's reference notification scheduler. It
// schedules ActionRenewalNotification one notice period before next payment.
type StandardScheduler struct {
	queue TaskQueue
	cfg   Config
	opts  options
}

var _ NotificationScheduler = (*StandardScheduler)(nil)

// NewStandardScheduler returns a scheduler keeping its actions in q.
func NewStandardScheduler(q TaskQueue, cfg Config, opts ...Option) *StandardScheduler {
	return &StandardScheduler{queue: q, cfg: cfg, opts: newOptions(opts)}
}

// periodTooShort reports subscriptions billed too often for reminders.
func periodTooShort(sub *subscription.Subscription) bool {
	return sub.BillingPeriod == subscription.PeriodDay && sub.BillingInterval <= 2
}

// NotificationTime is next payment minus the notice period.
func (s *StandardScheduler) NotificationTime(sub *subscription.Subscription, kind string) (time.Time, bool) {
	if kind != subscription.DateNextPayment || !sub.HasNextPayment() {
		return time.Time{}, false
	}
	return sub.NextPayment.Add(-s.cfg.NoticePeriod), true
}

// ScheduleNotification replaces any pending renewal notification. Nothing is
// scheduled for inactive subscriptions, short billing periods or times
// already in the past.
func (s *StandardScheduler) ScheduleNotification(ctx context.Context, sub *subscription.Subscription, kind string) error {
	if kind != subscription.DateNextPayment {
		return nil
	}
	args := SubscriptionArgs{SubscriptionID: sub.ID}
	if err := s.queue.Unschedule(ctx, ActionRenewalNotification, args); err != nil {
		return err
	}

	if !s.cfg.NotificationsEnabled || sub.Status != subscription.StatusActive || periodTooShort(sub) {
		return nil
	}
	at, ok := s.NotificationTime(sub, kind)
	if !ok || !at.After(s.opts.now()) {
		return nil
	}

	if err := s.queue.Schedule(ctx, ActionRenewalNotification, args, at); err != nil {
		return err
	}
	s.opts.logger.DebugContext(ctx, "renewal notification scheduled",
		logger.SubscriptionID(sub.ID),
		logger.Action(ActionRenewalNotification))
	return nil
}

// UpdateStatus schedules on activation and unschedules on any other status.
func (s *StandardScheduler) UpdateStatus(ctx context.Context, sub *subscription.Subscription, _, to subscription.Status) error {
	if to == subscription.StatusActive {
		return s.ScheduleNotification(ctx, sub, subscription.DateNextPayment)
	}
	return s.UnscheduleAll(ctx, sub)
}

// UpdateDate reschedules after a date change.
func (s *StandardScheduler) UpdateDate(ctx context.Context, sub *subscription.Subscription, kind string) error {
	return s.ScheduleNotification(ctx, sub, kind)
}

// UnscheduleAll cancels the renewal notification unless it is an exception.
func (s *StandardScheduler) UnscheduleAll(ctx context.Context, sub *subscription.Subscription, exceptions ...string) error {
	if slices.Contains(exceptions, ActionRenewalNotification) {
		return nil
	}
	return s.queue.Unschedule(ctx, ActionRenewalNotification, SubscriptionArgs{SubscriptionID: sub.ID})
}
