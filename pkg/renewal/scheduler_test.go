package renewal_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/renewalkit/pkg/hooks"
	"github.com/dmitrymomot/renewalkit/pkg/renewal"
	"github.com/dmitrymomot/renewalkit/pkg/subscription"
)

func TestEarlyReminderTime(t *testing.T) {
	t.Parallel()

	t.Run("midpoint", func(t *testing.T) {
		t.Parallel()
		standard := time.Date(2024, 3, 8, 9, 0, 0, 0, time.UTC)
		due := time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2024, 3, 9, 21, 0, 0, 0, time.UTC), renewal.EarlyReminderTime(standard, due))
	})

	t.Run("truncated to whole seconds", func(t *testing.T) {
		t.Parallel()
		standard := time.Date(2024, 3, 8, 9, 0, 0, 0, time.UTC)
		due := standard.Add(3 * time.Second)
		assert.Equal(t, standard.Add(time.Second), renewal.EarlyReminderTime(standard, due))
	})

	t.Run("holds for arbitrary notice periods", func(t *testing.T) {
		t.Parallel()
		due := time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC)
		for _, notice := range []time.Duration{time.Hour, 25 * time.Hour, 7 * 24 * time.Hour, 1001 * time.Second} {
			standard := due.Add(-notice)
			got := renewal.EarlyReminderTime(standard, due)
			assert.Equal(t, standard.Add(notice/2).Truncate(time.Second), got, "notice %s", notice)
			assert.True(t, got.After(standard))
			assert.True(t, got.Before(due))
		}
	})
}

func TestStandardScheduler(t *testing.T) {
	t.Parallel()

	t.Run("schedules one notice period before due date", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		sub := e.seed()
		s := e.standardScheduler()

		require.NoError(t, s.ScheduleNotification(e.ctx, sub, subscription.DateNextPayment))
		require.NoError(t, s.ScheduleNotification(e.ctx, sub, subscription.DateNextPayment))

		tasks := e.tasks.PendingTasks(renewal.ActionRenewalNotification)
		require.Len(t, tasks, 1)
		assert.Equal(t, sub.NextPayment.Add(-72*time.Hour), tasks[0].ScheduledAt)
		assert.JSONEq(t, `{"subscription_id":1}`, string(tasks[0].Payload))
	})

	t.Run("skips inactive and too frequent subscriptions", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		s := e.standardScheduler()

		onHold := e.seed(withStatus(subscription.StatusOnHold))
		daily := e.seed(func(s *subscription.Subscription) {
			s.BillingPeriod = subscription.PeriodDay
			s.BillingInterval = 2
		})
		for _, sub := range []*subscription.Subscription{onHold, daily} {
			require.NoError(t, s.ScheduleNotification(e.ctx, sub, subscription.DateNextPayment))
		}
		assert.Empty(t, e.tasks.PendingTasks(renewal.ActionRenewalNotification))
	})

	t.Run("non active status unschedules", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		sub := e.seed()
		s := e.standardScheduler()

		require.NoError(t, s.ScheduleNotification(e.ctx, sub, subscription.DateNextPayment))
		require.NoError(t, s.UpdateStatus(e.ctx, sub, subscription.StatusActive, subscription.StatusCancelled))
		assert.Empty(t, e.tasks.PendingTasks(renewal.ActionRenewalNotification))
	})
}

func TestExtendedScheduler_ScheduleNotification(t *testing.T) {
	t.Parallel()

	expected := time.Date(2024, 3, 9, 21, 0, 0, 0, time.UTC)

	t.Run("schedules standard and early reminder", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		ext := e.install()
		sub := e.seed()

		require.NoError(t, ext.Scheduler.ScheduleNotification(e.ctx, sub, subscription.DateNextPayment))

		std := e.tasks.PendingTasks(renewal.ActionRenewalNotification)
		require.Len(t, std, 1)
		assert.Equal(t, time.Date(2024, 3, 8, 9, 0, 0, 0, time.UTC), std[0].ScheduledAt)

		early := e.tasks.PendingTasks(renewal.ActionEarlyReminder)
		require.Len(t, early, 1)
		assert.Equal(t, expected, early[0].ScheduledAt)
		assert.JSONEq(t, `{"subscription_id":1}`, string(early[0].Payload))
	})

	t.Run("same time is left untouched", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		ext := e.install()
		sub := e.seed()

		require.NoError(t, ext.Scheduler.ScheduleNotification(e.ctx, sub, subscription.DateNextPayment))
		first := e.tasks.PendingTasks(renewal.ActionEarlyReminder)
		require.Len(t, first, 1)

		require.NoError(t, ext.Scheduler.ScheduleNotification(e.ctx, sub, subscription.DateNextPayment))
		second := e.tasks.PendingTasks(renewal.ActionEarlyReminder)
		require.Len(t, second, 1)
		assert.Equal(t, first[0].ID, second[0].ID)
	})

	t.Run("date change supersedes", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		ext := e.install()
		sub := e.seed()
		require.NoError(t, ext.Scheduler.ScheduleNotification(e.ctx, sub, subscription.DateNextPayment))

		// the dates signal drives the extended scheduler
		require.NoError(t, e.subs.UpdateNextPayment(e.ctx, sub, baseNow.AddDate(0, 0, 20)))

		early := e.tasks.PendingTasks(renewal.ActionEarlyReminder)
		require.Len(t, early, 1)
		assert.Equal(t, time.Date(2024, 3, 19, 21, 0, 0, 0, time.UTC), early[0].ScheduledAt)
	})

	t.Run("past midpoint is not back scheduled", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		ext := e.install()
		sub := e.seed(dueAt(baseNow.Add(24 * time.Hour)))

		require.NoError(t, ext.Scheduler.ScheduleNotification(e.ctx, sub, subscription.DateNextPayment))
		assert.Empty(t, e.tasks.PendingTasks(renewal.ActionEarlyReminder))
	})

	t.Run("midpoint exactly now is skipped", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		ext := e.install()
		// standard = now - 36h, midpoint = now
		sub := e.seed(dueAt(baseNow.Add(36 * time.Hour)))

		require.NoError(t, ext.Scheduler.ScheduleNotification(e.ctx, sub, subscription.DateNextPayment))
		assert.Empty(t, e.tasks.PendingTasks(renewal.ActionEarlyReminder))
	})

	t.Run("notifications disabled", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t, func(c *renewal.Config) { c.NotificationsEnabled = false })
		ext := e.install()
		sub := e.seed()

		require.NoError(t, ext.Scheduler.ScheduleNotification(e.ctx, sub, subscription.DateNextPayment))
		assert.Empty(t, e.tasks.PendingTasks(""))
	})

	t.Run("billing period too short", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		ext := e.install()
		short := e.seed(func(s *subscription.Subscription) {
			s.BillingPeriod = subscription.PeriodDay
			s.BillingInterval = 1
		})
		longer := e.seed(func(s *subscription.Subscription) {
			s.BillingPeriod = subscription.PeriodDay
			s.BillingInterval = 3
		})

		require.NoError(t, ext.Scheduler.ScheduleNotification(e.ctx, short, subscription.DateNextPayment))
		assert.Empty(t, e.tasks.PendingTasks(renewal.ActionEarlyReminder))

		require.NoError(t, ext.Scheduler.ScheduleNotification(e.ctx, longer, subscription.DateNextPayment))
		assert.Len(t, e.tasks.PendingTasks(renewal.ActionEarlyReminder), 1)
	})

	t.Run("other date kinds only reach the wrapped scheduler", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		ext := e.install()
		sub := e.seed()

		require.NoError(t, ext.Scheduler.ScheduleNotification(e.ctx, sub, "trial_end"))
		assert.Empty(t, e.tasks.PendingTasks(""))
	})
}

func TestExtendedScheduler_UpdateStatus(t *testing.T) {
	t.Parallel()

	scheduled := func(e *testEnv) *subscription.Subscription {
		e.t.Helper()
		sub := e.seed()
		require.NoError(e.t, e.ext.Scheduler.ScheduleNotification(e.ctx, sub, subscription.DateNextPayment))
		require.Len(e.t, e.tasks.PendingTasks(renewal.ActionEarlyReminder), 1)
		return sub
	}

	t.Run("on hold keeps a future early reminder", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		e.install()
		sub := scheduled(e)

		require.NoError(t, e.subs.UpdateStatus(e.ctx, sub, subscription.StatusOnHold, ""))

		assert.Empty(t, e.tasks.PendingTasks(renewal.ActionRenewalNotification))
		early := e.tasks.PendingTasks(renewal.ActionEarlyReminder)
		require.Len(t, early, 1)
		assert.Equal(t, time.Date(2024, 3, 9, 21, 0, 0, 0, time.UTC), early[0].ScheduledAt)
	})

	t.Run("on hold drops an early reminder already due", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		e.install()
		sub := scheduled(e)

		e.now = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
		require.NoError(t, e.subs.UpdateStatus(e.ctx, sub, subscription.StatusOnHold, ""))
		assert.Empty(t, e.tasks.PendingTasks(renewal.ActionEarlyReminder))
	})

	t.Run("pending cancel cancels", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		e.install()
		sub := scheduled(e)

		require.NoError(t, e.subs.UpdateStatus(e.ctx, sub, subscription.StatusPendingCancel, ""))
		assert.Empty(t, e.tasks.PendingTasks(renewal.ActionEarlyReminder))
		assert.Empty(t, e.tasks.PendingTasks(renewal.ActionRenewalNotification))
	})

	for _, to := range []subscription.Status{subscription.StatusCancelled, subscription.StatusExpired} {
		t.Run(string(to)+" cancels", func(t *testing.T) {
			t.Parallel()
			e := newEnv(t)
			e.install()
			sub := scheduled(e)

			require.NoError(t, e.subs.UpdateStatus(e.ctx, sub, to, ""))
			assert.Empty(t, e.tasks.PendingTasks(""))
		})
	}

	t.Run("reactivation reschedules", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		e.install()
		sub := e.seed(withStatus(subscription.StatusOnHold))

		require.NoError(t, e.subs.UpdateStatus(e.ctx, sub, subscription.StatusActive, ""))
		assert.Len(t, e.tasks.PendingTasks(renewal.ActionRenewalNotification), 1)
		assert.Len(t, e.tasks.PendingTasks(renewal.ActionEarlyReminder), 1)
	})
}

func TestExtendedScheduler_UnscheduleAll(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ext := e.install()
	sub := e.seed()
	require.NoError(t, ext.Scheduler.ScheduleNotification(e.ctx, sub, subscription.DateNextPayment))

	require.NoError(t, ext.Scheduler.UnscheduleAll(e.ctx, sub, renewal.ActionEarlyReminder))
	assert.Empty(t, e.tasks.PendingTasks(renewal.ActionRenewalNotification))
	assert.Len(t, e.tasks.PendingTasks(renewal.ActionEarlyReminder), 1)

	require.NoError(t, ext.Scheduler.UnscheduleAll(e.ctx, sub))
	assert.Empty(t, e.tasks.PendingTasks(""))
}

func TestEarlyReminderSender(t *testing.T) {
	t.Parallel()

	t.Run("dispatches the early reminder signal", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		e.install()
		sub := e.seed()

		var got []renewal.EarlyReminder
		hooks.On(e.d, renewal.SignalEarlyReminderNotification, hooks.PriorityDefault,
			func(_ context.Context, r renewal.EarlyReminder) error {
				got = append(got, r)
				return nil
			})

		require.NoError(t, e.d.Do(e.ctx, renewal.ActionEarlyReminder, renewal.SubscriptionArgs{SubscriptionID: sub.ID}))
		require.Len(t, got, 1)
		assert.Equal(t, sub.ID, got[0].Subscription.ID)
		assert.Equal(t, sub.NextPayment, got[0].NextPayment)
		assert.Zero(t, e.d.Fired(renewal.ActionRenewalNotification))
	})

	t.Run("falls back to the standard notification", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		sender := renewal.NewEarlyReminderSender(e.subs, e.d, e.opts()...)
		sender.Register(e.d)
		sub := e.seed()

		var got []renewal.SubscriptionArgs
		hooks.On(e.d, renewal.ActionRenewalNotification, hooks.PriorityDefault,
			func(_ context.Context, a renewal.SubscriptionArgs) error {
				got = append(got, a)
				return nil
			})

		require.NoError(t, e.d.Do(e.ctx, renewal.ActionEarlyReminder, renewal.SubscriptionArgs{SubscriptionID: sub.ID}))
		assert.Equal(t, []renewal.SubscriptionArgs{{SubscriptionID: sub.ID}}, got)
	})

	t.Run("missing subscription or due date is a no-op", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		sender := renewal.NewEarlyReminderSender(e.subs, e.d, e.opts()...)
		noDue := e.seed(dueAt(time.Time{}))

		require.NoError(t, sender.Send(e.ctx, renewal.SubscriptionArgs{SubscriptionID: 404}))
		require.NoError(t, sender.Send(e.ctx, renewal.SubscriptionArgs{SubscriptionID: noDue.ID}))
		assert.Zero(t, e.d.Fired(renewal.ActionRenewalNotification))
		assert.Zero(t, e.d.Fired(renewal.SignalEarlyReminderNotification))
	})
}
