package renewal_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/renewalkit/pkg/renewal"
	"github.com/dmitrymomot/renewalkit/pkg/subscription"
)

func TestScheduleCorrector_LatePayment(t *testing.T) {
	t.Parallel()

	original := time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)

	for _, tc := range []struct {
		name    string
		paidAt  time.Time
		period  subscription.Period
		want    time.Time
		noteSub string
	}{
		{
			name:    "monthly paid five days late",
			paidAt:  original.AddDate(0, 0, 5),
			period:  subscription.PeriodMonth,
			want:    time.Date(2024, 4, 11, 9, 0, 0, 0, time.UTC),
			noteSub: "Next payment date corrected from April 16, 2024 to April 11, 2024 to preserve original billing schedule.",
		},
		{
			name:    "weekly paid two weeks late",
			paidAt:  original.AddDate(0, 0, 14),
			period:  subscription.PeriodWeek,
			want:    time.Date(2024, 3, 18, 9, 0, 0, 0, time.UTC),
			noteSub: "Next payment date corrected from April 1, 2024 to March 18, 2024 to preserve original billing schedule.",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			e := newEnv(t)
			e.install()
			sub, args := awaitingPayment(e, dueAt(original), func(s *subscription.Subscription) {
				s.BillingPeriod = tc.period
			})
			require.Equal(t, "2024-03-11T09:00:00Z", sub.Meta[renewal.MetaOriginalNextPayment])

			e.now = tc.paidAt
			require.NoError(t, e.subs.CompleteRenewalPayment(e.ctx, args.OrderID, tc.paidAt))

			got := e.reload(sub.ID)
			assert.Equal(t, tc.want, got.NextPayment)
			assert.Equal(t, subscription.StatusActive, got.Status)
			assert.NotContains(t, got.Meta, renewal.MetaOriginalNextPayment)
			assert.Contains(t, e.notes(sub.ID), tc.noteSub)
		})
	}
}

func TestScheduleCorrector_OnTimePayment(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.install()
	sub, args := awaitingPayment(e)
	before := len(e.notes(sub.ID))

	require.NoError(t, e.subs.CompleteRenewalPayment(e.ctx, args.OrderID, sub.NextPayment))

	got := e.reload(sub.ID)
	assert.Equal(t, time.Date(2024, 4, 11, 9, 0, 0, 0, time.UTC), got.NextPayment)
	assert.NotContains(t, got.Meta, renewal.MetaOriginalNextPayment)
	for _, n := range e.notes(sub.ID)[before:] {
		assert.NotContains(t, n, "corrected")
	}
}

func TestScheduleCorrector_OperatorMarksOrderPaid(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.install()
	sub, args := awaitingPayment(e)
	order, err := e.subs.Order(e.ctx, args.OrderID)
	require.NoError(t, err)

	require.NoError(t, e.subs.UpdateOrderStatus(e.ctx, order, subscription.OrderCompleted, "Marked paid by operator."))

	got := e.reload(sub.ID)
	assert.Equal(t, time.Date(2024, 4, 11, 9, 0, 0, 0, time.UTC), got.NextPayment)
	assert.NotContains(t, got.Meta, renewal.MetaOriginalNextPayment)
}

func TestScheduleCorrector_Restore(t *testing.T) {
	t.Parallel()

	t.Run("no snapshot", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		c := renewal.NewScheduleCorrector(e.subs, e.cfg, e.opts()...)
		sub := e.seed()

		require.NoError(t, c.Restore(e.ctx, sub))
		assert.Equal(t, baseNow.AddDate(0, 0, 10), e.reload(sub.ID).NextPayment)
		assert.Empty(t, e.notes(sub.ID))
	})

	t.Run("unreadable snapshot is dropped", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		c := renewal.NewScheduleCorrector(e.subs, e.cfg, e.opts()...)
		sub := e.seed(func(s *subscription.Subscription) {
			s.SetMeta(renewal.MetaOriginalNextPayment, "yesterday")
		})

		require.NoError(t, c.Restore(e.ctx, sub))
		got := e.reload(sub.ID)
		assert.Equal(t, baseNow.AddDate(0, 0, 10), got.NextPayment)
		assert.NotContains(t, got.Meta, renewal.MetaOriginalNextPayment)
	})

	t.Run("month end clamps", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		c := renewal.NewScheduleCorrector(e.subs, e.cfg, e.opts()...)
		sub := e.seed(dueAt(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)), func(s *subscription.Subscription) {
			s.SetMeta(renewal.MetaOriginalNextPayment, "2024-01-31T00:00:00Z")
		})

		require.NoError(t, c.Restore(e.ctx, sub))
		assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), e.reload(sub.ID).NextPayment)
	})

	t.Run("parent orders are ignored", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		c := renewal.NewScheduleCorrector(e.subs, e.cfg, e.opts()...)
		sub := e.seed(func(s *subscription.Subscription) {
			s.SetMeta(renewal.MetaOriginalNextPayment, "2024-01-31T00:00:00Z")
		})
		parent := &subscription.Order{SubscriptionID: sub.ID, Relation: subscription.RelationParent, Status: subscription.OrderCompleted}
		require.NoError(t, e.subs.SaveOrder(e.ctx, parent))

		require.NoError(t, c.OnOrderStatusChanged(e.ctx, subscription.OrderStatusChange{
			Order: parent, From: subscription.OrderPending, To: subscription.OrderCompleted,
		}))
		assert.Contains(t, e.reload(sub.ID).Meta, renewal.MetaOriginalNextPayment)
	})
}
