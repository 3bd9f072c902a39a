package subscription_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/renewalkit/migrations"
	"github.com/dmitrymomot/renewalkit/pkg/pg"
	"github.com/dmitrymomot/renewalkit/pkg/subscription"
)

func setupPGStore(t *testing.T) *subscription.PGStore {
	t.Helper()

	url := os.Getenv("PG_CONN_URL")
	if url == "" {
		t.Skip("PG_CONN_URL not set")
	}

	ctx := context.Background()
	cfg := pg.Config{
		ConnectionString: url,
		MaxOpenConns:     4,
		MaxIdleConns:     1,
		RetryAttempts:    1,
		RetryInterval:    time.Second,
		MigrationsPath:   ".",
		MigrationsTable:  "renewal_schema_migrations",
	}
	pool, err := pg.Connect(ctx, cfg)
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	t.Cleanup(pool.Close)

	require.NoError(t, pg.Migrate(ctx, pool, cfg, migrations.FS, nil))
	_, err = pool.Exec(ctx, `TRUNCATE subscriptions, orders, notes RESTART IDENTITY`)
	require.NoError(t, err)

	return subscription.NewPGStore(pool)
}

func TestPGStore_RoundTrip(t *testing.T) {
	store := setupPGStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	sub := &subscription.Subscription{
		Status:                subscription.StatusOnHold,
		BillingInterval:       1,
		BillingPeriod:         subscription.PeriodMonth,
		RequiresManualRenewal: true,
		NextPayment:           now.AddDate(0, 0, 3),
		Billing:               subscription.Contact{FirstName: "Ada", Email: "ada@example.com"},
		Meta:                  subscription.Meta{"_renewal_overdue_since": now.Format(time.RFC3339)},
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	require.NoError(t, store.SaveSubscription(ctx, sub))
	require.NotZero(t, sub.ID)

	got, err := store.GetSubscription(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.Billing, got.Billing)
	assert.Equal(t, sub.Meta, got.Meta)
	assert.True(t, sub.NextPayment.Equal(got.NextPayment))

	got.DeleteMeta("_renewal_overdue_since")
	got.NextPayment = time.Time{}
	require.NoError(t, store.SaveSubscription(ctx, got))

	n, err := store.CountSubscriptions(ctx, subscription.Filter{HasMeta: "_renewal_overdue_since"})
	require.NoError(t, err)
	assert.Zero(t, n)

	order := &subscription.Order{
		SubscriptionID: sub.ID,
		Relation:       subscription.RelationRenewal,
		Status:         subscription.OrderPending,
		Key:            "order_test",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, store.SaveOrder(ctx, order))

	orders, err := store.ListOrders(ctx, sub.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "order_test", orders[0].Key)

	require.NoError(t, store.AddNote(ctx, subscription.Note{
		Target: subscription.NoteOnSubscription, TargetID: sub.ID, Body: "hello", CreatedAt: now,
	}))
	notes, err := store.ListNotes(ctx, subscription.NoteOnSubscription, sub.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "hello", notes[0].Body)

	_, err = store.GetSubscription(ctx, 99999)
	assert.ErrorIs(t, err, subscription.ErrSubscriptionNotFound)
}
