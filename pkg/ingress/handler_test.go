package ingress_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/renewalkit/pkg/hooks"
	"github.com/dmitrymomot/renewalkit/pkg/ingress"
	"github.com/dmitrymomot/renewalkit/pkg/subscription"
	"github.com/dmitrymomot/renewalkit/pkg/webhook"
)

const secret = "test-secret"

type fixture struct {
	d      *hooks.Dispatcher
	subs   subscription.Service
	sub    *subscription.Subscription
	order  *subscription.Order
	server http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{d: hooks.New(hooks.WithLogger(log))}
	f.subs = subscription.NewService(subscription.NewMemoryStore(), subscription.WithLogger(log))

	ctx := context.Background()
	f.sub = &subscription.Subscription{
		Status:          subscription.StatusOnHold,
		BillingInterval: 1,
		BillingPeriod:   subscription.PeriodMonth,
		NextPayment:     time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, f.subs.Save(ctx, f.sub))
	var err error
	f.order, err = f.subs.CreateRenewalOrder(ctx, f.sub)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.With(webhook.Verify(secret)).Mount("/signals", ingress.NewHandler(f.subs, f.d, ingress.WithLogger(log)).Routes())
	f.server = r
	return f
}

func (f *fixture) post(t *testing.T, signal string, body []byte, signed bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/signals/"+signal, bytes.NewReader(body))
	if signed {
		headers, err := webhook.SignPayload(secret, body, time.Now())
		require.NoError(t, err)
		headers.Apply(req.Header)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func TestHandler_DispatchesTypedPayloads(t *testing.T) {
	t.Parallel()

	t.Run("status change", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		var got []subscription.StatusChange
		hooks.On(f.d, subscription.SignalStatusChanged, hooks.PriorityDefault, func(_ context.Context, p subscription.StatusChange) error {
			got = append(got, p)
			return nil
		})

		rec := f.post(t, subscription.SignalStatusChanged, []byte(`{"subscription_id":1,"from":"active","to":"on-hold"}`), true)
		require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, subscription.SignalStatusChanged, resp["signal"])
		assert.NotEmpty(t, resp["delivery_id"])

		require.Len(t, got, 1)
		assert.Equal(t, f.sub.ID, got[0].Subscription.ID)
		assert.Equal(t, subscription.StatusActive, got[0].From)
		assert.Equal(t, subscription.StatusOnHold, got[0].To)
	})

	t.Run("payment complete", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		var got []subscription.PaymentComplete
		hooks.On(f.d, subscription.SignalRenewalPaymentComplete, hooks.PriorityDefault, func(_ context.Context, p subscription.PaymentComplete) error {
			got = append(got, p)
			return nil
		})

		rec := f.post(t, subscription.SignalRenewalPaymentComplete, []byte(`{"subscription_id":1,"order_id":1}`), true)
		require.Equal(t, http.StatusAccepted, rec.Code)
		require.Len(t, got, 1)
		assert.Equal(t, f.order.ID, got[0].Order.ID)
	})

	t.Run("order status defaults to the stored status", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		var got []subscription.OrderStatusChange
		hooks.On(f.d, subscription.SignalOrderStatusChanged, hooks.PriorityDefault, func(_ context.Context, p subscription.OrderStatusChange) error {
			got = append(got, p)
			return nil
		})

		rec := f.post(t, subscription.SignalOrderStatusChanged, []byte(`{"order_id":1,"from":"failed"}`), true)
		require.Equal(t, http.StatusAccepted, rec.Code)
		require.Len(t, got, 1)
		assert.Equal(t, subscription.OrderPending, got[0].To)
	})

	t.Run("manual order reference", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		var got []subscription.OrderRef
		hooks.On(f.d, subscription.SignalManualRenewalOrder, hooks.PriorityDefault, func(_ context.Context, p subscription.OrderRef) error {
			got = append(got, p)
			return nil
		})

		rec := f.post(t, subscription.SignalManualRenewalOrder, []byte(`{"order_id":1}`), true)
		require.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, []subscription.OrderRef{{OrderID: 1, SubscriptionID: 1}}, got)
	})

	t.Run("dates change", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		var got []subscription.DatesChange
		hooks.On(f.d, subscription.SignalDatesChanged, hooks.PriorityDefault, func(_ context.Context, p subscription.DatesChange) error {
			got = append(got, p)
			return nil
		})

		rec := f.post(t, subscription.SignalDatesChanged, []byte(`{"subscription_id":1}`), true)
		require.Equal(t, http.StatusAccepted, rec.Code)
		require.Len(t, got, 1)
		assert.Equal(t, subscription.DateNextPayment, got[0].Date)
		assert.Equal(t, f.sub.NextPayment, got[0].Current)
	})
}

func TestHandler_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		signal string
		body   string
		signed bool
		want   int
	}{
		{"unsigned", subscription.SignalStatusChanged, `{"subscription_id":1,"to":"active"}`, false, http.StatusUnauthorized},
		{"unknown signal", "order_refunded", `{"order_id":1}`, true, http.StatusNotFound},
		{"malformed json", subscription.SignalStatusChanged, `{"subscription_id":`, true, http.StatusBadRequest},
		{"missing target status", subscription.SignalStatusChanged, `{"subscription_id":1}`, true, http.StatusBadRequest},
		{"missing id", subscription.SignalRenewalPaymentComplete, `{}`, true, http.StatusBadRequest},
		{"unknown subscription", subscription.SignalRenewalPaymentComplete, `{"subscription_id":99}`, true, http.StatusNotFound},
		{"unknown order", subscription.SignalOrderStatusChanged, `{"order_id":99,"to":"completed"}`, true, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			rec := f.post(t, tt.signal, []byte(tt.body), tt.signed)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestHandler_HandlerFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	hooks.On(f.d, subscription.SignalStatusChanged, hooks.PriorityDefault, func(context.Context, subscription.StatusChange) error {
		return assert.AnError
	})

	rec := f.post(t, subscription.SignalStatusChanged, []byte(`{"subscription_id":1,"to":"active"}`), true)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSignals(t *testing.T) {
	t.Parallel()
	assert.ElementsMatch(t, []string{
		subscription.SignalStatusChanged,
		subscription.SignalDatesChanged,
		subscription.SignalOrderStatusChanged,
		subscription.SignalRenewalPaymentComplete,
		subscription.SignalManualRenewalOrder,
	}, ingress.Signals())
}
