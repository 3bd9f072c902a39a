package webhook_test

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/renewalkit/pkg/webhook"
)

func signedRequest(t *testing.T, secret string, body []byte, at time.Time) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/signals/x", bytes.NewReader(body))
	sig, err := webhook.SignPayload(secret, body, at)
	require.NoError(t, err)
	sig.Apply(req.Header)
	return req
}

func TestVerify(t *testing.T) {
	t.Parallel()

	body := []byte(`{"subscription_id":42}`)
	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Delivery", webhook.DeliveryID(r.Context()))
		_, _ = w.Write(got)
	})
	clock := func() time.Time { return signedAt.Add(30 * time.Second) }

	t.Run("passes verified request with body and id", func(t *testing.T) {
		t.Parallel()

		mw := webhook.Verify("secret", webhook.WithClock(clock))
		req := signedRequest(t, "secret", body, signedAt)
		rec := httptest.NewRecorder()
		mw(echo).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, string(body), rec.Body.String())
		assert.Equal(t, req.Header.Get(webhook.HeaderID), rec.Header().Get("X-Delivery"))
	})

	t.Run("rejects bad signature", func(t *testing.T) {
		t.Parallel()

		var rejected error
		mw := webhook.Verify("secret",
			webhook.WithClock(clock),
			webhook.WithErrorHook(func(_ *http.Request, err error) { rejected = err }),
		)
		rec := httptest.NewRecorder()
		mw(echo).ServeHTTP(rec, signedRequest(t, "wrong", body, signedAt))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.ErrorIs(t, rejected, webhook.ErrSignatureMismatch)
	})

	t.Run("rejects stale signature", func(t *testing.T) {
		t.Parallel()

		mw := webhook.Verify("secret", webhook.WithClock(clock), webhook.WithMaxAge(10*time.Second))
		rec := httptest.NewRecorder()
		mw(echo).ServeHTTP(rec, signedRequest(t, "secret", body, signedAt))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects unsigned request", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/signals/x", bytes.NewReader(body))
		webhook.Verify("secret")(echo).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects oversized body", func(t *testing.T) {
		t.Parallel()

		mw := webhook.Verify("secret", webhook.WithClock(clock), webhook.WithMaxBodySize(4))
		rec := httptest.NewRecorder()
		mw(echo).ServeHTTP(rec, signedRequest(t, "secret", body, signedAt))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("panics on empty secret", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { webhook.Verify("") })
	})
}
