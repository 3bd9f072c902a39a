package webhook

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"
)

type deliveryIDKey struct{}

// DeliveryID returns the X-Webhook-ID of a verified request, if any.
func DeliveryID(ctx context.Context) string {
	id, _ := ctx.Value(deliveryIDKey{}).(string)
	return id
}

type verifyConfig struct {
	maxAge  time.Duration
	maxBody int64
	now     func() time.Time
	onError func(r *http.Request, err error)
}

// VerifyOption configures Verify.
type VerifyOption func(*verifyConfig)

// WithMaxAge sets the accepted signature age. Zero disables the check.
func WithMaxAge(d time.Duration) VerifyOption {
	return func(c *verifyConfig) { c.maxAge = d }
}

// WithMaxBodySize limits the request body read for verification.
func WithMaxBodySize(n int64) VerifyOption {
	return func(c *verifyConfig) { c.maxBody = n }
}

// WithClock replaces time.Now for signature age checks.
func WithClock(now func() time.Time) VerifyOption {
	return func(c *verifyConfig) { c.now = now }
}

// WithErrorHook is called for every rejected request.
func WithErrorHook(fn func(r *http.Request, err error)) VerifyOption {
	return func(c *verifyConfig) { c.onError = fn }
}

// Verify returns middleware that authenticates signed requests. Rejected
// requests get 401, or 400 when the body cannot be read. Verified requests
// reach next with the body restored and the delivery id in the context.
func Verify(secret string, opts ...VerifyOption) func(http.Handler) http.Handler {
	if secret == "" {
		panic("webhook.Verify: empty secret")
	}
	cfg := verifyConfig{
		maxAge:  5 * time.Minute,
		maxBody: 1 << 20,
		now:     time.Now,
		onError: func(*http.Request, error) {},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			headers, err := ParseHeaders(r.Header)
			if err != nil {
				cfg.onError(r, err)
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, cfg.maxBody))
			if err != nil {
				cfg.onError(r, errors.Join(ErrInvalidPayload, err))
				http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
				return
			}

			if err := VerifySignature(secret, body, headers, cfg.maxAge, cfg.now()); err != nil {
				cfg.onError(r, err)
				code := http.StatusUnauthorized
				if errors.Is(err, ErrInvalidPayload) {
					code = http.StatusBadRequest
				}
				http.Error(w, http.StatusText(code), code)
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			ctx := context.WithValue(r.Context(), deliveryIDKey{}, headers.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
