// Package webhook signs and verifies HMAC-SHA256 signed HTTP deliveries.
//
// The host platform pushes subscription signals to the service over HTTP.
// Every delivery is signed with a shared secret so the receiver can reject
// forged or replayed requests before it parses the body.
//
// # Signature Format
//
// The signed message is "<unix timestamp>.<raw body>". The hex encoded digest
// and its inputs travel in three headers:
//
//	X-Webhook-Signature  hex HMAC-SHA256 digest
//	X-Webhook-Timestamp  unix seconds used when signing
//	X-Webhook-ID         delivery id, a UUID generated by SignPayload
//
// Digests are compared in constant time. A timestamp older than the allowed
// age, or more than a minute in the future, is rejected.
//
// # Sending
//
//	headers, err := webhook.SignPayload(secret, body, time.Now())
//	if err != nil {
//		return err
//	}
//	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
//	headers.Apply(req.Header)
//
// # Receiving
//
// Verify wraps an http.Handler. It reads the body once, checks the signature
// and hands the restored body to the next handler:
//
//	r := chi.NewRouter()
//	r.With(webhook.Verify(secret,
//		webhook.WithMaxAge(5*time.Minute),
//		webhook.WithErrorHook(func(r *http.Request, err error) {
//			log.WarnContext(r.Context(), "rejected delivery", logger.Error(err))
//		}),
//	)).Post("/signals/{signal}", handle)
//
// Inside the handler the delivery id is available through DeliveryID.
//
// Lower level helpers are exported for callers that verify outside of HTTP
// middleware:
//
//	headers, err := webhook.ParseHeaders(r.Header)
//	if err != nil {
//		return err
//	}
//	err = webhook.VerifySignature(secret, body, headers, 5*time.Minute, time.Now())
//
// # Errors
//
// Rejections are reported with ErrMissingSignature, ErrSignatureExpired,
// ErrSignatureMismatch or ErrInvalidPayload. Verify answers 400 for payload
// problems and 401 for everything else. An empty secret yields
// ErrInvalidConfiguration from the helpers and a panic from Verify.
package webhook
