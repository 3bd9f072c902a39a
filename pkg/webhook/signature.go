package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Header names carrying a delivery signature.
const (
	HeaderSignature = "X-Webhook-Signature"
	HeaderTimestamp = "X-Webhook-Timestamp"
	HeaderID        = "X-Webhook-ID"
)

// Allowed clock skew for timestamps slightly in the future.
const maxClockSkew = time.Minute

// SignatureHeaders carries the signature of one delivery.
type SignatureHeaders struct {
	Signature string
	Timestamp int64
	ID        string
}

// Apply sets the signature headers on h.
func (s SignatureHeaders) Apply(h http.Header) {
	h.Set(HeaderSignature, s.Signature)
	h.Set(HeaderTimestamp, strconv.FormatInt(s.Timestamp, 10))
	if s.ID != "" {
		h.Set(HeaderID, s.ID)
	}
}

// SignPayload signs payload at time now with a fresh delivery id.
func SignPayload(secret string, payload []byte, now time.Time) (SignatureHeaders, error) {
	if secret == "" {
		return SignatureHeaders{}, fmt.Errorf("%w: secret is required", ErrInvalidConfiguration)
	}
	if len(payload) == 0 {
		return SignatureHeaders{}, fmt.Errorf("%w: payload cannot be empty", ErrInvalidPayload)
	}

	ts := now.Unix()
	return SignatureHeaders{
		Signature: sign(secret, ts, payload),
		Timestamp: ts,
		ID:        uuid.NewString(),
	}, nil
}

// VerifySignature checks the digest in constant time. With maxAge > 0 the
// timestamp must also be no older than maxAge relative to now.
func VerifySignature(secret string, payload []byte, headers SignatureHeaders, maxAge time.Duration, now time.Time) error {
	if secret == "" {
		return fmt.Errorf("%w: secret is required", ErrInvalidConfiguration)
	}
	if len(payload) == 0 {
		return fmt.Errorf("%w: payload cannot be empty", ErrInvalidPayload)
	}
	if headers.Signature == "" {
		return ErrMissingSignature
	}

	if maxAge > 0 {
		age := now.Sub(time.Unix(headers.Timestamp, 0))
		if age > maxAge || age < -maxClockSkew {
			return fmt.Errorf("%w: age %v", ErrSignatureExpired, age)
		}
	}

	expected := sign(secret, headers.Timestamp, payload)
	if !hmac.Equal([]byte(expected), []byte(headers.Signature)) {
		return ErrSignatureMismatch
	}
	return nil
}

// ParseHeaders reads the signature headers from h.
func ParseHeaders(h http.Header) (SignatureHeaders, error) {
	sig := SignatureHeaders{
		Signature: h.Get(HeaderSignature),
		ID:        h.Get(HeaderID),
	}
	raw := h.Get(HeaderTimestamp)
	if sig.Signature == "" || raw == "" {
		return SignatureHeaders{}, ErrMissingSignature
	}
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return SignatureHeaders{}, fmt.Errorf("%w: invalid timestamp %q", ErrMissingSignature, raw)
	}
	sig.Timestamp = ts
	return sig, nil
}

func sign(secret string, ts int64, payload []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(h, "%d.", ts)
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
