package webhook

import "errors"

var (
	ErrInvalidConfiguration = errors.New("invalid webhook configuration")
	ErrInvalidPayload       = errors.New("invalid webhook payload")
	ErrMissingSignature     = errors.New("missing webhook signature headers")
	ErrSignatureExpired     = errors.New("webhook signature timestamp out of range")
	ErrSignatureMismatch    = errors.New("webhook signature mismatch")
)
