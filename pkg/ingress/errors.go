package ingress

import "errors"

var (
	ErrUnknownSignal  = errors.New("unknown signal")
	ErrInvalidBody    = errors.New("invalid signal body")
	ErrObjectNotFound = errors.New("referenced object not found")
)
