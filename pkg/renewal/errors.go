package renewal

import "errors"

var (
	ErrMissingDependency = errors.New("renewal: missing host dependency")
	ErrUnknownMessage    = errors.New("renewal: unknown message")
	ErrLoadMessages      = errors.New("renewal: failed to load messages")
	ErrRenderMessage     = errors.New("renewal: failed to render message")
)
