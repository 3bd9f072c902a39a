package hooks

import "errors"

var (
	ErrPayloadType     = errors.New("hooks: unexpected payload type")
	ErrCallbackPanic   = errors.New("hooks: callback panicked")
	ErrEmptySignalName = errors.New("hooks: signal name cannot be empty")
)
