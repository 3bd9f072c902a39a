package queue

import "log/slog"

// ActionsOption is a functional option for configuring Actions
type ActionsOption func(*actionsOptions)

type actionsOptions struct {
	queue      string
	maxRetries int8
	logger     *slog.Logger
}

// WithQueue sets the queue scheduled actions are placed in
func WithQueue(queue string) ActionsOption {
	return func(o *actionsOptions) {
		if queue != "" {
			o.queue = queue
		}
	}
}

// WithMaxRetries sets the maximum number of retries (0-10)
func WithMaxRetries(maxRetries int8) ActionsOption {
	return func(o *actionsOptions) {
		if maxRetries >= 0 && maxRetries <= 10 {
			o.maxRetries = maxRetries
		}
	}
}

// WithActionsLogger sets the logger used for scheduling diagnostics
func WithActionsLogger(logger *slog.Logger) ActionsOption {
	return func(o *actionsOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}
