package subscription

import (
	"log/slog"
	"time"
)

// ServiceOption configures a Service instance.
type ServiceOption func(*service)

// WithEmitter sets where lifecycle signals are dispatched.
// Without an emitter the Service only persists changes.
func WithEmitter(e Emitter) ServiceOption {
	return func(s *service) {
		if e != nil {
			s.emitter = e
		}
	}
}

// WithLogger sets the logger used for signal handler failures.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}
