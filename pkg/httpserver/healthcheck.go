package httpserver

import (
	"context"
	"log/slog"
	"net/http"
)

// HealthCheck is a named readiness check of one dependency.
type HealthCheck struct {
	Name  string
	Check func(context.Context) error
}

// HealthCheckHandler answers 200 "ALIVE" without checks, 200 "READY" when all
// checks pass and 503 "NOT_READY" on the first failing check.
func HealthCheckHandler(log *slog.Logger, checks ...HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if len(checks) == 0 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ALIVE"))
			return
		}

		for _, c := range checks {
			if err := c.Check(r.Context()); err != nil {
				log.ErrorContext(r.Context(), "readiness check failed",
					slog.String("check", c.Name),
					slog.String("error", err.Error()),
				)
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("NOT_READY"))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("READY"))
	}
}
