package httpserver

import (
	"fmt"
	"log/slog"
	"time"
)

// Option configures the HTTP server. Invalid values panic at construction.
type Option func(*config)

// WithAddr sets the listen address, e.g. ":8080" or "127.0.0.1:0".
func WithAddr(addr string) Option {
	if addr == "" {
		panic("httpserver: listen address cannot be empty")
	}
	return func(c *config) { c.addr = addr }
}

// WithReadTimeout sets http.Server.ReadTimeout.
func WithReadTimeout(d time.Duration) Option {
	mustBePositive("read timeout", d)
	return func(c *config) { c.readTimeout = d }
}

// WithWriteTimeout sets http.Server.WriteTimeout.
func WithWriteTimeout(d time.Duration) Option {
	mustBePositive("write timeout", d)
	return func(c *config) { c.writeTimeout = d }
}

// WithIdleTimeout sets http.Server.IdleTimeout.
func WithIdleTimeout(d time.Duration) Option {
	mustBePositive("idle timeout", d)
	return func(c *config) { c.idleTimeout = d }
}

// WithShutdownTimeout bounds graceful shutdown once the run context is done.
func WithShutdownTimeout(d time.Duration) Option {
	mustBePositive("shutdown timeout", d)
	return func(c *config) { c.shutdownTimeout = d }
}

// WithLogger sets the logger. Nil keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

func mustBePositive(name string, d time.Duration) {
	if d <= 0 {
		panic(fmt.Sprintf("httpserver: %s must be positive, got %v", name, d))
	}
}
