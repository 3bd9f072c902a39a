// Package httpserver runs an http.Server tied to a context and answers
// readiness checks.
//
// Server.Run blocks until the context is cancelled or the listener fails.
// On cancellation it stops accepting connections and waits up to the
// shutdown timeout for in-flight requests, which makes it a natural member
// of an errgroup next to background workers.
//
// # Configuration
//
//	HTTP_ADDR              listen address (default ":8080")
//	HTTP_READ_TIMEOUT      default 30s
//	HTTP_WRITE_TIMEOUT     default 30s
//	HTTP_IDLE_TIMEOUT      default 120s
//	HTTP_SHUTDOWN_TIMEOUT  default 5s
//
// Options passed to New or NewFromConfig override these values. Options with
// a non-positive duration or an empty address panic, since they are
// programming errors.
//
// # Usage
//
//	var cfg httpserver.Config
//	config.MustLoad(&cfg)
//
//	r := chi.NewRouter()
//	r.Get("/healthz", httpserver.HealthCheckHandler(log,
//		httpserver.HealthCheck{Name: "postgres", Check: pg.Healthcheck(pool)},
//		httpserver.HealthCheck{Name: "redis", Check: redis.Healthcheck(client)},
//	))
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(func() error { return srv.Run(ctx, r) })
//	if err := g.Wait(); err != nil {
//		return err
//	}
//
// HealthCheckHandler replies "ALIVE" when it has no checks, "READY" when all
// checks pass and 503 "NOT_READY" otherwise.
//
// # Errors
//
// Run wraps listener failures with ErrStart and a failed graceful shutdown
// with ErrShutdown.
package httpserver
