// Package logger builds log/slog loggers for the service.
//
// Features:
//
//   - Environment presets: text at debug level for development, JSON at info
//     level for staging and production
//   - Static attributes attached to every record (service, env)
//   - Attributes pulled from the context on every call through
//     ContextExtractor functions
//   - Typed attribute helpers for the renewal domain, so keys stay consistent
//     across packages
//
// # Configuration
//
//	APP_ENV    development, staging or production (default development)
//	APP_NAME   value of the "service" attribute (default renewald)
//	LOG_LEVEL  debug, info, warn or error; overrides the preset level
//
// # Usage
//
//	var cfg logger.Config
//	config.MustLoad(&cfg)
//	log := logger.NewFromConfig(cfg)
//
//	log.InfoContext(ctx, "renewal order created",
//		logger.SubscriptionID(42),
//		logger.OrderID(7),
//		logger.Status("pending"),
//	)
//
// Loggers can also be assembled from options directly:
//
//	log := logger.New(
//		logger.WithFormat(logger.FormatText),
//		logger.WithLevel(slog.LevelDebug),
//		logger.WithOutput(os.Stderr),
//		logger.WithAttr(slog.String("region", "eu")),
//	)
//
// # Context Attributes
//
// The id of an inbound signal delivery is stored with ContextWithDeliveryID
// and added as "delivery_id" to every record logged with that context.
// Further extractors are registered with WithContextExtractors:
//
//	tenant := func(ctx context.Context) (slog.Attr, bool) {
//		id, ok := ctx.Value(tenantKey{}).(string)
//		return slog.String("tenant", id), ok
//	}
//	log := logger.New(logger.WithContextExtractors(tenant))
//
// # Errors
//
// Error and Errors turn errors into attributes and yield an empty attribute
// for nil values, which slog drops. WithFormat panics on unknown formats.
package logger
