// Package config loads typed settings from environment variables.
//
// Every package that needs settings declares a plain struct with env tags
// (github.com/caarlos0/env/v11) and lets this package fill it. Values in a
// .env file in the working directory are loaded once through
// github.com/joho/godotenv before the first parse; variables already present
// in the process environment take precedence.
//
// # Caching
//
// Load parses each struct type a single time and caches the result, so
// several components can ask for the same settings without re-reading the
// environment. Parse skips the cache, which is handy in tests.
//
// # Usage
//
//	import (
//		"github.com/dmitrymomot/renewalkit/pkg/config"
//		"github.com/dmitrymomot/renewalkit/pkg/renewal"
//	)
//
//	var cfg renewal.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// At process start MustLoad is shorter:
//
//	var logCfg logger.Config
//	config.MustLoad(&logCfg)
//
// Several configs can be loaded together and their problems reported at once:
//
//	err := errors.Join(
//		config.Load(&pgCfg),
//		config.Load(&redisCfg),
//		config.Load(&httpCfg),
//	)
//
// # Errors
//
// Load returns ErrNilPointer for a nil target and wraps env parsing failures,
// such as a missing required variable, with ErrParsingConfig. MustLoad panics
// with the same error.
package config
