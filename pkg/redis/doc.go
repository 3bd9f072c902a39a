// Package redis connects to a Redis server with retries and exposes a
// healthcheck suitable for readiness endpoints.
//
// The package is a thin layer over github.com/redis/go-redis/v9. It adds:
//
//   - Environment driven configuration through Config
//   - Connection attempts with a fixed retry interval and an overall timeout
//   - A Healthcheck function that pings the server
//
// When REDIS_URL is empty the service keeps scheduled actions in memory, so
// Config.Enabled is checked before Connect is called.
//
// # Configuration
//
//	REDIS_URL              connection URL, e.g. redis://:password@localhost:6379/0
//	REDIS_RETRY_ATTEMPTS   number of ping attempts (default 3)
//	REDIS_RETRY_INTERVAL   pause between attempts (default 5s)
//	REDIS_CONNECT_TIMEOUT  upper bound for all attempts together (default 30s)
//
// # Usage
//
//	import (
//		"github.com/dmitrymomot/renewalkit/pkg/config"
//		"github.com/dmitrymomot/renewalkit/pkg/redis"
//	)
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	check := redis.Healthcheck(client)
//	if err := check(ctx); err != nil {
//		log.Println("redis is down:", err)
//	}
//
// # Errors
//
// Connect returns ErrEmptyConnectionURL when no URL is configured,
// ErrFailedToParseRedisConnString for a malformed URL and ErrRedisNotReady
// when no attempt succeeded. The healthcheck wraps ping failures with
// ErrHealthcheckFailed. All of them can be matched with errors.Is.
package redis
