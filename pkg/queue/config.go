package queue

import "time"

// Config holds the configuration for the action queue
type Config struct {
	Name               string        `env:"QUEUE_NAME" envDefault:"default"`
	PollInterval       time.Duration `env:"QUEUE_POLL_INTERVAL" envDefault:"5s"`
	LockTimeout        time.Duration `env:"QUEUE_LOCK_TIMEOUT" envDefault:"5m"`
	CheckInterval      time.Duration `env:"QUEUE_SCHEDULER_CHECK_INTERVAL" envDefault:"30s"`
	MaxConcurrentTasks int           `env:"QUEUE_MAX_CONCURRENT_TASKS" envDefault:"4"`
	MaxRetries         int8          `env:"QUEUE_MAX_RETRIES" envDefault:"3"`
	RetryBackoff       time.Duration `env:"QUEUE_RETRY_BACKOFF" envDefault:"30s"`
	RedisKeyPrefix     string        `env:"QUEUE_REDIS_PREFIX" envDefault:"renewal:queue"`
}
