package logger

// Config holds logger settings loaded from the environment.
type Config struct {
	Env     string `env:"APP_ENV" envDefault:"development"`
	Service string `env:"APP_NAME" envDefault:"renewald"`
	Level   string `env:"LOG_LEVEL" envDefault:""`
}
