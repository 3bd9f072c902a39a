package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/renewalkit/pkg/config"
)

type cachedConfig struct {
	Value string `env:"CONFIG_TEST_CACHED" envDefault:"first"`
}

type typedConfig struct {
	Name   string        `env:"CONFIG_TEST_NAME" envDefault:"renewald"`
	Grace  time.Duration `env:"CONFIG_TEST_GRACE" envDefault:"24h"`
	Limit  int           `env:"CONFIG_TEST_LIMIT" envDefault:"100"`
	Enable bool          `env:"CONFIG_TEST_ENABLE"`
}

type requiredConfig struct {
	Secret string `env:"CONFIG_TEST_REQUIRED,required"`
}

func TestParse(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := config.Parse[typedConfig]()
		require.NoError(t, err)
		assert.Equal(t, "renewald", cfg.Name)
		assert.Equal(t, 24*time.Hour, cfg.Grace)
		assert.Equal(t, 100, cfg.Limit)
		assert.False(t, cfg.Enable)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("CONFIG_TEST_GRACE", "90m")
		t.Setenv("CONFIG_TEST_ENABLE", "true")

		cfg, err := config.Parse[typedConfig]()
		require.NoError(t, err)
		assert.Equal(t, 90*time.Minute, cfg.Grace)
		assert.True(t, cfg.Enable)
	})

	t.Run("missing required", func(t *testing.T) {
		_, err := config.Parse[requiredConfig]()
		require.ErrorIs(t, err, config.ErrParsingConfig)
	})
}

func TestLoad_CachesPerType(t *testing.T) {
	t.Setenv("CONFIG_TEST_CACHED", "first")

	var a cachedConfig
	require.NoError(t, config.Load(&a))
	assert.Equal(t, "first", a.Value)

	t.Setenv("CONFIG_TEST_CACHED", "second")

	var b cachedConfig
	require.NoError(t, config.Load(&b))
	assert.Equal(t, "first", b.Value)
}

func TestLoad_NilPointer(t *testing.T) {
	var cfg *typedConfig
	require.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
}

func TestMustLoad_Panics(t *testing.T) {
	assert.Panics(t, func() {
		var cfg requiredConfig
		config.MustLoad(&cfg)
	})
}
