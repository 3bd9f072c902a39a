package renewal_test

import (
	"testing"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/renewalkit/pkg/renewal"
)

func TestConfig_Env(t *testing.T) {
	t.Parallel()

	t.Run("operator email is required", func(t *testing.T) {
		t.Parallel()

		var cfg renewal.Config
		err := env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "OPERATOR_EMAIL")
	})

	t.Run("defaults match DefaultConfig", func(t *testing.T) {
		t.Parallel()

		var cfg renewal.Config
		err := env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{
			"OPERATOR_EMAIL": "ops@shop.test",
		}})
		require.NoError(t, err)

		want := renewal.DefaultConfig()
		want.OperatorEmail = "ops@shop.test"
		assert.Equal(t, want, cfg)
	})
}
