package email_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/renewalkit/pkg/email"
)

func validPostmarkConfig() email.Config {
	return email.Config{
		PostmarkServerToken:  "server-token",
		PostmarkAccountToken: "account-token",
		SenderEmail:          "renewals@example.com",
		SupportEmail:         "support@example.com",
		MessageStream:        "outbound",
	}
}

func TestNewPostmarkClient(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		client, err := email.NewPostmarkClient(validPostmarkConfig())
		require.NoError(t, err)
		assert.NotNil(t, client)
	})

	tests := []struct {
		name   string
		mutate func(*email.Config)
		msg    string
	}{
		{"no server token", func(c *email.Config) { c.PostmarkServerToken = "" }, "tokens are required"},
		{"no account token", func(c *email.Config) { c.PostmarkAccountToken = "" }, "tokens are required"},
		{"bad sender", func(c *email.Config) { c.SenderEmail = "sender" }, `sender "sender"`},
		{"bad support", func(c *email.Config) { c.SupportEmail = "" }, `support ""`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validPostmarkConfig()
			tt.mutate(&cfg)

			client, err := email.NewPostmarkClient(cfg)
			require.ErrorIs(t, err, email.ErrInvalidConfig)
			assert.Nil(t, client)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestNewPostmarkClient_ReportsEveryProblem(t *testing.T) {
	t.Parallel()

	_, err := email.NewPostmarkClient(email.Config{SenderEmail: "x"})
	require.ErrorIs(t, err, email.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "tokens are required")
	assert.Contains(t, err.Error(), `sender "x"`)
	assert.Contains(t, err.Error(), `support ""`)
}

func TestPostmarkClient_RejectsInvalidParams(t *testing.T) {
	t.Parallel()

	client, err := email.NewPostmarkClient(validPostmarkConfig())
	require.NoError(t, err)
	err = client.SendEmail(context.Background(), email.SendEmailParams{SendTo: "user@example.com"})
	require.ErrorIs(t, err, email.ErrInvalidParams)
}

func TestConfig_PostmarkEnabled(t *testing.T) {
	t.Parallel()

	assert.True(t, validPostmarkConfig().PostmarkEnabled())
	assert.False(t, email.Config{PostmarkServerToken: "x"}.PostmarkEnabled())
}
