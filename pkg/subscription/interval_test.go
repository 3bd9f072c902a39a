package subscription_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/renewalkit/pkg/subscription"
)

func TestAddInterval(t *testing.T) {
	t.Parallel()

	at := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 9, 30, 0, 0, time.UTC)
	}

	tests := []struct {
		name     string
		from     time.Time
		interval int
		period   subscription.Period
		want     time.Time
	}{
		{"days", at(2024, 1, 30), 3, subscription.PeriodDay, at(2024, 2, 2)},
		{"weeks", at(2024, 1, 1), 2, subscription.PeriodWeek, at(2024, 1, 15)},
		{"month", at(2024, 1, 15), 1, subscription.PeriodMonth, at(2024, 2, 15)},
		{"month end clamps in leap year", at(2024, 1, 31), 1, subscription.PeriodMonth, at(2024, 2, 29)},
		{"month end clamps", at(2023, 1, 31), 1, subscription.PeriodMonth, at(2023, 2, 28)},
		{"quarter across year", at(2023, 11, 30), 3, subscription.PeriodMonth, at(2024, 2, 29)},
		{"year", at(2023, 6, 1), 1, subscription.PeriodYear, at(2024, 6, 1)},
		{"leap day plus year", at(2024, 2, 29), 1, subscription.PeriodYear, at(2025, 2, 28)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := subscription.AddInterval(tt.from, tt.interval, tt.period)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("invalid input", func(t *testing.T) {
		t.Parallel()
		_, err := subscription.AddInterval(at(2024, 1, 1), 0, subscription.PeriodDay)
		assert.ErrorIs(t, err, subscription.ErrInvalidInterval)

		_, err = subscription.AddInterval(at(2024, 1, 1), 1, subscription.Period("fortnight"))
		assert.ErrorIs(t, err, subscription.ErrInvalidPeriod)
	})
}

func TestContactFullName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Ada Lovelace", subscription.Contact{FirstName: "Ada", LastName: "Lovelace"}.FullName())
	assert.Equal(t, "Ada", subscription.Contact{FirstName: "Ada"}.FullName())
	assert.Equal(t, "Lovelace", subscription.Contact{LastName: "Lovelace"}.FullName())
}
