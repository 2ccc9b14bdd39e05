package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	auth "github.com/goliatone/go-welfare-auth"
)

func TestIsWithinThresholdPeriod(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		inputTime time.Time
		window    time.Duration
		expected  bool
	}{
		{
			name:      "Within 1 hour threshold",
			inputTime: now.Add(-30 * time.Minute),
			window:    time.Hour,
			expected:  true,
		},
		{
			name:      "Outside 1 hour threshold",
			inputTime: now.Add(-90 * time.Minute),
			window:    time.Hour,
			expected:  false,
		},
		{
			name:      "At exact threshold",
			inputTime: now.Add(-time.Hour),
			window:    time.Hour,
			expected:  false,
		},
		{
			name:      "Future time",
			inputTime: now.Add(time.Hour),
			window:    2 * time.Hour,
			expected:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, auth.IsWithinThresholdPeriod(now, tt.inputTime, tt.window))
			assert.Equal(t, !tt.expected, auth.IsOutsideThresholdPeriod(now, tt.inputTime, tt.window))
		})
	}
}
