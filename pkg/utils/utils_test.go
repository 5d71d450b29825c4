package utils

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReference(t *testing.T) {
	pattern := regexp.MustCompile(`^LN-[0-9A-F]{12}$`)

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		ref := NewReference(LoanPrefix)
		require.Regexp(t, pattern, ref)
		require.False(t, seen[ref], "duplicate reference %s", ref)
		seen[ref] = true
	}
}

func TestCalculateDueDate(t *testing.T) {
	tests := []struct {
		name        string
		startDate   time.Time
		installment int
		expected    time.Time
	}{
		{
			name:        "first installment one month after start",
			startDate:   time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			installment: 1,
			expected:    time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:        "crosses year boundary",
			startDate:   time.Date(2024, 11, 10, 9, 30, 0, 0, time.UTC),
			installment: 3,
			expected:    time.Date(2025, 2, 10, 9, 30, 0, 0, time.UTC),
		},
		{
			name:        "month end clamped in leap year",
			startDate:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			installment: 1,
			expected:    time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name:        "month end clamped in common year",
			startDate:   time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
			installment: 1,
			expected:    time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name:        "clamping does not drift later installments",
			startDate:   time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
			installment: 2,
			expected:    time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name:        "thirty year term",
			startDate:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			installment: 360,
			expected:    time.Date(2054, 6, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CalculateDueDate(tt.startDate, tt.installment))
		})
	}
}

func TestGetCurrentInstallment(t *testing.T) {
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		now      time.Time
		expected int
	}{
		{"before start", start.AddDate(0, 0, -3), 1},
		{"on start day", start, 1},
		{"day before first due date", time.Date(2024, 2, 14, 23, 0, 0, 0, time.UTC), 1},
		{"on first due date", time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), 2},
		{"five months in", time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC), 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetCurrentInstallment(start, tt.now))
		})
	}
}

func TestIsDateOverdue(t *testing.T) {
	due := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	assert.True(t, IsDateOverdue(due, due.Add(time.Second)))
	assert.False(t, IsDateOverdue(due, due))
	assert.False(t, IsDateOverdue(due, due.AddDate(0, 0, -1)))
}
