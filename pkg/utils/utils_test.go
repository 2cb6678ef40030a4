package utils

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundMoney(t *testing.T) {
	tests := []struct {
		name     string
		value    decimal.Decimal
		places   int32
		expected decimal.Decimal
	}{
		{"two places", decimal.RequireFromString("8884.878867"), 2, decimal.RequireFromString("8884.88")},
		{"whole units", decimal.RequireFromString("8884.878867"), 0, decimal.NewFromInt(8885)},
		{"already rounded", decimal.NewFromInt(11200), 2, decimal.NewFromInt(11200)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RoundMoney(tt.value, tt.places)
			assert.True(t, result.Equal(tt.expected), "Expected %v, but got %v", tt.expected, result)
		})
	}
}

func TestPercent(t *testing.T) {
	assert.True(t, Percent(decimal.NewFromInt(12)).Equal(decimal.RequireFromString("0.12")))
}

func TestAddMonthsAndWeeks(t *testing.T) {
	baseDate := time.Date(2024, 1, 1, 15, 30, 0, 0, time.UTC)
	monthEnd := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	leapDay := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		result   time.Time
		expected time.Time
	}{
		{"first month", AddMonths(baseDate, 1), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"twelfth month", AddMonths(baseDate, 12), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"first week", AddWeeks(baseDate, 1), time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)},
		{"week 50", AddWeeks(baseDate, 50), time.Date(2024, 12, 16, 0, 0, 0, 0, time.UTC)},
		{"month end into february", AddMonths(monthEnd, 2), time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)},
		{"month end into march", AddMonths(monthEnd, 3), time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)},
		{"month end into april", AddMonths(monthEnd, 4), time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC)},
		{"jan 31 into leap february", AddMonths(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), 1), time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{"leap day plus a year", AddMonths(leapDay, 12), time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)},
		{"leap day plus four years", AddMonths(leapDay, 48), time.Date(2028, 2, 29, 0, 0, 0, 0, time.UTC)},
		{"backwards", AddMonths(time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), -1), time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.result)
		})
	}
}

func TestDaysInMonth(t *testing.T) {
	assert.Equal(t, 29, DaysInMonth(time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 28, DaysInMonth(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 31, DaysInMonth(time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 30, DaysInMonth(time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC)))
}

func TestDaysBetween(t *testing.T) {
	from := time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 4, DaysBetween(from, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 4, DaysBetween(from, time.Date(2024, 1, 10, 23, 59, 0, 0, time.UTC)))
	assert.Equal(t, 0, DaysBetween(from, time.Date(2024, 1, 6, 18, 0, 0, 0, time.UTC)))
	assert.Equal(t, -2, DaysBetween(from, time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 60, DaysBetween(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
}

func TestParseDate(t *testing.T) {
	now := time.Date(2024, 5, 17, 13, 0, 0, 0, time.UTC)

	d, err := ParseDate("", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("2024-01-10", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("10/01/2024", now)
	assert.Error(t, err)
}
