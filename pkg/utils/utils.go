package utils

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Percent converts a percentage figure to a fraction (12 -> 0.12).
func Percent(p decimal.Decimal) decimal.Decimal {
	return p.Div(hundred)
}

// RoundMoney rounds to the currency minor unit.
func RoundMoney(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Round(places)
}

// DateOf strips the clock from t, keeping its calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole calendar days from a to b (negative when b precedes a).
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}

// AddMonths advances a calendar date by n months. A day past the end of the
// target month is clamped to its last day, so Jan 31 + 1 month is Feb 28 (or 29).
func AddMonths(date time.Time, n int) time.Time {
	y, m, d := DateOf(date).Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	if last := DaysInMonth(first); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

// DaysInMonth returns the number of days in t's month.
func DaysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddWeeks advances a calendar date by n weeks.
func AddWeeks(date time.Time, n int) time.Time {
	return DateOf(date).AddDate(0, 0, 7*n)
}

// DecimalFromString converts string to decimal.Decimal
func DecimalFromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

// ParseDate parses a YYYY-MM-DD date; an empty string yields the date of now.
func ParseDate(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return DateOf(now), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}
