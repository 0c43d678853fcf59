package domain

import (
	"fmt"
	"time"
)

// MonthKey identifies a calendar month
type MonthKey struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// NewMonthKey creates a MonthKey, validating the month number and year range
func NewMonthKey(year, month int) (MonthKey, error) {
	if month < 1 || month > 12 {
		return MonthKey{}, fmt.Errorf("%w: month %d out of range", ErrInvalidInput, month)
	}
	if year < 2000 || year > 2100 {
		return MonthKey{}, fmt.Errorf("%w: year %d out of range", ErrInvalidInput, year)
	}
	return MonthKey{Year: year, Month: time.Month(month)}, nil
}

// ParseMonthKey parses a YYYY-MM string
func ParseMonthKey(s string) (MonthKey, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return MonthKey{}, fmt.Errorf("%w: month %q must be YYYY-MM", ErrInvalidInput, s)
	}
	return NewMonthKey(t.Year(), int(t.Month()))
}

// MonthOf returns the MonthKey containing t. Months are UTC, like Start and End.
func MonthOf(t time.Time) MonthKey {
	t = t.UTC()
	return MonthKey{Year: t.Year(), Month: t.Month()}
}

// AddMonths returns the month n months after m (n may be negative)
func (m MonthKey) AddMonths(n int) MonthKey {
	total := m.Year*12 + int(m.Month) - 1 + n
	return MonthKey{Year: total / 12, Month: time.Month(total%12 + 1)}
}

// Prev returns the previous month, wrapping January to December of the prior year
func (m MonthKey) Prev() MonthKey {
	return m.AddMonths(-1)
}

// Next returns the following month
func (m MonthKey) Next() MonthKey {
	return m.AddMonths(1)
}

// Start returns midnight UTC on the first day of the month
func (m MonthKey) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the exclusive upper bound of the month (first day of next month)
func (m MonthKey) End() time.Time {
	return m.Next().Start()
}

// Days returns the number of days in the month
func (m MonthKey) Days() int {
	return time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Contains reports whether t falls within the month
func (m MonthKey) Contains(t time.Time) bool {
	return MonthOf(t) == m
}

// Before reports whether m is strictly earlier than other
func (m MonthKey) Before(other MonthKey) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}
	return m.Month < other.Month
}

// String formats the key as YYYY-MM
func (m MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}
