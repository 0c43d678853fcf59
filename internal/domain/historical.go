package domain

import "github.com/shopspring/decimal"

// DefaultHistoricalLookbackMonths is the trailing window used for the recurring baseline
const DefaultHistoricalLookbackMonths = 3

// HistoricalRecurringSnapshot is the average monthly recurring spend per
// budgeted category over the months that actually had recurring activity.
type HistoricalRecurringSnapshot struct {
	ByCategory map[int32]decimal.Decimal `json:"byCategory"`
	Total      decimal.Decimal           `json:"total"`
	MonthsUsed int                       `json:"monthsUsed"`
}

// EmptyHistoricalSnapshot is the "no baseline available" value
func EmptyHistoricalSnapshot() *HistoricalRecurringSnapshot {
	return &HistoricalRecurringSnapshot{
		ByCategory: map[int32]decimal.Decimal{},
		Total:      decimal.Zero,
	}
}

// HasBaseline reports whether any month contributed data
func (s *HistoricalRecurringSnapshot) HasBaseline() bool {
	return s != nil && s.MonthsUsed > 0
}

// CategoryAverage returns the baseline for one category, zero when absent
func (s *HistoricalRecurringSnapshot) CategoryAverage(categoryID int32) decimal.Decimal {
	if s == nil {
		return decimal.Zero
	}
	if v, ok := s.ByCategory[categoryID]; ok {
		return v
	}
	return decimal.Zero
}
