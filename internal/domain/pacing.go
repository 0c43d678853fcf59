package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// IncomeOffsetPolicy decides how a category's income reduces its recurring
// and variable spending before pacing and budget consumption are measured.
type IncomeOffsetPolicy interface {
	Name() string
	Apply(recurring, variable, income decimal.Decimal) (netRecurring, netVariable decimal.Decimal)
}

// RecurringFirstOffset applies income to recurring spend, then to variable spend
type RecurringFirstOffset struct{}

// Name implements IncomeOffsetPolicy
func (RecurringFirstOffset) Name() string { return "recurring_first" }

// Apply implements IncomeOffsetPolicy
func (RecurringFirstOffset) Apply(recurring, variable, income decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	return offsetInOrder(recurring, variable, income)
}

// VariableFirstOffset applies income to variable spend, then to recurring spend
type VariableFirstOffset struct{}

// Name implements IncomeOffsetPolicy
func (VariableFirstOffset) Name() string { return "variable_first" }

// Apply implements IncomeOffsetPolicy
func (VariableFirstOffset) Apply(recurring, variable, income decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	netVariable, netRecurring := offsetInOrder(variable, recurring, income)
	return netRecurring, netVariable
}

func offsetInOrder(first, second, income decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	netFirst := decimal.Max(decimal.Zero, first.Sub(income))
	leftover := decimal.Max(decimal.Zero, income.Sub(first))
	netSecond := decimal.Max(decimal.Zero, second.Sub(leftover))
	return netFirst, netSecond
}

// ParseIncomeOffsetPolicy resolves a configured policy name
func ParseIncomeOffsetPolicy(s string) (IncomeOffsetPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "recurring_first":
		return RecurringFirstOffset{}, nil
	case "variable_first":
		return VariableFirstOffset{}, nil
	default:
		return nil, fmt.Errorf("%w: income offset policy %q", ErrUnknownPolicy, s)
	}
}

// PacingInput carries everything the projector needs for one scope.
// CategoryID nil means the aggregate across all budgeted categories.
type PacingInput struct {
	CategoryID     *int32
	BaseBudget     decimal.Decimal
	Rollover       decimal.Decimal
	RecurringSoFar decimal.Decimal
	VariableSoFar  decimal.Decimal
	IncomeSoFar    decimal.Decimal
	Historical     *HistoricalRecurringSnapshot
	DayOfMonth     int
	DaysInMonth    int
	IsCurrentMonth bool
}

// PacingResult compares actual spend with the expected-spend curve
type PacingResult struct {
	CategoryID          *int32          `json:"categoryId,omitempty"`
	Applicable          bool            `json:"applicable"`
	UsedHistorical      bool            `json:"usedHistorical"`
	PercentThroughMonth decimal.Decimal `json:"percentThroughMonth"`
	ExpectedSpending    decimal.Decimal `json:"expectedSpending"`
	ActualSpending      decimal.Decimal `json:"actualSpending"`
	PacingDifference    decimal.Decimal `json:"pacingDifference"`
}

// IsBehindPace reports whether actual spend exceeds the expected curve
func (p *PacingResult) IsBehindPace() bool {
	return p != nil && p.Applicable && p.PacingDifference.IsPositive()
}
