package service

import (
	"github.com/rollpace/rollpace-backend/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PacingService projects expected spend for the elapsed part of a month
type PacingService struct {
	offset domain.IncomeOffsetPolicy
}

// NewPacingService creates a new PacingService. A nil policy uses recurring-first.
func NewPacingService(offset domain.IncomeOffsetPolicy) *PacingService {
	if offset == nil {
		offset = domain.RecurringFirstOffset{}
	}
	return &PacingService{offset: offset}
}

// OffsetPolicy returns the income offset policy in use
func (s *PacingService) OffsetPolicy() domain.IncomeOffsetPolicy {
	return s.offset
}

// Project computes the pacing result for one scope. Outside the current
// month the result is marked not applicable and carries only actual spend.
func (s *PacingService) Project(in domain.PacingInput) *domain.PacingResult {
	netRecurring, netVariable := s.offset.Apply(in.RecurringSoFar, in.VariableSoFar, in.IncomeSoFar)
	actual := netRecurring.Add(netVariable)

	result := &domain.PacingResult{
		CategoryID:          in.CategoryID,
		ActualSpending:      actual,
		PercentThroughMonth: decimal.Zero,
		ExpectedSpending:    decimal.Zero,
		PacingDifference:    decimal.Zero,
	}
	if !in.IsCurrentMonth || in.DaysInMonth <= 0 {
		return result
	}

	fraction := decimal.NewFromInt(int64(in.DayOfMonth)).Div(decimal.NewFromInt(int64(in.DaysInMonth)))
	result.Applicable = true
	result.PercentThroughMonth = fraction.Mul(hundred)

	baseline := s.baseline(in)
	var expected decimal.Decimal
	if in.Historical.HasBaseline() && baseline.IsPositive() {
		// A recurring charge that has not landed yet still counts at its
		// pro-rated baseline; one that already landed counts in full.
		expectedRecurring := decimal.Max(netRecurring, baseline.Mul(fraction))
		expectedVariable := decimal.Max(decimal.Zero, in.BaseBudget.Sub(baseline)).Mul(fraction)
		expected = expectedRecurring.Add(expectedVariable)
		result.UsedHistorical = true
	} else {
		remainingBase := decimal.Max(decimal.Zero, in.BaseBudget.Sub(netRecurring))
		expected = netRecurring.Add(remainingBase.Mul(fraction))
	}

	// Rollover is available from day one, so it is never pro-rated
	expected = expected.Add(in.Rollover)

	result.ExpectedSpending = expected
	result.PacingDifference = actual.Sub(expected)
	return result
}

func (s *PacingService) baseline(in domain.PacingInput) decimal.Decimal {
	if !in.Historical.HasBaseline() {
		return decimal.Zero
	}
	if in.CategoryID != nil {
		return in.Historical.CategoryAverage(*in.CategoryID)
	}
	return in.Historical.Total
}
