package service

import (
	"github.com/rollpace/rollpace-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// AggregationService rolls per-category figures into whole-month totals
type AggregationService struct {
	offset domain.IncomeOffsetPolicy
}

// NewAggregationService creates a new AggregationService. A nil policy uses recurring-first.
func NewAggregationService(offset domain.IncomeOffsetPolicy) *AggregationService {
	if offset == nil {
		offset = domain.RecurringFirstOffset{}
	}
	return &AggregationService{offset: offset}
}

// Aggregate builds one line per budget, in input order, plus the totals
// across them. Only categories with a budget this month contribute.
func (s *AggregationService) Aggregate(
	budgets []*domain.BudgetRecord,
	flows domain.CategoryFlows,
	rollover domain.RolloverMap,
) *domain.BudgetAggregate {
	totals := domain.BudgetTotals{}
	lines := make([]*domain.CategoryBudgetLine, 0, len(budgets))

	for _, b := range budgets {
		line := s.categoryLine(b, flows.Get(b.CategoryID), rollover.Get(b.CategoryID))
		lines = append(lines, line)

		totals.BaseBudget = totals.BaseBudget.Add(line.BaseBudget)
		totals.TotalRollover = totals.TotalRollover.Add(line.AppliedRollover)
		totals.TotalIncome = totals.TotalIncome.Add(line.Flow.Income)
		totals.TotalExpenses = totals.TotalExpenses.Add(line.Flow.Expenses)
		totals.TotalRecurring = totals.TotalRecurring.Add(line.NetRecurring)
		totals.TotalVariable = totals.TotalVariable.Add(line.NetVariable)
		totals.TotalSpent = totals.TotalSpent.Add(line.NetSpend)
	}

	totals.TotalBudget = totals.BaseBudget.Add(totals.TotalRollover)
	totals.Net = totals.TotalIncome.Sub(totals.TotalExpenses)
	totals.Remaining = totals.TotalBudget.Sub(totals.TotalSpent)
	totals.OverAmount = decimal.Max(decimal.Zero, totals.Remaining.Neg())
	totals.IsOverBudget = totals.OverAmount.IsPositive()
	totals.PercentageUsed = percentOf(totals.TotalSpent, totals.TotalBudget)
	totals.RecurringPercentage = percentOf(totals.TotalRecurring, totals.TotalBudget)
	totals.VariablePercentage = percentOf(totals.TotalVariable, totals.TotalBudget)

	return &domain.BudgetAggregate{Totals: totals, Categories: lines}
}

func (s *AggregationService) categoryLine(b *domain.BudgetRecord, flow domain.CategoryFlow, carried decimal.Decimal) *domain.CategoryBudgetLine {
	applied := decimal.Zero
	if b.RolloverEnabled {
		applied = carried
	}

	netRecurring, netVariable := s.offset.Apply(flow.RecurringExpenses, flow.VariableExpenses, flow.Income)
	totalBudget := b.Amount.Add(applied)
	netSpend := flow.NetSpend()
	isIncome := flow.IsIncome()

	return &domain.CategoryBudgetLine{
		CategoryID:       b.CategoryID,
		CategoryName:     b.CategoryName,
		BaseBudget:       b.Amount,
		CarriedRollover:  carried,
		AppliedRollover:  applied,
		TotalBudget:      totalBudget,
		Flow:             flow,
		NetRecurring:     netRecurring,
		NetVariable:      netVariable,
		NetSpend:         netSpend,
		Remaining:        totalBudget.Sub(netSpend),
		PercentageUsed:   percentOf(netSpend, totalBudget),
		RolloverEnabled:  b.RolloverEnabled,
		SavingsGoal:      b.SavingsGoal,
		IsIncomeCategory: isIncome,
		IsOverBudget:     !isIncome && netSpend.GreaterThan(totalBudget),
	}
}

// percentOf returns part/whole*100, or zero when whole is not positive
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}
