package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rollpace/rollpace-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// HistoricalRecurringService builds the recurring-expense baseline used for pacing
type HistoricalRecurringService struct {
	transactions domain.TransactionSource
	lookback     int
}

// NewHistoricalRecurringService creates a new HistoricalRecurringService.
// A non-positive lookback falls back to domain.DefaultHistoricalLookbackMonths.
func NewHistoricalRecurringService(transactions domain.TransactionSource, lookback int) *HistoricalRecurringService {
	if lookback <= 0 {
		lookback = domain.DefaultHistoricalLookbackMonths
	}
	return &HistoricalRecurringService{
		transactions: transactions,
		lookback:     lookback,
	}
}

// Lookback returns the default window size in months
func (s *HistoricalRecurringService) Lookback() int {
	return s.lookback
}

// Calculate averages recurring debits per budgeted category over the
// lookback months immediately before target. Months without any recurring
// activity do not count towards the divisor. lookback <= 0 uses the default.
func (s *HistoricalRecurringService) Calculate(
	ctx context.Context,
	userID uuid.UUID,
	target domain.MonthKey,
	budgetCategoryIDs []int32,
	lookback int,
) (*domain.HistoricalRecurringSnapshot, error) {
	if lookback <= 0 {
		lookback = s.lookback
	}

	debit := domain.DirectionDebit
	txs, err := s.transactions.ListTransactions(ctx, domain.TransactionQuery{
		UserID:        userID,
		Start:         target.AddMonths(-lookback).Start(),
		End:           target.Start(),
		RecurringOnly: true,
		Direction:     &debit,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: recurring history before %s: %w", domain.ErrSourceUnavailable, target, err)
	}

	monthsWithData := make(map[domain.MonthKey]struct{})
	sums := make(map[int32]decimal.Decimal)

	for _, tx := range txs {
		if !tx.Counts() || tx.CategoryID == nil {
			continue
		}
		if !tx.Recurring || tx.Direction != domain.DirectionDebit {
			continue
		}
		monthsWithData[domain.MonthOf(tx.Date)] = struct{}{}
		sums[*tx.CategoryID] = sums[*tx.CategoryID].Add(tx.Amount)
	}

	monthsUsed := len(monthsWithData)
	if monthsUsed == 0 {
		return domain.EmptyHistoricalSnapshot(), nil
	}

	budgeted := make(map[int32]struct{}, len(budgetCategoryIDs))
	for _, id := range budgetCategoryIDs {
		budgeted[id] = struct{}{}
	}

	snapshot := &domain.HistoricalRecurringSnapshot{
		ByCategory: make(map[int32]decimal.Decimal),
		Total:      decimal.Zero,
		MonthsUsed: monthsUsed,
	}
	divisor := decimal.NewFromInt(int64(monthsUsed))

	for categoryID, sum := range sums {
		if _, ok := budgeted[categoryID]; !ok {
			continue
		}
		avg := sum.Div(divisor)
		snapshot.ByCategory[categoryID] = avg
		snapshot.Total = snapshot.Total.Add(avg)
	}

	return snapshot, nil
}
