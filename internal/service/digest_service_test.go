package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rollpace/rollpace-backend/internal/domain"
	"github.com/rollpace/rollpace-backend/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDigestService(now time.Time) (*DigestService, *testutil.MockBudgetSource, *testutil.MockTransactionSource) {
	budgets := testutil.NewMockBudgetSource()
	transactions := testutil.NewMockTransactionSource()
	rollover := NewRolloverService(budgets, transactions, nil, zerolog.Nop(), DefaultRolloverServiceConfig())

	svc := NewDigestService(budgets, transactions, rollover)
	svc.SetClock(func() time.Time { return now })
	return svc, budgets, transactions
}

func TestDigestService_GetDigest(t *testing.T) {
	april := monthKey(2025, time.April)
	now := time.Date(2025, time.April, 15, 9, 0, 0, 0, time.UTC)
	svc, budgets, transactions := setupDigestService(now)
	userID := uuid.New()

	budgets.SetBudget(userID, april.Prev(), 1, 100, true)
	transactions.AddDebit(userID, 1, dayIn(april.Prev(), 4), 80, false)

	budgets.AddBudget(&domain.BudgetRecord{
		UserID: userID, CategoryID: 1, CategoryName: "Groceries", Month: april,
		Amount: decimal.NewFromInt(100), RolloverEnabled: true,
	})
	budgets.AddBudget(&domain.BudgetRecord{
		UserID: userID, CategoryID: 2, CategoryName: "Dining", Month: april,
		Amount: decimal.NewFromInt(200), RolloverEnabled: false,
	})
	budgets.AddBudget(&domain.BudgetRecord{
		UserID: userID, CategoryID: 3, CategoryName: "Holiday fund", Month: april,
		Amount: decimal.NewFromInt(500), RolloverEnabled: true, SavingsGoal: true,
	})
	transactions.AddDebit(userID, 1, dayIn(april, 2), 30, false)
	transactions.AddDebit(userID, 2, time.Date(2025, time.April, 14, 20, 0, 0, 0, time.UTC), 90, false)
	transactions.AddDebit(userID, 3, dayIn(april, 3), 100, false)

	digest, err := svc.GetDigest(context.Background(), userID)

	require.NoError(t, err)
	assert.Equal(t, april, digest.Month)
	assert.Equal(t, 15, digest.DaysRemainingInMonth)

	require.Len(t, digest.Categories, 2, "savings goals are excluded")
	assert.Equal(t, "Dining", digest.Categories[0].CategoryName, "sorted by spent")
	assert.Nil(t, digest.Categories[0].Rollover)
	assert.Equal(t, "200", digest.Categories[0].BudgetAmount.String())

	groceries := digest.Categories[1]
	require.NotNil(t, groceries.Rollover)
	assert.Equal(t, "20", groceries.Rollover.String())
	assert.Equal(t, "120", groceries.BudgetAmount.String())
	assert.Equal(t, "90", groceries.Remaining.String())

	progress := digest.Progress
	assert.Equal(t, "320", progress.TotalBudget.String())
	assert.Equal(t, "120", progress.TotalSpent.String())
	assert.Equal(t, "200", progress.TotalRemaining.String())
	assert.Equal(t, "50", progress.PercentThroughMonth.String())
	assert.Equal(t, "160", progress.ExpectedSpending.String())
	assert.Equal(t, "-40", progress.PacingDifference.String())
	assert.False(t, progress.IsPacingOver)
	assert.False(t, progress.IsOverBudget)

	require.Len(t, digest.RecentTransactions, 1)
	assert.Equal(t, "90", digest.RecentTransactions[0].Amount.String())
	assert.Equal(t, "Untitled Transaction", digest.RecentTransactions[0].Description)
}

func TestDigestService_RecentTransactionsCapped(t *testing.T) {
	now := time.Date(2025, time.April, 20, 18, 0, 0, 0, time.UTC)
	april := domain.MonthOf(now)
	svc, budgets, transactions := setupDigestService(now)
	userID := uuid.New()
	categoryID := int32(1)

	budgets.SetBudget(userID, april, categoryID, 1000, true)
	for i := 0; i < 15; i++ {
		transactions.AddTransaction(&domain.TransactionRecord{
			UserID:      userID,
			Date:        now.Add(-time.Duration(i) * time.Hour),
			Amount:      decimal.NewFromInt(int64(i + 1)),
			Direction:   domain.DirectionDebit,
			CategoryID:  &categoryID,
			Description: fmt.Sprintf("purchase %d", i),
		})
	}

	digest, err := svc.GetDigest(context.Background(), userID)

	require.NoError(t, err)
	require.Len(t, digest.RecentTransactions, domain.MaxDigestRecentTransactions)
	assert.Equal(t, "purchase 0", digest.RecentTransactions[0].Description)
	assert.Equal(t, "purchase 9", digest.RecentTransactions[9].Description)
}

func TestDigestService_NoRegularBudgets(t *testing.T) {
	now := time.Date(2025, time.April, 20, 18, 0, 0, 0, time.UTC)
	svc, budgets, _ := setupDigestService(now)
	userID := uuid.New()
	budgets.AddBudget(&domain.BudgetRecord{
		UserID: userID, CategoryID: 3, Month: domain.MonthOf(now),
		Amount: decimal.NewFromInt(500), RolloverEnabled: true, SavingsGoal: true,
	})

	digest, err := svc.GetDigest(context.Background(), userID)

	assert.Nil(t, digest)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDigestService_SourceFailure(t *testing.T) {
	now := time.Date(2025, time.April, 20, 18, 0, 0, 0, time.UTC)
	svc, budgets, _ := setupDigestService(now)
	budgets.ListErr = errors.New("down")

	_, err := svc.GetDigest(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestDigestService_MonthFollowsUTC(t *testing.T) {
	// 01:00 on April 1st in UTC+2 is 23:00 on March 31st in UTC
	now := time.Date(2025, time.April, 1, 1, 0, 0, 0, time.FixedZone("UTC+2", 2*60*60))
	svc, budgets, _ := setupDigestService(now)
	userID := uuid.New()
	march := monthKey(2025, time.March)
	budgets.SetBudget(userID, march, 1, 100, true)

	digest, err := svc.GetDigest(context.Background(), userID)

	require.NoError(t, err)
	assert.Equal(t, march, digest.Month)
	assert.Equal(t, 0, digest.DaysRemainingInMonth)
	assert.Equal(t, time.UTC, digest.Date.Location())
}
