package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rollpace/rollpace-backend/internal/domain"
	"github.com/rollpace/rollpace-backend/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoricalRecurringService_DefaultLookback(t *testing.T) {
	svc := NewHistoricalRecurringService(testutil.NewMockTransactionSource(), 0)
	assert.Equal(t, domain.DefaultHistoricalLookbackMonths, svc.Lookback())

	svc = NewHistoricalRecurringService(testutil.NewMockTransactionSource(), 6)
	assert.Equal(t, 6, svc.Lookback())
}

func TestHistoricalRecurringService_AveragesOverMonthsWithData(t *testing.T) {
	transactions := testutil.NewMockTransactionSource()
	svc := NewHistoricalRecurringService(transactions, 3)
	userID := uuid.New()
	target := monthKey(2025, time.April)

	// January has nothing; February and March carry recurring spend
	transactions.AddDebit(userID, 1, dayIn(monthKey(2025, time.February), 1), 50, true)
	transactions.AddDebit(userID, 1, dayIn(monthKey(2025, time.March), 1), 70, true)
	transactions.AddDebit(userID, 2, dayIn(monthKey(2025, time.March), 9), 30, true)

	snapshot, err := svc.Calculate(context.Background(), userID, target, []int32{1, 2}, 0)

	require.NoError(t, err)
	assert.Equal(t, 2, snapshot.MonthsUsed)
	assert.Equal(t, "60", snapshot.CategoryAverage(1).String())
	assert.Equal(t, "15", snapshot.CategoryAverage(2).String())
	assert.Equal(t, "75", snapshot.Total.String())
}

func TestHistoricalRecurringService_ExcludesUnbudgetedButCountsTheirMonths(t *testing.T) {
	transactions := testutil.NewMockTransactionSource()
	svc := NewHistoricalRecurringService(transactions, 3)
	userID := uuid.New()
	target := monthKey(2025, time.April)

	transactions.AddDebit(userID, 1, dayIn(monthKey(2025, time.March), 1), 90, true)
	transactions.AddDebit(userID, 7, dayIn(monthKey(2025, time.February), 1), 500, true)

	snapshot, err := svc.Calculate(context.Background(), userID, target, []int32{1}, 0)

	require.NoError(t, err)
	assert.Equal(t, 2, snapshot.MonthsUsed)
	assert.Equal(t, "45", snapshot.CategoryAverage(1).String())
	_, ok := snapshot.ByCategory[7]
	assert.False(t, ok)
	assert.Equal(t, "45", snapshot.Total.String())
}

func TestHistoricalRecurringService_IgnoresOutsideWindowAndNonRecurring(t *testing.T) {
	transactions := testutil.NewMockTransactionSource()
	svc := NewHistoricalRecurringService(transactions, 3)
	userID := uuid.New()
	target := monthKey(2025, time.April)

	transactions.AddDebit(userID, 1, dayIn(monthKey(2024, time.December), 1), 999, true)
	transactions.AddDebit(userID, 1, dayIn(target, 2), 999, true)
	transactions.AddDebit(userID, 1, dayIn(monthKey(2025, time.March), 2), 999, false)
	transactions.AddCredit(userID, 1, dayIn(monthKey(2025, time.March), 2), 999)

	snapshot, err := svc.Calculate(context.Background(), userID, target, []int32{1}, 0)

	require.NoError(t, err)
	assert.Equal(t, 0, snapshot.MonthsUsed)
	assert.Empty(t, snapshot.ByCategory)
	assert.True(t, snapshot.Total.IsZero())
	assert.False(t, snapshot.HasBaseline())
}

func TestHistoricalRecurringService_SkipsUncategorisedAndHidden(t *testing.T) {
	transactions := testutil.NewMockTransactionSource()
	svc := NewHistoricalRecurringService(transactions, 3)
	userID := uuid.New()
	march := monthKey(2025, time.March)
	categoryID := int32(1)

	transactions.AddTransaction(&domain.TransactionRecord{
		UserID: userID, Date: dayIn(march, 1), Amount: decimal.NewFromInt(40),
		Direction: domain.DirectionDebit, Recurring: true,
	})
	transactions.AddTransaction(&domain.TransactionRecord{
		UserID: userID, Date: dayIn(march, 1), Amount: decimal.NewFromInt(40),
		Direction: domain.DirectionDebit, Recurring: true, CategoryID: &categoryID, Hidden: true,
	})

	snapshot, err := svc.Calculate(context.Background(), userID, march.Next(), []int32{1}, 0)

	require.NoError(t, err)
	assert.Equal(t, 0, snapshot.MonthsUsed)
}

func TestHistoricalRecurringService_CustomLookback(t *testing.T) {
	transactions := testutil.NewMockTransactionSource()
	svc := NewHistoricalRecurringService(transactions, 3)
	userID := uuid.New()
	target := monthKey(2025, time.July)

	transactions.AddDebit(userID, 1, dayIn(monthKey(2025, time.February), 1), 100, true)
	transactions.AddDebit(userID, 1, dayIn(monthKey(2025, time.June), 1), 50, true)

	snapshot, err := svc.Calculate(context.Background(), userID, target, []int32{1}, 6)

	require.NoError(t, err)
	assert.Equal(t, 2, snapshot.MonthsUsed)
	assert.Equal(t, "75", snapshot.CategoryAverage(1).String())

	query := transactions.Queries[len(transactions.Queries)-1]
	assert.Equal(t, monthKey(2025, time.January).Start(), query.Start)
	assert.Equal(t, target.Start(), query.End)
	assert.True(t, query.RecurringOnly)
	require.NotNil(t, query.Direction)
	assert.Equal(t, domain.DirectionDebit, *query.Direction)
}

func TestHistoricalRecurringService_ReadFailureIsNotNoData(t *testing.T) {
	transactions := testutil.NewMockTransactionSource()
	transactions.ListErr = errors.New("connection reset")
	svc := NewHistoricalRecurringService(transactions, 3)

	snapshot, err := svc.Calculate(context.Background(), uuid.New(), monthKey(2025, time.April), []int32{1}, 0)

	assert.Nil(t, snapshot)
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}
