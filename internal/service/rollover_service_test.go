package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rollpace/rollpace-backend/internal/cache"
	"github.com/rollpace/rollpace-backend/internal/domain"
	"github.com/rollpace/rollpace-backend/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func monthKey(year int, month time.Month) domain.MonthKey {
	return domain.MonthKey{Year: year, Month: month}
}

func dayIn(m domain.MonthKey, day int) time.Time {
	return time.Date(m.Year, m.Month, day, 12, 0, 0, 0, time.UTC)
}

func setupRolloverService(config RolloverServiceConfig) (*RolloverService, *testutil.MockBudgetSource, *testutil.MockTransactionSource) {
	budgets := testutil.NewMockBudgetSource()
	transactions := testutil.NewMockTransactionSource()
	svc := NewRolloverService(budgets, transactions, nil, zerolog.Nop(), config)
	return svc, budgets, transactions
}

func TestRolloverService_DefaultConfig(t *testing.T) {
	config := DefaultRolloverServiceConfig()

	assert.Equal(t, 12, config.MaxDepth)
	assert.Equal(t, domain.RolloverCarryNegative, config.SignPolicy)

	svc := NewRolloverService(nil, nil, nil, zerolog.Nop(), RolloverServiceConfig{})
	assert.Equal(t, DefaultRolloverMaxDepth, svc.maxDepth)
	assert.Equal(t, domain.RolloverCarryNegative, svc.SignPolicy())
}

func TestRolloverService_UnderspendCarriesForward(t *testing.T) {
	svc, budgets, transactions := setupRolloverService(DefaultRolloverServiceConfig())
	userID := uuid.New()
	feb := monthKey(2025, time.February)

	budgets.SetBudget(userID, feb, 1, 100, true)
	transactions.AddDebit(userID, 1, dayIn(feb, 10), 60, false)

	result, err := svc.ResolveRollover(context.Background(), userID, feb.Next())

	require.NoError(t, err)
	assert.Equal(t, "40", result.Get(1).String())
}

func TestRolloverService_OverspendCarriesNegative(t *testing.T) {
	svc, budgets, transactions := setupRolloverService(DefaultRolloverServiceConfig())
	userID := uuid.New()
	feb := monthKey(2025, time.February)

	budgets.SetBudget(userID, feb, 1, 100, true)
	transactions.AddDebit(userID, 1, dayIn(feb, 10), 150, false)

	result, err := svc.ResolveRollover(context.Background(), userID, feb.Next())

	require.NoError(t, err)
	assert.Equal(t, "-50", result.Get(1).String())
}

func TestRolloverService_ClampPolicyDropsOverspend(t *testing.T) {
	svc, budgets, transactions := setupRolloverService(RolloverServiceConfig{
		MaxDepth:   12,
		SignPolicy: domain.RolloverClampAtZero,
	})
	userID := uuid.New()
	feb := monthKey(2025, time.February)

	budgets.SetBudget(userID, feb, 1, 100, true)
	budgets.SetBudget(userID, feb, 2, 100, true)
	transactions.AddDebit(userID, 1, dayIn(feb, 10), 150, false)
	transactions.AddDebit(userID, 2, dayIn(feb, 10), 25, false)

	result, err := svc.ResolveRollover(context.Background(), userID, feb.Next())

	require.NoError(t, err)
	assert.False(t, result.Has(1))
	assert.Equal(t, "75", result.Get(2).String())
}

func TestRolloverService_CumulativeCarry(t *testing.T) {
	svc, budgets, transactions := setupRolloverService(DefaultRolloverServiceConfig())
	userID := uuid.New()
	jan := monthKey(2025, time.January)
	feb := jan.Next()

	budgets.SetBudget(userID, jan, 1, 100, true)
	budgets.SetBudget(userID, feb, 1, 100, true)
	transactions.AddDebit(userID, 1, dayIn(jan, 5), 80, false)
	transactions.AddDebit(userID, 1, dayIn(feb, 5), 80, false)

	result, err := svc.ResolveRollover(context.Background(), userID, feb.Next())

	require.NoError(t, err)
	assert.Equal(t, "40", result.Get(1).String())
}

func TestRolloverService_WrapsAcrossYearBoundary(t *testing.T) {
	svc, budgets, transactions := setupRolloverService(DefaultRolloverServiceConfig())
	userID := uuid.New()
	dec := monthKey(2024, time.December)

	budgets.SetBudget(userID, dec, 1, 200, true)
	transactions.AddDebit(userID, 1, dayIn(dec, 24), 150, false)

	result, err := svc.ResolveRollover(context.Background(), userID, monthKey(2025, time.January))

	require.NoError(t, err)
	assert.Equal(t, "50", result.Get(1).String())
}

func TestRolloverService_CreditsOffsetDebits(t *testing.T) {
	svc, budgets, transactions := setupRolloverService(DefaultRolloverServiceConfig())
	userID := uuid.New()
	feb := monthKey(2025, time.February)

	budgets.SetBudget(userID, feb, 1, 100, true)
	transactions.AddDebit(userID, 1, dayIn(feb, 3), 60, false)
	transactions.AddCredit(userID, 1, dayIn(feb, 4), 100)

	result, err := svc.ResolveRollover(context.Background(), userID, feb.Next())

	require.NoError(t, err)
	// net spend is -40, so the whole budget plus the refund surplus carries
	assert.Equal(t, "140", result.Get(1).String())
}

func TestRolloverService_DisabledMonthKeepsInheritedBalance(t *testing.T) {
	svc, budgets, transactions := setupRolloverService(DefaultRolloverServiceConfig())
	userID := uuid.New()
	jan := monthKey(2025, time.January)
	feb := jan.Next()

	budgets.SetBudget(userID, jan, 1, 100, true)
	transactions.AddDebit(userID, 1, dayIn(jan, 5), 70, false)
	budgets.SetBudget(userID, feb, 1, 100, false)

	result, err := svc.ResolveRollover(context.Background(), userID, feb.Next())

	require.NoError(t, err)
	assert.Equal(t, "30", result.Get(1).String())
}

func TestRolloverService_DisabledMonthOverspendDrawsDownInherited(t *testing.T) {
	svc, budgets, transactions := setupRolloverService(DefaultRolloverServiceConfig())
	userID := uuid.New()
	jan := monthKey(2025, time.January)
	feb := jan.Next()

	budgets.SetBudget(userID, jan, 1, 100, true)
	transactions.AddDebit(userID, 1, dayIn(jan, 5), 70, false)
	budgets.SetBudget(userID, feb, 1, 100, false)
	transactions.AddDebit(userID, 1, dayIn(feb, 5), 120, false)

	result, err := svc.ResolveRollover(context.Background(), userID, feb.Next())

	require.NoError(t, err)
	assert.Equal(t, "10", result.Get(1).String())
}

func TestRolloverService_DisabledMonthWithoutInheritedIsSkipped(t *testing.T) {
	svc, budgets, transactions := setupRolloverService(DefaultRolloverServiceConfig())
	userID := uuid.New()
	feb := monthKey(2025, time.February)

	budgets.SetBudget(userID, feb, 1, 100, false)
	transactions.AddDebit(userID, 1, dayIn(feb, 5), 10, false)

	result, err := svc.ResolveRollover(context.Background(), userID, feb.Next())

	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestRolloverService_InheritedBalanceWithoutBudgetIsSpentAgainst(t *testing.T) {
	svc, budgets, transactions := setupRolloverService(DefaultRolloverServiceConfig())
	userID := uuid.New()
	jan := monthKey(2025, time.January)
	feb := jan.Next()

	budgets.SetBudget(userID, jan, 1, 100, true)
	transactions.AddDebit(userID, 1, dayIn(jan, 5), 50, false)
	transactions.AddDebit(userID, 1, dayIn(feb, 5), 10, false)

	result, err := svc.ResolveRollover(context.Background(), userID, feb.Next())

	require.NoError(t, err)
	assert.Equal(t, "40", result.Get(1).String())
}

func TestRolloverService_UnbudgetedCategoryContributesNothing(t *testing.T) {
	svc, budgets, transactions := setupRolloverService(DefaultRolloverServiceConfig())
	userID := uuid.New()
	feb := monthKey(2025, time.February)

	budgets.SetBudget(userID, feb, 1, 100, true)
	transactions.AddDebit(userID, 1, dayIn(feb, 5), 100, false)
	transactions.AddDebit(userID, 9, dayIn(feb, 5), 45, false)

	result, err := svc.ResolveRollover(context.Background(), userID, feb.Next())

	require.NoError(t, err)
	assert.False(t, result.Has(1), "exactly spent budget leaves no entry")
	assert.False(t, result.Has(9))
	assert.Empty(t, result)
}

func TestRolloverService_IgnoresHiddenAndDeleted(t *testing.T) {
	svc, budgets, transactions := setupRolloverService(DefaultRolloverServiceConfig())
	userID := uuid.New()
	feb := monthKey(2025, time.February)
	categoryID := int32(1)

	budgets.SetBudget(userID, feb, categoryID, 100, true)
	transactions.AddTransaction(&domain.TransactionRecord{
		UserID: userID, Date: dayIn(feb, 2), Amount: decimal.NewFromInt(90),
		Direction: domain.DirectionDebit, CategoryID: &categoryID, Hidden: true,
	})
	transactions.AddTransaction(&domain.TransactionRecord{
		UserID: userID, Date: dayIn(feb, 3), Amount: decimal.NewFromInt(90),
		Direction: domain.DirectionDebit, CategoryID: &categoryID, Deleted: true,
	})

	result, err := svc.ResolveRollover(context.Background(), userID, feb.Next())

	require.NoError(t, err)
	assert.Equal(t, "100", result.Get(1).String())
}

func TestRolloverService_IsIdempotent(t *testing.T) {
	svc, budgets, transactions := setupRolloverService(DefaultRolloverServiceConfig())
	userID := uuid.New()
	jan := monthKey(2025, time.January)

	budgets.SetBudget(userID, jan, 1, 100, true)
	budgets.SetBudget(userID, jan.Next(), 1, 100, true)
	budgets.SetBudget(userID, jan.Next(), 2, 50, false)
	transactions.AddDebit(userID, 1, dayIn(jan, 5), 130, false)
	transactions.AddDebit(userID, 2, dayIn(jan.Next(), 5), 20, true)

	first, err := svc.ResolveRollover(context.Background(), userID, jan.AddMonths(2))
	require.NoError(t, err)
	second, err := svc.ResolveRollover(context.Background(), userID, jan.AddMonths(2))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRolloverService_DepthGuardOverFiveYears(t *testing.T) {
	svc, budgets, transactions := setupRolloverService(DefaultRolloverServiceConfig())
	userID := uuid.New()
	start := monthKey(2020, time.January)
	target := start.AddMonths(60)

	for m := start; m.Before(target); m = m.Next() {
		budgets.SetBudget(userID, m, 1, 100, true)
		transactions.AddDebit(userID, 1, dayIn(m, 15), 90, false)
	}

	result, err := svc.ResolveRollover(context.Background(), userID, target)

	require.NoError(t, err)
	requested := budgets.RequestedMonths()
	require.Len(t, requested, DefaultRolloverMaxDepth+1)
	assert.Equal(t, target.AddMonths(-(DefaultRolloverMaxDepth + 1)), requested[0])
	assert.Equal(t, target.Prev(), requested[len(requested)-1])
	// 13 months of 10 underspend each
	assert.Equal(t, "130", result.Get(1).String())
}

func TestRolloverService_BudgetReadFailurePropagates(t *testing.T) {
	svc, budgets, _ := setupRolloverService(DefaultRolloverServiceConfig())
	userID := uuid.New()
	target := monthKey(2025, time.March)
	storeErr := errors.New("connection refused")
	budgets.ErrForMonth[target.AddMonths(-4)] = storeErr

	result, err := svc.ResolveRollover(context.Background(), userID, target)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
	assert.ErrorIs(t, err, storeErr)
}

func TestRolloverService_TransactionReadFailurePropagates(t *testing.T) {
	svc, _, transactions := setupRolloverService(DefaultRolloverServiceConfig())
	transactions.ListErr = errors.New("timeout")

	_, err := svc.ResolveRollover(context.Background(), uuid.New(), monthKey(2025, time.March))

	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestRolloverService_CancelledContext(t *testing.T) {
	svc, _, _ := setupRolloverService(DefaultRolloverServiceConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.ResolveRollover(ctx, uuid.New(), monthKey(2025, time.March))

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRolloverService_UsesMemo(t *testing.T) {
	budgets := testutil.NewMockBudgetSource()
	transactions := testutil.NewMockTransactionSource()
	memo := testutil.NewMockRolloverMemo()
	svc := NewRolloverService(budgets, transactions, memo, zerolog.Nop(), DefaultRolloverServiceConfig())
	userID := uuid.New()
	feb := monthKey(2025, time.February)

	budgets.SetBudget(userID, feb, 1, 100, true)
	transactions.AddDebit(userID, 1, dayIn(feb, 10), 60, false)

	first, err := svc.ResolveRollover(context.Background(), userID, feb.Next())
	require.NoError(t, err)
	queries := transactions.QueryCount()

	second, err := svc.ResolveRollover(context.Background(), userID, feb.Next())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, queries, transactions.QueryCount())
	assert.Equal(t, 1, memo.Hits)
	assert.Equal(t, 1, memo.Sets)

	memo.Invalidate(userID)
	_, err = svc.ResolveRollover(context.Background(), userID, feb.Next())
	require.NoError(t, err)
	assert.Greater(t, transactions.QueryCount(), queries)
}

func TestDrawDownInherited(t *testing.T) {
	tests := []struct {
		name      string
		inherited int64
		budget    int64
		spend     int64
		expected  string
	}{
		{"no spend keeps balance", 30, 100, 0, "30"},
		{"spend within budget keeps balance", 30, 100, 100, "30"},
		{"excess spend reduces balance", 30, 100, 110, "20"},
		{"excess beyond balance floors at zero", 30, 100, 200, "0"},
		{"negative balance stays", -40, 100, 0, "-40"},
		{"refunds do not grow balance", 30, 100, -50, "30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := drawDownInherited(
				decimal.NewFromInt(tt.inherited),
				decimal.NewFromInt(tt.budget),
				decimal.NewFromInt(tt.spend),
			)
			assert.Equal(t, tt.expected, got.String())
		})
	}
}

// pausingTransactions holds the result of one month's read until released,
// so the ledger can change while a walk is in flight
type pausingTransactions struct {
	*testutil.MockTransactionSource
	month   domain.MonthKey
	reached chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *pausingTransactions) ListTransactions(ctx context.Context, q domain.TransactionQuery) ([]*domain.TransactionRecord, error) {
	txs, err := p.MockTransactionSource.ListTransactions(ctx, q)
	if domain.MonthOf(q.Start) == p.month {
		paused := false
		p.once.Do(func() { paused = true })
		if paused {
			close(p.reached)
			<-p.release
		}
	}
	return txs, err
}

func TestRolloverService_InvalidationDuringWalkIsNotCached(t *testing.T) {
	budgets := testutil.NewMockBudgetSource()
	feb := monthKey(2025, time.February)
	transactions := &pausingTransactions{
		MockTransactionSource: testutil.NewMockTransactionSource(),
		month:                 feb,
		reached:               make(chan struct{}),
		release:               make(chan struct{}),
	}
	memo, err := cache.NewRolloverCache(100, time.Hour)
	require.NoError(t, err)
	defer memo.Close()

	svc := NewRolloverService(budgets, transactions, memo, zerolog.Nop(), DefaultRolloverServiceConfig())
	userID := uuid.New()
	budgets.SetBudget(userID, feb, 1, 100, true)

	stale := make(chan domain.RolloverMap, 1)
	go func() {
		result, err := svc.ResolveRollover(context.Background(), userID, feb.Next())
		assert.NoError(t, err)
		stale <- result
	}()

	<-transactions.reached
	transactions.AddDebit(userID, 1, dayIn(feb, 10), 60, false)
	memo.Invalidate(userID)
	close(transactions.release)

	assert.Equal(t, "100", (<-stale).Get(1).String(), "the in-flight walk read the old ledger")

	fresh, err := svc.ResolveRollover(context.Background(), userID, feb.Next())

	require.NoError(t, err)
	assert.Equal(t, "40", fresh.Get(1).String())
}
