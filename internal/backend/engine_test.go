package backend

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rollpace/rollpace-backend/internal/config"
	"github.com/rollpace/rollpace-backend/internal/domain"
	"github.com/rollpace/rollpace-backend/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockSources() (*Sources, *testutil.MockBudgetSource, *testutil.MockTransactionSource) {
	budgets := testutil.NewMockBudgetSource()
	transactions := testutil.NewMockTransactionSource()
	return &Sources{
		Budgets:      budgets,
		Transactions: transactions,
		Users:        testutil.NewMockUserRepository(),
		Close:        func() {},
	}, budgets, transactions
}

func TestNewEngine_CacheDisabled(t *testing.T) {
	sources, _, _ := mockSources()

	engine, err := NewEngine(sources, config.EngineConfig{
		HistoricalLookbackMonths: 3,
		RolloverMaxDepth:         12,
		IncomeOffsetPolicy:       domain.RecurringFirstOffset{},
	}, zerolog.Nop())

	require.NoError(t, err)
	defer engine.Close()
	assert.Nil(t, engine.Memo)
	assert.Nil(t, engine.RolloverMemo())
	assert.NotNil(t, engine.Rollover)
	assert.NotNil(t, engine.Reports)
	assert.NotNil(t, engine.Digests)
}

func TestNewEngine_CacheEnabled(t *testing.T) {
	sources, _, _ := mockSources()

	engine, err := NewEngine(sources, config.EngineConfig{
		HistoricalLookbackMonths: 3,
		RolloverMaxDepth:         12,
		IncomeOffsetPolicy:       domain.RecurringFirstOffset{},
		CacheEnabled:             true,
		CacheMaxEntries:          100,
	}, zerolog.Nop())

	require.NoError(t, err)
	defer engine.Close()
	assert.NotNil(t, engine.Memo)
	assert.NotNil(t, engine.RolloverMemo())
}

func TestNewEngine_AppliesSignPolicy(t *testing.T) {
	sources, budgets, transactions := mockSources()
	userID := uuid.New()
	march := domain.MonthKey{Year: 2025, Month: time.March}

	budgets.SetBudget(userID, march, 7, 100, true)
	transactions.AddDebit(userID, 7, time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC), 150, false)

	tests := []struct {
		name     string
		policy   domain.RolloverSignPolicy
		expected string
		present  bool
	}{
		{name: "carry keeps the deficit", policy: domain.RolloverCarryNegative, expected: "-50", present: true},
		{name: "clamp drops the deficit", policy: domain.RolloverClampAtZero, present: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, err := NewEngine(sources, config.EngineConfig{
				HistoricalLookbackMonths: 3,
				RolloverMaxDepth:         12,
				RolloverSignPolicy:       tt.policy,
				IncomeOffsetPolicy:       domain.RecurringFirstOffset{},
			}, zerolog.Nop())
			require.NoError(t, err)
			defer engine.Close()

			rollover, err := engine.Rollover.ResolveRollover(context.Background(), userID, march.Next())

			require.NoError(t, err)
			value, ok := rollover[7]
			assert.Equal(t, tt.present, ok)
			if tt.present {
				assert.Equal(t, tt.expected, value.String())
			}
		})
	}
}
