package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rollpace/rollpace-backend/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// DefaultRolloverMaxDepth is how many months back, beyond the previous one,
// a rollover walk is allowed to reach.
const DefaultRolloverMaxDepth = 12

// RolloverServiceConfig holds configuration for rollover resolution
type RolloverServiceConfig struct {
	MaxDepth   int
	SignPolicy domain.RolloverSignPolicy
}

// DefaultRolloverServiceConfig returns the carry-negative, 12-deep configuration
func DefaultRolloverServiceConfig() RolloverServiceConfig {
	return RolloverServiceConfig{
		MaxDepth:   DefaultRolloverMaxDepth,
		SignPolicy: domain.RolloverCarryNegative,
	}
}

// RolloverService resolves the balance each category carries into a month
type RolloverService struct {
	budgets      domain.BudgetSource
	transactions domain.TransactionSource
	memo         domain.RolloverMemo
	logger       zerolog.Logger
	maxDepth     int
	signPolicy   domain.RolloverSignPolicy
}

// NewRolloverService creates a new RolloverService. memo may be nil.
func NewRolloverService(
	budgets domain.BudgetSource,
	transactions domain.TransactionSource,
	memo domain.RolloverMemo,
	logger zerolog.Logger,
	config RolloverServiceConfig,
) *RolloverService {
	if config.MaxDepth <= 0 {
		config.MaxDepth = DefaultRolloverMaxDepth
	}
	if config.SignPolicy == "" {
		config.SignPolicy = domain.RolloverCarryNegative
	}

	return &RolloverService{
		budgets:      budgets,
		transactions: transactions,
		memo:         memo,
		logger:       logger.With().Str("component", "rollover").Logger(),
		maxDepth:     config.MaxDepth,
		signPolicy:   config.SignPolicy,
	}
}

// SignPolicy returns the configured sign policy
func (s *RolloverService) SignPolicy() domain.RolloverSignPolicy {
	return s.signPolicy
}

// ResolveRollover returns the balance available to enter target from all
// prior months. Months are walked oldest first, from target-(maxDepth+1)
// to target-1, each month's output feeding the next.
func (s *RolloverService) ResolveRollover(ctx context.Context, userID uuid.UUID, target domain.MonthKey) (domain.RolloverMap, error) {
	// Taken before any read so a concurrent invalidation discards this walk's result
	var generation uint64
	if s.memo != nil {
		generation = s.memo.Generation(userID)
		if cached, ok := s.memo.Get(userID, target); ok {
			return cached.Clone(), nil
		}
	}

	oldest := target.AddMonths(-(s.maxDepth + 1))
	balance := domain.RolloverMap{}

	for month := oldest; month.Before(target); month = month.Next() {
		budgets, flows, err := s.loadMonth(ctx, userID, month)
		if err != nil {
			return nil, err
		}

		if month == oldest && len(budgets) > 0 {
			s.logger.Debug().
				Str("user_id", userID.String()).
				Str("target", target.String()).
				Str("oldest", oldest.String()).
				Int("max_depth", s.maxDepth).
				Msg("Rollover walk reached depth ceiling with budgets still present")
		}

		balance = s.carryMonth(budgets, flows, balance)
	}

	if s.memo != nil {
		s.memo.Set(userID, target, generation, balance.Clone())
	}

	return balance, nil
}

// loadMonth reads one month's budgets and transactions concurrently
func (s *RolloverService) loadMonth(ctx context.Context, userID uuid.UUID, month domain.MonthKey) ([]*domain.BudgetRecord, domain.CategoryFlows, error) {
	var (
		budgets []*domain.BudgetRecord
		txs     []*domain.TransactionRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		budgets, err = s.budgets.ListBudgets(gctx, userID, month)
		if err != nil {
			return fmt.Errorf("%w: budgets for %s: %w", domain.ErrSourceUnavailable, month, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		txs, err = s.transactions.ListTransactions(gctx, domain.MonthQuery(userID, month))
		if err != nil {
			return fmt.Errorf("%w: transactions for %s: %w", domain.ErrSourceUnavailable, month, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	return budgets, domain.BuildCategoryFlows(txs), nil
}

// carryMonth computes the balance entering the month after the one described
// by budgets and flows, given the balance that entered it.
func (s *RolloverService) carryMonth(budgets []*domain.BudgetRecord, flows domain.CategoryFlows, incoming domain.RolloverMap) domain.RolloverMap {
	byCategory := make(map[int32]*domain.BudgetRecord, len(budgets))
	for _, b := range budgets {
		byCategory[b.CategoryID] = b
	}

	categories := make(map[int32]struct{}, len(byCategory)+len(incoming))
	for id := range byCategory {
		categories[id] = struct{}{}
	}
	for id := range incoming {
		if incoming.Has(id) {
			categories[id] = struct{}{}
		}
	}

	out := domain.RolloverMap{}
	for id := range categories {
		budget := byCategory[id]
		inherited := incoming.Get(id)
		spend := flows.Get(id).SignedSpend()

		amount := decimal.Zero
		enabled := true
		if budget != nil {
			amount = budget.Amount
			enabled = budget.RolloverEnabled
		}

		var remaining decimal.Decimal
		switch {
		case enabled:
			remaining = amount.Add(inherited).Sub(spend)
		case inherited.IsZero():
			continue
		default:
			remaining = drawDownInherited(inherited, amount, spend)
		}

		remaining = s.signPolicy.Apply(remaining)
		if !remaining.IsZero() {
			out[id] = remaining
		}
	}

	return out
}

// drawDownInherited handles a rollover-disabled month that inherited a
// balance: the month's own surplus or deficit is not carried, and only
// spending beyond the month's budget reduces a positive inherited balance,
// never below zero.
func drawDownInherited(inherited, budget, spend decimal.Decimal) decimal.Decimal {
	if inherited.IsNegative() {
		return inherited
	}
	excess := decimal.Max(decimal.Zero, spend.Sub(budget))
	return decimal.Max(decimal.Zero, inherited.Sub(excess))
}
