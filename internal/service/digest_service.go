package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rollpace/rollpace-backend/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const untitledTransaction = "Untitled Transaction"

// DigestService computes the content of the daily budget digest
type DigestService struct {
	budgets      domain.BudgetSource
	transactions domain.TransactionSource
	rollover     *RolloverService
	now          func() time.Time
}

// NewDigestService creates a new DigestService
func NewDigestService(budgets domain.BudgetSource, transactions domain.TransactionSource, rollover *RolloverService) *DigestService {
	return &DigestService{
		budgets:      budgets,
		transactions: transactions,
		rollover:     rollover,
		now:          time.Now,
	}
}

// SetClock overrides the time source
func (s *DigestService) SetClock(now func() time.Time) {
	s.now = now
}

// GetDigest builds today's digest. Savings-goal categories are left out;
// a user with no other budgets this month gets domain.ErrNotFound.
func (s *DigestService) GetDigest(ctx context.Context, userID uuid.UUID) (*domain.DigestData, error) {
	now := s.now().UTC()
	month := domain.MonthOf(now)

	budgets, err := s.budgets.ListBudgets(ctx, userID, month)
	if err != nil {
		return nil, fmt.Errorf("%w: budgets for %s: %w", domain.ErrSourceUnavailable, month, err)
	}

	regular := make([]*domain.BudgetRecord, 0, len(budgets))
	for _, b := range budgets {
		if !b.SavingsGoal {
			regular = append(regular, b)
		}
	}
	if len(regular) == 0 {
		return nil, fmt.Errorf("%w: no budgets for %s", domain.ErrNotFound, month)
	}

	var (
		txs      []*domain.TransactionRecord
		rollover domain.RolloverMap
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = s.transactions.ListTransactions(gctx, domain.MonthQuery(userID, month))
		if err != nil {
			return fmt.Errorf("%w: transactions for %s: %w", domain.ErrSourceUnavailable, month, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		rollover, err = s.rollover.ResolveRollover(gctx, userID, month)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	flows := domain.BuildCategoryFlows(txs)
	categories := make([]domain.DigestCategory, 0, len(regular))
	progress := domain.DigestProgress{}

	for _, b := range regular {
		spent := flows.Get(b.CategoryID).NetSpend()
		total := b.Amount
		line := domain.DigestCategory{
			CategoryID:   b.CategoryID,
			CategoryName: b.CategoryName,
			Spent:        spent,
		}
		if b.RolloverEnabled {
			carried := rollover.Get(b.CategoryID)
			total = total.Add(carried)
			line.Rollover = &carried
		}
		line.BudgetAmount = total
		line.Remaining = total.Sub(spent)
		line.PercentageUsed = percentOf(spent, total)
		categories = append(categories, line)

		progress.TotalBudget = progress.TotalBudget.Add(total)
		progress.TotalSpent = progress.TotalSpent.Add(spent)
	}

	sort.SliceStable(categories, func(i, j int) bool {
		return categories[i].Spent.GreaterThan(categories[j].Spent)
	})

	fraction := decimal.NewFromInt(int64(now.Day())).Div(decimal.NewFromInt(int64(month.Days())))
	progress.TotalRemaining = progress.TotalBudget.Sub(progress.TotalSpent)
	progress.PercentageUsed = percentOf(progress.TotalSpent, progress.TotalBudget)
	progress.IsOverBudget = progress.TotalRemaining.IsNegative()
	progress.PercentThroughMonth = fraction.Mul(hundred)
	progress.ExpectedSpending = progress.TotalBudget.Mul(fraction)
	progress.PacingDifference = progress.TotalSpent.Sub(progress.ExpectedSpending)
	progress.IsPacingOver = progress.PacingDifference.IsPositive()

	return &domain.DigestData{
		Date:                 now,
		Month:                month,
		Progress:             progress,
		Categories:           categories,
		RecentTransactions:   recentTransactions(txs, now),
		DaysRemainingInMonth: month.Days() - now.Day(),
	}, nil
}

// recentTransactions returns visible records dated from yesterday onwards,
// newest first, capped at domain.MaxDigestRecentTransactions.
func recentTransactions(txs []*domain.TransactionRecord, now time.Time) []domain.DigestTransaction {
	yesterday := now.Add(-24 * time.Hour)
	since := time.Date(yesterday.Year(), yesterday.Month(), yesterday.Day(), 0, 0, 0, 0, yesterday.Location())

	recent := make([]*domain.TransactionRecord, 0)
	for _, tx := range txs {
		if tx == nil || !tx.Counts() || tx.Date.Before(since) {
			continue
		}
		recent = append(recent, tx)
	}
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].Date.After(recent[j].Date)
	})
	if len(recent) > domain.MaxDigestRecentTransactions {
		recent = recent[:domain.MaxDigestRecentTransactions]
	}

	out := make([]domain.DigestTransaction, 0, len(recent))
	for _, tx := range recent {
		description := tx.Description
		if description == "" {
			description = untitledTransaction
		}
		out = append(out, domain.DigestTransaction{
			Date:        tx.Date,
			Description: description,
			Amount:      tx.Amount,
			CategoryID:  tx.CategoryID,
			Direction:   tx.Direction,
		})
	}
	return out
}
