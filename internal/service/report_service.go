package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rollpace/rollpace-backend/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// WarningPacingUnavailable is attached to a report whose historical baseline could not be read
const WarningPacingUnavailable = "pacing_unavailable: recurring history could not be read"

// ReportService assembles the monthly rollover and pacing report
type ReportService struct {
	budgets      domain.BudgetSource
	transactions domain.TransactionSource
	rollover     *RolloverService
	historical   *HistoricalRecurringService
	pacing       *PacingService
	aggregation  *AggregationService
	logger       zerolog.Logger
	now          func() time.Time
}

// NewReportService creates a new ReportService
func NewReportService(
	budgets domain.BudgetSource,
	transactions domain.TransactionSource,
	rollover *RolloverService,
	historical *HistoricalRecurringService,
	pacing *PacingService,
	aggregation *AggregationService,
	logger zerolog.Logger,
) *ReportService {
	return &ReportService{
		budgets:      budgets,
		transactions: transactions,
		rollover:     rollover,
		historical:   historical,
		pacing:       pacing,
		aggregation:  aggregation,
		logger:       logger.With().Str("component", "report").Logger(),
		now:          time.Now,
	}
}

// SetClock overrides the time source used to decide the current month
func (s *ReportService) SetClock(now func() time.Time) {
	s.now = now
}

// monthInputs are the independently computed inputs of one report
type monthInputs struct {
	budgets       []*domain.BudgetRecord
	flows         domain.CategoryFlows
	rollover      domain.RolloverMap
	historical    *domain.HistoricalRecurringSnapshot
	historicalErr error
}

// GetMonthlyReport builds the full report for a month. A failed history
// read degrades the report (no pacing, one warning); any other failed read
// fails it.
func (s *ReportService) GetMonthlyReport(ctx context.Context, userID uuid.UUID, month domain.MonthKey) (*domain.MonthlyReport, error) {
	now := s.now().UTC()

	in, err := s.loadInputs(ctx, userID, month)
	if err != nil {
		return nil, err
	}

	aggregate := s.aggregation.Aggregate(in.budgets, in.flows, in.rollover)

	report := &domain.MonthlyReport{
		UserID:      userID,
		Month:       month,
		GeneratedAt: now,
		Totals:      aggregate.Totals,
		Categories:  aggregate.Categories,
		Rollover:    in.rollover,
		Historical:  in.historical,
	}

	if in.historicalErr != nil {
		s.logger.Warn().Err(in.historicalErr).
			Str("user_id", userID.String()).
			Str("month", month.String()).
			Msg("Historical baseline unavailable, omitting pacing")
		report.Warnings = append(report.Warnings, WarningPacingUnavailable)
		return report, nil
	}

	for _, line := range aggregate.Categories {
		line.Pacing = s.pacing.Project(s.categoryPacingInput(line, in.historical, month, now))
	}
	report.Pacing = s.pacing.Project(s.totalPacingInput(aggregate, in.historical, month, now))

	return report, nil
}

// GetRollover returns the balances entering month
func (s *ReportService) GetRollover(ctx context.Context, userID uuid.UUID, month domain.MonthKey) (domain.RolloverMap, error) {
	return s.rollover.ResolveRollover(ctx, userID, month)
}

// GetHistoricalRecurring returns the recurring baseline for the month's
// budgeted categories. lookback <= 0 uses the configured default.
func (s *ReportService) GetHistoricalRecurring(ctx context.Context, userID uuid.UUID, month domain.MonthKey, lookback int) (*domain.HistoricalRecurringSnapshot, error) {
	budgets, err := s.listBudgets(ctx, userID, month)
	if err != nil {
		return nil, err
	}
	return s.historical.Calculate(ctx, userID, month, domain.BudgetCategoryIDs(budgets), lookback)
}

// GetPacing returns the pacing result for one category, or for the whole
// budget when categoryID is nil. Unlike the full report, a failed history
// read is returned as an error here.
func (s *ReportService) GetPacing(ctx context.Context, userID uuid.UUID, month domain.MonthKey, categoryID *int32) (*domain.PacingResult, error) {
	now := s.now().UTC()

	in, err := s.loadInputs(ctx, userID, month)
	if err != nil {
		return nil, err
	}
	if in.historicalErr != nil {
		return nil, in.historicalErr
	}

	aggregate := s.aggregation.Aggregate(in.budgets, in.flows, in.rollover)
	if categoryID == nil {
		return s.pacing.Project(s.totalPacingInput(aggregate, in.historical, month, now)), nil
	}

	for _, line := range aggregate.Categories {
		if line.CategoryID == *categoryID {
			return s.pacing.Project(s.categoryPacingInput(line, in.historical, month, now)), nil
		}
	}
	return nil, fmt.Errorf("%w: no budget for category %d in %s", domain.ErrNotFound, *categoryID, month)
}

// loadInputs reads the month's budgets, then the flows, rollover and
// history concurrently.
func (s *ReportService) loadInputs(ctx context.Context, userID uuid.UUID, month domain.MonthKey) (*monthInputs, error) {
	budgets, err := s.listBudgets(ctx, userID, month)
	if err != nil {
		return nil, err
	}

	in := &monthInputs{budgets: budgets}
	categoryIDs := domain.BudgetCategoryIDs(budgets)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		txs, err := s.transactions.ListTransactions(gctx, domain.MonthQuery(userID, month))
		if err != nil {
			return fmt.Errorf("%w: transactions for %s: %w", domain.ErrSourceUnavailable, month, err)
		}
		in.flows = domain.BuildCategoryFlows(txs)
		return nil
	})
	g.Go(func() error {
		rollover, err := s.rollover.ResolveRollover(gctx, userID, month)
		if err != nil {
			return err
		}
		in.rollover = rollover
		return nil
	})
	g.Go(func() error {
		// History failures degrade rather than fail the report
		in.historical, in.historicalErr = s.historical.Calculate(gctx, userID, month, categoryIDs, 0)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return in, nil
}

func (s *ReportService) listBudgets(ctx context.Context, userID uuid.UUID, month domain.MonthKey) ([]*domain.BudgetRecord, error) {
	budgets, err := s.budgets.ListBudgets(ctx, userID, month)
	if err != nil {
		return nil, fmt.Errorf("%w: budgets for %s: %w", domain.ErrSourceUnavailable, month, err)
	}
	return budgets, nil
}

func (s *ReportService) categoryPacingInput(
	line *domain.CategoryBudgetLine,
	historical *domain.HistoricalRecurringSnapshot,
	month domain.MonthKey,
	now time.Time,
) domain.PacingInput {
	categoryID := line.CategoryID
	return domain.PacingInput{
		CategoryID:     &categoryID,
		BaseBudget:     line.BaseBudget,
		Rollover:       line.AppliedRollover,
		RecurringSoFar: line.Flow.RecurringExpenses,
		VariableSoFar:  line.Flow.VariableExpenses,
		IncomeSoFar:    line.Flow.Income,
		Historical:     historical,
		DayOfMonth:     now.Day(),
		DaysInMonth:    month.Days(),
		IsCurrentMonth: domain.MonthOf(now) == month,
	}
}

// totalPacingInput sums per-category net figures, so income has already
// been offset and is passed as zero.
func (s *ReportService) totalPacingInput(
	aggregate *domain.BudgetAggregate,
	historical *domain.HistoricalRecurringSnapshot,
	month domain.MonthKey,
	now time.Time,
) domain.PacingInput {
	return domain.PacingInput{
		BaseBudget:     aggregate.Totals.BaseBudget,
		Rollover:       aggregate.Totals.TotalRollover,
		RecurringSoFar: aggregate.Totals.TotalRecurring,
		VariableSoFar:  aggregate.Totals.TotalVariable,
		Historical:     historical,
		DayOfMonth:     now.Day(),
		DaysInMonth:    month.Days(),
		IsCurrentMonth: domain.MonthOf(now) == month,
	}
}
