package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rollpace/rollpace-backend/internal/domain"
)

const listBudgetsQuery = `
	SELECT b.category_id, COALESCE(c.name, ''), b.amount, b.enable_rollover,
	       COALESCE(c.is_rollover, false)
	FROM budgets b
	LEFT JOIN categories c ON c.id = b.category_id
	WHERE b.user_id = $1 AND b.year = $2 AND b.month = $3
	ORDER BY b.category_id
`

// BudgetSource implements domain.BudgetSource using PostgreSQL
type BudgetSource struct {
	pool *pgxpool.Pool
}

// NewBudgetSource creates a new BudgetSource
func NewBudgetSource(pool *pgxpool.Pool) *BudgetSource {
	return &BudgetSource{pool: pool}
}

// ListBudgets returns every budget the user set for month. The nullable
// enable_rollover column is resolved here and never leaves this layer.
func (s *BudgetSource) ListBudgets(ctx context.Context, userID uuid.UUID, month domain.MonthKey) ([]*domain.BudgetRecord, error) {
	rows, err := s.pool.Query(ctx, listBudgetsQuery, userID, int32(month.Year), int32(month.Month))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*domain.BudgetRecord, 0)
	for rows.Next() {
		var (
			b              = domain.BudgetRecord{UserID: userID, Month: month}
			amount         pgtype.Numeric
			enableRollover *bool
		)
		if err := rows.Scan(&b.CategoryID, &b.CategoryName, &amount, &enableRollover, &b.SavingsGoal); err != nil {
			return nil, err
		}
		b.Amount = pgNumericToDecimal(amount)
		b.RolloverEnabled = domain.ResolveRolloverEnabled(enableRollover, b.SavingsGoal)
		result = append(result, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
