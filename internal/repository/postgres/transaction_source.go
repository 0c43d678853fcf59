package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rollpace/rollpace-backend/internal/domain"
)

const listTransactionsQuery = `
	SELECT id, user_id, date, amount, transaction_type, category_id,
	       COALESCE(description, ''), recurring, hidden, deleted
	FROM transactions
	WHERE user_id = $1
	  AND date >= $2::date AND date < $3::date
	  AND hidden IS NOT TRUE
	  AND deleted IS NOT TRUE
	  AND ($4::boolean = false OR recurring = true)
	  AND ($5::text IS NULL OR transaction_type = $5)
	ORDER BY date DESC, id DESC
`

// TransactionSource implements domain.TransactionSource using PostgreSQL
type TransactionSource struct {
	pool *pgxpool.Pool
}

// NewTransactionSource creates a new TransactionSource
func NewTransactionSource(pool *pgxpool.Pool) *TransactionSource {
	return &TransactionSource{pool: pool}
}

// ListTransactions returns visible transactions in [q.Start, q.End)
func (s *TransactionSource) ListTransactions(ctx context.Context, q domain.TransactionQuery) ([]*domain.TransactionRecord, error) {
	direction := pgtype.Text{}
	if q.Direction != nil {
		direction = pgtype.Text{String: string(*q.Direction), Valid: true}
	}

	rows, err := s.pool.Query(ctx, listTransactionsQuery, q.UserID, q.Start, q.End, q.RecurringOnly, direction)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*domain.TransactionRecord, 0)
	for rows.Next() {
		var (
			tx         domain.TransactionRecord
			amount     pgtype.Numeric
			kind       string
			categoryID pgtype.Int4
		)
		if err := rows.Scan(
			&tx.ID, &tx.UserID, &tx.Date, &amount, &kind, &categoryID,
			&tx.Description, &tx.Recurring, &tx.Hidden, &tx.Deleted,
		); err != nil {
			return nil, err
		}
		// Direction carries the sign, so the stored amount is taken as a magnitude
		tx.Amount = pgNumericToDecimal(amount).Abs()
		tx.Direction = domain.Direction(kind)
		tx.CategoryID = pgInt4ToInt32Ptr(categoryID)
		result = append(result, &tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
