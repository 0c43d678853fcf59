package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rollpace/rollpace-backend/internal/domain"
	"github.com/shopspring/decimal"

	_ "modernc.org/sqlite"
)

const (
	driverName = "sqlite"
	dateLayout = "2006-01-02"
)

// Store is a local SQLite implementation of the budget, transaction and user sources
type Store struct {
	db *sql.DB
}

// Open creates the database file if needed, migrates it and returns a Store
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open(driverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// ListTransactions implements domain.TransactionSource
func (s *Store) ListTransactions(ctx context.Context, q domain.TransactionQuery) ([]*domain.TransactionRecord, error) {
	query := `
		SELECT id, user_id, date, amount, transaction_type, category_id,
		       description, recurring, hidden, deleted
		FROM transactions
		WHERE user_id = ? AND date >= ? AND date < ?
		  AND hidden = 0 AND deleted = 0
		  AND (? = 0 OR recurring = 1)
		  AND (? = '' OR transaction_type = ?)
		ORDER BY date DESC, id DESC
	`
	direction := ""
	if q.Direction != nil {
		direction = string(*q.Direction)
	}

	rows, err := s.db.QueryContext(ctx, query,
		q.UserID.String(), q.Start.Format(dateLayout), q.End.Format(dateLayout),
		q.RecurringOnly, direction, direction)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	result := make([]*domain.TransactionRecord, 0)
	for rows.Next() {
		var (
			tx         domain.TransactionRecord
			date       string
			amount     string
			kind       string
			categoryID sql.NullInt32
		)
		if err := rows.Scan(
			&tx.ID, &tx.UserID, &date, &amount, &kind, &categoryID,
			&tx.Description, &tx.Recurring, &tx.Hidden, &tx.Deleted,
		); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}

		if tx.Date, err = parseDate(date); err != nil {
			return nil, fmt.Errorf("transaction %d: %w", tx.ID, err)
		}
		value, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("transaction %d amount: %w", tx.ID, err)
		}
		tx.Amount = value.Abs()
		tx.Direction = domain.Direction(kind)
		if categoryID.Valid {
			id := categoryID.Int32
			tx.CategoryID = &id
		}
		result = append(result, &tx)
	}

	return result, rows.Err()
}

// ListBudgets implements domain.BudgetSource
func (s *Store) ListBudgets(ctx context.Context, userID uuid.UUID, month domain.MonthKey) ([]*domain.BudgetRecord, error) {
	query := `
		SELECT b.category_id, COALESCE(c.name, ''), b.amount, b.enable_rollover,
		       COALESCE(c.is_rollover, 0)
		FROM budgets b
		LEFT JOIN categories c ON c.id = b.category_id
		WHERE b.user_id = ? AND b.year = ? AND b.month = ?
		ORDER BY b.category_id
	`
	rows, err := s.db.QueryContext(ctx, query, userID.String(), month.Year, int(month.Month))
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	result := make([]*domain.BudgetRecord, 0)
	for rows.Next() {
		var (
			b              = domain.BudgetRecord{UserID: userID, Month: month}
			amount         string
			enableRollover sql.NullBool
		)
		if err := rows.Scan(&b.CategoryID, &b.CategoryName, &amount, &enableRollover, &b.SavingsGoal); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		if b.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("budget for category %d amount: %w", b.CategoryID, err)
		}

		var enabled *bool
		if enableRollover.Valid {
			enabled = &enableRollover.Bool
		}
		b.RolloverEnabled = domain.ResolveRolloverEnabled(enabled, b.SavingsGoal)
		result = append(result, &b)
	}

	return result, rows.Err()
}

// GetByAuth0ID implements domain.UserRepository
func (s *Store) GetByAuth0ID(ctx context.Context, auth0ID string) (*domain.User, error) {
	var u domain.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, auth0_id, email FROM users WHERE auth0_id = ?`, auth0ID,
	).Scan(&u.ID, &u.Auth0ID, &u.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}
