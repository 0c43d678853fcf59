package backend

import (
	"context"
	"fmt"

	"github.com/rollpace/rollpace-backend/internal/config"
	"github.com/rollpace/rollpace-backend/internal/domain"
	"github.com/rollpace/rollpace-backend/internal/repository/postgres"
	"github.com/rollpace/rollpace-backend/internal/repository/sqlite"
	"github.com/rs/zerolog"
)

// Sources bundles the read-only stores the engine consumes
type Sources struct {
	Budgets      domain.BudgetSource
	Transactions domain.TransactionSource
	Users        domain.UserRepository
	// Close releases the underlying connections
	Close func()
}

// Open builds the sources for the configured backend
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Sources, error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		return openPostgres(ctx, cfg, logger)
	case config.BackendSQLite:
		return openSQLite(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Backend)
	}
}

func openPostgres(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Sources, error) {
	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	logger.Info().Msg("Connected to PostgreSQL")

	return &Sources{
		Budgets:      postgres.NewBudgetSource(pool),
		Transactions: postgres.NewTransactionSource(pool),
		Users:        postgres.NewUserRepository(pool),
		Close:        pool.Close,
	}, nil
}

func openSQLite(cfg *config.Config, logger zerolog.Logger) (*Sources, error) {
	store, err := sqlite.Open(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}

	logger.Info().Str("db_path", cfg.SQLiteDBPath).Msg("Opened SQLite store")

	return &Sources{
		Budgets:      store,
		Transactions: store,
		Users:        store,
		Close: func() {
			if err := store.Close(); err != nil {
				logger.Error().Err(err).Msg("Failed to close SQLite store")
			}
		},
	}, nil
}
