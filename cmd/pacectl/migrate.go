package main

import (
	"fmt"

	"github.com/rollpace/rollpace-backend/internal/config"
	"github.com/rollpace/rollpace-backend/internal/repository/sqlite"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply SQLite schema migrations",
	Long:  "Create or upgrade the local SQLite database. The Postgres schema is owned by the ledger service.",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadWithoutAuth()
	if err != nil {
		return err
	}
	if cfg.Backend != config.BackendSQLite {
		return fmt.Errorf("migrate only manages the sqlite backend, DATA_BACKEND is %q", cfg.Backend)
	}

	// Open creates the directory and applies pending migrations
	store, err := sqlite.Open(cfg.SQLiteDBPath)
	if err != nil {
		return err
	}
	if err := store.Close(); err != nil {
		return err
	}
	fmt.Printf("Migrated %s\n", cfg.SQLiteDBPath)
	return nil
}
