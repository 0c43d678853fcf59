package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rollpace/rollpace-backend/internal/backend"
	"github.com/rollpace/rollpace-backend/internal/config"
	"github.com/rollpace/rollpace-backend/internal/domain"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	flagUser    string
	flagAuth0ID string
	flagJSON    bool
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:           "pacectl",
	Short:         "Rollover and spending-pace reports from the command line",
	Long:          "Compute monthly rollover balances, recurring baselines and spending pace against the configured data source.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagUser, "user", "u", "", "User id (UUID)")
	rootCmd.PersistentFlags().StringVar(&flagAuth0ID, "auth0-id", "", "Resolve the user by Auth0 subject instead of id")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Print raw JSON instead of tables")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log engine activity to stderr")
}

func newLogger() zerolog.Logger {
	if !flagVerbose {
		return zerolog.Nop()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

// session is an opened engine plus the resolved user
type session struct {
	engine  *backend.Engine
	sources *backend.Sources
	userID  uuid.UUID
}

func (s *session) Close() {
	s.engine.Close()
	s.sources.Close()
}

// openSession loads configuration, opens the data source and resolves the user
func openSession(ctx context.Context) (*session, error) {
	cfg, err := config.LoadWithoutAuth()
	if err != nil {
		return nil, err
	}
	logger := newLogger()

	sources, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	engine, err := backend.NewEngine(sources, cfg.Engine, logger)
	if err != nil {
		sources.Close()
		return nil, err
	}

	s := &session{engine: engine, sources: sources}
	s.userID, err = resolveUser(ctx, sources.Users)
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func resolveUser(ctx context.Context, users domain.UserRepository) (uuid.UUID, error) {
	switch {
	case flagUser != "":
		id, err := uuid.Parse(flagUser)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid --user %q: %w", flagUser, err)
		}
		return id, nil
	case flagAuth0ID != "":
		user, err := users.GetByAuth0ID(ctx, flagAuth0ID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("resolve %s: %w", flagAuth0ID, err)
		}
		return user.ID, nil
	default:
		return uuid.Nil, fmt.Errorf("one of --user or --auth0-id is required")
	}
}

// monthArg reads an optional YYYY-MM argument, defaulting to this month
func monthArg(args []string) (domain.MonthKey, error) {
	if len(args) == 0 {
		return domain.MonthOf(time.Now()), nil
	}
	return domain.ParseMonthKey(args[0])
}

func printJSON(v interface{}) error {
	return printJSONTo(os.Stdout, v)
}

func printJSONTo(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
