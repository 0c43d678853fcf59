package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rollpace/rollpace-backend/internal/amqp"
	"github.com/rollpace/rollpace-backend/internal/backend"
	"github.com/rollpace/rollpace-backend/internal/config"
	"github.com/rollpace/rollpace-backend/internal/domain"
	"github.com/spf13/cobra"
)

var notifyCmd = &cobra.Command{
	Use:   "notify [YYYY-MM]",
	Short: "Announce a ledger change on the broker",
	Long: "Publish a ledger change for the user starting at the given month. Every API instance " +
		"consuming the queue drops its cached rollover and pushes report.stale to connected clients. " +
		"Run it after importing or editing transactions outside the API.",
	Args: cobra.MaximumNArgs(1),
	RunE: runNotify,
}

func init() {
	rootCmd.AddCommand(notifyCmd)
}

// ledgerChangePublisher is the part of the AMQP client notify needs
type ledgerChangePublisher interface {
	PublishLedgerChange(ctx context.Context, msg *amqp.LedgerChangeMessage) error
}

func runNotify(cmd *cobra.Command, args []string) error {
	month, err := monthArg(args)
	if err != nil {
		return err
	}

	cfg, err := config.LoadWithoutAuth()
	if err != nil {
		return err
	}
	if !cfg.AMQP.Enabled() {
		return fmt.Errorf("AMQP_URL is required to publish ledger changes")
	}

	userID, err := notifyUser(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	client, err := amqp.NewClient(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.Queue, newLogger())
	if err != nil {
		return err
	}
	defer client.Close()

	return publishChange(cmd.Context(), client, os.Stdout, userID, month)
}

// notifyUser resolves the user, opening the data source only for --auth0-id
func notifyUser(ctx context.Context, cfg *config.Config) (uuid.UUID, error) {
	if flagAuth0ID == "" {
		return resolveUser(ctx, nil)
	}
	sources, err := backend.Open(ctx, cfg, newLogger())
	if err != nil {
		return uuid.Nil, err
	}
	defer sources.Close()
	return resolveUser(ctx, sources.Users)
}

func publishChange(ctx context.Context, publisher ledgerChangePublisher, out io.Writer, userID uuid.UUID, month domain.MonthKey) error {
	msg := amqp.NewLedgerChangeMessage(userID, month)
	if err := publisher.PublishLedgerChange(ctx, msg); err != nil {
		return fmt.Errorf("publish ledger change: %w", err)
	}

	if flagJSON {
		return printJSONTo(out, msg)
	}
	fmt.Fprintf(out, "Published ledger change for %s from %s\n", userID, month)
	return nil
}
