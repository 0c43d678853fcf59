package service

import (
	"context"

	"github.com/rollpace/rollpace-backend/internal/domain"
	"github.com/rollpace/rollpace-backend/internal/websocket"
	"github.com/rs/zerolog"
)

// LedgerChangeService reacts to edits of the underlying ledger: cached
// rollover for the user is dropped and connected clients are told to refetch.
type LedgerChangeService struct {
	memo      domain.RolloverMemo
	publisher websocket.EventPublisher
	logger    zerolog.Logger
}

// NewLedgerChangeService creates a new LedgerChangeService. memo and
// publisher may be nil.
func NewLedgerChangeService(memo domain.RolloverMemo, publisher websocket.EventPublisher, logger zerolog.Logger) *LedgerChangeService {
	if publisher == nil {
		publisher = &websocket.NoOpPublisher{}
	}
	return &LedgerChangeService{
		memo:      memo,
		publisher: publisher,
		logger:    logger.With().Str("component", "ledger_change").Logger(),
	}
}

// Apply records a ledger change
func (s *LedgerChangeService) Apply(ctx context.Context, change domain.LedgerChange) error {
	if err := change.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// The memo is keyed per user, not per month, so every month is dropped.
	if s.memo != nil {
		s.memo.Invalidate(change.UserID)
	}

	s.publisher.Publish(change.UserID, websocket.ReportStale(change.FromMonth, change.Source))

	s.logger.Debug().
		Str("user_id", change.UserID.String()).
		Str("from_month", change.FromMonth.String()).
		Str("source", change.Source).
		Msg("Applied ledger change")

	return nil
}
