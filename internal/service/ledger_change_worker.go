package service

import (
	"context"
	"sync"
	"time"

	"github.com/rollpace/rollpace-backend/internal/domain"
	"github.com/rs/zerolog"
)

// LedgerChangeFeed delivers ledger changes until ctx ends or the feed breaks
type LedgerChangeFeed interface {
	ConsumeLedgerChanges(ctx context.Context, handler domain.LedgerChangeHandler) error
}

// LedgerChangeWorker is a background worker that drains a ledger change feed
// into the LedgerChangeService, resubscribing with backoff when the feed drops
type LedgerChangeWorker struct {
	feed       LedgerChangeFeed
	changes    *LedgerChangeService
	logger     zerolog.Logger
	minBackoff time.Duration
	maxBackoff time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}
	mu         sync.Mutex
	running    bool
	processed  int
}

// LedgerChangeWorkerConfig holds configuration for the ledger change worker
type LedgerChangeWorkerConfig struct {
	MinBackoff time.Duration // Delay before the first resubscribe
	MaxBackoff time.Duration // Upper bound on resubscribe delay
}

// DefaultLedgerChangeWorkerConfig returns sensible defaults
func DefaultLedgerChangeWorkerConfig() LedgerChangeWorkerConfig {
	return LedgerChangeWorkerConfig{
		MinBackoff: 1 * time.Second,
		MaxBackoff: 30 * time.Second,
	}
}

// NewLedgerChangeWorker creates a new ledger change worker
func NewLedgerChangeWorker(
	feed LedgerChangeFeed,
	changes *LedgerChangeService,
	logger zerolog.Logger,
	config LedgerChangeWorkerConfig,
) *LedgerChangeWorker {
	defaults := DefaultLedgerChangeWorkerConfig()
	if config.MinBackoff <= 0 {
		config.MinBackoff = defaults.MinBackoff
	}
	if config.MaxBackoff < config.MinBackoff {
		config.MaxBackoff = config.MinBackoff
	}

	return &LedgerChangeWorker{
		feed:       feed,
		changes:    changes,
		logger:     logger.With().Str("component", "ledger_change_worker").Logger(),
		minBackoff: config.MinBackoff,
		maxBackoff: config.MaxBackoff,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start begins consuming the feed
func (w *LedgerChangeWorker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info().Msg("Starting ledger change worker")

	go w.run(ctx)
}

// Stop gracefully stops the worker
func (w *LedgerChangeWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	w.logger.Info().Msg("Stopping ledger change worker")
	close(w.stopCh)
	<-w.doneCh
	w.logger.Info().Msg("Ledger change worker stopped")
}

// run subscribes to the feed and resubscribes after failures
func (w *LedgerChangeWorker) run(ctx context.Context) {
	defer close(w.doneCh)
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	// The feed only sees a context that ends on Stop or on the parent ending.
	consumeCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-w.stopCh:
			cancel()
		case <-consumeCtx.Done():
		}
	}()

	attempt := 0
	for {
		err := w.feed.ConsumeLedgerChanges(consumeCtx, w.handle)
		if consumeCtx.Err() != nil {
			return
		}

		delay := w.backoff(attempt)
		w.logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Dur("retry_in", delay).
			Msg("Ledger change feed stopped, resubscribing")
		attempt++

		timer := time.NewTimer(delay)
		select {
		case <-consumeCtx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// handle applies one change
func (w *LedgerChangeWorker) handle(ctx context.Context, change domain.LedgerChange) error {
	if err := w.changes.Apply(ctx, change); err != nil {
		return err
	}
	w.mu.Lock()
	w.processed++
	w.mu.Unlock()
	return nil
}

// backoff doubles the delay per attempt up to maxBackoff
func (w *LedgerChangeWorker) backoff(attempt int) time.Duration {
	delay := w.minBackoff
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= w.maxBackoff {
			return w.maxBackoff
		}
	}
	return delay
}

// IsRunning returns whether the worker is currently running
func (w *LedgerChangeWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Processed returns how many changes were applied since start
func (w *LedgerChangeWorker) Processed() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.processed
}
