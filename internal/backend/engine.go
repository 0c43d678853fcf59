package backend

import (
	"fmt"

	"github.com/rollpace/rollpace-backend/internal/cache"
	"github.com/rollpace/rollpace-backend/internal/config"
	"github.com/rollpace/rollpace-backend/internal/domain"
	"github.com/rollpace/rollpace-backend/internal/service"
	"github.com/rs/zerolog"
)

// Engine bundles the read services built over one set of sources
type Engine struct {
	Rollover *service.RolloverService
	Reports  *service.ReportService
	Digests  *service.DigestService
	// Memo is nil when caching is disabled
	Memo *cache.RolloverCache
}

// NewEngine wires the rollover, pacing and report services from configuration
func NewEngine(sources *Sources, cfg config.EngineConfig, logger zerolog.Logger) (*Engine, error) {
	engine := &Engine{}

	var memo domain.RolloverMemo
	if cfg.CacheEnabled {
		c, err := cache.NewRolloverCache(cfg.CacheMaxEntries, cfg.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to create rollover cache: %w", err)
		}
		engine.Memo = c
		memo = c
	}

	engine.Rollover = service.NewRolloverService(
		sources.Budgets,
		sources.Transactions,
		memo,
		logger,
		service.RolloverServiceConfig{
			MaxDepth:   cfg.RolloverMaxDepth,
			SignPolicy: cfg.RolloverSignPolicy,
		},
	)

	engine.Reports = service.NewReportService(
		sources.Budgets,
		sources.Transactions,
		engine.Rollover,
		service.NewHistoricalRecurringService(sources.Transactions, cfg.HistoricalLookbackMonths),
		service.NewPacingService(cfg.IncomeOffsetPolicy),
		service.NewAggregationService(cfg.IncomeOffsetPolicy),
		logger,
	)
	engine.Digests = service.NewDigestService(sources.Budgets, sources.Transactions, engine.Rollover)

	return engine, nil
}

// RolloverMemo returns the memo as the domain interface, nil when disabled
func (e *Engine) RolloverMemo() domain.RolloverMemo {
	if e.Memo == nil {
		return nil
	}
	return e.Memo
}

// Close releases the cache
func (e *Engine) Close() {
	if e.Memo != nil {
		e.Memo.Close()
	}
}
