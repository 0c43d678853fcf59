package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/rollpace/rollpace-backend/internal/middleware"
)

// RegisterRoutes sets up all API routes under root. rateLimiter may be nil.
func RegisterRoutes(root *echo.Group, authMiddleware *middleware.AuthMiddleware, rateLimiter *middleware.RateLimiter, reportHandler *ReportHandler, digestHandler *DigestHandler, ledgerHandler *LedgerHandler) {
	// API version 1
	api := root.Group("/api/v1")
	api.Use(authMiddleware.Authenticate())

	// Every report route replays up to a year of history, so they share a per-user limit
	reports := api.Group("")
	if rateLimiter != nil {
		reports.Use(middleware.RateLimitMiddleware(rateLimiter))
	}
	reports.GET("/reports/:year/:month", reportHandler.GetReport)
	reports.GET("/rollover/:year/:month", reportHandler.GetRollover)
	reports.GET("/historical-recurring/:year/:month", reportHandler.GetHistoricalRecurring)
	reports.GET("/pacing/:year/:month", reportHandler.GetPacing)
	reports.GET("/digest", digestHandler.GetDigest)

	// Ledger change notifications (protected)
	ledger := api.Group("/ledger")
	ledger.POST("/changes", ledgerHandler.PostChange)
}
