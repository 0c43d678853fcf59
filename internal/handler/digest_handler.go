package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rollpace/rollpace-backend/internal/domain"
	"github.com/rollpace/rollpace-backend/internal/middleware"
	"github.com/rollpace/rollpace-backend/internal/service"
	"github.com/rs/zerolog/log"
)

// DigestHandler handles digest requests
type DigestHandler struct {
	digestService *service.DigestService
}

// NewDigestHandler creates a new DigestHandler
func NewDigestHandler(digestService *service.DigestService) *DigestHandler {
	return &DigestHandler{
		digestService: digestService,
	}
}

// DigestProgressResponse represents overall budget progress in the digest
type DigestProgressResponse struct {
	TotalBudget         json.Number `json:"totalBudget"`
	TotalSpent          json.Number `json:"totalSpent"`
	TotalRemaining      json.Number `json:"totalRemaining"`
	PercentageUsed      json.Number `json:"percentageUsed"`
	IsOverBudget        bool        `json:"isOverBudget"`
	PercentThroughMonth json.Number `json:"percentThroughMonth"`
	ExpectedSpending    json.Number `json:"expectedSpending"`
	PacingDifference    json.Number `json:"pacingDifference"`
	IsPacingOver        bool        `json:"isPacingOver"`
}

// DigestCategoryResponse represents one category in the digest breakdown
type DigestCategoryResponse struct {
	CategoryID     int32        `json:"categoryId"`
	CategoryName   string       `json:"categoryName"`
	BudgetAmount   json.Number  `json:"budgetAmount"`
	Spent          json.Number  `json:"spent"`
	Remaining      json.Number  `json:"remaining"`
	PercentageUsed json.Number  `json:"percentageUsed"`
	Rollover       *json.Number `json:"rollover,omitempty"`
}

// DigestTransactionResponse represents a recent transaction in the digest
type DigestTransactionResponse struct {
	Date        string           `json:"date"`
	Description string           `json:"description"`
	Amount      json.Number      `json:"amount"`
	CategoryID  *int32           `json:"categoryId,omitempty"`
	Direction   domain.Direction `json:"direction"`
}

// DigestResponse represents the digest API response
type DigestResponse struct {
	Date                 string                      `json:"date"`
	Month                MonthResponse               `json:"month"`
	BudgetProgress       DigestProgressResponse      `json:"budgetProgress"`
	CategoryBreakdown    []DigestCategoryResponse    `json:"categoryBreakdown"`
	RecentTransactions   []DigestTransactionResponse `json:"recentTransactions"`
	DaysRemainingInMonth int                         `json:"daysRemainingInMonth"`
}

// GetDigest handles GET /api/v1/digest
func (h *DigestHandler) GetDigest(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return NewUnauthorizedError(c, "User required")
	}

	digest, err := h.digestService.GetDigest(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return NewNotFoundError(c, "No budgets set for the current month")
		}
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to build digest")
		return NewInternalError(c, "Failed to build digest")
	}

	return c.JSON(http.StatusOK, toDigestResponse(digest))
}

func toDigestResponse(d *domain.DigestData) DigestResponse {
	categories := make([]DigestCategoryResponse, len(d.Categories))
	for i, cat := range d.Categories {
		var rollover *json.Number
		if cat.Rollover != nil {
			n := toNumber(*cat.Rollover)
			rollover = &n
		}
		categories[i] = DigestCategoryResponse{
			CategoryID:     cat.CategoryID,
			CategoryName:   cat.CategoryName,
			BudgetAmount:   toNumber(cat.BudgetAmount),
			Spent:          toNumber(cat.Spent),
			Remaining:      toNumber(cat.Remaining),
			PercentageUsed: toNumber(cat.PercentageUsed),
			Rollover:       rollover,
		}
	}

	recent := make([]DigestTransactionResponse, len(d.RecentTransactions))
	for i, tx := range d.RecentTransactions {
		recent[i] = DigestTransactionResponse{
			Date:        tx.Date.Format(time.RFC3339),
			Description: tx.Description,
			Amount:      toNumber(tx.Amount),
			CategoryID:  tx.CategoryID,
			Direction:   tx.Direction,
		}
	}

	p := d.Progress
	return DigestResponse{
		Date:  d.Date.Format("2006-01-02"),
		Month: toMonthResponse(d.Month),
		BudgetProgress: DigestProgressResponse{
			TotalBudget:         toNumber(p.TotalBudget),
			TotalSpent:          toNumber(p.TotalSpent),
			TotalRemaining:      toNumber(p.TotalRemaining),
			PercentageUsed:      toNumber(p.PercentageUsed),
			IsOverBudget:        p.IsOverBudget,
			PercentThroughMonth: toNumber(p.PercentThroughMonth),
			ExpectedSpending:    toNumber(p.ExpectedSpending),
			PacingDifference:    toNumber(p.PacingDifference),
			IsPacingOver:        p.IsPacingOver,
		},
		CategoryBreakdown:    categories,
		RecentTransactions:   recent,
		DaysRemainingInMonth: d.DaysRemainingInMonth,
	}
}
