package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rollpace/rollpace-backend/internal/domain"
	"github.com/rollpace/rollpace-backend/internal/middleware"
	"github.com/rollpace/rollpace-backend/internal/service"
	"github.com/rs/zerolog/log"
)

// LedgerHandler accepts notifications that a user's ledger changed
type LedgerHandler struct {
	changes *service.LedgerChangeService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(changes *service.LedgerChangeService) *LedgerHandler {
	return &LedgerHandler{
		changes: changes,
	}
}

// LedgerChangeRequest represents the request body for reporting a ledger change
type LedgerChangeRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// LedgerChangeResponse echoes the accepted change
type LedgerChangeResponse struct {
	FromMonth MonthResponse `json:"fromMonth"`
}

// PostChange handles POST /api/v1/ledger/changes
func (h *LedgerHandler) PostChange(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return NewUnauthorizedError(c, "User required")
	}

	var req LedgerChangeRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	month, fieldErr := parseMonth(strconv.Itoa(req.Year), strconv.Itoa(req.Month))
	if fieldErr != nil {
		return NewValidationError(c, "Invalid "+fieldErr.Field, []ValidationError{*fieldErr})
	}

	err := h.changes.Apply(c.Request().Context(), domain.LedgerChange{
		UserID:    userID,
		FromMonth: month,
		Source:    domain.LedgerSourceAPI,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return NewValidationError(c, err.Error(), nil)
		}
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to apply ledger change")
		return NewInternalError(c, "Failed to apply ledger change")
	}

	return c.JSON(http.StatusAccepted, LedgerChangeResponse{FromMonth: toMonthResponse(month)})
}
