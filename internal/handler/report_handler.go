package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rollpace/rollpace-backend/internal/domain"
	"github.com/rollpace/rollpace-backend/internal/middleware"
	"github.com/rollpace/rollpace-backend/internal/service"
	"github.com/rs/zerolog/log"
)

// MaxLookbackMonths bounds the months query parameter of the history endpoint
const MaxLookbackMonths = 24

// ReportHandler handles report, rollover, history and pacing requests
type ReportHandler struct {
	reportService *service.ReportService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reportService *service.ReportService) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
	}
}

// MonthResponse identifies a calendar month
type MonthResponse struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// TotalsResponse represents whole-month totals in API responses
type TotalsResponse struct {
	BaseBudget          json.Number `json:"baseBudget"`
	TotalRollover       json.Number `json:"totalRollover"`
	TotalBudget         json.Number `json:"totalBudget"`
	TotalIncome         json.Number `json:"totalIncome"`
	TotalExpenses       json.Number `json:"totalExpenses"`
	Net                 json.Number `json:"net"`
	TotalRecurring      json.Number `json:"totalRecurring"`
	TotalVariable       json.Number `json:"totalVariable"`
	TotalSpent          json.Number `json:"totalSpent"`
	Remaining           json.Number `json:"remaining"`
	OverAmount          json.Number `json:"overAmount"`
	PercentageUsed      json.Number `json:"percentageUsed"`
	RecurringPercentage json.Number `json:"recurringPercentage"`
	VariablePercentage  json.Number `json:"variablePercentage"`
	IsOverBudget        bool        `json:"isOverBudget"`
}

// CategoryLineResponse represents one budgeted category in API responses
type CategoryLineResponse struct {
	CategoryID       int32           `json:"categoryId"`
	CategoryName     string          `json:"categoryName,omitempty"`
	BaseBudget       json.Number     `json:"baseBudget"`
	CarriedRollover  json.Number     `json:"carriedRollover"`
	AppliedRollover  json.Number     `json:"appliedRollover"`
	TotalBudget      json.Number     `json:"totalBudget"`
	Income           json.Number     `json:"income"`
	Expenses         json.Number     `json:"expenses"`
	RecurringExpense json.Number     `json:"recurringExpenses"`
	VariableExpense  json.Number     `json:"variableExpenses"`
	NetSpend         json.Number     `json:"netSpend"`
	Remaining        json.Number     `json:"remaining"`
	PercentageUsed   json.Number     `json:"percentageUsed"`
	RolloverEnabled  bool            `json:"rolloverEnabled"`
	SavingsGoal      bool            `json:"savingsGoal"`
	IsIncomeCategory bool            `json:"isIncomeCategory"`
	IsOverBudget     bool            `json:"isOverBudget"`
	Pacing           *PacingResponse `json:"pacing,omitempty"`
}

// PacingResponse represents a pacing projection in API responses
type PacingResponse struct {
	CategoryID          *int32      `json:"categoryId,omitempty"`
	Applicable          bool        `json:"applicable"`
	UsedHistorical      bool        `json:"usedHistorical"`
	PercentThroughMonth json.Number `json:"percentThroughMonth"`
	ExpectedSpending    json.Number `json:"expectedSpending"`
	ActualSpending      json.Number `json:"actualSpending"`
	PacingDifference    json.Number `json:"pacingDifference"`
	IsBehindPace        bool        `json:"isBehindPace"`
}

// HistoricalResponse represents the recurring baseline in API responses
type HistoricalResponse struct {
	ByCategory map[int32]json.Number `json:"byCategory"`
	Total      json.Number           `json:"total"`
	MonthsUsed int                   `json:"monthsUsed"`
}

// RolloverResponse wraps the per-category balances entering a month
type RolloverResponse struct {
	Month    MonthResponse         `json:"month"`
	Rollover map[int32]json.Number `json:"rollover"`
}

// ReportResponse represents the monthly report API response
type ReportResponse struct {
	Month       MonthResponse          `json:"month"`
	GeneratedAt time.Time              `json:"generatedAt"`
	Totals      TotalsResponse         `json:"totals"`
	Categories  []CategoryLineResponse `json:"categories"`
	Rollover    map[int32]json.Number  `json:"rollover"`
	Historical  *HistoricalResponse    `json:"historical,omitempty"`
	Pacing      *PacingResponse        `json:"pacing,omitempty"`
	Warnings    []string               `json:"warnings,omitempty"`
}

// GetReport handles GET /api/v1/reports/:year/:month
func (h *ReportHandler) GetReport(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return NewUnauthorizedError(c, "User required")
	}

	month, fieldErr := parseMonthParams(c)
	if fieldErr != nil {
		return NewValidationError(c, "Invalid "+fieldErr.Field, []ValidationError{*fieldErr})
	}

	report, err := h.reportService.GetMonthlyReport(c.Request().Context(), userID, month)
	if err != nil {
		return h.serviceError(c, err, userID, month, "Failed to build report")
	}

	categories := make([]CategoryLineResponse, len(report.Categories))
	for i, line := range report.Categories {
		categories[i] = toCategoryLineResponse(line)
	}

	return c.JSON(http.StatusOK, ReportResponse{
		Month:       toMonthResponse(report.Month),
		GeneratedAt: report.GeneratedAt,
		Totals:      toTotalsResponse(report.Totals),
		Categories:  categories,
		Rollover:    toRolloverNumbers(report.Rollover),
		Historical:  toHistoricalResponse(report.Historical),
		Pacing:      toPacingResponse(report.Pacing),
		Warnings:    report.Warnings,
	})
}

// GetRollover handles GET /api/v1/rollover/:year/:month
func (h *ReportHandler) GetRollover(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return NewUnauthorizedError(c, "User required")
	}

	month, fieldErr := parseMonthParams(c)
	if fieldErr != nil {
		return NewValidationError(c, "Invalid "+fieldErr.Field, []ValidationError{*fieldErr})
	}

	rollover, err := h.reportService.GetRollover(c.Request().Context(), userID, month)
	if err != nil {
		return h.serviceError(c, err, userID, month, "Failed to resolve rollover")
	}

	return c.JSON(http.StatusOK, RolloverResponse{
		Month:    toMonthResponse(month),
		Rollover: toRolloverNumbers(rollover),
	})
}

// GetHistoricalRecurring handles GET /api/v1/historical-recurring/:year/:month
// Accepts an optional months query param for the lookback window
func (h *ReportHandler) GetHistoricalRecurring(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return NewUnauthorizedError(c, "User required")
	}

	month, fieldErr := parseMonthParams(c)
	if fieldErr != nil {
		return NewValidationError(c, "Invalid "+fieldErr.Field, []ValidationError{*fieldErr})
	}

	lookback := 0
	if monthsStr := c.QueryParam("months"); monthsStr != "" {
		parsed, err := strconv.Atoi(monthsStr)
		if err != nil || parsed < 1 || parsed > MaxLookbackMonths {
			return NewValidationError(c, "Invalid months", []ValidationError{
				{Field: "months", Message: "Months must be between 1 and " + strconv.Itoa(MaxLookbackMonths)},
			})
		}
		lookback = parsed
	}

	snapshot, err := h.reportService.GetHistoricalRecurring(c.Request().Context(), userID, month, lookback)
	if err != nil {
		return h.serviceError(c, err, userID, month, "Failed to calculate recurring history")
	}

	return c.JSON(http.StatusOK, toHistoricalResponse(snapshot))
}

// GetPacing handles GET /api/v1/pacing/:year/:month
// Accepts an optional categoryId query param; without it the whole budget is paced
func (h *ReportHandler) GetPacing(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return NewUnauthorizedError(c, "User required")
	}

	month, fieldErr := parseMonthParams(c)
	if fieldErr != nil {
		return NewValidationError(c, "Invalid "+fieldErr.Field, []ValidationError{*fieldErr})
	}

	var categoryID *int32
	if idStr := c.QueryParam("categoryId"); idStr != "" {
		parsed, err := strconv.ParseInt(idStr, 10, 32)
		if err != nil || parsed <= 0 {
			return NewValidationError(c, "Invalid categoryId", []ValidationError{
				{Field: "categoryId", Message: "Must be a positive integer"},
			})
		}
		id := int32(parsed)
		categoryID = &id
	}

	result, err := h.reportService.GetPacing(c.Request().Context(), userID, month, categoryID)
	if err != nil {
		return h.serviceError(c, err, userID, month, "Failed to calculate pacing")
	}

	return c.JSON(http.StatusOK, toPacingResponse(result))
}

// serviceError maps a service failure to a problem details response
func (h *ReportHandler) serviceError(c echo.Context, err error, userID uuid.UUID, month domain.MonthKey, detail string) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return NewNotFoundError(c, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		return NewValidationError(c, err.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn().Err(err).Str("user_id", userID.String()).Str("month", month.String()).Msg(detail)
		return NewTimeoutError(c, "Report computation timed out")
	}
	log.Error().Err(err).Str("user_id", userID.String()).Str("month", month.String()).Msg(detail)
	return NewInternalError(c, detail)
}

// parseMonthParams reads the :year and :month path params
func parseMonthParams(c echo.Context) (domain.MonthKey, *ValidationError) {
	return parseMonth(c.Param("year"), c.Param("month"))
}

func parseMonth(yearStr, monthStr string) (domain.MonthKey, *ValidationError) {
	year, err := strconv.Atoi(yearStr)
	if err != nil || year < 2000 || year > 2100 {
		return domain.MonthKey{}, &ValidationError{Field: "year", Message: "Year must be between 2000 and 2100"}
	}

	monthNum, err := strconv.Atoi(monthStr)
	if err != nil || monthNum < 1 || monthNum > 12 {
		return domain.MonthKey{}, &ValidationError{Field: "month", Message: "Month must be between 1 and 12"}
	}

	return domain.MonthKey{Year: year, Month: time.Month(monthNum)}, nil
}

func toMonthResponse(m domain.MonthKey) MonthResponse {
	return MonthResponse{Year: m.Year, Month: int(m.Month)}
}

func toTotalsResponse(t domain.BudgetTotals) TotalsResponse {
	return TotalsResponse{
		BaseBudget:          toNumber(t.BaseBudget),
		TotalRollover:       toNumber(t.TotalRollover),
		TotalBudget:         toNumber(t.TotalBudget),
		TotalIncome:         toNumber(t.TotalIncome),
		TotalExpenses:       toNumber(t.TotalExpenses),
		Net:                 toNumber(t.Net),
		TotalRecurring:      toNumber(t.TotalRecurring),
		TotalVariable:       toNumber(t.TotalVariable),
		TotalSpent:          toNumber(t.TotalSpent),
		Remaining:           toNumber(t.Remaining),
		OverAmount:          toNumber(t.OverAmount),
		PercentageUsed:      toNumber(t.PercentageUsed),
		RecurringPercentage: toNumber(t.RecurringPercentage),
		VariablePercentage:  toNumber(t.VariablePercentage),
		IsOverBudget:        t.IsOverBudget,
	}
}

func toCategoryLineResponse(line *domain.CategoryBudgetLine) CategoryLineResponse {
	return CategoryLineResponse{
		CategoryID:       line.CategoryID,
		CategoryName:     line.CategoryName,
		BaseBudget:       toNumber(line.BaseBudget),
		CarriedRollover:  toNumber(line.CarriedRollover),
		AppliedRollover:  toNumber(line.AppliedRollover),
		TotalBudget:      toNumber(line.TotalBudget),
		Income:           toNumber(line.Flow.Income),
		Expenses:         toNumber(line.Flow.Expenses),
		RecurringExpense: toNumber(line.Flow.RecurringExpenses),
		VariableExpense:  toNumber(line.Flow.VariableExpenses),
		NetSpend:         toNumber(line.NetSpend),
		Remaining:        toNumber(line.Remaining),
		PercentageUsed:   toNumber(line.PercentageUsed),
		RolloverEnabled:  line.RolloverEnabled,
		SavingsGoal:      line.SavingsGoal,
		IsIncomeCategory: line.IsIncomeCategory,
		IsOverBudget:     line.IsOverBudget,
		Pacing:           toPacingResponse(line.Pacing),
	}
}

func toPacingResponse(p *domain.PacingResult) *PacingResponse {
	if p == nil {
		return nil
	}
	return &PacingResponse{
		CategoryID:          p.CategoryID,
		Applicable:          p.Applicable,
		UsedHistorical:      p.UsedHistorical,
		PercentThroughMonth: toNumber(p.PercentThroughMonth),
		ExpectedSpending:    toNumber(p.ExpectedSpending),
		ActualSpending:      toNumber(p.ActualSpending),
		PacingDifference:    toNumber(p.PacingDifference),
		IsBehindPace:        p.IsBehindPace(),
	}
}

func toHistoricalResponse(s *domain.HistoricalRecurringSnapshot) *HistoricalResponse {
	if s == nil {
		return nil
	}
	byCategory := make(map[int32]json.Number, len(s.ByCategory))
	for id, avg := range s.ByCategory {
		byCategory[id] = toNumber(avg)
	}
	return &HistoricalResponse{
		ByCategory: byCategory,
		Total:      toNumber(s.Total),
		MonthsUsed: s.MonthsUsed,
	}
}

func toRolloverNumbers(r domain.RolloverMap) map[int32]json.Number {
	out := make(map[int32]json.Number, len(r))
	for id, v := range r {
		out[id] = toNumber(v)
	}
	return out
}
