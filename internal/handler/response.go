package handler

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// ProblemDetails is an RFC 7807 error body
type ProblemDetails struct {
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail,omitempty"`
	Instance string            `json:"instance,omitempty"`
	Errors   []ValidationError `json:"errors,omitempty"`
}

// ValidationError names one rejected request field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Problem type URIs
const (
	ErrorTypeValidation   = "https://rollpace.app/errors/validation"
	ErrorTypeNotFound     = "https://rollpace.app/errors/not-found"
	ErrorTypeUnauthorized = "https://rollpace.app/errors/unauthorized"
	ErrorTypeInternal     = "https://rollpace.app/errors/internal"
	ErrorTypeTimeout      = "https://rollpace.app/errors/timeout"
)

var problemTypes = map[int]string{
	http.StatusBadRequest:          ErrorTypeValidation,
	http.StatusNotFound:            ErrorTypeNotFound,
	http.StatusUnauthorized:        ErrorTypeUnauthorized,
	http.StatusInternalServerError: ErrorTypeInternal,
	http.StatusGatewayTimeout:      ErrorTypeTimeout,
}

func writeProblem(c echo.Context, status int, detail string, fields []ValidationError) error {
	title := http.StatusText(status)
	if status == http.StatusBadRequest {
		title = "Validation Error"
	}
	return c.JSON(status, ProblemDetails{
		Type:     problemTypes[status],
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Request().URL.Path,
		Errors:   fields,
	})
}

// NewValidationError writes a 400 with the offending fields
func NewValidationError(c echo.Context, detail string, errors []ValidationError) error {
	return writeProblem(c, http.StatusBadRequest, detail, errors)
}

// NewNotFoundError writes a 404
func NewNotFoundError(c echo.Context, detail string) error {
	return writeProblem(c, http.StatusNotFound, detail, nil)
}

// NewUnauthorizedError writes a 401
func NewUnauthorizedError(c echo.Context, detail string) error {
	return writeProblem(c, http.StatusUnauthorized, detail, nil)
}

// NewInternalError writes a 500
func NewInternalError(c echo.Context, detail string) error {
	return writeProblem(c, http.StatusInternalServerError, detail, nil)
}

// NewTimeoutError writes a 504 for reports that outran the request deadline
func NewTimeoutError(c echo.Context, detail string) error {
	return writeProblem(c, http.StatusGatewayTimeout, detail, nil)
}

// toNumber renders a decimal as a JSON number rounded to cents, sign kept
func toNumber(d decimal.Decimal) json.Number {
	return json.Number(d.Round(2).String())
}
