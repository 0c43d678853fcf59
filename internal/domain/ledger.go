package domain

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Ledger change sources
const (
	LedgerSourceAPI   = "api"
	LedgerSourceQueue = "queue"
)

// LedgerChange reports that a user's transactions or budgets changed in or
// after FromMonth. Rollover for every later month depends on it.
type LedgerChange struct {
	UserID    uuid.UUID `json:"userId"`
	FromMonth MonthKey  `json:"fromMonth"`
	Source    string    `json:"source"`
}

// Validate checks the change names a user and a real month
func (c LedgerChange) Validate() error {
	if c.UserID == uuid.Nil {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	_, err := NewMonthKey(c.FromMonth.Year, int(c.FromMonth.Month))
	return err
}

// LedgerChangeHandler processes one decoded ledger change
type LedgerChangeHandler func(ctx context.Context, change LedgerChange) error
