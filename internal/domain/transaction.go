package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Direction is the money flow direction of a transaction
type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// TransactionRecord is a ledger entry as seen by the engine. Amount is a
// positive magnitude; Direction carries the sign.
type TransactionRecord struct {
	ID          int64           `json:"id"`
	UserID      uuid.UUID       `json:"userId"`
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Direction   Direction       `json:"direction"`
	CategoryID  *int32          `json:"categoryId,omitempty"`
	Description string          `json:"description,omitempty"`
	Recurring   bool            `json:"recurring"`
	Hidden      bool            `json:"hidden"`
	Deleted     bool            `json:"deleted"`
}

// Counts reports whether the record participates in totals
func (t *TransactionRecord) Counts() bool {
	return !t.Hidden && !t.Deleted
}

// TransactionQuery selects transactions in the half-open range [Start, End).
// Hidden and deleted records are always excluded by sources.
type TransactionQuery struct {
	UserID        uuid.UUID
	Start         time.Time
	End           time.Time
	RecurringOnly bool
	Direction     *Direction
}

// MonthQuery returns a query covering every visible transaction in m
func MonthQuery(userID uuid.UUID, m MonthKey) TransactionQuery {
	return TransactionQuery{UserID: userID, Start: m.Start(), End: m.End()}
}

// TransactionSource is the read-only ledger the engine consumes
type TransactionSource interface {
	ListTransactions(ctx context.Context, q TransactionQuery) ([]*TransactionRecord, error)
}
