package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rollpace/rollpace-backend/internal/domain"
)

// LedgerChangeMessage is published by the ledger owner whenever a user's
// transactions or budgets change. Year and Month name the earliest month touched.
type LedgerChangeMessage struct {
	UserID    uuid.UUID `json:"userId"`
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerChangeMessage creates a message for the given user and month
func NewLedgerChangeMessage(userID uuid.UUID, month domain.MonthKey) *LedgerChangeMessage {
	return &LedgerChangeMessage{
		UserID:    userID,
		Year:      month.Year,
		Month:     int(month.Month),
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChange converts the message into the engine's change record
func (m *LedgerChangeMessage) LedgerChange() domain.LedgerChange {
	return domain.LedgerChange{
		UserID:    m.UserID,
		FromMonth: domain.MonthKey{Year: m.Year, Month: time.Month(m.Month)},
		Source:    domain.LedgerSourceQueue,
	}
}

// LedgerChangeMessageFromJSON creates a message from JSON bytes
func LedgerChangeMessageFromJSON(data []byte) (*LedgerChangeMessage, error) {
	var msg LedgerChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
