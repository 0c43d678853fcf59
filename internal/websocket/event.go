package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rollpace/rollpace-backend/internal/domain"
)

// EventType represents what happened to an entity
type EventType string

const (
	EventTypeStale EventType = "stale"
)

// EntityType represents the type of entity the event is about
type EntityType string

const (
	EntityTypeReport EntityType = "report"
)

// Event represents a WebSocket event message sent to clients
// Format: { type, entity, payload, timestamp }
type Event struct {
	Type      string      `json:"type"`      // Combined type e.g. "report.stale"
	Entity    EntityType  `json:"entity"`    // Entity type e.g. "report"
	Payload   interface{} `json:"payload"`   // Event data
	Timestamp time.Time   `json:"timestamp"` // Event timestamp
}

// NewEvent creates a new event with the given type, entity, and payload
func NewEvent(eventType EventType, entityType EntityType, payload interface{}) Event {
	return Event{
		Type:      fmt.Sprintf("%s.%s", entityType, eventType),
		Entity:    entityType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON serializes the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ReportStalePayload names the earliest month whose report changed. Every
// later month's rollover depends on it, so clients refresh from there on.
type ReportStalePayload struct {
	FromMonth domain.MonthKey `json:"fromMonth"`
	Source    string          `json:"source"`
}

// ReportStale creates a report.stale event
func ReportStale(fromMonth domain.MonthKey, source string) Event {
	return NewEvent(EventTypeStale, EntityTypeReport, ReportStalePayload{
		FromMonth: fromMonth,
		Source:    source,
	})
}
