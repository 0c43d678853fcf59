package websocket

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrClientClosed is returned by Send once a subscriber can no longer take events
var ErrClientClosed = errors.New("client is closed")

// Subscriber is one live connection waiting for a user's report events.
// Send must not block.
type Subscriber interface {
	ID() string
	UserID() uuid.UUID
	Send(data []byte) error
	Close() error
}

// subscriberSet holds one user's connections keyed by connection id
type subscriberSet map[string]Subscriber

func (s subscriberSet) snapshot() []Subscriber {
	out := make([]Subscriber, 0, len(s))
	for _, sub := range s {
		out = append(out, sub)
	}
	return out
}

// Hub routes report events to every connection a user has open.
// Subscribers that cannot take an event are evicted and closed so the
// client reconnects and refetches instead of showing a stale report.
type Hub struct {
	mu     sync.RWMutex
	byUser map[uuid.UUID]subscriberSet
	total  int
}

// NewHub creates an empty Hub
func NewHub() *Hub {
	return &Hub{byUser: make(map[uuid.UUID]subscriberSet)}
}

// Register adds a subscriber. A subscriber reusing a live connection id
// replaces the old one, which is closed.
func (h *Hub) Register(sub Subscriber) {
	h.mu.Lock()
	set, ok := h.byUser[sub.UserID()]
	if !ok {
		set = make(subscriberSet)
		h.byUser[sub.UserID()] = set
	}
	previous, replaced := set[sub.ID()]
	set[sub.ID()] = sub
	if !replaced {
		h.total++
	}
	h.mu.Unlock()

	if replaced && previous != sub {
		previous.Close()
	}
	log.Debug().
		Str("user_id", sub.UserID().String()).
		Str("client_id", sub.ID()).
		Msg("Report subscriber registered")
}

// Unregister removes a subscriber. Unknown subscribers are ignored.
func (h *Hub) Unregister(sub Subscriber) {
	if h.remove(sub) {
		log.Debug().
			Str("user_id", sub.UserID().String()).
			Str("client_id", sub.ID()).
			Msg("Report subscriber unregistered")
	}
}

// remove drops sub only if it is still the registered instance for its id
func (h *Hub) remove(sub Subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.byUser[sub.UserID()]
	if current, ok := set[sub.ID()]; !ok || current != sub {
		return false
	}
	delete(set, sub.ID())
	if len(set) == 0 {
		delete(h.byUser, sub.UserID())
	}
	h.total--
	return true
}

// Broadcast delivers event to each of the user's subscribers and returns how
// many accepted it.
func (h *Hub) Broadcast(userID uuid.UUID, event Event) int {
	data, err := event.ToJSON()
	if err != nil {
		log.Error().Err(err).
			Str("user_id", userID.String()).
			Str("event_type", event.Type).
			Msg("Failed to serialize event")
		return 0
	}

	h.mu.RLock()
	subs := h.byUser[userID].snapshot()
	h.mu.RUnlock()

	delivered := 0
	for _, sub := range subs {
		if err := sub.Send(data); err != nil {
			log.Warn().Err(err).
				Str("user_id", userID.String()).
				Str("client_id", sub.ID()).
				Msg("Evicting report subscriber that fell behind")
			h.remove(sub)
			sub.Close()
			continue
		}
		delivered++
	}

	if len(subs) > 0 {
		log.Debug().
			Str("user_id", userID.String()).
			Str("event_type", event.Type).
			Int("delivered", delivered).
			Int("subscribers", len(subs)).
			Msg("Broadcast event")
	}
	return delivered
}

// ClientCount returns how many connections a user has open
func (h *Hub) ClientCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byUser[userID])
}

// TotalClientCount returns the number of open connections across all users
func (h *Hub) TotalClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total
}
