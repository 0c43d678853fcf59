package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rollpace/rollpace-backend/internal/domain"
	"github.com/rollpace/rollpace-backend/internal/testutil"
	"github.com/rollpace/rollpace-backend/internal/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishedEvent struct {
	userID uuid.UUID
	event  websocket.Event
}

// recordingPublisher captures published events
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(userID uuid.UUID, event websocket.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{userID: userID, event: event})
}

func (p *recordingPublisher) Events() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]publishedEvent, len(p.events))
	copy(out, p.events)
	return out
}

func TestLedgerChangeService_Apply(t *testing.T) {
	memo := testutil.NewMockRolloverMemo()
	publisher := &recordingPublisher{}
	svc := NewLedgerChangeService(memo, publisher, zerolog.Nop())

	userID := uuid.New()
	march := monthKey(2025, 3)
	memo.Set(userID, march, memo.Generation(userID), domain.RolloverMap{1: dec(40)})

	err := svc.Apply(context.Background(), domain.LedgerChange{
		UserID:    userID,
		FromMonth: monthKey(2025, 1),
		Source:    domain.LedgerSourceAPI,
	})
	require.NoError(t, err)

	_, ok := memo.Get(userID, march)
	assert.False(t, ok, "cached rollover must be dropped")

	events := publisher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, userID, events[0].userID)
	assert.Equal(t, "report.stale", events[0].event.Type)

	payload, ok := events[0].event.Payload.(websocket.ReportStalePayload)
	require.True(t, ok)
	assert.Equal(t, monthKey(2025, 1), payload.FromMonth)
	assert.Equal(t, domain.LedgerSourceAPI, payload.Source)
}

func TestLedgerChangeService_Apply_Invalid(t *testing.T) {
	publisher := &recordingPublisher{}
	svc := NewLedgerChangeService(nil, publisher, zerolog.Nop())

	tests := []struct {
		name   string
		change domain.LedgerChange
	}{
		{"missing user", domain.LedgerChange{FromMonth: monthKey(2025, 1)}},
		{"month zero", domain.LedgerChange{UserID: uuid.New(), FromMonth: domain.MonthKey{Year: 2025}}},
		{"month thirteen", domain.LedgerChange{UserID: uuid.New(), FromMonth: domain.MonthKey{Year: 2025, Month: 13}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Apply(context.Background(), tt.change)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
	assert.Empty(t, publisher.Events())
}

func TestLedgerChangeService_NilCollaborators(t *testing.T) {
	svc := NewLedgerChangeService(nil, nil, zerolog.Nop())

	assert.NotPanics(t, func() {
		err := svc.Apply(context.Background(), domain.LedgerChange{UserID: uuid.New(), FromMonth: monthKey(2025, 6)})
		assert.NoError(t, err)
	})
}

// scriptedFeed delivers queued changes, then fails or blocks per round
type scriptedFeed struct {
	mu      sync.Mutex
	rounds  [][]domain.LedgerChange
	calls   int
	lastErr []error
}

func (f *scriptedFeed) ConsumeLedgerChanges(ctx context.Context, handler domain.LedgerChangeHandler) error {
	f.mu.Lock()
	round := f.calls
	f.calls++
	var changes []domain.LedgerChange
	if round < len(f.rounds) {
		changes = f.rounds[round]
	}
	f.mu.Unlock()

	for _, c := range changes {
		err := handler(ctx, c)
		f.mu.Lock()
		f.lastErr = append(f.lastErr, err)
		f.mu.Unlock()
	}

	if round < len(f.rounds)-1 {
		return assert.AnError
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *scriptedFeed) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func setupLedgerChangeWorker(feed LedgerChangeFeed) (*LedgerChangeWorker, *recordingPublisher) {
	publisher := &recordingPublisher{}
	changes := NewLedgerChangeService(testutil.NewMockRolloverMemo(), publisher, zerolog.Nop())
	worker := NewLedgerChangeWorker(feed, changes, zerolog.Nop(), LedgerChangeWorkerConfig{
		MinBackoff: 5 * time.Millisecond,
		MaxBackoff: 20 * time.Millisecond,
	})
	return worker, publisher
}

func TestLedgerChangeWorker_StartStop(t *testing.T) {
	worker, _ := setupLedgerChangeWorker(&scriptedFeed{rounds: [][]domain.LedgerChange{nil}})

	worker.Start(context.Background())
	worker.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	assert.True(t, worker.IsRunning())

	worker.Stop()
	assert.False(t, worker.IsRunning())
}

func TestLedgerChangeWorker_StopWithoutStart(t *testing.T) {
	worker, _ := setupLedgerChangeWorker(&scriptedFeed{})

	worker.Stop()
	assert.False(t, worker.IsRunning())
}

func TestLedgerChangeWorker_ResubscribesAfterFeedFailure(t *testing.T) {
	userID := uuid.New()
	feed := &scriptedFeed{rounds: [][]domain.LedgerChange{
		{{UserID: userID, FromMonth: monthKey(2025, 1), Source: domain.LedgerSourceQueue}},
		{{UserID: userID, FromMonth: monthKey(2025, 2), Source: domain.LedgerSourceQueue}},
	}}
	worker, publisher := setupLedgerChangeWorker(feed)

	worker.Start(context.Background())
	defer worker.Stop()

	require.Eventually(t, func() bool { return worker.Processed() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, feed.Calls())
	assert.Len(t, publisher.Events(), 2)
}

func TestLedgerChangeWorker_InvalidChangeIsReported(t *testing.T) {
	feed := &scriptedFeed{rounds: [][]domain.LedgerChange{
		{{FromMonth: monthKey(2025, 1)}},
	}}
	worker, publisher := setupLedgerChangeWorker(feed)

	worker.Start(context.Background())
	require.Eventually(t, func() bool {
		feed.mu.Lock()
		defer feed.mu.Unlock()
		return len(feed.lastErr) == 1
	}, time.Second, 5*time.Millisecond)
	worker.Stop()

	assert.ErrorIs(t, feed.lastErr[0], domain.ErrInvalidInput)
	assert.Equal(t, 0, worker.Processed())
	assert.Empty(t, publisher.Events())
}

func TestLedgerChangeWorker_ContextCancellation(t *testing.T) {
	worker, _ := setupLedgerChangeWorker(&scriptedFeed{rounds: [][]domain.LedgerChange{nil}})

	ctx, cancel := context.WithCancel(context.Background())
	worker.Start(ctx)
	time.Sleep(20 * time.Millisecond)
	assert.True(t, worker.IsRunning())

	cancel()
	assert.Eventually(t, func() bool { return !worker.IsRunning() }, time.Second, 5*time.Millisecond)
}

func TestLedgerChangeWorker_Backoff(t *testing.T) {
	worker := NewLedgerChangeWorker(&scriptedFeed{}, NewLedgerChangeService(nil, nil, zerolog.Nop()), zerolog.Nop(), LedgerChangeWorkerConfig{})

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, worker.backoff(tt.attempt), "attempt %d", tt.attempt)
	}
}
