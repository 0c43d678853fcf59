package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/google/uuid"
	"github.com/rollpace/rollpace-backend/internal/domain"
)

// DefaultMaxEntries bounds the number of cached rollover maps
const DefaultMaxEntries = 10000

// DefaultTTL bounds how long a map is served when the ledger changes
// without a notification
const DefaultTTL = 15 * time.Minute

// RolloverCache memoizes resolved rollover maps per (user, month).
// Every key carries the user's generation. Invalidation bumps it, so entries
// written before it, or by walks that started before it, are never read.
type RolloverCache struct {
	cache *ristretto.Cache
	ttl   time.Duration

	mu          sync.RWMutex
	generations map[uuid.UUID]uint64
}

// NewRolloverCache creates a RolloverCache holding up to maxEntries maps,
// each for at most ttl
func NewRolloverCache(maxEntries int64, ttl time.Duration) (*RolloverCache, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10, // number of keys to track frequency of
		MaxCost:     maxEntries,
		BufferItems: 64, // number of keys per Get buffer
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize rollover cache: %w", err)
	}

	return &RolloverCache{
		cache:       c,
		ttl:         ttl,
		generations: make(map[uuid.UUID]uint64),
	}, nil
}

// Generation implements domain.RolloverMemo
func (c *RolloverCache) Generation(userID uuid.UUID) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generations[userID]
}

// Get implements domain.RolloverMemo
func (c *RolloverCache) Get(userID uuid.UUID, month domain.MonthKey) (domain.RolloverMap, bool) {
	value, ok := c.cache.Get(key(userID, c.Generation(userID), month))
	if !ok {
		return nil, false
	}
	rollover, ok := value.(domain.RolloverMap)
	if !ok {
		return nil, false
	}
	return rollover.Clone(), true
}

// Set implements domain.RolloverMemo. Writes for a superseded generation are
// dropped; an accepted write is visible to Get once Set returns.
func (c *RolloverCache) Set(userID uuid.UUID, month domain.MonthKey, generation uint64, rollover domain.RolloverMap) {
	if generation != c.Generation(userID) {
		return
	}
	// An Invalidate racing past the check above still wins: the entry lands
	// under the old generation's key, which Get no longer builds.
	c.cache.SetWithTTL(key(userID, generation, month), rollover.Clone(), 1, c.ttl)
	c.cache.Wait()
}

// Invalidate implements domain.RolloverMemo
func (c *RolloverCache) Invalidate(userID uuid.UUID) {
	c.mu.Lock()
	c.generations[userID]++
	c.mu.Unlock()
}

// Close stops the cache's background goroutines
func (c *RolloverCache) Close() {
	c.cache.Close()
}

func key(userID uuid.UUID, generation uint64, month domain.MonthKey) string {
	return fmt.Sprintf("%s:%d:%s", userID, generation, month)
}
