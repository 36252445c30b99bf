package memory

import (
	"context"
	"sync"
	"time"

	"quizzy-service/internal/domain"
)

// SnapshotCache caches leaderboard snapshots with a TTL, mirroring the
// Redis-backed cache for setups without Redis.
type SnapshotCache struct {
	clock func() time.Time

	mu      sync.RWMutex
	entries map[int64]cachedSnapshot
}

type cachedSnapshot struct {
	lb        domain.Leaderboard
	expiresAt time.Time
}

func NewSnapshotCache() *SnapshotCache {
	return &SnapshotCache{
		clock:   time.Now,
		entries: make(map[int64]cachedSnapshot),
	}
}

// NewSnapshotCacheWithClock allows deterministic expiry in tests.
func NewSnapshotCacheWithClock(now func() time.Time) *SnapshotCache {
	cache := NewSnapshotCache()
	cache.clock = now
	return cache
}

func (c *SnapshotCache) Get(_ context.Context, quizID int64) (domain.Leaderboard, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[quizID]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return domain.Leaderboard{}, false, nil
	}
	return entry.lb, true, nil
}

func (c *SnapshotCache) Set(_ context.Context, quizID int64, lb domain.Leaderboard, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[quizID] = cachedSnapshot{lb: lb, expiresAt: c.clock().Add(ttl)}
	return nil
}

func (c *SnapshotCache) Delete(_ context.Context, quizID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, quizID)
	return nil
}
