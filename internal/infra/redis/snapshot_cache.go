package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"quizzy-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

// SnapshotCache stores leaderboard snapshots in Redis as JSON values under
// "leaderboard:<quizID>" with a TTL, so staleness stays bounded even when
// an eager invalidation is missed.
type SnapshotCache struct {
	client *redis.Client
}

func NewSnapshotCache(client *redis.Client) *SnapshotCache {
	return &SnapshotCache{client: client}
}

func (c *SnapshotCache) Get(ctx context.Context, quizID int64) (domain.Leaderboard, bool, error) {
	raw, err := c.client.Get(ctx, Key(quizID)).Bytes()
	if err == redis.Nil {
		return domain.Leaderboard{}, false, nil
	}
	if err != nil {
		return domain.Leaderboard{}, false, fmt.Errorf("cache get: %w", err)
	}
	var lb domain.Leaderboard
	if err := json.Unmarshal(raw, &lb); err != nil {
		// A corrupt entry is a miss; the next fill overwrites it.
		return domain.Leaderboard{}, false, nil
	}
	return lb, true, nil
}

func (c *SnapshotCache) Set(ctx context.Context, quizID int64, lb domain.Leaderboard, ttl time.Duration) error {
	raw, err := json.Marshal(lb)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := c.client.Set(ctx, Key(quizID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (c *SnapshotCache) Delete(ctx context.Context, quizID int64) error {
	if err := c.client.Del(ctx, Key(quizID)).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// Key builds the cache key for a quiz's leaderboard snapshot.
func Key(quizID int64) string {
	return "leaderboard:" + strconv.FormatInt(quizID, 10)
}
