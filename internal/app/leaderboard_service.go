package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"quizzy-service/internal/domain"

	"golang.org/x/sync/singleflight"
)

const (
	// TopSize caps the cached live board.
	TopSize = 10
	// FullSize caps the uncached detail view.
	FullSize = 100
	// SnapshotTTL bounds staleness even if an invalidation is ever missed.
	SnapshotTTL = 30 * time.Second
)

// RankingStore queries completed submissions ranked by score descending,
// earlier completion winning ties.
type RankingStore interface {
	CompletedRanked(ctx context.Context, quizID int64, limit int) ([]domain.Submission, error)
}

// SnapshotCache stores leaderboard snapshots with a TTL (Redis, in-memory).
type SnapshotCache interface {
	Get(ctx context.Context, quizID int64) (domain.Leaderboard, bool, error)
	Set(ctx context.Context, quizID int64, lb domain.Leaderboard, ttl time.Duration) error
	Delete(ctx context.Context, quizID int64) error
}

// Broadcaster fans a snapshot out to subscribers of a group. Delivery is not
// guaranteed and never awaited by the scoring path.
type Broadcaster interface {
	Publish(group string, lb domain.Leaderboard) error
}

// LeaderboardService serves ranked snapshots from a short-TTL cache and
// pushes them to live subscribers whenever a score changes.
type LeaderboardService struct {
	ranks       RankingStore
	cache       SnapshotCache
	broadcaster Broadcaster
	ttl         time.Duration
	sf          singleflight.Group
	clock       func() time.Time
}

func NewLeaderboardService(ranks RankingStore, cache SnapshotCache, broadcaster Broadcaster, ttl time.Duration) *LeaderboardService {
	if ttl <= 0 {
		ttl = SnapshotTTL
	}
	return &LeaderboardService{
		ranks:       ranks,
		cache:       cache,
		broadcaster: broadcaster,
		ttl:         ttl,
		clock:       time.Now,
	}
}

// GroupKey names the fan-out group carrying a quiz's live board.
func GroupKey(quizID int64) string {
	return fmt.Sprintf("quiz:%d:leaderboard", quizID)
}

// Top returns the cached top-10 board, recomputing on miss. The fill is
// singleflight-guarded so a thundering herd after invalidation hits the
// store once.
func (s *LeaderboardService) Top(ctx context.Context, quizID int64) (domain.Leaderboard, error) {
	if lb, ok, err := s.cache.Get(ctx, quizID); err == nil && ok {
		return lb, nil
	}

	result, err, _ := s.sf.Do(GroupKey(quizID), func() (interface{}, error) {
		// Re-check in case another goroutine filled it.
		if lb, ok, err := s.cache.Get(ctx, quizID); err == nil && ok {
			return lb, nil
		}
		lb, err := s.snapshot(ctx, quizID, TopSize)
		if err != nil {
			return domain.Leaderboard{}, err
		}
		// Cache write is best effort; the store remains authoritative.
		if err := s.cache.Set(ctx, quizID, lb, s.ttl); err != nil {
			log.Printf("leaderboard cache set quiz=%d: %v", quizID, err)
		}
		return lb, nil
	})
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return result.(domain.Leaderboard), nil
}

// Full returns the uncached top-100 detail view. It never shares the cache
// entry with the live top-10 board.
func (s *LeaderboardService) Full(ctx context.Context, quizID int64) (domain.Leaderboard, error) {
	return s.snapshot(ctx, quizID, FullSize)
}

// Invalidate unconditionally evicts the cached snapshot for a quiz. Called
// exactly once per ledger write, after the new score is persisted.
func (s *LeaderboardService) Invalidate(ctx context.Context, quizID int64) {
	if err := s.cache.Delete(ctx, quizID); err != nil {
		// TTL is the safety net; a missed eviction only delays freshness.
		log.Printf("leaderboard invalidate quiz=%d: %v", quizID, err)
	}
}

// Publish recomputes (or reuses the freshly cached) snapshot and hands it to
// the fan-out transport. Failures are swallowed: the live push is best
// effort and must never abort the scoring write path.
func (s *LeaderboardService) Publish(ctx context.Context, quizID int64) {
	lb, err := s.Top(ctx, quizID)
	if err != nil {
		log.Printf("leaderboard publish quiz=%d: snapshot failed: %v", quizID, err)
		return
	}
	if err := s.broadcaster.Publish(GroupKey(quizID), lb); err != nil {
		log.Printf("leaderboard publish quiz=%d: %v", quizID, err)
	}
}

func (s *LeaderboardService) snapshot(ctx context.Context, quizID int64, limit int) (domain.Leaderboard, error) {
	rows, err := s.ranks.CompletedRanked(ctx, quizID, limit)
	if err != nil {
		return domain.Leaderboard{}, fmt.Errorf("rank submissions: %w", err)
	}
	entries := make([]domain.LeaderboardEntry, 0, len(rows))
	for _, sub := range rows {
		entries = append(entries, domain.LeaderboardEntry{
			Username:    sub.Username,
			Score:       sub.Score,
			Attempt:     sub.AttemptNumber,
			SubmittedAt: sub.SubmittedAt,
		})
	}
	return domain.Leaderboard{
		QuizID:    quizID,
		Entries:   entries,
		UpdatedAt: s.clock(),
	}, nil
}
