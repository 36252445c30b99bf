package http

import (
	"sync"

	"quizzy-service/internal/domain"
)

// Hub fans leaderboard snapshots out to in-process subscriber groups. It is
// the broadcaster behind the WebSocket handler; delivery is best effort and
// never blocks the publisher.
type Hub struct {
	mu     sync.RWMutex
	groups map[string]map[chan domain.Leaderboard]struct{}
}

func NewHub() *Hub {
	return &Hub{groups: make(map[string]map[chan domain.Leaderboard]struct{})}
}

// Subscribe registers a listener on a group. The caller must invoke the
// returned cancel function to avoid leaks.
func (h *Hub) Subscribe(group string) (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)

	h.mu.Lock()
	subs, ok := h.groups[group]
	if !ok {
		subs = make(map[chan domain.Leaderboard]struct{})
		h.groups[group] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if subs, ok := h.groups[group]; ok {
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}
			if len(subs) == 0 {
				delete(h.groups, group)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers a snapshot to every subscriber of the group. Slow
// subscribers lose their oldest pending update instead of blocking the
// scoring path. A group with no subscribers is not an error.
func (h *Hub) Publish(group string, lb domain.Leaderboard) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.groups[group] {
		select {
		case ch <- lb:
		default:
			// Full buffer: drop the oldest pending update, then offer the
			// new one. The retry stays non-blocking because a concurrent
			// publisher may have refilled the slot.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- lb:
			default:
			}
		}
	}
	return nil
}
