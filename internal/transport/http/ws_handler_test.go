package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"quizzy-service/internal/app"
	"quizzy-service/internal/domain"
	"quizzy-service/internal/infra/memory"

	"github.com/gorilla/websocket"
)

func TestWebSocketReceivesSnapshotsAndPushes(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSubmissionStore()
	hub := NewHub()
	boards := app.NewLeaderboardService(store, memory.NewSnapshotCache(), hub, time.Minute)
	service := app.NewSubmissionService(store, store, memory.NewStaticQuizReader(testQuizzes()), memory.NewAccessList(), boards, nil)

	wsHandler := NewWSHandler(boards, hub)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?quizId=1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Initial snapshot arrives first and is empty.
	lb := readBoard(t, conn)
	if len(lb.Entries) != 0 {
		t.Fatalf("expected empty initial board, got %+v", lb.Entries)
	}

	// A completed attempt triggers a push to the group.
	if _, err := service.SubmitAnswers(ctx, 1, "u1", "Alice", []domain.AnswerInput{{QuestionID: 1, IsCorrect: true}}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		lb = readBoard(t, conn)
		if len(lb.Entries) == 1 && lb.Entries[0].Username == "Alice" && lb.Entries[0].Score == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("never saw Alice on the board, last: %+v", lb.Entries)
		}
	}
}

func readBoard(t *testing.T, conn *websocket.Conn) domain.Leaderboard {
	t.Helper()
	var msg struct {
		Type    string             `json:"type"`
		Payload domain.Leaderboard `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if msg.Type != "leaderboard" {
		t.Fatalf("expected leaderboard message, got %s", msg.Type)
	}
	return msg.Payload
}

func TestHubDropsOldestForSlowSubscribers(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe("quiz:1:leaderboard")
	defer cancel()

	// Overflow the buffer; publishes must not block.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			_ = hub.Publish("quiz:1:leaderboard", domain.Leaderboard{QuizID: 1, Entries: []domain.LeaderboardEntry{{Score: i}}})
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("publish blocked on slow subscriber")
	}

	// The newest update is still retained.
	var last domain.Leaderboard
	for {
		select {
		case lb := <-ch:
			last = lb
		default:
			if len(last.Entries) == 0 || last.Entries[0].Score != 19 {
				t.Fatalf("expected newest update retained, got %+v", last.Entries)
			}
			return
		}
	}
}

func TestHubPublishNeverBlocksUnderConcurrentPublishers(t *testing.T) {
	hub := NewHub()
	_, cancel := hub.Subscribe("quiz:2:leaderboard")
	defer cancel()

	// Racing publishers against a subscriber that never reads: every
	// Publish must still return, even when the buffer is refilled between
	// the drain and the retry.
	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_ = hub.Publish("quiz:2:leaderboard", domain.Leaderboard{QuizID: 2})
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("publish blocked on a stalled subscriber")
	}
}

func TestHubPublishWithoutSubscribersIsFine(t *testing.T) {
	hub := NewHub()
	if err := hub.Publish("quiz:9:leaderboard", domain.Leaderboard{QuizID: 9}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func testQuizzes() map[int64]domain.Quiz {
	return map[int64]domain.Quiz{
		1: {
			ID:            1,
			Title:         "Sample",
			IsPublished:   true,
			Visibility:    domain.VisibilityPublic,
			ScoringPolicy: domain.PolicyBest,
		},
	}
}
