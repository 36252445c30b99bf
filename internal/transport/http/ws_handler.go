package http

import (
	"log"
	"net/http"
	"strconv"

	"quizzy-service/internal/app"
	"quizzy-service/internal/domain"

	"github.com/gorilla/websocket"
)

// WSHandler streams live leaderboard snapshots to viewers of a quiz. The
// socket is broadcast-only: client messages are drained and ignored.
type WSHandler struct {
	boards   *app.LeaderboardService
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(boards *app.LeaderboardService, hub *Hub) *WSHandler {
	return &WSHandler{
		boards: boards,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeWS upgrades the request and subscribes it to the quiz's leaderboard
// group. The current snapshot is sent immediately, then every publish.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID, err := strconv.ParseInt(r.URL.Query().Get("quizId"), 10, 64)
	if err != nil {
		http.Error(w, "missing or invalid quizId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.hub.Subscribe(app.GroupKey(quizID))
	defer cancel()

	initial, err := h.boards.Top(r.Context(), quizID)
	if err != nil {
		log.Printf("ws initial snapshot quiz=%d: %v", quizID, err)
		initial = domain.Leaderboard{QuizID: quizID, Entries: []domain.LeaderboardEntry{}}
	}

	writerDone := make(chan struct{})
	readerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		if err := conn.WriteJSON(outboundMessage[domain.Leaderboard]{Type: "leaderboard", Payload: initial}); err != nil {
			return
		}
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				if err := conn.WriteJSON(outboundMessage[domain.Leaderboard]{Type: "leaderboard", Payload: update}); err != nil {
					log.Printf("ws write error: %v", err)
					return
				}
			case <-readerDone:
				return
			}
		}
	}()

	// Drain the socket so close frames are noticed; inbound payloads are ignored.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	close(readerDone)
	<-writerDone
}
