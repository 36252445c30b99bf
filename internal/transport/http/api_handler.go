package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"quizzy-service/internal/app"
	"quizzy-service/internal/domain"
)

// APIHandler exposes the thin JSON surface: submit an attempt, read the
// full board. Routing stays on the standard mux.
type APIHandler struct {
	service *app.SubmissionService
	boards  *app.LeaderboardService
}

func NewAPIHandler(service *app.SubmissionService, boards *app.LeaderboardService) *APIHandler {
	return &APIHandler{service: service, boards: boards}
}

type submitRequest struct {
	QuizID   int64                `json:"quizId"`
	UserID   string               `json:"userId"`
	Username string               `json:"username"`
	Answers  []domain.AnswerInput `json:"answers"`
}

type submitResponse struct {
	SubmissionID int64 `json:"submissionId"`
	Attempt      int   `json:"attempt"`
	Score        int   `json:"score"`
	Remaining    int   `json:"remaining"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// SubmitAttempt handles POST /api/attempts. The quota gate runs here, before
// any write: exhausted quota is a policy refusal, not a core error.
func (h *APIHandler) SubmitAttempt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Message: "method not allowed"})
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid request body"})
		return
	}
	if req.UserID == "" || req.QuizID == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "quizId and userId are required"})
		return
	}

	remaining, err := h.service.RemainingAttempts(r.Context(), req.UserID, req.QuizID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	// An in-progress attempt may still be resumed even at zero remaining;
	// only starting a brand-new session is gated.
	if remaining == 0 {
		latest, ok, err := h.latestInProgress(r, req)
		if err != nil {
			h.writeError(w, err)
			return
		}
		if !ok || !latest.InProgress {
			writeJSON(w, http.StatusConflict, errorResponse{Message: "no attempts remaining"})
			return
		}
	}

	sub, err := h.service.SubmitAnswers(r.Context(), req.QuizID, req.UserID, req.Username, req.Answers)
	if err != nil {
		h.writeError(w, err)
		return
	}
	remaining, err = h.service.RemainingAttempts(r.Context(), req.UserID, req.QuizID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{
		SubmissionID: sub.ID,
		Attempt:      sub.AttemptNumber,
		Score:        sub.Score,
		Remaining:    remaining,
	})
}

// Leaderboard handles GET /api/leaderboard?quizId=N: the uncached top-100
// detail view.
func (h *APIHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	quizID, err := strconv.ParseInt(r.URL.Query().Get("quizId"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "missing or invalid quizId"})
		return
	}
	lb, err := h.boards.Full(r.Context(), quizID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

func (h *APIHandler) latestInProgress(r *http.Request, req submitRequest) (domain.Submission, bool, error) {
	return h.service.LatestSubmission(r.Context(), req.QuizID, req.UserID)
}

func (h *APIHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrQuizNotFound), errors.Is(err, domain.ErrSubmissionNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Message: err.Error()})
	case errors.Is(err, domain.ErrAttemptNotAllowed):
		writeJSON(w, http.StatusForbidden, errorResponse{Message: err.Error()})
	case errors.Is(err, domain.ErrSubmissionCompleted):
		writeJSON(w, http.StatusConflict, errorResponse{Message: err.Error()})
	default:
		log.Printf("api error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
