package domain

import "time"

// Visibility controls who may see and attempt a quiz.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// ScoringPolicy selects how repeated attempts at a question are scored.
type ScoringPolicy string

const (
	PolicyBest  ScoringPolicy = "best"
	PolicyFirst ScoringPolicy = "first"
	PolicyLast  ScoringPolicy = "last"
)

// UnlimitedAttempts is the sentinel returned when a quiz has no attempt cap.
const UnlimitedAttempts = 999999

// Quiz is the read-only configuration a quiz creator published.
// MaxAttempts is only meaningful when AllowMultipleAttempts is true;
// otherwise the effective cap is 1.
type Quiz struct {
	ID                    int64         `json:"id"`
	Title                 string        `json:"title"`
	CreatorID             string        `json:"creatorId"`
	IsPublished           bool          `json:"isPublished"`
	Visibility            Visibility    `json:"visibility"`
	AllowMultipleAttempts bool          `json:"allowMultipleAttempts"`
	MaxAttempts           *int          `json:"maxAttempts,omitempty"`
	ScoringPolicy         ScoringPolicy `json:"scoringPolicy"`
}

// Submission is one attempt session of a user on a quiz.
// (QuizID, UserID, AttemptNumber) is unique; Score is owned by the
// score aggregator and must not be written anywhere else.
type Submission struct {
	ID            int64     `json:"id"`
	QuizID        int64     `json:"quizId"`
	UserID        string    `json:"userId"`
	Username      string    `json:"username"`
	AttemptNumber int       `json:"attempt"`
	Score         int       `json:"score"`
	InProgress    bool      `json:"inProgress"`
	SubmittedAt   time.Time `json:"submittedAt"`
}

// QuestionAttempt is one immutable ledger entry: a single answer to a
// single question within a submission. Corrections append a new entry
// with a higher AttemptNumber, never rewrite an existing one.
type QuestionAttempt struct {
	ID               int64     `json:"id"`
	SubmissionID     int64     `json:"submissionId"`
	QuestionID       int64     `json:"questionId"`
	SelectedAnswerID *int64    `json:"selectedAnswerId,omitempty"`
	IsCorrect        bool      `json:"isCorrect"`
	AttemptNumber    int       `json:"attemptNumber"`
	AttemptedAt      time.Time `json:"attemptedAt"`
}

// AnswerInput is what a client submits for one question. Correctness is
// decided upstream; this core only records and scores it.
type AnswerInput struct {
	QuestionID       int64  `json:"questionId"`
	SelectedAnswerID *int64 `json:"selectedAnswerId,omitempty"`
	IsCorrect        bool   `json:"correct"`
}

// LeaderboardEntry is a snapshot-friendly view of one completed submission.
type LeaderboardEntry struct {
	Username    string    `json:"user"`
	Score       int       `json:"score"`
	Attempt     int       `json:"attempt"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Leaderboard captures the ranked board for a quiz at a point in time.
type Leaderboard struct {
	QuizID    int64              `json:"quizId"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}
