package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quizzy-service/internal/domain"
)

// SubmissionStore persists attempt sessions (in-memory, Postgres, etc).
// GetOrCreate must be atomic on the (quiz, user, attempt) unique triple:
// concurrent duplicate creations collapse to a single row, first writer wins.
type SubmissionStore interface {
	GetOrCreate(ctx context.Context, sub domain.Submission) (domain.Submission, error)
	GetByID(ctx context.Context, id int64) (domain.Submission, error)
	Latest(ctx context.Context, quizID int64, userID string) (domain.Submission, bool, error)
	CountByUser(ctx context.Context, quizID int64, userID string) (int, error)
	UpdateScore(ctx context.Context, id int64, score int) error
	Complete(ctx context.Context, id int64, at time.Time) error
}

// AttemptLedger is the append-only record of every answer submitted.
// ListBySubmission returns entries in canonical order:
// (question, attempt number, attempted at, insertion id) ascending.
type AttemptLedger interface {
	Append(ctx context.Context, attempt domain.QuestionAttempt) (domain.QuestionAttempt, error)
	ListBySubmission(ctx context.Context, submissionID int64) ([]domain.QuestionAttempt, error)
	CountForQuestion(ctx context.Context, submissionID, questionID int64) (int, error)
}

// QuizReader loads quiz configuration (from cache/backing store).
type QuizReader interface {
	GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error)
}

// AccessPolicy answers whether a user may view or attempt a quiz.
// Invitation bookkeeping lives behind this boundary.
type AccessPolicy interface {
	MayView(ctx context.Context, userID string, quiz domain.Quiz) bool
	MayAttempt(ctx context.Context, userID string, quiz domain.Quiz) bool
}

// BoardNotifier receives the synchronous freshness signals emitted on every
// ledger write: one invalidation, then one best-effort publish.
type BoardNotifier interface {
	Invalidate(ctx context.Context, quizID int64)
	Publish(ctx context.Context, quizID int64)
}

// SubmissionService owns the attempt-recording state machine, the score
// aggregator, and the attempt quota evaluator.
type SubmissionService struct {
	subs    SubmissionStore
	ledger  AttemptLedger
	quizzes QuizReader
	access  AccessPolicy
	boards  BoardNotifier
	metrics MetricsSink
	clock   func() time.Time
}

func NewSubmissionService(subs SubmissionStore, ledger AttemptLedger, quizzes QuizReader, access AccessPolicy, boards BoardNotifier, metrics MetricsSink) *SubmissionService {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &SubmissionService{
		subs:    subs,
		ledger:  ledger,
		quizzes: quizzes,
		access:  access,
		boards:  boards,
		metrics: metrics,
		clock:   time.Now,
	}
}

// WithClock is test-only for deterministic timestamps.
func (s *SubmissionService) WithClock(now func() time.Time) *SubmissionService {
	s.clock = now
	return s
}

// RemainingAttempts computes how many attempt sessions the user may still
// start on a quiz. Every existing submission row counts, including abandoned
// in-progress ones: partial attempts consume quota so abandonment cannot be
// used to reset it.
func (s *SubmissionService) RemainingAttempts(ctx context.Context, userID string, quizID int64) (int, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return 0, err
	}
	made, err := s.subs.CountByUser(ctx, quizID, userID)
	if err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}

	if !quiz.AllowMultipleAttempts {
		if made > 0 {
			return 0, nil
		}
		return 1, nil
	}
	if quiz.MaxAttempts != nil {
		remaining := *quiz.MaxAttempts - made
		if remaining < 0 {
			remaining = 0
		}
		return remaining, nil
	}
	return domain.UnlimitedAttempts, nil
}

// StartAttempt returns the user's current in-progress submission for the
// quiz, or creates a fresh one with the next attempt number. Quota is the
// caller's gate; this method only enforces access.
func (s *SubmissionService) StartAttempt(ctx context.Context, quizID int64, userID, username string) (domain.Submission, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Submission{}, err
	}
	if !s.access.MayAttempt(ctx, userID, quiz) {
		return domain.Submission{}, domain.ErrAttemptNotAllowed
	}

	latest, ok, err := s.subs.Latest(ctx, quizID, userID)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("load latest submission: %w", err)
	}
	if ok && latest.InProgress {
		return latest, nil
	}

	next := 1
	if ok {
		next = latest.AttemptNumber + 1
	}
	created, err := s.subs.GetOrCreate(ctx, domain.Submission{
		QuizID:        quizID,
		UserID:        userID,
		Username:      username,
		AttemptNumber: next,
		InProgress:    true,
		SubmittedAt:   s.clock(),
	})
	if err != nil {
		return domain.Submission{}, fmt.Errorf("create submission: %w", err)
	}
	s.metrics.SubmissionCreated(quizID)
	return created, nil
}

// LatestSubmission returns the user's most recent attempt session, if any.
func (s *SubmissionService) LatestSubmission(ctx context.Context, quizID int64, userID string) (domain.Submission, bool, error) {
	return s.subs.Latest(ctx, quizID, userID)
}

// RecordAnswer appends one ledger entry for the submission and synchronously
// refreshes everything derived from it: the stored score, the leaderboard
// cache entry, and the live snapshot push.
func (s *SubmissionService) RecordAnswer(ctx context.Context, submissionID int64, answer domain.AnswerInput) (domain.QuestionAttempt, error) {
	sub, err := s.subs.GetByID(ctx, submissionID)
	if err != nil {
		return domain.QuestionAttempt{}, err
	}
	if !sub.InProgress {
		return domain.QuestionAttempt{}, domain.ErrSubmissionCompleted
	}

	prior, err := s.ledger.CountForQuestion(ctx, submissionID, answer.QuestionID)
	if err != nil {
		return domain.QuestionAttempt{}, fmt.Errorf("count question attempts: %w", err)
	}
	attempt, err := s.ledger.Append(ctx, domain.QuestionAttempt{
		SubmissionID:     submissionID,
		QuestionID:       answer.QuestionID,
		SelectedAnswerID: answer.SelectedAnswerID,
		IsCorrect:        answer.IsCorrect,
		AttemptNumber:    prior + 1,
		AttemptedAt:      s.clock(),
	})
	if err != nil {
		return domain.QuestionAttempt{}, fmt.Errorf("append attempt: %w", err)
	}
	s.metrics.AttemptRecorded(sub.QuizID, answer.IsCorrect)

	if _, err := s.RecomputeScore(ctx, submissionID); err != nil {
		return domain.QuestionAttempt{}, err
	}
	s.boards.Invalidate(ctx, sub.QuizID)
	s.boards.Publish(ctx, sub.QuizID)
	return attempt, nil
}

// CompleteAttempt transitions the submission out of in-progress exactly once
// and pushes the board so the finished run shows up immediately.
func (s *SubmissionService) CompleteAttempt(ctx context.Context, submissionID int64) (domain.Submission, error) {
	sub, err := s.subs.GetByID(ctx, submissionID)
	if err != nil {
		return domain.Submission{}, err
	}
	if sub.InProgress {
		if err := s.subs.Complete(ctx, submissionID, s.clock()); err != nil {
			return domain.Submission{}, fmt.Errorf("complete submission: %w", err)
		}
		s.boards.Invalidate(ctx, sub.QuizID)
		s.boards.Publish(ctx, sub.QuizID)
	}
	return s.subs.GetByID(ctx, submissionID)
}

// SubmitAnswers runs a whole attempt session in one call: start (or resume)
// the submission, record every answer, then complete it.
func (s *SubmissionService) SubmitAnswers(ctx context.Context, quizID int64, userID, username string, answers []domain.AnswerInput) (domain.Submission, error) {
	sub, err := s.StartAttempt(ctx, quizID, userID, username)
	if err != nil {
		return domain.Submission{}, err
	}
	for _, answer := range answers {
		if _, err := s.RecordAnswer(ctx, sub.ID, answer); err != nil {
			return domain.Submission{}, err
		}
	}
	return s.CompleteAttempt(ctx, sub.ID)
}

// RecomputeScore derives the submission's total from the full ledger and
// persists it only when it changed. The ledger is the source of truth; the
// stored score is a cached projection, so this is safe to call any number of
// times and always converges to the same total.
func (s *SubmissionService) RecomputeScore(ctx context.Context, submissionID int64) (int, error) {
	sub, err := s.subs.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, domain.ErrSubmissionNotFound) {
			return 0, nil
		}
		return 0, err
	}

	attempts, err := s.ledger.ListBySubmission(ctx, submissionID)
	if err != nil {
		return 0, fmt.Errorf("load ledger: %w", err)
	}

	quiz, err := s.quizzes.GetQuiz(ctx, sub.QuizID)
	if err != nil {
		return 0, err
	}
	policy, err := domain.PolicyFor(quiz.ScoringPolicy)
	if err != nil {
		return 0, fmt.Errorf("quiz %d: %w", quiz.ID, err)
	}

	domain.SortAttempts(attempts)
	total := 0
	for start := 0; start < len(attempts); {
		end := start
		for end < len(attempts) && attempts[end].QuestionID == attempts[start].QuestionID {
			end++
		}
		total += policy(attempts[start:end])
		start = end
	}

	if total != sub.Score {
		if err := s.subs.UpdateScore(ctx, submissionID, total); err != nil {
			return 0, fmt.Errorf("persist score: %w", err)
		}
		s.metrics.ScoreWritten(sub.QuizID, total)
	}
	return total, nil
}
