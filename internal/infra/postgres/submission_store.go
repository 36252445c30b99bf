package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"quizzy-service/internal/domain"

	"github.com/uptrace/bun"
)

type submissionRow struct {
	bun.BaseModel `bun:"table:submissions,alias:s"`

	ID            int64     `bun:"id,pk,autoincrement"`
	QuizID        int64     `bun:"quiz_id"`
	UserID        string    `bun:"user_id"`
	Username      string    `bun:"username"`
	AttemptNumber int       `bun:"attempt_number"`
	Score         int       `bun:"score"`
	InProgress    bool      `bun:"in_progress"`
	SubmittedAt   time.Time `bun:"submitted_at"`
}

type attemptRow struct {
	bun.BaseModel `bun:"table:question_attempts,alias:qa"`

	ID               int64     `bun:"id,pk,autoincrement"`
	SubmissionID     int64     `bun:"submission_id"`
	QuestionID       int64     `bun:"question_id"`
	SelectedAnswerID *int64    `bun:"selected_answer_id"`
	IsCorrect        bool      `bun:"is_correct"`
	AttemptNumber    int       `bun:"attempt_number"`
	AttemptedAt      time.Time `bun:"attempted_at"`
}

// SubmissionStore persists submissions and the attempt ledger in Postgres.
// The unique constraint on (quiz_id, user_id, attempt_number) makes the
// get-or-create upsert safe under concurrent duplicate creation.
type SubmissionStore struct {
	db *bun.DB
}

func NewSubmissionStore(db *bun.DB) *SubmissionStore {
	return &SubmissionStore{db: db}
}

func (s *SubmissionStore) GetOrCreate(ctx context.Context, sub domain.Submission) (domain.Submission, error) {
	row := submissionRow{
		QuizID:        sub.QuizID,
		UserID:        sub.UserID,
		Username:      sub.Username,
		AttemptNumber: sub.AttemptNumber,
		Score:         sub.Score,
		InProgress:    sub.InProgress,
		SubmittedAt:   sub.SubmittedAt,
	}
	// A losing racer hits the conflict, inserts nothing, and falls through
	// to fetch the first writer's row.
	if _, err := s.db.NewInsert().
		Model(&row).
		On("CONFLICT (quiz_id, user_id, attempt_number) DO NOTHING").
		Exec(ctx); err != nil {
		return domain.Submission{}, fmt.Errorf("insert submission: %w", err)
	}

	var existing submissionRow
	err := s.db.NewSelect().
		Model(&existing).
		Where("quiz_id = ? AND user_id = ? AND attempt_number = ?", sub.QuizID, sub.UserID, sub.AttemptNumber).
		Scan(ctx)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("fetch submission: %w", err)
	}
	return toSubmission(existing), nil
}

func (s *SubmissionStore) GetByID(ctx context.Context, id int64) (domain.Submission, error) {
	var row submissionRow
	err := s.db.NewSelect().Model(&row).Where("s.id = ?", id).Scan(ctx)
	if err == sql.ErrNoRows {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	if err != nil {
		return domain.Submission{}, fmt.Errorf("load submission: %w", err)
	}
	return toSubmission(row), nil
}

func (s *SubmissionStore) Latest(ctx context.Context, quizID int64, userID string) (domain.Submission, bool, error) {
	var row submissionRow
	err := s.db.NewSelect().
		Model(&row).
		Where("quiz_id = ? AND user_id = ?", quizID, userID).
		OrderExpr("attempt_number DESC").
		Limit(1).
		Scan(ctx)
	if err == sql.ErrNoRows {
		return domain.Submission{}, false, nil
	}
	if err != nil {
		return domain.Submission{}, false, fmt.Errorf("load latest submission: %w", err)
	}
	return toSubmission(row), true, nil
}

func (s *SubmissionStore) CountByUser(ctx context.Context, quizID int64, userID string) (int, error) {
	count, err := s.db.NewSelect().
		Model((*submissionRow)(nil)).
		Where("quiz_id = ? AND user_id = ?", quizID, userID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return count, nil
}

func (s *SubmissionStore) UpdateScore(ctx context.Context, id int64, score int) error {
	_, err := s.db.NewUpdate().
		Model((*submissionRow)(nil)).
		Set("score = ?", score).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update score: %w", err)
	}
	return nil
}

func (s *SubmissionStore) Complete(ctx context.Context, id int64, at time.Time) error {
	// in_progress guards the transition so it happens exactly once.
	_, err := s.db.NewUpdate().
		Model((*submissionRow)(nil)).
		Set("in_progress = FALSE").
		Set("submitted_at = ?", at).
		Where("id = ? AND in_progress", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("complete submission: %w", err)
	}
	return nil
}

func (s *SubmissionStore) CompletedRanked(ctx context.Context, quizID int64, limit int) ([]domain.Submission, error) {
	var rows []submissionRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("quiz_id = ? AND NOT in_progress", quizID).
		OrderExpr("score DESC, submitted_at ASC, id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("rank submissions: %w", err)
	}
	out := make([]domain.Submission, 0, len(rows))
	for _, row := range rows {
		out = append(out, toSubmission(row))
	}
	return out, nil
}

func (s *SubmissionStore) Append(ctx context.Context, attempt domain.QuestionAttempt) (domain.QuestionAttempt, error) {
	row := attemptRow{
		SubmissionID:     attempt.SubmissionID,
		QuestionID:       attempt.QuestionID,
		SelectedAnswerID: attempt.SelectedAnswerID,
		IsCorrect:        attempt.IsCorrect,
		AttemptNumber:    attempt.AttemptNumber,
		AttemptedAt:      attempt.AttemptedAt,
	}
	if _, err := s.db.NewInsert().Model(&row).Returning("id").Exec(ctx); err != nil {
		return domain.QuestionAttempt{}, fmt.Errorf("append attempt: %w", err)
	}
	attempt.ID = row.ID
	return attempt, nil
}

func (s *SubmissionStore) ListBySubmission(ctx context.Context, submissionID int64) ([]domain.QuestionAttempt, error) {
	var rows []attemptRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("submission_id = ?", submissionID).
		OrderExpr("question_id ASC, attempt_number ASC, attempted_at ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load attempts: %w", err)
	}
	out := make([]domain.QuestionAttempt, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.QuestionAttempt{
			ID:               row.ID,
			SubmissionID:     row.SubmissionID,
			QuestionID:       row.QuestionID,
			SelectedAnswerID: row.SelectedAnswerID,
			IsCorrect:        row.IsCorrect,
			AttemptNumber:    row.AttemptNumber,
			AttemptedAt:      row.AttemptedAt,
		})
	}
	return out, nil
}

func (s *SubmissionStore) CountForQuestion(ctx context.Context, submissionID, questionID int64) (int, error) {
	count, err := s.db.NewSelect().
		Model((*attemptRow)(nil)).
		Where("submission_id = ? AND question_id = ?", submissionID, questionID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return count, nil
}

func toSubmission(row submissionRow) domain.Submission {
	return domain.Submission{
		ID:            row.ID,
		QuizID:        row.QuizID,
		UserID:        row.UserID,
		Username:      row.Username,
		AttemptNumber: row.AttemptNumber,
		Score:         row.Score,
		InProgress:    row.InProgress,
		SubmittedAt:   row.SubmittedAt,
	}
}
