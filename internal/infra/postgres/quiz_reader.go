package postgres

import (
	"context"
	"fmt"

	"quizzy-service/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuizReader loads quiz configuration from Postgres.
type QuizReader struct {
	pool *pgxpool.Pool
}

func NewQuizReader(pool *pgxpool.Pool) *QuizReader {
	return &QuizReader{pool: pool}
}

func (r *QuizReader) GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	var (
		quiz      domain.Quiz
		maxSet    bool
		maxVal    int
		policyRaw string
		visRaw    string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, title, creator_id, is_published, visibility,
		       allow_multiple_attempts, max_attempts IS NOT NULL, COALESCE(max_attempts, 0),
		       scoring_policy
		FROM quizzes WHERE id = $1`, quizID).
		Scan(&quiz.ID, &quiz.Title, &quiz.CreatorID, &quiz.IsPublished, &visRaw,
			&quiz.AllowMultipleAttempts, &maxSet, &maxVal, &policyRaw)
	if err == pgx.ErrNoRows {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	if maxSet {
		quiz.MaxAttempts = &maxVal
	}
	quiz.Visibility = domain.Visibility(visRaw)
	quiz.ScoringPolicy = domain.ScoringPolicy(policyRaw)
	return quiz, nil
}
