package memory

import (
	"context"

	"quizzy-service/internal/domain"
)

// StaticQuizReader serves quiz configuration from an in-memory map (useful
// for tests/demos; swap with the Postgres reader in production).
type StaticQuizReader struct {
	quizzes map[int64]domain.Quiz
}

func NewStaticQuizReader(quizzes map[int64]domain.Quiz) *StaticQuizReader {
	return &StaticQuizReader{quizzes: quizzes}
}

func (r *StaticQuizReader) GetQuiz(_ context.Context, quizID int64) (domain.Quiz, error) {
	if quiz, ok := r.quizzes[quizID]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}
