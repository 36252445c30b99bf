package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"quizzy-service/internal/domain"
)

// SubmissionStore is an in-memory implementation of the submission store,
// attempt ledger, and ranking store (useful for tests/demos). One mutex
// guards both tables, so the get-or-create upsert is atomic on the
// (quiz, user, attempt) triple.
type SubmissionStore struct {
	mu       sync.RWMutex
	nextSub  int64
	nextAtt  int64
	subs     map[int64]domain.Submission
	byTriple map[tripleKey]int64
	attempts []domain.QuestionAttempt
}

type tripleKey struct {
	quizID  int64
	userID  string
	attempt int
}

func NewSubmissionStore() *SubmissionStore {
	return &SubmissionStore{
		subs:     make(map[int64]domain.Submission),
		byTriple: make(map[tripleKey]int64),
	}
}

func (s *SubmissionStore) GetOrCreate(_ context.Context, sub domain.Submission) (domain.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tripleKey{sub.QuizID, sub.UserID, sub.AttemptNumber}
	if id, ok := s.byTriple[key]; ok {
		return s.subs[id], nil
	}
	s.nextSub++
	sub.ID = s.nextSub
	s.subs[sub.ID] = sub
	s.byTriple[key] = sub.ID
	return sub, nil
}

func (s *SubmissionStore) GetByID(_ context.Context, id int64) (domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subs[id]
	if !ok {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	return sub, nil
}

func (s *SubmissionStore) Latest(_ context.Context, quizID int64, userID string) (domain.Submission, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest domain.Submission
	found := false
	for _, sub := range s.subs {
		if sub.QuizID != quizID || sub.UserID != userID {
			continue
		}
		if !found || sub.AttemptNumber > latest.AttemptNumber {
			latest = sub
			found = true
		}
	}
	return latest, found, nil
}

func (s *SubmissionStore) CountByUser(_ context.Context, quizID int64, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, sub := range s.subs {
		if sub.QuizID == quizID && sub.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (s *SubmissionStore) UpdateScore(_ context.Context, id int64, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[id]
	if !ok {
		return domain.ErrSubmissionNotFound
	}
	sub.Score = score
	s.subs[id] = sub
	return nil
}

func (s *SubmissionStore) Complete(_ context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[id]
	if !ok {
		return domain.ErrSubmissionNotFound
	}
	if sub.InProgress {
		sub.InProgress = false
		sub.SubmittedAt = at
		s.subs[id] = sub
	}
	return nil
}

func (s *SubmissionStore) CompletedRanked(_ context.Context, quizID int64, limit int) ([]domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ranked := make([]domain.Submission, 0)
	for _, sub := range s.subs {
		if sub.QuizID == quizID && !sub.InProgress {
			ranked = append(ranked, sub)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if !ranked[i].SubmittedAt.Equal(ranked[j].SubmittedAt) {
			return ranked[i].SubmittedAt.Before(ranked[j].SubmittedAt)
		}
		return ranked[i].ID < ranked[j].ID
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func (s *SubmissionStore) Append(_ context.Context, attempt domain.QuestionAttempt) (domain.QuestionAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[attempt.SubmissionID]; !ok {
		return domain.QuestionAttempt{}, domain.ErrSubmissionNotFound
	}
	s.nextAtt++
	attempt.ID = s.nextAtt
	s.attempts = append(s.attempts, attempt)
	return attempt, nil
}

func (s *SubmissionStore) ListBySubmission(_ context.Context, submissionID int64) ([]domain.QuestionAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.QuestionAttempt, 0)
	for _, attempt := range s.attempts {
		if attempt.SubmissionID == submissionID {
			out = append(out, attempt)
		}
	}
	domain.SortAttempts(out)
	return out, nil
}

func (s *SubmissionStore) CountForQuestion(_ context.Context, submissionID, questionID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, attempt := range s.attempts {
		if attempt.SubmissionID == submissionID && attempt.QuestionID == questionID {
			count++
		}
	}
	return count, nil
}
