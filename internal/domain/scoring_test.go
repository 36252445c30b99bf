package domain

import (
	"errors"
	"testing"
	"time"
)

func attemptSeq(correct ...bool) []QuestionAttempt {
	attempts := make([]QuestionAttempt, 0, len(correct))
	for i, c := range correct {
		attempts = append(attempts, QuestionAttempt{
			ID:            int64(i + 1),
			QuestionID:    1,
			AttemptNumber: i + 1,
			IsCorrect:     c,
		})
	}
	return attempts
}

func TestBestPolicy(t *testing.T) {
	policy, err := PolicyFor(PolicyBest)
	if err != nil {
		t.Fatalf("resolve best: %v", err)
	}
	if got := policy(attemptSeq(false, true)); got != 1 {
		t.Fatalf("best [wrong, right] = %d, want 1", got)
	}
	if got := policy(attemptSeq(false, false)); got != 0 {
		t.Fatalf("best [wrong, wrong] = %d, want 0", got)
	}
	if got := policy(nil); got != 0 {
		t.Fatalf("best [] = %d, want 0", got)
	}
}

func TestFirstPolicy(t *testing.T) {
	policy, err := PolicyFor(PolicyFirst)
	if err != nil {
		t.Fatalf("resolve first: %v", err)
	}
	if got := policy(attemptSeq(true, false)); got != 1 {
		t.Fatalf("first [right, wrong] = %d, want 1", got)
	}
	if got := policy(attemptSeq(false, true)); got != 0 {
		t.Fatalf("first [wrong, right] = %d, want 0", got)
	}
	if got := policy(nil); got != 0 {
		t.Fatalf("first [] = %d, want 0", got)
	}
}

func TestLastPolicy(t *testing.T) {
	policy, err := PolicyFor(PolicyLast)
	if err != nil {
		t.Fatalf("resolve last: %v", err)
	}
	if got := policy(attemptSeq(true, false)); got != 0 {
		t.Fatalf("last [right, wrong] = %d, want 0", got)
	}
	if got := policy(attemptSeq(false, true)); got != 1 {
		t.Fatalf("last [wrong, right] = %d, want 1", got)
	}
	if got := policy(nil); got != 0 {
		t.Fatalf("last [] = %d, want 0", got)
	}
}

func TestUnknownPolicyFailsFast(t *testing.T) {
	if _, err := PolicyFor(ScoringPolicy("median")); !errors.Is(err, ErrUnknownScoringPolicy) {
		t.Fatalf("expected ErrUnknownScoringPolicy, got %v", err)
	}
}

func TestSortAttemptsBreaksTimestampTiesByID(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	attempts := []QuestionAttempt{
		{ID: 7, QuestionID: 2, AttemptNumber: 1, AttemptedAt: at},
		{ID: 5, QuestionID: 1, AttemptNumber: 2, AttemptedAt: at},
		{ID: 4, QuestionID: 1, AttemptNumber: 2, AttemptedAt: at},
		{ID: 3, QuestionID: 1, AttemptNumber: 1, AttemptedAt: at.Add(time.Second)},
	}
	SortAttempts(attempts)

	wantIDs := []int64{3, 4, 5, 7}
	for i, want := range wantIDs {
		if attempts[i].ID != want {
			t.Fatalf("position %d: got id %d, want %d (%+v)", i, attempts[i].ID, want, attempts)
		}
	}
}
