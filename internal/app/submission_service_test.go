package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizzy-service/internal/app"
	"quizzy-service/internal/domain"
	"quizzy-service/internal/infra/memory"
)

type fixture struct {
	service *app.SubmissionService
	store   *countingStore
	boards  *recordingBoards
}

type countingStore struct {
	*memory.SubmissionStore
	scoreWrites int
}

func (s *countingStore) UpdateScore(ctx context.Context, id int64, score int) error {
	s.scoreWrites++
	return s.SubmissionStore.UpdateScore(ctx, id, score)
}

type recordingBoards struct {
	invalidations map[int64]int
	publishes     map[int64]int
}

func newRecordingBoards() *recordingBoards {
	return &recordingBoards{invalidations: map[int64]int{}, publishes: map[int64]int{}}
}

func (b *recordingBoards) Invalidate(_ context.Context, quizID int64) { b.invalidations[quizID]++ }
func (b *recordingBoards) Publish(_ context.Context, quizID int64)    { b.publishes[quizID]++ }

func newFixture(quizzes map[int64]domain.Quiz) *fixture {
	store := &countingStore{SubmissionStore: memory.NewSubmissionStore()}
	boards := newRecordingBoards()
	service := app.NewSubmissionService(store, store, memory.NewStaticQuizReader(quizzes), memory.NewAccessList(), boards, nil)
	return &fixture{service: service, store: store, boards: boards}
}

func publicQuiz(id int64, policy domain.ScoringPolicy) domain.Quiz {
	return domain.Quiz{
		ID:            id,
		Title:         "Quiz",
		IsPublished:   true,
		Visibility:    domain.VisibilityPublic,
		ScoringPolicy: policy,
	}
}

func TestRemainingAttemptsSingle(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(map[int64]domain.Quiz{1: publicQuiz(1, domain.PolicyBest)})

	remaining, err := fx.service.RemainingAttempts(ctx, "u1", 1)
	if err != nil {
		t.Fatalf("remaining: %v", err)
	}
	if remaining != 1 {
		t.Fatalf("expected 1 before any submission, got %d", remaining)
	}

	if _, err := fx.service.StartAttempt(ctx, 1, "u1", "Alice"); err != nil {
		t.Fatalf("start: %v", err)
	}
	remaining, _ = fx.service.RemainingAttempts(ctx, "u1", 1)
	if remaining != 0 {
		t.Fatalf("expected 0 after one submission, got %d", remaining)
	}
}

func TestRemainingAttemptsCapped(t *testing.T) {
	ctx := context.Background()
	two := 2
	quiz := publicQuiz(1, domain.PolicyBest)
	quiz.AllowMultipleAttempts = true
	quiz.MaxAttempts = &two
	fx := newFixture(map[int64]domain.Quiz{1: quiz})

	for want := 2; want >= 0; want-- {
		remaining, err := fx.service.RemainingAttempts(ctx, "u1", 1)
		if err != nil {
			t.Fatalf("remaining: %v", err)
		}
		if remaining != want {
			t.Fatalf("expected %d remaining, got %d", want, remaining)
		}
		if want == 0 {
			break
		}
		sub, err := fx.service.StartAttempt(ctx, 1, "u1", "Alice")
		if err != nil {
			t.Fatalf("start: %v", err)
		}
		if _, err := fx.service.CompleteAttempt(ctx, sub.ID); err != nil {
			t.Fatalf("complete: %v", err)
		}
	}
}

func TestRemainingAttemptsUnlimited(t *testing.T) {
	ctx := context.Background()
	quiz := publicQuiz(1, domain.PolicyBest)
	quiz.AllowMultipleAttempts = true
	fx := newFixture(map[int64]domain.Quiz{1: quiz})

	remaining, err := fx.service.RemainingAttempts(ctx, "u1", 1)
	if err != nil {
		t.Fatalf("remaining: %v", err)
	}
	if remaining != domain.UnlimitedAttempts {
		t.Fatalf("expected unlimited sentinel, got %d", remaining)
	}
}

func TestAbandonedAttemptConsumesQuota(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(map[int64]domain.Quiz{1: publicQuiz(1, domain.PolicyBest)})

	// Started but never completed.
	if _, err := fx.service.StartAttempt(ctx, 1, "u1", "Alice"); err != nil {
		t.Fatalf("start: %v", err)
	}
	remaining, _ := fx.service.RemainingAttempts(ctx, "u1", 1)
	if remaining != 0 {
		t.Fatalf("abandoned attempt should consume quota, remaining=%d", remaining)
	}
}

func TestStartAttemptResumesInProgress(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(map[int64]domain.Quiz{1: publicQuiz(1, domain.PolicyBest)})

	first, err := fx.service.StartAttempt(ctx, 1, "u1", "Alice")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	second, err := fx.service.StartAttempt(ctx, 1, "u1", "Alice")
	if err != nil {
		t.Fatalf("start again: %v", err)
	}
	if first.ID != second.ID || second.AttemptNumber != 1 {
		t.Fatalf("expected same in-progress submission, got %+v vs %+v", first, second)
	}
}

func TestStartAttemptRefusedByAccessPolicy(t *testing.T) {
	ctx := context.Background()
	quiz := publicQuiz(1, domain.PolicyBest)
	quiz.Visibility = domain.VisibilityPrivate
	fx := newFixture(map[int64]domain.Quiz{1: quiz})

	if _, err := fx.service.StartAttempt(ctx, 1, "stranger", "Eve"); !errors.Is(err, domain.ErrAttemptNotAllowed) {
		t.Fatalf("expected ErrAttemptNotAllowed, got %v", err)
	}
}

func TestRecordAnswerRejectsCompletedSubmission(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(map[int64]domain.Quiz{1: publicQuiz(1, domain.PolicyBest)})

	sub, err := fx.service.StartAttempt(ctx, 1, "u1", "Alice")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := fx.service.CompleteAttempt(ctx, sub.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	_, err = fx.service.RecordAnswer(ctx, sub.ID, domain.AnswerInput{QuestionID: 1, IsCorrect: true})
	if !errors.Is(err, domain.ErrSubmissionCompleted) {
		t.Fatalf("expected ErrSubmissionCompleted, got %v", err)
	}
}

func TestRecomputeIdempotent(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(map[int64]domain.Quiz{1: publicQuiz(1, domain.PolicyBest)})

	sub, err := fx.service.StartAttempt(ctx, 1, "u1", "Alice")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := fx.service.RecordAnswer(ctx, sub.ID, domain.AnswerInput{QuestionID: 1, IsCorrect: true}); err != nil {
		t.Fatalf("record: %v", err)
	}
	writes := fx.store.scoreWrites
	if writes != 1 {
		t.Fatalf("expected one score write, got %d", writes)
	}

	// Re-running with no new ledger entries converges without writing.
	total, err := fx.service.RecomputeScore(ctx, sub.ID)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected total 1, got %d", total)
	}
	if fx.store.scoreWrites != writes {
		t.Fatalf("expected no extra write, got %d", fx.store.scoreWrites)
	}
}

func TestRecomputeMissingSubmissionIsNoop(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(map[int64]domain.Quiz{1: publicQuiz(1, domain.PolicyBest)})

	total, err := fx.service.RecomputeScore(ctx, 42)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected 0 for missing submission, got %d", total)
	}
}

func TestRecomputeUnknownPolicySurfaces(t *testing.T) {
	ctx := context.Background()
	quiz := publicQuiz(1, domain.ScoringPolicy("weighted"))
	fx := newFixture(map[int64]domain.Quiz{1: quiz})

	sub, err := fx.service.StartAttempt(ctx, 1, "u1", "Alice")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	_, err = fx.service.RecordAnswer(ctx, sub.ID, domain.AnswerInput{QuestionID: 1, IsCorrect: true})
	if !errors.Is(err, domain.ErrUnknownScoringPolicy) {
		t.Fatalf("expected ErrUnknownScoringPolicy, got %v", err)
	}
}

func TestMultiQuestionTotals(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(map[int64]domain.Quiz{1: publicQuiz(1, domain.PolicyFirst)})

	answers := []domain.AnswerInput{
		{QuestionID: 1, IsCorrect: true},
		{QuestionID: 2, IsCorrect: false},
		{QuestionID: 3, IsCorrect: true},
	}
	sub, err := fx.service.SubmitAnswers(ctx, 1, "u1", "Alice", answers)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sub.Score != 2 {
		t.Fatalf("expected total 2 across questions, got %d", sub.Score)
	}
	if sub.InProgress {
		t.Fatalf("expected submission completed")
	}
}

func TestWrongThenCorrectBestPolicyEndToEnd(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(map[int64]domain.Quiz{1: publicQuiz(1, domain.PolicyBest)})

	sub, err := fx.service.StartAttempt(ctx, 1, "u1", "Alice")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := fx.service.RecordAnswer(ctx, sub.ID, domain.AnswerInput{QuestionID: 1, IsCorrect: false}); err != nil {
		t.Fatalf("record wrong: %v", err)
	}
	if _, err := fx.service.RecordAnswer(ctx, sub.ID, domain.AnswerInput{QuestionID: 1, IsCorrect: true}); err != nil {
		t.Fatalf("record correct: %v", err)
	}
	final, err := fx.service.CompleteAttempt(ctx, sub.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	if final.Score != 1 {
		t.Fatalf("expected final score 1, got %d", final.Score)
	}
	if final.InProgress {
		t.Fatalf("expected inProgress false")
	}
	// One eviction per ledger write, plus one for the completion push.
	if got := fx.boards.invalidations[1]; got != 3 {
		t.Fatalf("expected 3 invalidations (2 writes + completion), got %d", got)
	}
	if got := fx.boards.publishes[1]; got != 3 {
		t.Fatalf("expected publish per invalidation, got %d", got)
	}

	// The second ledger entry is a fresh row, not an edit.
	attempts, err := fx.store.ListBySubmission(ctx, sub.ID)
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(attempts) != 2 || attempts[0].AttemptNumber != 1 || attempts[1].AttemptNumber != 2 {
		t.Fatalf("expected two ordered ledger rows, got %+v", attempts)
	}
}

func TestNewAttemptAfterCompletionUsesNextNumber(t *testing.T) {
	ctx := context.Background()
	quiz := publicQuiz(1, domain.PolicyLast)
	quiz.AllowMultipleAttempts = true
	fx := newFixture(map[int64]domain.Quiz{1: quiz})

	first, err := fx.service.SubmitAnswers(ctx, 1, "u1", "Alice", []domain.AnswerInput{{QuestionID: 1, IsCorrect: false}})
	if err != nil {
		t.Fatalf("first attempt: %v", err)
	}
	second, err := fx.service.SubmitAnswers(ctx, 1, "u1", "Alice", []domain.AnswerInput{{QuestionID: 1, IsCorrect: true}})
	if err != nil {
		t.Fatalf("second attempt: %v", err)
	}
	if first.AttemptNumber != 1 || second.AttemptNumber != 2 {
		t.Fatalf("expected attempts 1 then 2, got %d and %d", first.AttemptNumber, second.AttemptNumber)
	}
	if first.Score != 0 || second.Score != 1 {
		t.Fatalf("expected scores 0 then 1, got %d and %d", first.Score, second.Score)
	}
}

func TestRecomputeDeterministicAcrossInsertionOrder(t *testing.T) {
	ctx := context.Background()

	// Same logical ledger recorded in two different wall-clock interleavings
	// must converge to the same total under the first policy.
	run := func(now func() time.Time) int {
		fx := newFixture(map[int64]domain.Quiz{1: publicQuiz(1, domain.PolicyFirst)})
		fx.service.WithClock(now)
		sub, err := fx.service.StartAttempt(ctx, 1, "u1", "Alice")
		if err != nil {
			t.Fatalf("start: %v", err)
		}
		if _, err := fx.service.RecordAnswer(ctx, sub.ID, domain.AnswerInput{QuestionID: 1, IsCorrect: true}); err != nil {
			t.Fatalf("record: %v", err)
		}
		if _, err := fx.service.RecordAnswer(ctx, sub.ID, domain.AnswerInput{QuestionID: 1, IsCorrect: false}); err != nil {
			t.Fatalf("record: %v", err)
		}
		total, err := fx.service.RecomputeScore(ctx, sub.ID)
		if err != nil {
			t.Fatalf("recompute: %v", err)
		}
		return total
	}

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	ticking := func() func() time.Time {
		t0 := base
		return func() time.Time {
			t0 = t0.Add(time.Second)
			return t0
		}
	}
	frozen := func() time.Time { return base }

	if a, b := run(ticking()), run(frozen); a != b || a != 1 {
		t.Fatalf("expected identical totals of 1, got %d and %d", a, b)
	}
}
