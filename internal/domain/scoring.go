package domain

import (
	"fmt"
	"sort"
)

// PolicyFunc maps one question's attempts, in canonical order, to a point
// value for that question within a single submission.
type PolicyFunc func(attempts []QuestionAttempt) int

// PolicyFor resolves a quiz's scoring policy. Unknown values are a
// configuration error and fail fast.
func PolicyFor(policy ScoringPolicy) (PolicyFunc, error) {
	switch policy {
	case PolicyBest:
		return bestAttempt, nil
	case PolicyFirst:
		return firstAttempt, nil
	case PolicyLast:
		return lastAttempt, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScoringPolicy, policy)
	}
}

func bestAttempt(attempts []QuestionAttempt) int {
	for _, a := range attempts {
		if a.IsCorrect {
			return 1
		}
	}
	return 0
}

func firstAttempt(attempts []QuestionAttempt) int {
	if len(attempts) == 0 {
		return 0
	}
	if attempts[0].IsCorrect {
		return 1
	}
	return 0
}

func lastAttempt(attempts []QuestionAttempt) int {
	if len(attempts) == 0 {
		return 0
	}
	if attempts[len(attempts)-1].IsCorrect {
		return 1
	}
	return 0
}

// SortAttempts orders ledger entries canonically:
// (QuestionID, AttemptNumber, AttemptedAt, ID) ascending. The insertion ID
// keeps the order deterministic when timestamps collide.
func SortAttempts(attempts []QuestionAttempt) {
	sort.Slice(attempts, func(i, j int) bool {
		a, b := attempts[i], attempts[j]
		if a.QuestionID != b.QuestionID {
			return a.QuestionID < b.QuestionID
		}
		if a.AttemptNumber != b.AttemptNumber {
			return a.AttemptNumber < b.AttemptNumber
		}
		if !a.AttemptedAt.Equal(b.AttemptedAt) {
			return a.AttemptedAt.Before(b.AttemptedAt)
		}
		return a.ID < b.ID
	})
}
