package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz configuration could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrSubmissionNotFound is returned by read paths for unknown submissions.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrSubmissionCompleted is returned when an answer arrives for an
	// attempt that has already been completed.
	ErrSubmissionCompleted = errors.New("submission already completed")
	// ErrUnknownScoringPolicy indicates a misconfigured quiz. Scoring must
	// never fall back to a default policy.
	ErrUnknownScoringPolicy = errors.New("unknown scoring policy")
	// ErrAttemptNotAllowed is returned when the access policy refuses a user.
	ErrAttemptNotAllowed = errors.New("attempt not allowed")
)
