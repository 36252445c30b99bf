package app

// MetricsSink receives operational counters. Implementations are injected
// into services; there is no process-wide registry.
type MetricsSink interface {
	SubmissionCreated(quizID int64)
	AttemptRecorded(quizID int64, correct bool)
	ScoreWritten(quizID int64, score int)
}

// NopMetrics discards all counters.
type NopMetrics struct{}

func (NopMetrics) SubmissionCreated(int64)     {}
func (NopMetrics) AttemptRecorded(int64, bool) {}
func (NopMetrics) ScoreWritten(int64, int)     {}
