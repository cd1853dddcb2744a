package domain

import (
	"time"
)

// Candidate is a single graded submission inside a pipeline State.
type Candidate struct {
	// ID uniquely identifies this candidate within a grading run.
	ID string `json:"id"`

	// Content is the raw answer text as produced by the model or student.
	Content string `json:"content"`
}

// JudgeSummary records one grading decision. Deterministic grading always
// reports a confidence of 1.0.
type JudgeSummary struct {
	// Reasoning explains why the score was assigned.
	Reasoning string `json:"reasoning"`

	// Confidence indicates how certain the judge is (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	// Score is 1.0 for a correct answer and 0.0 otherwise.
	Score float64 `json:"score"`
}

// CategoryStats counts outcomes for one answer category.
type CategoryStats struct {
	Total   int `json:"total"`
	Correct int `json:"correct"`
}

// Accuracy returns Correct/Total, or 0 for an empty bucket.
func (s CategoryStats) Accuracy() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Total)
}

// Verdict represents the final outcome of a grading pipeline.
type Verdict struct {
	// ID uniquely identifies this verdict.
	ID string `json:"id"`

	// FirstCorrect is the first candidate judged equal to the ground truth.
	// It is nil when no candidate was correct.
	FirstCorrect *Candidate `json:"first_correct,omitempty"`

	// Accuracy is the mean score across graded candidates.
	Accuracy float64 `json:"accuracy"`

	// Graded is the number of candidates that contributed to Accuracy.
	Graded int `json:"graded"`

	// ByCategory breaks the outcome down per answer category.
	ByCategory map[Category]CategoryStats `json:"by_category,omitempty"`

	// Timestamp records when this verdict was created.
	Timestamp time.Time `json:"timestamp"`
}
