package grading

import (
	"github.com/ahrav/physgrade/internal/domain"
)

var defaultEngine = mustEngine(DefaultConfig())

func mustEngine(cfg Config, opts ...Option) *Engine {
	e, err := NewEngine(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return e
}

// Default returns the engine behind the package-level functions.
func Default() *Engine { return defaultEngine }

// ClassifyExpression assigns text to one of the six answer categories.
func ClassifyExpression(text string) domain.Category {
	return defaultEngine.Classify(text)
}

// NormalizeAnswer derives the canonical form of answer.
func NormalizeAnswer(answer domain.Answer) domain.NormalizedForm {
	return defaultEngine.Normalize(answer)
}

// CompareAnswers compares candidate with groundTruth under the default
// policy. A non-positive epsilon selects DefaultEpsilon.
func CompareAnswers(candidate, groundTruth domain.Answer, epsilon float64) domain.ComparisonResult {
	return defaultEngine.CompareWithEpsilon(candidate, groundTruth, epsilon)
}

// CompareNumbers applies the absolute decimal-place tolerance rule.
func CompareNumbers(candidate, groundTruth, epsilon float64) bool {
	return defaultEngine.CompareNumbers(candidate, groundTruth, epsilon)
}
