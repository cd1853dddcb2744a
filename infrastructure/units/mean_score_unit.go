package units

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/physgrade/internal/domain"
	"github.com/ahrav/physgrade/internal/ports"
)

var _ ports.Unit = (*MeanScoreUnit)(nil)

// MeanScoreUnit folds per-candidate judge scores into a domain.Verdict.
// Accuracy is the arithmetic mean of the scores; the first candidate with a
// score of 1.0 is reported as FirstCorrect. When comparison results are
// present in state the verdict also carries per-category counts.
//
// Scores are validated for NaN and Inf before aggregation.
type MeanScoreUnit struct {
	name   string
	config MeanScoreConfig
	tracer trace.Tracer
}

// MeanScoreConfig controls aggregation quality gates.
type MeanScoreConfig struct {
	// MinAccuracy is the lowest acceptable accuracy (0.0-1.0). A batch below
	// it fails with ErrBelowMinAccuracy. Zero disables the check.
	MinAccuracy float64 `yaml:"min_accuracy" json:"min_accuracy" validate:"min=0.0,max=1.0"`

	// RequireAllScores fails the run when the number of judge scores differs
	// from the number of candidates. Otherwise only paired entries count.
	RequireAllScores bool `yaml:"require_all_scores" json:"require_all_scores"`
}

// DefaultMeanScoreConfig returns a config with no accuracy floor and strict
// score pairing.
func DefaultMeanScoreConfig() MeanScoreConfig {
	return MeanScoreConfig{
		MinAccuracy:      0.0,
		RequireAllScores: true,
	}
}

// NewMeanScoreUnit creates a MeanScoreUnit with validated configuration.
func NewMeanScoreUnit(name string, config MeanScoreConfig) (*MeanScoreUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &MeanScoreUnit{
		name:   name,
		config: config,
		tracer: otel.Tracer("mean-score-unit"),
	}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *MeanScoreUnit) Name() string { return u.name }

// Execute builds a verdict from domain.KeyCandidates and
// domain.KeyJudgeScores and stores it under domain.KeyVerdict.
func (u *MeanScoreUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	_, span := u.tracer.Start(ctx, "MeanScoreUnit.Execute",
		trace.WithAttributes(
			attribute.String("unit.type", "mean_score"),
			attribute.String("unit.id", u.name),
		),
	)
	defer span.End()

	candidates, ok := domain.Get(state, domain.KeyCandidates)
	if !ok {
		err := fmt.Errorf("candidates not found in state")
		span.RecordError(err)
		return state, err
	}
	if len(candidates) == 0 {
		err := fmt.Errorf("no candidates to aggregate")
		span.RecordError(err)
		return state, err
	}

	summaries, ok := domain.Get(state, domain.KeyJudgeScores)
	if !ok {
		err := fmt.Errorf("judge scores not found in state")
		span.RecordError(err)
		return state, err
	}

	n := len(candidates)
	if len(summaries) != n {
		if u.config.RequireAllScores {
			err := fmt.Errorf("%w: candidates (%d) and judge scores (%d)", ErrScoreMismatch, n, len(summaries))
			span.RecordError(err)
			return state, err
		}
		n = min(n, len(summaries))
	}

	scores := make([]float64, n)
	for i := range n {
		scores[i] = summaries[i].Score
	}

	first, accuracy, err := u.Aggregate(scores, candidates[:n])
	if err != nil {
		err = fmt.Errorf("aggregation failed: %w", err)
		span.RecordError(err)
		return state, err
	}

	verdict := &domain.Verdict{
		ID:           uuid.NewString(),
		FirstCorrect: first,
		Accuracy:     accuracy,
		Graded:       n,
		Timestamp:    time.Now().UTC(),
	}
	if comparisons, ok := domain.Get(state, domain.KeyComparisons); ok {
		verdict.ByCategory = categoryStats(comparisons, n)
	}

	span.SetAttributes(
		attribute.Float64("eval.accuracy", accuracy),
		attribute.Int("eval.graded", n),
	)

	return domain.With(state, domain.KeyVerdict, verdict), nil
}

// Aggregate returns the first candidate scoring 1.0 (nil if none) and the
// mean score. It fails on empty input, mismatched lengths, NaN or Inf
// scores, and an accuracy below MinAccuracy.
func (u *MeanScoreUnit) Aggregate(scores []float64, candidates []domain.Candidate) (*domain.Candidate, float64, error) {
	if len(scores) == 0 {
		return nil, 0, ErrNoScores
	}
	if len(scores) != len(candidates) {
		return nil, 0, ErrScoreMismatch
	}

	var (
		sum   float64
		first *domain.Candidate
	)
	for i, s := range scores {
		if math.IsNaN(s) {
			return nil, 0, fmt.Errorf("invalid score at index %d: NaN", i)
		}
		if math.IsInf(s, 0) {
			return nil, 0, fmt.Errorf("invalid score at index %d: Inf", i)
		}
		sum += s
		if first == nil && s >= 1.0 {
			c := candidates[i]
			first = &c
		}
	}

	mean := sum / float64(len(scores))
	if mean < u.config.MinAccuracy {
		return nil, 0, fmt.Errorf("%w: %.4f < %.4f", ErrBelowMinAccuracy, mean, u.config.MinAccuracy)
	}
	return first, mean, nil
}

func categoryStats(comparisons []domain.ComparisonResult, n int) map[domain.Category]domain.CategoryStats {
	stats := make(map[domain.Category]domain.CategoryStats)
	for _, c := range comparisons[:min(n, len(comparisons))] {
		s := stats[c.Category]
		s.Total++
		if c.Equal {
			s.Correct++
		}
		stats[c.Category] = s
	}
	return stats
}

// Validate verifies the unit configuration.
func (u *MeanScoreUnit) Validate() error {
	if err := validate.Struct(u.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters replaces the unit config from a YAML node.
func (u *MeanScoreUnit) UnmarshalParameters(params yaml.Node) error {
	var config MeanScoreConfig
	if err := decodeStrict(params, &config); err != nil {
		return err
	}
	u.config = config
	return nil
}

// NewMeanScoreFromConfig builds a MeanScoreUnit from a generic config map.
func NewMeanScoreFromConfig(id string, config map[string]any) (ports.Unit, error) {
	cfg := DefaultMeanScoreConfig()
	if err := decodeMap(config, &cfg); err != nil {
		return nil, err
	}
	unit, err := NewMeanScoreUnit(id, cfg)
	if err != nil {
		return nil, err
	}
	return unit, nil
}
