package units

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/physgrade/internal/domain"
	"github.com/ahrav/physgrade/internal/grading"
	"github.com/ahrav/physgrade/internal/ports"
)

var _ ports.Unit = (*AnswerMatchUnit)(nil)

// AnswerMatchUnit grades every candidate in the state against the ground
// truth using the category-aware equivalence rules of a grading.Engine.
// Each candidate receives a binary score: 1.0 when the engine judges it
// equal, 0.0 otherwise.
//
// The category is resolved in order from the unit configuration, the
// domain.KeyCategory state entry, and finally by classifying the ground
// truth text.
//
// Concurrency: AnswerMatchUnit holds no mutable state after construction
// and is safe for concurrent Execute calls.
type AnswerMatchUnit struct {
	name   string
	config AnswerMatchConfig
	engine *grading.Engine
	tracer trace.Tracer
}

// AnswerMatchConfig controls how the unit resolves categories and tolerance.
type AnswerMatchConfig struct {
	// Category forces a comparison category. Empty means resolve it from
	// state or by classification.
	Category string `yaml:"category" json:"category" validate:"omitempty,oneof=number physical_quantity formula equation text option"`

	// Epsilon overrides the engine tolerance for numeric categories.
	// Zero keeps the engine's configured epsilon.
	Epsilon float64 `yaml:"epsilon" json:"epsilon" validate:"gte=0"`
}

// DefaultAnswerMatchConfig returns a config that defers category and
// tolerance to the state and engine.
func DefaultAnswerMatchConfig() AnswerMatchConfig {
	return AnswerMatchConfig{}
}

// NewAnswerMatchUnit creates an AnswerMatchUnit bound to engine.
// Returns ErrEmptyUnitName if name is empty and ErrNilEngine if engine is nil.
func NewAnswerMatchUnit(name string, config AnswerMatchConfig, engine *grading.Engine) (*AnswerMatchUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if engine == nil {
		return nil, ErrNilEngine
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &AnswerMatchUnit{
		name:   name,
		config: config,
		engine: engine,
		tracer: otel.Tracer("answer-match-unit"),
	}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *AnswerMatchUnit) Name() string { return u.name }

// Execute compares each candidate with the ground truth.
//
// State requirements:
//   - domain.KeyCandidates: []domain.Candidate, non-empty
//   - domain.KeyGroundTruth: string
//   - domain.KeyCategory: optional declared category
//
// The returned state carries domain.KeyComparisons, domain.KeyJudgeScores
// (one entry per candidate, in order) and the resolved domain.KeyCategory.
// A candidate that fails its category validator is scored 0 with reason
// invalid_answer rather than failing the whole run. An invalid ground truth
// is an error.
func (u *AnswerMatchUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	_, span := u.tracer.Start(ctx, "AnswerMatchUnit.Execute",
		trace.WithAttributes(
			attribute.String("unit.type", "answer_match"),
			attribute.String("unit.id", u.name),
		),
	)
	defer span.End()

	start := time.Now()

	candidates, ok := domain.Get(state, domain.KeyCandidates)
	if !ok {
		err := fmt.Errorf("candidates not found in state")
		span.RecordError(err)
		return state, err
	}
	if len(candidates) == 0 {
		err := fmt.Errorf("no candidates provided for grading")
		span.RecordError(err)
		return state, err
	}
	if len(candidates) > MaxCandidates {
		err := fmt.Errorf("too many candidates: %d exceeds limit of %d", len(candidates), MaxCandidates)
		span.RecordError(err)
		return state, err
	}

	groundTruth, ok := domain.Get(state, domain.KeyGroundTruth)
	if !ok || strings.TrimSpace(groundTruth) == "" {
		err := fmt.Errorf("ground_truth required for grading")
		span.RecordError(err)
		return state, err
	}
	if len(groundTruth) > MaxStringLength {
		err := fmt.Errorf("ground truth too long: %d bytes exceeds limit of %d", len(groundTruth), MaxStringLength)
		span.RecordError(err)
		return state, err
	}

	category, err := u.resolveCategory(state, groundTruth)
	if err != nil {
		span.RecordError(err)
		return state, err
	}
	span.SetAttributes(attribute.String("grading.category", category.String()))

	gt, err := domain.NewAnswer(groundTruth, category)
	if err != nil {
		err = fmt.Errorf("ground truth: %w", err)
		span.RecordError(err)
		return state, err
	}

	comparisons := make([]domain.ComparisonResult, len(candidates))
	summaries := make([]domain.JudgeSummary, len(candidates))
	correct := 0

	for i, c := range candidates {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			return state, err
		}
		if len(c.Content) > MaxStringLength {
			err := fmt.Errorf("candidate %d too long: %d bytes exceeds limit of %d", i, len(c.Content), MaxStringLength)
			span.RecordError(err)
			return state, err
		}

		res := u.compare(c.Content, gt)
		comparisons[i] = res
		summaries[i] = domain.JudgeSummary{
			Score:      res.Score(),
			Confidence: 1.0,
			Reasoning:  reasoning(res),
		}
		if res.Equal {
			correct++
		}
	}

	span.SetAttributes(
		attribute.Float64("eval.score", float64(correct)/float64(len(candidates))),
		attribute.Int64("eval.latency_ms", time.Since(start).Milliseconds()),
		attribute.Int("eval.candidates_count", len(candidates)),
	)

	state = domain.With(state, domain.KeyComparisons, comparisons)
	state = domain.With(state, domain.KeyJudgeScores, summaries)
	return domain.With(state, domain.KeyCategory, category), nil
}

func (u *AnswerMatchUnit) compare(candidate string, gt domain.Answer) domain.ComparisonResult {
	return u.engine.CompareCandidate(candidate, gt, u.config.Epsilon)
}

func (u *AnswerMatchUnit) resolveCategory(state domain.State, groundTruth string) (domain.Category, error) {
	if u.config.Category != "" {
		return domain.ParseCategory(u.config.Category)
	}
	if c, ok := domain.Get(state, domain.KeyCategory); ok {
		if !c.IsValid() {
			return "", fmt.Errorf("%w: %q", domain.ErrInvalidCategory, c)
		}
		return c, nil
	}
	return u.engine.Classify(groundTruth), nil
}

func reasoning(res domain.ComparisonResult) string {
	if res.Equal {
		return fmt.Sprintf("equal under %s rule", res.Category)
	}
	return fmt.Sprintf("not equal: %s", res.Reason)
}

// Validate verifies the unit configuration.
func (u *AnswerMatchUnit) Validate() error {
	if err := validate.Struct(u.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// UnmarshalParameters replaces the unit config from a YAML node. Unknown
// keys are rejected. The config is left unchanged on error.
func (u *AnswerMatchUnit) UnmarshalParameters(params yaml.Node) error {
	var config AnswerMatchConfig
	if err := decodeStrict(params, &config); err != nil {
		return err
	}
	u.config = config
	return nil
}

// NewAnswerMatchFromConfig builds an AnswerMatchUnit from a generic config
// map, overlaying it on DefaultAnswerMatchConfig.
func NewAnswerMatchFromConfig(id string, config map[string]any, engine *grading.Engine) (ports.Unit, error) {
	cfg := DefaultAnswerMatchConfig()
	if err := decodeMap(config, &cfg); err != nil {
		return nil, err
	}
	unit, err := NewAnswerMatchUnit(id, cfg, engine)
	if err != nil {
		return nil, err
	}
	return unit, nil
}
