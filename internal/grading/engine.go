package grading

import (
	"time"

	"github.com/ahrav/physgrade/internal/domain"
	"github.com/ahrav/physgrade/internal/normalize"
	"github.com/ahrav/physgrade/internal/ports"
)

// CoercionPolicy decides how two answers of different categories are
// compared. It returns the category to compare under, or false to report
// a category mismatch. The engine never coerces on its own.
type CoercionPolicy func(candidate, groundTruth domain.Category) (domain.Category, bool)

// NumericCoercion compares NUMBER and PHYSICAL_QUANTITY answers with each
// other under the ground truth's category. Units still follow the unit rule.
func NumericCoercion(candidate, groundTruth domain.Category) (domain.Category, bool) {
	if candidate == groundTruth {
		return groundTruth, true
	}
	if candidate.IsNumeric() && groundTruth.IsNumeric() {
		return groundTruth, true
	}
	return "", false
}

// Engine classifies, normalizes and compares answers. It is immutable after
// construction and safe for concurrent use.
type Engine struct {
	cfg      Config
	norm     *normalize.Normalizer
	coercion CoercionPolicy
	metrics  ports.MetricsCollector
}

// Option configures an Engine.
type Option func(*Engine)

// WithTables replaces the default lookup tables.
func WithTables(t normalize.Tables) Option {
	return func(e *Engine) { e.norm = normalize.New(t) }
}

// WithCoercion installs a cross-category policy.
func WithCoercion(p CoercionPolicy) Option {
	return func(e *Engine) { e.coercion = p }
}

// WithMetrics records every comparison on m.
func WithMetrics(m ports.MetricsCollector) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine validates cfg and builds an Engine.
func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{cfg: cfg, norm: normalize.Default()}
	for _, opt := range opts {
		opt(e)
	}
	if e.coercion == nil && cfg.CoerceNumeric {
		e.coercion = NumericCoercion
	}
	return e, nil
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// Normalizer returns the normalizer the engine compares with.
func (e *Engine) Normalizer() *normalize.Normalizer { return e.norm }

func (e *Engine) observe(res domain.ComparisonResult, start time.Time) {
	if e.metrics == nil {
		return
	}
	outcome := ports.OutcomeNotEqual
	if res.Equal {
		outcome = ports.OutcomeEqual
	}
	category := string(res.Category)
	e.metrics.RecordCounter(ports.MetricComparisons, 1, map[string]string{
		ports.LabelCategory: category,
		ports.LabelOutcome:  outcome,
		ports.LabelReason:   string(res.Reason),
	})
	e.metrics.RecordLatency(ports.OperationCompare, time.Since(start), map[string]string{
		ports.LabelCategory: category,
	})
}
