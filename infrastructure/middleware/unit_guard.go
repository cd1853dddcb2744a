package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahrav/physgrade/internal/application"
	"github.com/ahrav/physgrade/internal/domain"
	"github.com/ahrav/physgrade/internal/ports"
)

var _ ports.Unit = (*UnitGuard)(nil)

// ErrLimitExceeded is the sentinel wrapped by every LimitExceededError.
var ErrLimitExceeded = errors.New("input limit exceeded")

// Limits bounds the input a guarded unit will accept.
type Limits struct {
	// MaxCandidates caps the number of candidates in state. Zero means unlimited.
	MaxCandidates int

	// MaxAnswerBytes caps the length of the ground truth and of each
	// candidate. Zero means unlimited.
	MaxAnswerBytes int
}

// LimitExceededError reports which limit a state violated.
type LimitExceededError struct {
	Limit string
	Max   int
	Got   int
	Unit  string
}

// Error implements the error interface.
func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("unit %s: %s limit exceeded: %d > %d", e.Unit, e.Limit, e.Got, e.Max)
}

// Unwrap lets errors.Is match ErrLimitExceeded.
func (e *LimitExceededError) Unwrap() error { return ErrLimitExceeded }

// UnitObserver receives hooks around a guarded unit's execution.
// PreExecute may return a derived context (for example one carrying a span)
// which is passed to the unit and to PostExecute.
type UnitObserver interface {
	PreExecute(ctx context.Context, unit string, state domain.State) context.Context
	PostExecute(ctx context.Context, unit string, state domain.State, elapsed time.Duration, err error)
}

// UnitGuard rejects oversized input before it reaches the wrapped unit and
// reports every execution to an optional observer. It holds no mutable
// state and is safe for concurrent use.
type UnitGuard struct {
	limits   Limits
	next     ports.Unit
	observer UnitObserver
}

// NewUnitGuard wraps next. observer may be nil.
func NewUnitGuard(limits Limits, next ports.Unit, observer UnitObserver) *UnitGuard {
	if next == nil {
		panic("unit guard: next unit is required")
	}
	return &UnitGuard{limits: limits, next: next, observer: observer}
}

// Name returns the wrapped unit's name so pipeline ids stay stable.
func (g *UnitGuard) Name() string { return g.next.Name() }

// Execute checks limits, then runs the wrapped unit.
func (g *UnitGuard) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	if g.observer != nil {
		ctx = g.observer.PreExecute(ctx, g.next.Name(), state)
	}

	start := time.Now()
	newState, err := g.run(ctx, state)
	if g.observer != nil {
		g.observer.PostExecute(ctx, g.next.Name(), newState, time.Since(start), err)
	}
	return newState, err
}

func (g *UnitGuard) run(ctx context.Context, state domain.State) (domain.State, error) {
	if err := g.checkLimits(state); err != nil {
		return state, err
	}
	return g.next.Execute(ctx, state)
}

func (g *UnitGuard) checkLimits(state domain.State) error {
	candidates, _ := domain.Get(state, domain.KeyCandidates)
	if g.limits.MaxCandidates > 0 && len(candidates) > g.limits.MaxCandidates {
		return &LimitExceededError{Limit: "candidates", Max: g.limits.MaxCandidates, Got: len(candidates), Unit: g.next.Name()}
	}

	if g.limits.MaxAnswerBytes <= 0 {
		return nil
	}
	if gt, ok := domain.Get(state, domain.KeyGroundTruth); ok && len(gt) > g.limits.MaxAnswerBytes {
		return &LimitExceededError{Limit: "answer_bytes", Max: g.limits.MaxAnswerBytes, Got: len(gt), Unit: g.next.Name()}
	}
	for _, c := range candidates {
		if len(c.Content) > g.limits.MaxAnswerBytes {
			return &LimitExceededError{Limit: "answer_bytes", Max: g.limits.MaxAnswerBytes, Got: len(c.Content), Unit: g.next.Name()}
		}
	}
	return nil
}

// Validate checks the limits and delegates to the wrapped unit.
func (g *UnitGuard) Validate() error {
	if g.next == nil {
		return fmt.Errorf("unit guard: next unit is required")
	}
	if g.limits.MaxCandidates < 0 {
		return fmt.Errorf("unit guard: max_candidates cannot be negative, got %d", g.limits.MaxCandidates)
	}
	if g.limits.MaxAnswerBytes < 0 {
		return fmt.Errorf("unit guard: max_answer_bytes cannot be negative, got %d", g.limits.MaxAnswerBytes)
	}
	return g.next.Validate()
}

// LimitsFromConfig converts the application limits section.
func LimitsFromConfig(config application.LimitsConfig) Limits {
	return Limits{
		MaxCandidates:  config.MaxCandidates,
		MaxAnswerBytes: config.MaxAnswerBytes,
	}
}

// Guard returns a wrapper suitable for application.BuildPipeline that
// guards every unit with the same limits and observer.
func Guard(limits Limits, observer UnitObserver) func(ports.Unit) ports.Unit {
	return func(u ports.Unit) ports.Unit {
		return NewUnitGuard(limits, u, observer)
	}
}
