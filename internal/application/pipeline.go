package application

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/physgrade/internal/domain"
	"github.com/ahrav/physgrade/internal/ports"
)

var (
	_ ports.Executable = (*Pipeline)(nil)
	_ ports.Executable = (*UnitAdapter)(nil)
)

// Pipeline runs executables in order, feeding each one's output state to
// the next. Use it for the grade-then-aggregate flow of a grading run.
type Pipeline struct {
	// id identifies the pipeline in errors, spans and execution contexts.
	id string
	// executables run sequentially in insertion order.
	executables []ports.Executable
	// idSet tracks executable IDs for O(1) duplicate detection.
	idSet  map[string]struct{}
	mu     sync.RWMutex
	tracer trace.Tracer
}

// NewPipeline creates an empty pipeline.
func NewPipeline(id string) *Pipeline {
	return &Pipeline{
		id:          id,
		executables: make([]ports.Executable, 0),
		idSet:       make(map[string]struct{}),
		tracer:      otel.Tracer("grading-pipeline"),
	}
}

// Execute runs every executable in order. It stops at the first error,
// wrapping it with the failing executable's ID, and checks for context
// cancellation between steps.
func (p *Pipeline) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	ctx, span := p.tracer.Start(ctx, "Pipeline.Execute",
		trace.WithAttributes(attribute.String("pipeline.id", p.id)))
	defer span.End()

	executables := p.Executables()
	span.SetAttributes(attribute.Int("pipeline.steps", len(executables)))

	current := state
	for _, exec := range executables {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return current, err
		}
		next, err := exec.Execute(ctx, current)
		if err != nil {
			err = fmt.Errorf("pipeline %s: execution failed at %s: %w", p.id, exec.ID(), err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return current, err
		}
		current = next
	}
	return current, nil
}

// ID returns the pipeline identifier.
func (p *Pipeline) ID() string { return p.id }

// Add appends exec. It rejects nil executables and duplicate IDs.
func (p *Pipeline) Add(exec ports.Executable) error {
	if exec == nil {
		return fmt.Errorf("cannot add nil executable to pipeline")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	id := exec.ID()
	if _, exists := p.idSet[id]; exists {
		return fmt.Errorf("executable with ID %s already exists in pipeline", id)
	}
	p.executables = append(p.executables, exec)
	p.idSet[id] = struct{}{}
	return nil
}

// Executables returns a copy of the ordered executables.
func (p *Pipeline) Executables() []ports.Executable {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]ports.Executable, len(p.executables))
	copy(out, p.executables)
	return out
}

// UnitAdapter lets a ports.Unit take part in a Pipeline.
type UnitAdapter struct {
	unit ports.Unit
	id   string
}

// NewUnitAdapter wraps unit under id.
func NewUnitAdapter(unit ports.Unit, id string) *UnitAdapter {
	return &UnitAdapter{unit: unit, id: id}
}

// Execute delegates to the wrapped unit.
func (ua *UnitAdapter) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	return ua.unit.Execute(ctx, state)
}

// ID returns the adapter ID.
func (ua *UnitAdapter) ID() string { return ua.id }

// UnitWrapper decorates a unit before it is added to a pipeline, for
// example with input limits or observability.
type UnitWrapper func(ports.Unit) ports.Unit

// BuildPipeline creates each configured unit through registry, applies the
// wrappers in order, validates the result and adds it to a new Pipeline.
func BuildPipeline(id string, configs []UnitConfig, registry ports.UnitRegistry, wrappers ...UnitWrapper) (*Pipeline, error) {
	pipeline := NewPipeline(id)
	for _, cfg := range configs {
		unit, err := createUnit(registry, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create unit %s: %w", cfg.ID, err)
		}
		for _, wrap := range wrappers {
			unit = wrap(unit)
		}
		if err := unit.Validate(); err != nil {
			return nil, fmt.Errorf("unit %s is invalid: %w", cfg.ID, err)
		}
		if err := pipeline.Add(NewUnitAdapter(unit, cfg.ID)); err != nil {
			return nil, err
		}
	}
	return pipeline, nil
}

func createUnit(registry ports.UnitRegistry, cfg UnitConfig) (ports.Unit, error) {
	params, err := decodeParameters(cfg.Parameters)
	if err != nil {
		return nil, err
	}
	return registry.CreateUnit(cfg.Type, cfg.ID, params)
}

func decodeParameters(node yaml.Node) (map[string]any, error) {
	params := make(map[string]any)
	if node.Kind == 0 {
		return params, nil
	}
	if err := node.Decode(&params); err != nil {
		return nil, fmt.Errorf("failed to decode parameters: %w", err)
	}
	return params, nil
}
