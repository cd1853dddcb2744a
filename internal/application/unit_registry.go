package application

import (
	"fmt"
	"slices"
	"sync"

	"github.com/ahrav/physgrade/infrastructure/units"
	"github.com/ahrav/physgrade/internal/grading"
	"github.com/ahrav/physgrade/internal/ports"
)

// Verify interface compliance at compile time.
var _ ports.UnitRegistry = (*DefaultUnitRegistry)(nil)

// DefaultUnitRegistry implements ports.UnitRegistry. It creates grading
// units by type name and injects the shared grading.Engine into the units
// that compare answers.
type DefaultUnitRegistry struct {
	// factories maps unit type strings to their factory functions.
	factories map[string]ports.UnitFactory
	// mu protects concurrent access to the factories map.
	mu sync.RWMutex
	// engine is injected into answer_match units.
	engine *grading.Engine
}

// NewDefaultUnitRegistry creates a registry with the built-in answer_match
// and mean_score types registered. A nil engine selects grading.Default().
func NewDefaultUnitRegistry(engine *grading.Engine) *DefaultUnitRegistry {
	if engine == nil {
		engine = grading.Default()
	}
	registry := &DefaultUnitRegistry{
		factories: make(map[string]ports.UnitFactory),
		engine:    engine,
	}
	registry.registerBuiltinFactories()
	return registry
}

func (r *DefaultUnitRegistry) registerBuiltinFactories() {
	// Capture the engine so factories never observe a later SetEngine mid-call.
	engine := r.engine

	r.factories["answer_match"] = func(id string, config map[string]any) (ports.Unit, error) {
		return units.NewAnswerMatchFromConfig(id, config, engine)
	}
	r.factories["mean_score"] = units.NewMeanScoreFromConfig
}

// CreateUnit creates a unit of unitType with the given id and config.
func (r *DefaultUnitRegistry) CreateUnit(unitType string, id string, config map[string]any) (ports.Unit, error) {
	r.mu.RLock()
	factory, exists := r.factories[unitType]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unsupported unit type: %s", unitType)
	}
	if id == "" {
		return nil, fmt.Errorf("unit ID cannot be empty")
	}
	if config == nil {
		config = make(map[string]any)
	}

	unit, err := factory(id, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create unit %s of type %s: %w", id, unitType, err)
	}
	return unit, nil
}

// RegisterUnitFactory registers or replaces the factory for unitType.
func (r *DefaultUnitRegistry) RegisterUnitFactory(unitType string, factory ports.UnitFactory) error {
	if unitType == "" {
		return fmt.Errorf("unit type cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory function cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[unitType] = factory
	return nil
}

// GetSupportedTypes returns the registered unit types in sorted order.
func (r *DefaultUnitRegistry) GetSupportedTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for unitType := range r.factories {
		types = append(types, unitType)
	}
	slices.Sort(types)
	return types
}

// SetEngine replaces the engine used by built-in factories. Units created
// earlier keep the engine they were built with.
func (r *DefaultUnitRegistry) SetEngine(engine *grading.Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.engine = engine
	r.registerBuiltinFactories()
}

// Engine returns the engine injected into built-in units.
func (r *DefaultUnitRegistry) Engine() *grading.Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.engine
}
