// Package ports defines the core interfaces that form the contract between
// the domain/application layers and the infrastructure layer.
// These interfaces enable dependency inversion and make the system testable.
package ports

import (
	"context"

	"github.com/ahrav/physgrade/internal/domain"
)

// Unit represents the fundamental building block of a grading pipeline.
// Each Unit performs a specific transformation on the grading State.
// Units should be stateless and thread-safe for concurrent execution.
type Unit interface {
	// Name returns a unique identifier for this unit.
	// The name is used for logging, tracing, and configuration.
	Name() string

	// Execute performs the unit's transformation on the provided State.
	// It returns a new State containing the results of the transformation.
	// The original State must not be modified.
	//
	// Example:
	//
	//	newState, err := unit.Execute(ctx, state)
	//	if err != nil {
	//	    return state, fmt.Errorf("unit %s failed: %w", unit.Name(), err)
	//	}
	Execute(ctx context.Context, state domain.State) (domain.State, error)

	// Validate checks if the unit is properly configured and ready for execution.
	Validate() error
}

// UnitFactory builds a Unit from an identifier and a decoded parameter map.
type UnitFactory func(id string, config map[string]any) (Unit, error)

// UnitRegistry creates units by type name.
type UnitRegistry interface {
	// CreateUnit builds a unit of the given registered type.
	CreateUnit(unitType string, id string, config map[string]any) (Unit, error)

	// RegisterUnitFactory adds or replaces the factory for unitType.
	RegisterUnitFactory(unitType string, factory UnitFactory) error

	// GetSupportedTypes lists every registered type.
	GetSupportedTypes() []string
}
