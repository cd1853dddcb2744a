package ports

import (
	"context"

	"github.com/ahrav/physgrade/internal/domain"
)

// Executable is anything that can run inside a pipeline: a unit adapter or
// a nested pipeline.
type Executable interface {
	// Execute processes the given state and returns the updated state.
	// The input state is immutable and MUST NOT be modified.
	Execute(ctx context.Context, state domain.State) (domain.State, error)

	// ID returns the unique identifier of this executable.
	ID() string
}
