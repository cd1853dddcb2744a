package ports

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/physgrade/internal/domain"
)

// mockUnit is a test implementation of the Unit interface.
type mockUnit struct {
	name        string
	executeFunc func(context.Context, domain.State) (domain.State, error)
	validateErr error
}

func (m *mockUnit) Name() string { return m.name }

func (m *mockUnit) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	if m.executeFunc != nil {
		return m.executeFunc(ctx, state)
	}
	return state, nil
}

func (m *mockUnit) Validate() error { return m.validateErr }

func TestUnit_Interface(t *testing.T) {
	var _ Unit = (*mockUnit)(nil)

	unit := &mockUnit{
		name: "grader",
		executeFunc: func(_ context.Context, s domain.State) (domain.State, error) {
			return domain.With(s, domain.KeyGroundTruth, "3.0 m/s"), nil
		},
	}

	out, err := unit.Execute(context.Background(), domain.NewState())
	require.NoError(t, err)
	gt, ok := domain.Get(out, domain.KeyGroundTruth)
	require.True(t, ok)
	assert.Equal(t, "3.0 m/s", gt)
	assert.Equal(t, "grader", unit.Name())
}

func TestUnit_ValidateError(t *testing.T) {
	want := errors.New("missing ground truth")
	unit := &mockUnit{name: "broken", validateErr: want}
	assert.ErrorIs(t, unit.Validate(), want)
}

func TestUnitFactory_Signature(t *testing.T) {
	var factory UnitFactory = func(id string, _ map[string]any) (Unit, error) {
		return &mockUnit{name: id}, nil
	}
	u, err := factory("match", nil)
	require.NoError(t, err)
	assert.Equal(t, "match", u.Name())
}
