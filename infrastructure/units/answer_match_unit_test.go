package units

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/physgrade/internal/domain"
	"github.com/ahrav/physgrade/internal/grading"
	"github.com/ahrav/physgrade/internal/ports"
)

func newTestEngine(t *testing.T) *grading.Engine {
	t.Helper()
	engine, err := grading.NewEngine(grading.DefaultConfig())
	require.NoError(t, err)
	return engine
}

func gradingState(groundTruth string, contents ...string) domain.State {
	candidates := make([]domain.Candidate, len(contents))
	for i, c := range contents {
		candidates[i] = domain.Candidate{ID: string(rune('a' + i)), Content: c}
	}
	state := domain.With(domain.NewState(), domain.KeyGroundTruth, groundTruth)
	return domain.With(state, domain.KeyCandidates, candidates)
}

func TestNewAnswerMatchUnit(t *testing.T) {
	engine := newTestEngine(t)

	tests := []struct {
		name     string
		unitName string
		config   AnswerMatchConfig
		engine   *grading.Engine
		wantErr  error
		errMsg   string
	}{
		{name: "default configuration", unitName: "match", config: DefaultAnswerMatchConfig(), engine: engine},
		{name: "forced category", unitName: "match", config: AnswerMatchConfig{Category: "option"}, engine: engine},
		{name: "empty unit name", config: DefaultAnswerMatchConfig(), engine: engine, wantErr: ErrEmptyUnitName},
		{name: "nil engine", unitName: "match", config: DefaultAnswerMatchConfig(), wantErr: ErrNilEngine},
		{name: "unknown category", unitName: "match", config: AnswerMatchConfig{Category: "vector"}, engine: engine, errMsg: "configuration validation failed"},
		{name: "negative epsilon", unitName: "match", config: AnswerMatchConfig{Epsilon: -1}, engine: engine, errMsg: "configuration validation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit, err := NewAnswerMatchUnit(tt.unitName, tt.config, tt.engine)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, unit)
			case tt.errMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.unitName, unit.Name())
				assert.NoError(t, unit.Validate())
			}
		})
	}
}

func TestAnswerMatchUnit_Execute(t *testing.T) {
	engine := newTestEngine(t)

	tests := []struct {
		name         string
		config       AnswerMatchConfig
		state        domain.State
		wantCategory domain.Category
		wantScores   []float64
		wantReasons  []domain.Reason
		errMsg       string
	}{
		{
			name:         "physical quantity classified from ground truth",
			state:        gradingState("3.0 m/s", "3 m/s", "4 m/s", "3.0 km/h"),
			wantCategory: domain.CategoryPhysicalQuantity,
			wantScores:   []float64{1, 0, 0},
			wantReasons:  []domain.Reason{domain.ReasonNone, domain.ReasonNumericMismatch, domain.ReasonUnitMismatch},
		},
		{
			name:         "candidate rounded to ground truth precision",
			state:        gradingState("9.8", "9.81", "9.7"),
			wantCategory: domain.CategoryNumber,
			wantScores:   []float64{1, 0},
			wantReasons:  []domain.Reason{domain.ReasonNone, domain.ReasonNumericMismatch},
		},
		{
			name:         "declared category in state",
			state:        domain.With(gradingState("B", "(b)", "C"), domain.KeyCategory, domain.CategoryOption),
			wantCategory: domain.CategoryOption,
			wantScores:   []float64{1, 0},
			wantReasons:  []domain.Reason{domain.ReasonNone, domain.ReasonOptionMismatch},
		},
		{
			name:         "config category overrides state",
			config:       AnswerMatchConfig{Category: "text"},
			state:        domain.With(gradingState("Energy is conserved", "energy is conserved."), domain.KeyCategory, domain.CategoryFormula),
			wantCategory: domain.CategoryText,
			wantScores:   []float64{1},
			wantReasons:  []domain.Reason{domain.ReasonNone},
		},
		{
			name:         "invalid candidate scored zero",
			config:       AnswerMatchConfig{Category: "number"},
			state:        gradingState("42", "  ", "42"),
			wantCategory: domain.CategoryNumber,
			wantScores:   []float64{0, 1},
			wantReasons:  []domain.Reason{domain.ReasonInvalidAnswer, domain.ReasonNone},
		},
		{
			name:         "epsilon override widens tolerance",
			config:       AnswerMatchConfig{Category: "number", Epsilon: 0.5},
			state:        gradingState("10", "10.4"),
			wantCategory: domain.CategoryNumber,
			wantScores:   []float64{1},
			wantReasons:  []domain.Reason{domain.ReasonNone},
		},
		{
			name:   "missing candidates",
			state:  domain.With(domain.NewState(), domain.KeyGroundTruth, "1"),
			errMsg: "candidates not found in state",
		},
		{
			name:   "empty candidates",
			state:  gradingState("1"),
			errMsg: "no candidates provided",
		},
		{
			name:   "missing ground truth",
			state:  domain.With(domain.NewState(), domain.KeyCandidates, []domain.Candidate{{ID: "1", Content: "1"}}),
			errMsg: "ground_truth required",
		},
		{
			name:   "invalid ground truth",
			config: AnswerMatchConfig{Category: "number"},
			state:  gradingState("1e999", "1"),
			errMsg: "ground truth: invalid answer",
		},
		{
			name:   "blank ground truth",
			state:  gradingState("  ", "1"),
			errMsg: "ground_truth required",
		},
		{
			name:   "invalid declared category",
			state:  domain.With(gradingState("1", "1"), domain.KeyCategory, domain.Category("vector")),
			errMsg: "invalid category",
		},
		{
			name:   "candidate too long",
			state:  gradingState("1", strings.Repeat("1", MaxStringLength+1)),
			errMsg: "candidate 0 too long",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit, err := NewAnswerMatchUnit("match", tt.config, engine)
			require.NoError(t, err)

			result, err := unit.Execute(context.Background(), tt.state)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)

			category, ok := domain.Get(result, domain.KeyCategory)
			require.True(t, ok)
			assert.Equal(t, tt.wantCategory, category)

			scores, ok := domain.Get(result, domain.KeyJudgeScores)
			require.True(t, ok)
			comparisons, ok := domain.Get(result, domain.KeyComparisons)
			require.True(t, ok)
			require.Len(t, scores, len(tt.wantScores))
			require.Len(t, comparisons, len(tt.wantScores))

			for i := range tt.wantScores {
				assert.Equal(t, tt.wantScores[i], scores[i].Score, "candidate %d", i)
				assert.Equal(t, 1.0, scores[i].Confidence)
				assert.Equal(t, tt.wantReasons[i], comparisons[i].Reason, "candidate %d", i)
				assert.NotEmpty(t, scores[i].Reasoning)
			}
		})
	}
}

type reasonCounter struct {
	mu      sync.Mutex
	reasons []string
}

func (c *reasonCounter) RecordLatency(string, time.Duration, map[string]string) {}

func (c *reasonCounter) RecordCounter(metric string, _ float64, labels map[string]string) {
	if metric != ports.MetricComparisons {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reasons = append(c.reasons, labels[ports.LabelReason])
}

func (c *reasonCounter) RecordGauge(string, float64, map[string]string) {}

func TestAnswerMatchUnit_CountsEveryComparison(t *testing.T) {
	counter := &reasonCounter{}
	engine, err := grading.NewEngine(grading.DefaultConfig(), grading.WithMetrics(counter))
	require.NoError(t, err)
	unit, err := NewAnswerMatchUnit("match", AnswerMatchConfig{Category: "number"}, engine)
	require.NoError(t, err)

	_, err = unit.Execute(context.Background(), gradingState("42", "  ", "42", "1e999"))
	require.NoError(t, err)

	assert.Equal(t, []string{
		string(domain.ReasonInvalidAnswer),
		string(domain.ReasonNone),
		string(domain.ReasonInvalidAnswer),
	}, counter.reasons)
}

func TestAnswerMatchUnit_TooManyCandidates(t *testing.T) {
	unit, err := NewAnswerMatchUnit("match", DefaultAnswerMatchConfig(), newTestEngine(t))
	require.NoError(t, err)

	contents := make([]string, MaxCandidates+1)
	for i := range contents {
		contents[i] = "1"
	}
	_, err = unit.Execute(context.Background(), gradingState("1", contents...))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many candidates")
}

func TestAnswerMatchUnit_CancelledContext(t *testing.T) {
	unit, err := NewAnswerMatchUnit("match", DefaultAnswerMatchConfig(), newTestEngine(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state := gradingState("1", "1")
	result, err := unit.Execute(ctx, state)
	assert.ErrorIs(t, err, context.Canceled)
	_, ok := domain.Get(result, domain.KeyJudgeScores)
	assert.False(t, ok, "input state should be returned unchanged")
}

func TestAnswerMatchUnit_DoesNotModifyInput(t *testing.T) {
	unit, err := NewAnswerMatchUnit("match", DefaultAnswerMatchConfig(), newTestEngine(t))
	require.NoError(t, err)

	state := gradingState("2 kg", "2000 g")
	_, err = unit.Execute(context.Background(), state)
	require.NoError(t, err)

	_, ok := domain.Get(state, domain.KeyComparisons)
	assert.False(t, ok)
	_, ok = domain.Get(state, domain.KeyCategory)
	assert.False(t, ok)
}

func TestAnswerMatchUnit_UnmarshalParameters(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		want    AnswerMatchConfig
		wantErr string
	}{
		{
			name: "valid parameters",
			yaml: "category: physical_quantity\nepsilon: 0.01\n",
			want: AnswerMatchConfig{Category: "physical_quantity", Epsilon: 0.01},
		},
		{name: "unknown key", yaml: "tolerance: 0.1\n", wantErr: "failed to decode parameters"},
		{name: "invalid category", yaml: "category: vector\n", wantErr: "parameter validation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit, err := NewAnswerMatchUnit("match", DefaultAnswerMatchConfig(), newTestEngine(t))
			require.NoError(t, err)

			var node yaml.Node
			require.NoError(t, yaml.Unmarshal([]byte(tt.yaml), &node))

			err = unit.UnmarshalParameters(*node.Content[0])
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Equal(t, DefaultAnswerMatchConfig(), unit.config, "config must be unchanged on error")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, unit.config)
		})
	}
}

func TestNewAnswerMatchFromConfig(t *testing.T) {
	engine := newTestEngine(t)

	t.Run("defaults for empty map", func(t *testing.T) {
		unit, err := NewAnswerMatchFromConfig("match", map[string]any{}, engine)
		require.NoError(t, err)
		assert.Equal(t, DefaultAnswerMatchConfig(), unit.(*AnswerMatchUnit).config)
	})

	t.Run("overlays values", func(t *testing.T) {
		unit, err := NewAnswerMatchFromConfig("match", map[string]any{"category": "equation", "epsilon": 0.1}, engine)
		require.NoError(t, err)
		assert.Equal(t, AnswerMatchConfig{Category: "equation", Epsilon: 0.1}, unit.(*AnswerMatchUnit).config)
	})

	t.Run("rejects unknown keys", func(t *testing.T) {
		_, err := NewAnswerMatchFromConfig("match", map[string]any{"case_sensitive": true}, engine)
		assert.Error(t, err)
	})

	t.Run("fails with empty id", func(t *testing.T) {
		_, err := NewAnswerMatchFromConfig("", nil, engine)
		assert.ErrorIs(t, err, ErrEmptyUnitName)
	})
}

func TestAnswerMatchUnit_ConcurrentExecute(t *testing.T) {
	unit, err := NewAnswerMatchUnit("match", DefaultAnswerMatchConfig(), newTestEngine(t))
	require.NoError(t, err)
	state := gradingState("F = ma", "ma = F", "F = mv")

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := unit.Execute(context.Background(), state)
			if !assert.NoError(t, err) {
				return
			}
			scores, _ := domain.Get(result, domain.KeyJudgeScores)
			assert.Equal(t, 1.0, scores[0].Score)
			assert.Equal(t, 0.0, scores[1].Score)
		}()
	}
	wg.Wait()
}
