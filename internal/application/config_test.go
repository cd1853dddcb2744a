package application

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/physgrade/internal/grading"
)

func newTestLoader(t *testing.T) *ConfigLoader {
	t.Helper()
	loader, err := NewConfigLoader()
	require.NoError(t, err)
	return loader
}

func TestConfigLoader_Parse(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		errMsg  string
		verify  func(t *testing.T, cfg *GradingConfig)
	}{
		{
			name: "minimal config keeps engine defaults",
			yaml: `
version: "1.0.0"
units:
  - id: match
    type: answer_match
`,
			verify: func(t *testing.T, cfg *GradingConfig) {
				assert.Equal(t, grading.DefaultConfig(), cfg.Engine)
				assert.Equal(t, BatchConfig{}, cfg.Batch)
				require.Len(t, cfg.Units, 1)
				assert.Equal(t, "answer_match", cfg.Units[0].Type)
			},
		},
		{
			name: "full config",
			yaml: `
version: "2.1.0"
engine:
  epsilon: 0.01
  tolerance_mode: significant
  text_match: fuzzy
  fuzzy_threshold: 0.9
  allow_missing_unit: true
  coerce_numeric: true
batch:
  concurrency: 8
  max_per_second: 100
  fail_fast: true
  default_category: quantity
limits:
  max_candidates: 16
  max_answer_bytes: 4096
units:
  - id: match
    type: answer_match
    parameters:
      epsilon: 0.05
  - id: score
    type: mean_score
    parameters:
      min_accuracy: 0.5
`,
			verify: func(t *testing.T, cfg *GradingConfig) {
				assert.Equal(t, grading.Config{
					Epsilon:          0.01,
					ToleranceMode:    grading.ToleranceSignificant,
					TextMatch:        grading.TextMatchFuzzy,
					FuzzyThreshold:   0.9,
					AllowMissingUnit: true,
					CoerceNumeric:    true,
				}, cfg.Engine)
				assert.Equal(t, BatchConfig{Concurrency: 8, MaxPerSecond: 100, FailFast: true, DefaultCategory: "quantity"}, cfg.Batch)
				assert.Equal(t, LimitsConfig{MaxCandidates: 16, MaxAnswerBytes: 4096}, cfg.Limits)
				assert.Len(t, cfg.Units, 2)
			},
		},
		{
			name:   "unknown top-level key",
			yaml:   "version: \"1.0.0\"\ngraph: {}\nunits:\n  - id: match\n    type: answer_match\n",
			errMsg: "YAML decode failed",
		},
		{
			name:   "missing version",
			yaml:   "units:\n  - id: match\n    type: answer_match\n",
			errMsg: "struct validation failed",
		},
		{
			name:   "bad semver",
			yaml:   "version: \"1.0\"\nunits:\n  - id: match\n    type: answer_match\n",
			errMsg: "semver",
		},
		{
			name:   "no units",
			yaml:   "version: \"1.0.0\"\nunits: []\n",
			errMsg: "struct validation failed",
		},
		{
			name:   "unknown unit type",
			yaml:   "version: \"1.0.0\"\nunits:\n  - id: judge\n    type: score_judge\n",
			errMsg: "struct validation failed",
		},
		{
			name:   "invalid tolerance mode",
			yaml:   "version: \"1.0.0\"\nengine:\n  tolerance_mode: relative\nunits:\n  - id: match\n    type: answer_match\n",
			errMsg: "ToleranceMode",
		},
		{
			name:   "non-positive epsilon",
			yaml:   "version: \"1.0.0\"\nengine:\n  epsilon: 0\nunits:\n  - id: match\n    type: answer_match\n",
			errMsg: "Epsilon",
		},
		{
			name:   "invalid default category",
			yaml:   "version: \"1.0.0\"\nbatch:\n  default_category: vector\nunits:\n  - id: match\n    type: answer_match\n",
			errMsg: "category",
		},
		{
			name:   "duplicate unit ids",
			yaml:   "version: \"1.0.0\"\nunits:\n  - id: match\n    type: answer_match\n  - id: match\n    type: mean_score\n",
			errMsg: "duplicate unit ID",
		},
		{
			name:   "unknown unit parameter",
			yaml:   "version: \"1.0.0\"\nunits:\n  - id: match\n    type: answer_match\n    parameters:\n      case_sensitive: true\n",
			errMsg: "unit match parameter validation failed",
		},
		{
			name:   "invalid unit parameter value",
			yaml:   "version: \"1.0.0\"\nunits:\n  - id: score\n    type: mean_score\n    parameters:\n      min_accuracy: 3\n",
			errMsg: "invalid parameters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := newTestLoader(t).Parse([]byte(tt.yaml))
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			tt.verify(t, cfg)
		})
	}
}

func TestConfigLoader_LoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grading.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: \"1.0.0\"\nunits:\n  - id: match\n    type: answer_match\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", cfg.Version)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read file")
}

func TestConfigLoader_LoadFromReader(t *testing.T) {
	cfg, err := newTestLoader(t).LoadFromReader(strings.NewReader("version: \"0.1.0\"\nunits:\n  - id: score\n    type: mean_score\n"))
	require.NoError(t, err)
	assert.Equal(t, "mean_score", cfg.Units[0].Type)
}

func TestDefaultGradingConfig_IsValid(t *testing.T) {
	cfg := DefaultGradingConfig()
	assert.NoError(t, newTestLoader(t).Validate(&cfg))
}

func TestValidateSemver(t *testing.T) {
	loader := newTestLoader(t)
	type doc struct {
		V string `validate:"semver"`
	}
	for v, want := range map[string]bool{
		"1.0.0":      true,
		"10.20.30":   true,
		"1.0":        false,
		"1.0.0-beta": false,
		"-1.0.0":     false,
		"v1.0.0":     false,
		"":           false,
	} {
		t.Run(v, func(t *testing.T) {
			err := loader.validator.Struct(doc{V: v})
			assert.Equal(t, want, err == nil)
		})
	}
}
