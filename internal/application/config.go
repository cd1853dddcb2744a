package application

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/physgrade/internal/grading"
)

// GradingConfig is the top-level YAML document that configures the engine,
// the batch runner and the grading pipeline.
type GradingConfig struct {
	// Version specifies the configuration schema version (X.Y.Z).
	Version string `yaml:"version" validate:"required,semver"`
	// Engine holds the comparison tolerance and matching policies.
	Engine grading.Config `yaml:"engine"`
	// Batch controls concurrency and failure handling for batch runs.
	Batch BatchConfig `yaml:"batch"`
	// Limits bounds the input every pipeline unit will accept.
	Limits LimitsConfig `yaml:"limits"`
	// Units lists the pipeline units in execution order.
	Units []UnitConfig `yaml:"units" validate:"required,min=1,dive"`
}

// BatchConfig controls BatchGrader scheduling.
type BatchConfig struct {
	// Concurrency is the number of items graded at once. Zero selects
	// GOMAXPROCS.
	Concurrency int `yaml:"concurrency" validate:"gte=0,lte=1024"`
	// MaxPerSecond throttles item starts. Zero disables throttling.
	MaxPerSecond float64 `yaml:"max_per_second" validate:"gte=0"`
	// FailFast aborts the run on the first item error.
	FailFast bool `yaml:"fail_fast"`
	// DefaultCategory is applied to items that declare none. Empty means
	// classify each ground truth.
	DefaultCategory string `yaml:"default_category" validate:"omitempty,category"`
}

// LimitsConfig bounds unit input sizes. Zero values mean unlimited.
type LimitsConfig struct {
	MaxCandidates  int `yaml:"max_candidates" validate:"gte=0"`
	MaxAnswerBytes int `yaml:"max_answer_bytes" validate:"gte=0"`
}

// UnitConfig declares one pipeline unit.
type UnitConfig struct {
	// ID is the unit's unique identifier within the pipeline.
	ID string `yaml:"id" validate:"required,alphanum,min=1,max=100"`
	// Type selects the unit implementation from the registry.
	Type string `yaml:"type" validate:"required,oneof=answer_match mean_score custom"`
	// Parameters holds type-specific settings, decoded strictly by the unit.
	Parameters yaml.Node `yaml:"parameters"`
}

// DefaultGradingConfig returns a configuration whose engine section holds
// grading.DefaultConfig and whose pipeline grades then aggregates.
func DefaultGradingConfig() GradingConfig {
	return GradingConfig{
		Version: "1.0.0",
		Engine:  grading.DefaultConfig(),
		Units: []UnitConfig{
			{ID: "match", Type: "answer_match"},
			{ID: "score", Type: "mean_score"},
		},
	}
}

// ConfigLoader parses and validates grading configuration documents.
type ConfigLoader struct {
	validator *validator.Validate
}

// NewConfigLoader creates a loader with the grading validators registered.
func NewConfigLoader() (*ConfigLoader, error) {
	v := validator.New()
	if err := RegisterGradingValidators(v); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}
	return &ConfigLoader{validator: v}, nil
}

// LoadFromFile reads and validates a YAML config file.
func (cl *ConfigLoader) LoadFromFile(path string) (*GradingConfig, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return cl.Parse(data)
}

// LoadFromReader reads and validates a YAML config from r.
func (cl *ConfigLoader) LoadFromReader(r io.Reader) (*GradingConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	return cl.Parse(data)
}

// Parse decodes data over the engine defaults and validates the result.
// Unknown keys are rejected.
func (cl *ConfigLoader) Parse(data []byte) (*GradingConfig, error) {
	config := GradingConfig{Engine: grading.DefaultConfig()}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("YAML decode failed: %w", err)
	}

	if err := cl.Validate(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate runs struct validation followed by semantic checks.
func (cl *ConfigLoader) Validate(config *GradingConfig) error {
	if err := cl.validator.Struct(config); err != nil {
		return fmt.Errorf("struct validation failed: %w", err)
	}
	if err := validateSemantics(config); err != nil {
		return fmt.Errorf("semantic validation failed: %w", err)
	}
	return nil
}

// LoadConfig is a convenience wrapper around NewConfigLoader and LoadFromFile.
func LoadConfig(path string) (*GradingConfig, error) {
	loader, err := NewConfigLoader()
	if err != nil {
		return nil, err
	}
	return loader.LoadFromFile(path)
}
