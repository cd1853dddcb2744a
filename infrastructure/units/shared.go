// Package units provides pipeline units that implement the ports.Unit
// interface for the physgrade grading engine.
package units

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Input validation limits.
const (
	// MaxCandidates is the maximum number of candidates graded in one Execute.
	MaxCandidates = 10000
	// MaxStringLength is the maximum allowed length for any answer (1MB).
	MaxStringLength = 1024 * 1024
)

// Common errors returned by units.
var (
	// ErrEmptyUnitName is returned when attempting to create a unit with an empty name.
	ErrEmptyUnitName = errors.New("unit name cannot be empty")

	// ErrNilEngine is returned when a grading unit is built without an engine.
	ErrNilEngine = errors.New("grading engine cannot be nil")

	// ErrNoScores is returned when no scores are provided for aggregation.
	ErrNoScores = errors.New("no scores provided for aggregation")

	// ErrScoreMismatch is returned when the number of scores doesn't match the number of candidates.
	ErrScoreMismatch = errors.New("scores and candidates length mismatch")

	// ErrBelowMinAccuracy is returned when the batch accuracy is below the configured threshold.
	ErrBelowMinAccuracy = errors.New("accuracy below minimum threshold")
)

// Package-level validator instance for configuration validation.
var validate = validator.New()

// decodeStrict decodes a parameters node into out, rejecting unknown keys,
// then validates the result.
func decodeStrict(params yaml.Node, out any) error {
	data, err := yaml.Marshal(&params)
	if err != nil {
		return fmt.Errorf("failed to encode parameters: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("failed to decode parameters: %w", err)
	}
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("parameter validation failed: %w", err)
	}
	return nil
}

// decodeMap overlays a generic configuration map onto out, which should
// already hold defaults.
func decodeMap(config map[string]any, out any) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
