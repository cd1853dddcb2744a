// Package grading classifies physics answers and decides whether a candidate
// answer matches a ground truth. The Engine binds a normalize.Normalizer to a
// tolerance policy; package-level functions use a default Engine.
package grading

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/physgrade/internal/domain"
)

// validate is the package-level validator instance.
var validate = validator.New()

// ToleranceMode selects how numeric answers are decomposed before the
// epsilon check.
type ToleranceMode string

const (
	// ToleranceAbsolute compares fixed-point values after rounding the
	// candidate to the ground truth's decimal places.
	ToleranceAbsolute ToleranceMode = "absolute"

	// ToleranceSignificant compares scientific mantissas after expressing
	// the candidate at the ground truth's exponent and rounding it to the
	// ground truth's significant digits.
	ToleranceSignificant ToleranceMode = "significant"
)

// TextMatch selects the equivalence rule for TEXT answers.
type TextMatch string

const (
	// TextMatchExact requires identical normalized text.
	TextMatchExact TextMatch = "exact"

	// TextMatchContains accepts a candidate whose normalized text contains
	// the normalized ground truth.
	TextMatchContains TextMatch = "contains"

	// TextMatchFuzzy accepts a Levenshtein similarity at or above
	// Config.FuzzyThreshold.
	TextMatchFuzzy TextMatch = "fuzzy"
)

const (
	// DefaultEpsilon is the absolute numeric tolerance used when none is given.
	DefaultEpsilon = 1e-6

	// DefaultFuzzyThreshold is the similarity required under TextMatchFuzzy.
	DefaultFuzzyThreshold = 0.85
)

// Config is the comparison policy of an Engine.
type Config struct {
	// Epsilon is the strict upper bound on |candidate - ground truth|.
	Epsilon float64 `yaml:"epsilon" json:"epsilon" validate:"gt=0"`

	// ToleranceMode defaults to ToleranceAbsolute.
	ToleranceMode ToleranceMode `yaml:"tolerance_mode" json:"tolerance_mode" validate:"omitempty,oneof=absolute significant"`

	// TextMatch defaults to TextMatchExact.
	TextMatch TextMatch `yaml:"text_match" json:"text_match" validate:"omitempty,oneof=exact contains fuzzy"`

	// FuzzyThreshold is only read under TextMatchFuzzy.
	FuzzyThreshold float64 `yaml:"fuzzy_threshold" json:"fuzzy_threshold" validate:"gte=0,lte=1"`

	// AllowMissingUnit lets a candidate omit the unit the ground truth has.
	// A unit on the candidate alone is always a mismatch.
	AllowMissingUnit bool `yaml:"allow_missing_unit" json:"allow_missing_unit"`

	// CoerceNumeric installs NumericCoercion when no other policy is set.
	CoerceNumeric bool `yaml:"coerce_numeric" json:"coerce_numeric"`
}

// DefaultConfig returns the policy used by the package-level functions.
func DefaultConfig() Config {
	return Config{
		Epsilon:        DefaultEpsilon,
		ToleranceMode:  ToleranceAbsolute,
		TextMatch:      TextMatchExact,
		FuzzyThreshold: DefaultFuzzyThreshold,
	}
}

// withDefaults fills zero-valued enumerations.
func (c Config) withDefaults() Config {
	if c.ToleranceMode == "" {
		c.ToleranceMode = ToleranceAbsolute
	}
	if c.TextMatch == "" {
		c.TextMatch = TextMatchExact
	}
	if c.TextMatch == TextMatchFuzzy && c.FuzzyThreshold == 0 {
		c.FuzzyThreshold = DefaultFuzzyThreshold
	}
	return c
}

// Validate checks the configuration against its struct tags.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: grading config: %w", domain.ErrInvalidConfiguration, err)
	}
	return nil
}
