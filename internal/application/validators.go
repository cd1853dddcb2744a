package application

import (
	"bytes"
	"fmt"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/physgrade/infrastructure/units"
	"github.com/ahrav/physgrade/internal/domain"
)

// paramValidator is the package-level validator for unit parameter structs.
var paramValidator = validator.New()

// RegisterGradingValidators registers the custom struct tags used by
// GradingConfig: "semver" and "category".
func RegisterGradingValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("semver", validateSemver); err != nil {
		return fmt.Errorf("failed to register semver validator: %w", err)
	}
	if err := v.RegisterValidation("category", validateCategory); err != nil {
		return fmt.Errorf("failed to register category validator: %w", err)
	}
	return nil
}

// validateSemver accepts X.Y.Z where X, Y and Z are non-negative integers.
func validateSemver(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	var major, minor, patch int
	var rest string
	n, _ := fmt.Sscanf(value, "%d.%d.%d%s", &major, &minor, &patch, &rest)
	return n == 3 && major >= 0 && minor >= 0 && patch >= 0
}

// validateCategory accepts any label domain.ParseCategory understands.
func validateCategory(fl validator.FieldLevel) bool {
	_, err := domain.ParseCategory(fl.Field().String())
	return err == nil
}

// validateSemantics checks rules struct tags cannot express: unit IDs are
// unique and each unit's parameters decode into its config type.
func validateSemantics(config *GradingConfig) error {
	seen := make(map[string]struct{}, len(config.Units))
	for _, unit := range config.Units {
		if _, dup := seen[unit.ID]; dup {
			return fmt.Errorf("duplicate unit ID %q", unit.ID)
		}
		seen[unit.ID] = struct{}{}

		if err := ValidateUnitParameters(unit.Type, unit.Parameters); err != nil {
			return fmt.Errorf("unit %s parameter validation failed: %w", unit.ID, err)
		}
	}
	return nil
}

// ValidateUnitParameters strictly decodes params into the config struct of
// unitType and validates it. Custom units are not checked. An empty node is
// valid for every built-in type.
func ValidateUnitParameters(unitType string, params yaml.Node) error {
	var target any
	switch unitType {
	case "answer_match":
		target = &units.AnswerMatchConfig{}
	case "mean_score":
		target = &units.MeanScoreConfig{}
	case "custom":
		return nil
	default:
		return fmt.Errorf("unknown unit type: %s", unitType)
	}

	if params.Kind == 0 {
		return nil
	}
	data, err := yaml.Marshal(&params)
	if err != nil {
		return fmt.Errorf("failed to encode parameters: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("failed to decode parameters: %w", err)
	}
	if err := paramValidator.Struct(target); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	return nil
}
