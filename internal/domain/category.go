package domain

import (
	"fmt"
	"strings"
)

// Category is the comparison strategy assigned to a raw answer.
// It is fixed at classification time and never changes afterwards.
type Category string

// The closed set of answer categories. Two answers are comparable only
// when their categories match.
const (
	// CategoryNumber is a bare numeric literal such as "1.5" or "3e8".
	CategoryNumber Category = "number"

	// CategoryPhysicalQuantity is a number followed by a unit, e.g. "9.8 m/s^2".
	CategoryPhysicalQuantity Category = "physical_quantity"

	// CategoryFormula is a symbolic expression without a relational operator.
	CategoryFormula Category = "formula"

	// CategoryEquation is an expression containing a top-level "=".
	CategoryEquation Category = "equation"

	// CategoryText is free-form prose.
	CategoryText Category = "text"

	// CategoryOption is a multiple-choice letter.
	CategoryOption Category = "option"
)

// Categories lists every category in classification precedence order.
var Categories = []Category{
	CategoryNumber,
	CategoryPhysicalQuantity,
	CategoryEquation,
	CategoryOption,
	CategoryFormula,
	CategoryText,
}

// IsValid reports whether c is one of the known categories.
func (c Category) IsValid() bool {
	switch c {
	case CategoryNumber, CategoryPhysicalQuantity, CategoryFormula,
		CategoryEquation, CategoryText, CategoryOption:
		return true
	}
	return false
}

// IsNumeric reports whether answers of this category carry a number.
func (c Category) IsNumeric() bool {
	return c == CategoryNumber || c == CategoryPhysicalQuantity
}

// String implements fmt.Stringer.
func (c Category) String() string { return string(c) }

// ParseCategory converts a user supplied label into a Category.
// Matching is case-insensitive and accepts a few common aliases
// ("quantity", "expression", "mcq").
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "number", "numeric":
		return CategoryNumber, nil
	case "physical_quantity", "quantity":
		return CategoryPhysicalQuantity, nil
	case "formula", "expression":
		return CategoryFormula, nil
	case "equation":
		return CategoryEquation, nil
	case "text":
		return CategoryText, nil
	case "option", "mcq", "choice":
		return CategoryOption, nil
	}
	return "", fmt.Errorf("%w: unknown answer category %q", ErrInvalidCategory, s)
}
