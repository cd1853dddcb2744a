package domain

// Reason is a machine-readable explanation attached to a failed comparison.
type Reason string

// Reasons reported on ComparisonResult. An equal result carries ReasonNone.
const (
	ReasonNone               Reason = ""
	ReasonCategoryMismatch   Reason = "category_mismatch"
	ReasonInvalidAnswer      Reason = "invalid_answer"
	ReasonNumericMismatch    Reason = "numeric_mismatch"
	ReasonUnitMismatch       Reason = "unit_mismatch"
	ReasonExponentMismatch   Reason = "exponent_mismatch"
	ReasonStringMismatch     Reason = "string_mismatch"
	ReasonExpressionMismatch Reason = "expression_mismatch"
	ReasonEquationMismatch   Reason = "equation_mismatch"
	ReasonTextMismatch       Reason = "text_mismatch"
	ReasonOptionMismatch     Reason = "option_mismatch"
)

// NormalizedForm is the disposable canonical representation derived from an
// Answer. Canonical is always populated; the numeric fields are set only
// when the answer parsed as a number.
type NormalizedForm struct {
	// Category is the category the form was derived under.
	Category Category `json:"category"`

	// Canonical is the canonical string used for string-equality checks.
	Canonical string `json:"canonical"`

	// Numeric reports whether Mantissa, Exponent and Value are meaningful.
	Numeric bool `json:"numeric"`

	// Mantissa and Exponent satisfy Mantissa * 10^Exponent == Value.
	Mantissa float64 `json:"mantissa,omitempty"`
	Exponent int     `json:"exponent,omitempty"`

	// Decimals is the number of mantissa digits after the point as written.
	Decimals int `json:"decimals,omitempty"`

	// Value is the parsed number.
	Value float64 `json:"value,omitempty"`

	// Unit is the canonical unit for physical quantities.
	Unit string `json:"unit,omitempty"`
}

// ComparisonResult is the outcome of comparing a candidate with a ground truth.
type ComparisonResult struct {
	// Equal is the verdict.
	Equal bool `json:"equal"`

	// Category is the category whose equivalence rule was applied.
	Category Category `json:"category"`

	// Reason explains a negative verdict; empty when Equal is true.
	Reason Reason `json:"reason,omitempty"`

	// Candidate and GroundTruth are the normalized forms that were compared.
	Candidate   NormalizedForm `json:"candidate"`
	GroundTruth NormalizedForm `json:"ground_truth"`
}

// Score maps the verdict onto the 0/1 scale used by judge summaries.
func (r ComparisonResult) Score() float64 {
	if r.Equal {
		return 1.0
	}
	return 0.0
}
