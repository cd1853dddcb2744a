package grading

import (
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/ahrav/physgrade/internal/domain"
	"github.com/ahrav/physgrade/internal/normalize"
)

// Compare applies the equivalence rule of the answers' shared category
// using the configured epsilon.
func (e *Engine) Compare(candidate, groundTruth domain.Answer) domain.ComparisonResult {
	return e.CompareWithEpsilon(candidate, groundTruth, e.cfg.Epsilon)
}

// CompareWithEpsilon is Compare with a per-call numeric tolerance. A
// non-positive epsilon selects the configured one.
//
// Answers whose categories differ are reported as category_mismatch unless
// a CoercionPolicy accepts the pair. Answers that fail validation are
// reported as invalid_answer. No error crosses this boundary.
func (e *Engine) CompareWithEpsilon(candidate, groundTruth domain.Answer, epsilon float64) domain.ComparisonResult {
	start := time.Now()
	res := e.compare(candidate, groundTruth, epsilon)
	e.observe(res, start)
	return res
}

func (e *Engine) compare(candidate, groundTruth domain.Answer, epsilon float64) domain.ComparisonResult {
	if epsilon <= 0 {
		epsilon = e.cfg.Epsilon
	}

	category := groundTruth.Category()
	if candidate.Category() != groundTruth.Category() {
		coerced, ok := e.coerce(candidate.Category(), groundTruth.Category())
		if !ok {
			return domain.ComparisonResult{
				Category:    category,
				Reason:      domain.ReasonCategoryMismatch,
				Candidate:   e.Normalize(candidate),
				GroundTruth: e.Normalize(groundTruth),
			}
		}
		category = coerced
	}

	if candidate.Validate() != nil || groundTruth.Validate() != nil {
		return domain.ComparisonResult{Category: category, Reason: domain.ReasonInvalidAnswer}
	}

	c, g := candidate.Value(), groundTruth.Value()
	switch category {
	case domain.CategoryNumber, domain.CategoryPhysicalQuantity:
		return e.compareNumeric(c, g, category, epsilon)
	case domain.CategoryFormula:
		return e.compareCanonical(e.normalizeExpression(c), e.normalizeExpression(g), category, domain.ReasonExpressionMismatch)
	case domain.CategoryEquation:
		return e.compareEquations(c, g)
	case domain.CategoryOption:
		return e.compareCanonical(e.normalizeOption(c), e.normalizeOption(g), category, domain.ReasonOptionMismatch)
	default:
		return e.compareText(c, g)
	}
}

func (e *Engine) coerce(candidate, groundTruth domain.Category) (domain.Category, bool) {
	if e.coercion == nil {
		return "", false
	}
	cat, ok := e.coercion(candidate, groundTruth)
	if !ok || !cat.IsValid() {
		return "", false
	}
	return cat, true
}

// CompareRaw grades two raw strings. When declared is empty the ground
// truth is classified and its category is applied to both sides.
func (e *Engine) CompareRaw(candidate, groundTruth string, declared domain.Category) domain.ComparisonResult {
	category := declared
	if category == "" {
		category = e.Classify(groundTruth)
	}
	g, err := domain.NewAnswer(groundTruth, category)
	if err != nil {
		return e.invalid(category)
	}
	return e.CompareCandidate(candidate, g, 0)
}

// CompareCandidate grades raw candidate text against an already validated
// ground truth, under the ground truth's category. A candidate that fails
// that category's validator is reported and counted as invalid_answer.
// A non-positive epsilon selects the configured one.
func (e *Engine) CompareCandidate(candidate string, groundTruth domain.Answer, epsilon float64) domain.ComparisonResult {
	c, err := domain.NewAnswer(candidate, groundTruth.Category())
	if err != nil {
		return e.invalid(groundTruth.Category())
	}
	return e.CompareWithEpsilon(c, groundTruth, epsilon)
}

func (e *Engine) invalid(category domain.Category) domain.ComparisonResult {
	res := domain.ComparisonResult{Category: category, Reason: domain.ReasonInvalidAnswer}
	e.observe(res, time.Now())
	return res
}

// CompareNumbers applies the absolute decimal-place rule to two floats:
// the candidate is rounded to the ground truth's decimal places when it
// has more, then |candidate - groundTruth| < epsilon decides.
func (e *Engine) CompareNumbers(candidate, groundTruth, epsilon float64) bool {
	if epsilon <= 0 {
		epsilon = e.cfg.Epsilon
	}
	return withinAbsolute(candidate, groundTruth, epsilon)
}

func withinAbsolute(candidate, groundTruth, epsilon float64) bool {
	if math.IsNaN(candidate) || math.IsNaN(groundTruth) {
		return false
	}
	places := normalize.DecimalPlaces(groundTruth)
	if normalize.DecimalPlaces(candidate) > places {
		candidate = normalize.RoundToDecimalPlaces(candidate, places)
	}
	return math.Abs(candidate-groundTruth) < epsilon
}

// Normalize derives the canonical form of a under its own category.
func (e *Engine) Normalize(a domain.Answer) domain.NormalizedForm {
	return e.normalizeAs(a.Value(), a.Category())
}

func (e *Engine) normalizeAs(value string, category domain.Category) domain.NormalizedForm {
	switch category {
	case domain.CategoryNumber, domain.CategoryPhysicalQuantity:
		form, _ := e.numericForm(value, category, e.numericStyle())
		return form
	case domain.CategoryFormula:
		return e.normalizeExpression(value)
	case domain.CategoryEquation:
		return e.normalizeEquation(value)
	case domain.CategoryOption:
		return e.normalizeOption(value)
	default:
		return domain.NormalizedForm{Category: category, Canonical: e.norm.NormalizeText(value)}
	}
}

func (e *Engine) numericStyle() normalize.NumericForm {
	if e.cfg.ToleranceMode == ToleranceSignificant {
		return normalize.Scientific
	}
	return normalize.FixedPoint
}

// numericForm parses value as a quantity. On a parse failure the form
// falls back to the normalized expression string and ok is false.
func (e *Engine) numericForm(value string, category domain.Category, style normalize.NumericForm) (domain.NormalizedForm, bool) {
	q, err := e.norm.ParseQuantity(value, style)
	if err != nil {
		return domain.NormalizedForm{Category: category, Canonical: e.norm.NormalizeExpression(value)}, false
	}
	n := q.Number
	canonical := numericCanonical(n, style)
	if q.Unit != "" {
		canonical += " " + q.Unit
	}
	return domain.NormalizedForm{
		Category:  category,
		Canonical: canonical,
		Numeric:   true,
		Mantissa:  n.Mantissa,
		Exponent:  n.Exponent,
		Decimals:  n.Decimals,
		Value:     n.Value,
		Unit:      q.Unit,
	}, true
}

func numericCanonical(n normalize.Numeric, style normalize.NumericForm) string {
	if style == normalize.Scientific {
		return normalize.FormatNumericValue(n.Mantissa, 0, n.Decimals) + "e" + strconv.Itoa(n.Exponent)
	}
	return normalize.FormatNumericValue(n.Mantissa, n.Exponent, max(n.Decimals-n.Exponent, 0))
}

func (e *Engine) compareNumeric(candidate, groundTruth string, category domain.Category, epsilon float64) domain.ComparisonResult {
	style := e.numericStyle()
	cf, cok := e.numericForm(candidate, category, style)
	gf, gok := e.numericForm(groundTruth, category, style)
	res := domain.ComparisonResult{Category: category, Candidate: cf, GroundTruth: gf}

	if !cok || !gok {
		res.Equal = cf.Canonical == gf.Canonical
		if !res.Equal {
			res.Reason = domain.ReasonStringMismatch
		}
		return res
	}

	if !e.unitsMatch(cf.Unit, gf.Unit) {
		res.Reason = domain.ReasonUnitMismatch
		return res
	}

	if style == normalize.Scientific && gf.Value != 0 {
		cm := normalize.Numeric{Mantissa: cf.Mantissa, Exponent: cf.Exponent}.AtExponent(gf.Exponent)
		if normalize.DecimalPlaces(cm) > gf.Decimals {
			cm = normalize.RoundToDecimalPlaces(cm, gf.Decimals)
		}
		res.Equal = math.Abs(cm-gf.Mantissa) < epsilon
		if !res.Equal {
			res.Reason = domain.ReasonNumericMismatch
			if cf.Exponent != gf.Exponent {
				res.Reason = domain.ReasonExponentMismatch
			}
		}
		return res
	}

	res.Equal = withinAbsolute(cf.Value, gf.Value, epsilon)
	if !res.Equal {
		res.Reason = domain.ReasonNumericMismatch
	}
	return res
}

// unitsMatch applies the unit rule: both absent, both equal, or only the
// candidate's missing when AllowMissingUnit is set.
func (e *Engine) unitsMatch(candidate, groundTruth string) bool {
	switch {
	case candidate == "" && groundTruth == "":
		return true
	case candidate == "":
		return e.cfg.AllowMissingUnit
	case groundTruth == "":
		return false
	default:
		return normalize.UnitsEqual(candidate, groundTruth)
	}
}

func (e *Engine) compareCanonical(c, g domain.NormalizedForm, category domain.Category, reason domain.Reason) domain.ComparisonResult {
	res := domain.ComparisonResult{
		Equal:       c.Canonical == g.Canonical,
		Category:    category,
		Candidate:   c,
		GroundTruth: g,
	}
	if !res.Equal {
		res.Reason = reason
	}
	return res
}

func (e *Engine) normalizeExpression(s string) domain.NormalizedForm {
	return domain.NormalizedForm{Category: domain.CategoryFormula, Canonical: e.norm.NormalizeExpression(s)}
}

const equationSeparator = " = "

func (e *Engine) normalizeEquation(s string) domain.NormalizedForm {
	return domain.NormalizedForm{
		Category:  domain.CategoryEquation,
		Canonical: strings.Join(e.norm.SplitEquation(s), equationSeparator),
	}
}

// compareEquations matches side lists in order or reversed, so "F = m a"
// equals "m a = F". Sides are never moved across the "=" otherwise.
func (e *Engine) compareEquations(candidate, groundTruth string) domain.ComparisonResult {
	cs := e.norm.SplitEquation(candidate)
	gs := e.norm.SplitEquation(groundTruth)
	res := domain.ComparisonResult{
		Category:    domain.CategoryEquation,
		Candidate:   domain.NormalizedForm{Category: domain.CategoryEquation, Canonical: strings.Join(cs, equationSeparator)},
		GroundTruth: domain.NormalizedForm{Category: domain.CategoryEquation, Canonical: strings.Join(gs, equationSeparator)},
	}
	reversed := slices.Clone(cs)
	slices.Reverse(reversed)
	res.Equal = slices.Equal(cs, gs) || slices.Equal(reversed, gs)
	if !res.Equal {
		res.Reason = domain.ReasonEquationMismatch
	}
	return res
}

// normalizeOption reduces a multiple-choice answer to its upper-case
// letter. Tokens that are not A-D letters are compared as folded text.
func (e *Engine) normalizeOption(s string) domain.NormalizedForm {
	form := domain.NormalizedForm{Category: domain.CategoryOption}
	candidates := []string{
		normalize.ExtractMathContent(e.norm.Preprocess(s)),
		e.norm.NormalizeText(s),
	}
	for _, c := range candidates {
		if m := optionRe.FindStringSubmatch(strings.TrimSpace(c)); m != nil {
			form.Canonical = strings.ToUpper(m[1])
			return form
		}
	}
	form.Canonical = strings.ToUpper(e.norm.NormalizeText(s))
	return form
}

func (e *Engine) compareText(candidate, groundTruth string) domain.ComparisonResult {
	c := e.norm.NormalizeText(candidate)
	g := e.norm.NormalizeText(groundTruth)
	res := domain.ComparisonResult{
		Category:    domain.CategoryText,
		Candidate:   domain.NormalizedForm{Category: domain.CategoryText, Canonical: c},
		GroundTruth: domain.NormalizedForm{Category: domain.CategoryText, Canonical: g},
	}
	switch e.cfg.TextMatch {
	case TextMatchContains:
		res.Equal = c == g || (g != "" && strings.Contains(c, g))
	case TextMatchFuzzy:
		res.Equal = similarity(c, g) >= e.cfg.FuzzyThreshold
	default:
		res.Equal = c == g
	}
	if !res.Equal {
		res.Reason = domain.ReasonTextMismatch
	}
	return res
}

// similarity is 1 - distance / max rune length, in [0, 1].
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
}
