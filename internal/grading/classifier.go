package grading

import (
	"regexp"
	"strings"
	"time"

	"github.com/ahrav/physgrade/internal/domain"
	"github.com/ahrav/physgrade/internal/normalize"
	"github.com/ahrav/physgrade/internal/ports"
)

// optionRe matches a multiple-choice token: "B", "(b)", "c." or "(D).".
var optionRe = regexp.MustCompile(`^\(?([A-Da-d])\)?\.?$`)

// mathGlyphs are Unicode symbols that mark an answer as a formula.
const mathGlyphs = "√π×·⋅²³∫∑∏∂∇∞≈≤≥≠±∓"

// Classify assigns s to exactly one category. The first matching rule wins:
// a number with an optional known unit, an equation with a top-level "=",
// a multiple-choice letter, an expression with math operators, and finally
// free text. The empty string is TEXT.
func (e *Engine) Classify(s string) domain.Category {
	if e.metrics == nil {
		return e.classify(s)
	}
	start := time.Now()
	cat := e.classify(s)
	e.metrics.RecordLatency(ports.OperationClassify, time.Since(start), map[string]string{
		ports.LabelCategory: string(cat),
	})
	return cat
}

func (e *Engine) classify(s string) domain.Category {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.CategoryText
	}
	body := normalize.ExtractMathContent(e.norm.Preprocess(s))

	if cat, ok := e.classifyNumeric(body); ok {
		return cat
	}
	if isEquation(body) {
		return domain.CategoryEquation
	}
	if optionRe.MatchString(body) {
		return domain.CategoryOption
	}
	if hasMathOperator(s) {
		return domain.CategoryFormula
	}
	return domain.CategoryText
}

func (e *Engine) classifyNumeric(s string) (domain.Category, bool) {
	if normalize.IsNumericLiteral(s) {
		return domain.CategoryNumber, true
	}
	_, rest, err := normalize.ParseNumericPrefix(s, normalize.FixedPoint)
	if err != nil {
		return "", false
	}
	if unit := e.norm.NormalizeUnit(rest); unit != "" && e.norm.IsKnownUnit(unit) {
		return domain.CategoryPhysicalQuantity, true
	}
	return "", false
}

func isEquation(s string) bool {
	parts := normalize.SplitTopLevel(s, '=')
	if len(parts) < 2 {
		return false
	}
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return false
		}
	}
	return true
}

// hasMathOperator reports whether s contains an arithmetic operator, a
// LaTeX command or a Unicode math glyph. A hyphen or slash joining two
// words of at least two letters ("well-known", "and/or") is prose
// punctuation; with a single-letter operand ("x-y", "F/m") it is an operator.
func hasMathOperator(s string) bool {
	if strings.ContainsAny(s, mathGlyphs) {
		return true
	}
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '+', '*', '^', '_', '<', '>', '|', '=':
			return true
		case '-', '/':
			if letterRunBefore(s, i) < 2 || letterRunAfter(s, i) < 2 {
				return true
			}
		case '\\':
			if i+1 < len(s) && isASCIILetter(s[i+1]) {
				return true
			}
		}
	}
	return false
}

func isASCIILetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

func letterRunBefore(s string, i int) int {
	n := 0
	for j := i - 1; j >= 0 && isASCIILetter(s[j]); j-- {
		n++
	}
	return n
}

func letterRunAfter(s string, i int) int {
	n := 0
	for j := i + 1; j < len(s) && isASCIILetter(s[j]); j++ {
		n++
	}
	return n
}
