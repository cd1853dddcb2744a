package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/ahrav/physgrade/internal/domain"
)

// Quantity is a number with an optional unit.
type Quantity struct {
	Number Numeric

	// Unit is the canonical unit; empty when none was given.
	Unit string
}

var (
	unitWrapperRe = regexp.MustCompile(`\\(?:mathrm|text|textrm|rm|operatorname|mbox)\b`)
	unitReplacer  = strings.NewReplacer(
		`\Omega`, "ohm",
		`\mu `, "u",
		"Ω", "ohm",
		`\mu`, "u",
		"µ", "u",
		"μ", "u",
		`\%`, "%",
		"°", "deg",
		`\circ`, "deg",
		`\degree`, "deg",
		`\cdot`, "*",
		`\times`, "*",
		"·", "*",
		"⋅", "*",
		`\,`, " ",
		`\ `, " ",
		"~", " ",
		"{", "",
		"}", "",
	)
)

// ParseQuantity splits a physical quantity such as "v = 3.0 m/s" into its
// number and canonical unit. A leading "symbol =" assignment is ignored.
// A missing unit is not an error; an unparsable number is.
func (n *Normalizer) ParseQuantity(s string, form NumericForm) (Quantity, error) {
	s = ExtractMathContent(n.Preprocess(s))
	if parts := SplitTopLevel(s, '='); len(parts) > 1 {
		s = strings.TrimSpace(parts[len(parts)-1])
	}
	s = strings.TrimSuffix(strings.TrimSpace(strings.Trim(s, "$")), ".")
	num, rest, err := ParseNumericPrefix(s, form)
	if err != nil {
		return Quantity{}, err
	}
	unit := n.NormalizeUnit(rest)
	if unit != "" && !startsLikeUnit(unit) {
		return Quantity{}, &domain.NumberParseError{Input: s, Reason: "trailing characters"}
	}
	return Quantity{Number: num, Unit: unit}, nil
}

// startsLikeUnit rejects remainders such as "+ 4" or "^2" that mean the
// number was only the first term of a larger expression.
func startsLikeUnit(unit string) bool {
	r, _ := utf8.DecodeRuneInString(unit)
	return unicode.IsLetter(r) || r == '%'
}

// NormalizeUnit canonicalizes a unit string. LaTeX wrappers such as
// \mathrm{...} are removed, known spellings collapse to their symbol
// ("meters per second" -> "m/s"), and juxtaposed units are joined with "*".
// Unknown words are kept as written.
func (n *Normalizer) NormalizeUnit(s string) string {
	s = norm.NFKC.String(s)
	s = unitWrapperRe.ReplaceAllString(s, "")
	s = unitReplacer.Replace(s)
	s = strings.ReplaceAll(s, "^deg", "deg")

	type token struct {
		text string
		word bool
	}
	var tokens []token
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case unicode.IsSpace(r):
			i += size
		case unicode.IsLetter(r):
			j := i
			for j < len(s) {
				r2, sz := utf8.DecodeRuneInString(s[j:])
				if !unicode.IsLetter(r2) {
					break
				}
				j += sz
			}
			word := s[i:j]
			if strings.EqualFold(word, "per") {
				tokens = append(tokens, token{text: "/"})
			} else {
				tokens = append(tokens, token{text: n.canonicalUnit(word), word: true})
			}
			i = j
		case r == '\\':
			// Drop any remaining command backslash; its name is read as a word.
			i += size
		default:
			tokens = append(tokens, token{text: string(r)})
			i += size
		}
	}

	var b strings.Builder
	for i, t := range tokens {
		if i > 0 && t.word && tokens[i-1].word {
			b.WriteByte('*')
		}
		b.WriteString(t.text)
	}
	return b.String()
}

// UnitsEqual compares two canonical units case-insensitively.
func UnitsEqual(a, b string) bool { return strings.EqualFold(a, b) }

// IsKnownUnit reports whether every word in unit is a recognized unit
// spelling. Used by the classifier to tell "3 m" from "3 apples".
func (n *Normalizer) IsKnownUnit(unit string) bool {
	found := false
	for _, w := range strings.FieldsFunc(unit, func(r rune) bool { return !unicode.IsLetter(r) }) {
		_, spelled := n.tables.Units[strings.ToLower(w)]
		_, canonical := n.unitSymbols[w]
		if !spelled && !canonical {
			return false
		}
		found = true
	}
	return found || strings.TrimSpace(unit) == "%"
}

func (n *Normalizer) canonicalUnit(word string) string {
	if c, ok := n.tables.Units[strings.ToLower(word)]; ok {
		return c
	}
	return word
}

// SplitTopLevel splits s on sep occurrences that are not nested inside a
// balanced {}, () or [] group. Relational operators <=, >=, != and == do
// not count as a bare "=".
func SplitTopLevel(s string, sep byte) []string {
	var parts []string
	depth, last := 0, 0
	for i := 0; i < len(s); i++ {
		if isEscaped(s, i) {
			continue
		}
		switch c := s[i]; {
		case c == '{' || c == '(' || c == '[':
			depth++
		case c == '}' || c == ')' || c == ']':
			if depth > 0 {
				depth--
			}
		case c == sep && depth == 0:
			if sep == '=' && isCompoundRelation(s, i) {
				continue
			}
			parts = append(parts, s[last:i])
			last = i + 1
		}
	}
	return append(parts, s[last:])
}

func isCompoundRelation(s string, i int) bool {
	if i > 0 && strings.IndexByte("<>!=:", s[i-1]) >= 0 {
		return true
	}
	return i+1 < len(s) && s[i+1] == '='
}
