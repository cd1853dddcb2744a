package normalize

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// foldCaser is a package-level Unicode case folder; cases.Caser values
// are stateless for String and safe to share.
var foldCaser = cases.Fold()

const terminalPunctuation = ".!?,;:"

// NormalizeText canonicalizes a free-text answer: NFKC, Unicode case
// folding, whitespace collapsing, removal of terminal punctuation and of
// filler phrases ("the", "a", "the answer is") at the string boundaries
// only. Filler is never removed when nothing would remain.
func (n *Normalizer) NormalizeText(s string) string {
	s = foldText(s)
	s = strings.Join(strings.Fields(s), " ")
	for {
		next := n.stripTextBoundaries(s)
		if next == s {
			return s
		}
		s = next
	}
}

const maxFoldPasses = 8

// foldText applies NFKC and case folding until the string stops changing.
// Some scripts, Cherokee among them, fold back and forth between two
// spellings; the smallest member of such a cycle is returned so that the
// result is stable under a second call.
func foldText(s string) string {
	seen := []string{norm.NFKC.String(s)}
	for range maxFoldPasses {
		next := norm.NFKC.String(foldCaser.String(seen[len(seen)-1]))
		if i := slices.Index(seen, next); i >= 0 {
			return slices.Min(seen[i:])
		}
		seen = append(seen, next)
	}
	return seen[len(seen)-1]
}

func (n *Normalizer) stripTextBoundaries(s string) string {
	s = strings.TrimRight(s, terminalPunctuation+" ")
	s = strings.TrimLeft(s, ",;: ")
	for _, f := range n.tables.FillerPrefixes {
		if rest, ok := trimWordPrefix(s, f); ok && rest != "" {
			return rest
		}
	}
	for _, f := range n.tables.FillerSuffixes {
		if rest, ok := trimWordSuffix(s, f); ok && rest != "" {
			return rest
		}
	}
	return s
}

// trimWordPrefix removes prefix from s when it ends on a word boundary.
func trimWordPrefix(s, prefix string) (string, bool) {
	if !strings.HasPrefix(s, prefix) {
		return s, false
	}
	rest := s[len(prefix):]
	if r, _ := utf8.DecodeRuneInString(rest); rest != "" && isLetterOrDigitEnd(prefix) && isWordRune(r) {
		return s, false
	}
	return strings.TrimSpace(rest), true
}

// trimWordSuffix removes suffix from s when it starts on a word boundary.
func trimWordSuffix(s, suffix string) (string, bool) {
	if !strings.HasSuffix(s, suffix) {
		return s, false
	}
	rest := s[:len(s)-len(suffix)]
	if r, _ := utf8.DecodeLastRuneInString(rest); rest != "" && isAlnum(suffix[0]) && isWordRune(r) {
		return s, false
	}
	return strings.TrimSpace(rest), true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '\''
}

func isLetterOrDigitEnd(s string) bool {
	return s != "" && isAlnum(s[len(s)-1])
}
