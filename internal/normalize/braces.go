package normalize

import (
	"strings"

	"github.com/ahrav/physgrade/internal/domain"
)

var closerFor = map[byte]byte{'{': '}', '(': ')', '[': ']'}

var mathDelimiters = []struct{ open, close string }{
	{"$$", "$$"},
	{`\[`, `\]`},
	{`\(`, `\)`},
	{"$", "$"},
}

// mathDelimiterRemover lists $$ before $ so display pairs go as a unit.
var mathDelimiterRemover = strings.NewReplacer("$$", " ", `\[`, " ", `\]`, " ", `\(`, " ", `\)`, " ", "$", " ")

var boxCommands = []string{`\boxed{`, `\fbox{`}

// ExtractMathContent returns the mathematically meaningful part of s.
// It unwraps a \boxed{...} group, strips a LaTeX math delimiter pair
// ($$, $, \[, \() that encloses the whole string and any braces that do.
// When a leading pair closes early, as in "$3$ km", every math delimiter
// is removed in place and the surrounding text is kept.
// Input without delimiters is returned trimmed but otherwise unchanged.
// Unbalanced input never fails: unmatched delimiters are dropped and the
// remaining content is returned.
func ExtractMathContent(s string) string {
	out, _ := ExtractMathContentStrict(s)
	return out
}

// ExtractMathContentStrict behaves like ExtractMathContent but also reports
// a *domain.UnbalancedDelimiterError when delimiters had to be repaired.
// The returned string is the repaired content in both cases.
func ExtractMathContentStrict(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}

	input := s
	repaired, unclosed := repairDelimiters(s)
	s = unwrapBoxed(strings.TrimSpace(repaired))
	for {
		next, changed := stripOuter(s)
		if !changed {
			break
		}
		s = next
	}

	if unclosed > 0 {
		return s, &domain.UnbalancedDelimiterError{Input: input, Unclosed: unclosed, Repaired: s}
	}
	return s, nil
}

// FirstBalancedGroup returns the interior of the first top-level group
// delimited by {}, () or [] and whether a balanced group was found.
func FirstBalancedGroup(s string) (string, bool) {
	for i := 0; i < len(s); i++ {
		if isEscaped(s, i) {
			continue
		}
		if _, ok := closerFor[s[i]]; ok {
			end, ok := matchingClose(s, i)
			if !ok {
				return "", false
			}
			return s[i+1 : end], true
		}
	}
	return "", false
}

// matchingClose returns the index of the delimiter closing the one at open.
// Nesting is tracked with a counter that is incremented on every opener of
// the same kind and decremented on every closer; the group is balanced when
// the counter returns to zero.
func matchingClose(s string, open int) (int, bool) {
	opener := s[open]
	closer, ok := closerFor[opener]
	if !ok {
		return 0, false
	}
	depth := 0
	for i := open; i < len(s); i++ {
		if isEscaped(s, i) {
			continue
		}
		switch s[i] {
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// isEscaped reports whether s[i] is preceded by a backslash (\{, \}).
func isEscaped(s string, i int) bool {
	return i > 0 && s[i-1] == '\\'
}

// repairDelimiters removes unmatched openers and closers and returns the
// result together with the number of openers that were never closed.
func repairDelimiters(s string) (string, int) {
	type open struct {
		pos int
		ch  byte
	}
	var stack []open
	drop := make(map[int]struct{})
	for i := 0; i < len(s); i++ {
		if isEscaped(s, i) {
			continue
		}
		c := s[i]
		if _, ok := closerFor[c]; ok {
			stack = append(stack, open{pos: i, ch: c})
			continue
		}
		if c != '}' && c != ')' && c != ']' {
			continue
		}
		if n := len(stack); n > 0 && closerFor[stack[n-1].ch] == c {
			stack = stack[:n-1]
			continue
		}
		drop[i] = struct{}{}
	}
	for _, o := range stack {
		drop[o.pos] = struct{}{}
	}
	if len(drop) == 0 {
		return s, 0
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if _, ok := drop[i]; !ok {
			b.WriteByte(s[i])
		}
	}
	return b.String(), len(stack)
}

func unwrapBoxed(s string) string {
	for _, cmd := range boxCommands {
		i := strings.Index(s, cmd)
		if i < 0 {
			continue
		}
		open := i + len(cmd) - 1
		if end, ok := matchingClose(s, open); ok {
			return strings.TrimSpace(s[open+1 : end])
		}
	}
	return s
}

// stripOuter removes one layer of math delimiters or enclosing braces.
func stripOuter(s string) (string, bool) {
	for _, d := range mathDelimiters {
		if !strings.HasPrefix(s, d.open) {
			continue
		}
		rest := s[len(d.open):]
		k := strings.Index(rest, d.close)
		switch {
		case k < 0:
			return strings.TrimSpace(rest), true
		case k == len(rest)-len(d.close):
			return strings.TrimSpace(rest[:k]), true
		default:
			// "$3$ km" and "$x$ + $y$": text outside the pair is content.
			return strings.Join(strings.Fields(mathDelimiterRemover.Replace(s)), " "), true
		}
	}
	if len(s) >= 2 && s[0] == '{' {
		if end, ok := matchingClose(s, 0); ok && end == len(s)-1 {
			return strings.TrimSpace(s[1:end]), true
		}
	}
	return s, false
}
