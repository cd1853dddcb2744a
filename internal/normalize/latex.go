package normalize

import (
	"regexp"
	"strings"
)

var (
	spacingCommandRe = regexp.MustCompile(`\\\\|\\(?:qquad|quad)(?:\b|$)|\\[,:;! ]|~`)
	differentialRe   = regexp.MustCompile(`\\(?:mathrm|text|operatorname)\s*\{\s*d\s*\}`)
	whitespaceRe     = regexp.MustCompile(`\s+`)
)

// Preprocess rewrites LaTeX constructs that break downstream parsing.
// The steps run in a fixed order because later ones assume the earlier
// cleanup:
//
//  1. spacing commands (\, \: \; \! \quad \qquad) become a space
//  2. protected symbols become \mathrm{name}
//  3. decorations such as \vec{X} and \hat{X} collapse to X
//  4. \mathrm{d} and \text{d} become a spaced d token
//  5. whitespace is collapsed and trimmed
//
// Malformed input is cleaned up as far as possible; Preprocess never fails.
func (n *Normalizer) Preprocess(raw string) string {
	if raw == "" {
		return ""
	}
	s := spacingCommandRe.ReplaceAllStringFunc(raw, spaceOrLineBreak)
	for _, sym := range n.tables.ProtectedSymbols {
		s = replaceCommand(s, sym.Command, `\mathrm{`+sym.Name+`}`)
	}
	for _, cmd := range n.tables.Decorations {
		s = stripDecoration(s, cmd)
	}
	s = differentialRe.ReplaceAllString(s, " d ")
	return collapseSpace(s)
}

// spaceOrLineBreak keeps \\ intact so that the backslash it ends with is
// never read as the start of a "\ " spacing command.
func spaceOrLineBreak(m string) string {
	if m == `\\` {
		return m
	}
	return " "
}

func collapseSpace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// replaceCommand substitutes every occurrence of cmd that is not the prefix
// of a longer command name (\ell must not match \ellipsis).
func replaceCommand(s, cmd, repl string) string {
	if cmd == "" || !strings.Contains(s, cmd) {
		return s
	}
	checkBoundary := isLetter(cmd[len(cmd)-1])
	var b strings.Builder
	b.Grow(len(s))
	for {
		i := strings.Index(s, cmd)
		if i < 0 {
			b.WriteString(s)
			break
		}
		end := i + len(cmd)
		if checkBoundary && end < len(s) && isLetter(s[end]) {
			b.WriteString(s[:end])
			s = s[end:]
			continue
		}
		b.WriteString(s[:i])
		b.WriteString(repl)
		s = s[end:]
	}
	return b.String()
}

// stripDecoration replaces cmd{X} and "cmd x" with X. A space is inserted
// where the bare argument would otherwise fuse with an adjacent letter or
// digit, so m\vec{a} becomes "m a" rather than "ma".
func stripDecoration(s, cmd string) string {
	var b strings.Builder
	b.Grow(len(s))
	for {
		i := strings.Index(s, cmd)
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		end := i + len(cmd)
		if end < len(s) && isLetter(s[end]) {
			b.WriteString(s[:end])
			s = s[end:]
			continue
		}

		j := end
		for j < len(s) && s[j] == ' ' {
			j++
		}
		var arg string
		var rest string
		switch {
		case j < len(s) && s[j] == '{':
			closeIdx, ok := matchingClose(s, j)
			if !ok {
				// Unclosed argument: drop the command and the brace.
				arg, rest = s[j+1:], ""
			} else {
				arg, rest = s[j+1:closeIdx], s[closeIdx+1:]
			}
		case j < len(s) && s[j] == '\\':
			k := j + 1
			for k < len(s) && isLetter(s[k]) {
				k++
			}
			arg, rest = s[j:k], s[k:]
		case j < len(s):
			arg, rest = s[j:j+1], s[j+1:]
		default:
			arg, rest = "", ""
		}

		prefix := s[:i]
		b.WriteString(prefix)
		arg = strings.TrimSpace(arg)
		if arg != "" {
			if needsSeparator(lastByte(b.String()), arg[0]) {
				b.WriteByte(' ')
			}
			b.WriteString(arg)
			if rest != "" && needsSeparator(arg[len(arg)-1], rest[0]) {
				b.WriteByte(' ')
			}
		}
		s = rest
	}
}

func lastByte(s string) byte {
	if s == "" {
		return 0
	}
	return s[len(s)-1]
}

func needsSeparator(left, right byte) bool {
	return isAlnum(left) && (isAlnum(right) || right == '\\')
}

func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlnum(c byte) bool { return isLetter(c) || isDigit(c) }
