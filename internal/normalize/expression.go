package normalize

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var mathGlyphReplacer = strings.NewReplacer(
	"−", "-",
	"–", "-",
	"×", `\times `,
	"·", `\cdot `,
	"⋅", `\cdot `,
	"²", "^2",
	"³", "^3",
	"π", `\pi `,
	"°", `\mathrm{degree}`,
	"√", `\sqrt `,
)

// foldMathGlyphs rewrites Unicode math glyphs to their LaTeX spelling and
// applies NFKC. The replacer runs again after NFKC because compatibility
// decomposition can itself produce glyphs such as π.
func foldMathGlyphs(s string) string {
	return mathGlyphReplacer.Replace(norm.NFKC.String(mathGlyphReplacer.Replace(s)))
}

// droppedCommands carry no meaning for string equality: sizing, style and
// explicit multiplication (which is canonicalized to juxtaposition).
var droppedCommands = map[string]struct{}{
	`\left`:         {},
	`\right`:        {},
	`\bigl`:         {},
	`\bigr`:         {},
	`\Bigl`:         {},
	`\Bigr`:         {},
	`\displaystyle`: {},
	`\textstyle`:    {},
	`\cdot`:         {},
	`\times`:        {},
}

// NormalizeExpression canonicalizes a formula or one side of an equation.
// It applies Preprocess and ExtractMathContent, then tokenizes the result
// and rejoins the tokens with single spaces, so "2x", "2 x", "2*x" and
// "2\cdot x" all become "2 x". Braces around a single token are removed,
// recognized multi-letter unit words are rewritten to their canonical
// symbol, and stray math delimiters are dropped. The result is a fixed
// point: normalizing it again returns it unchanged.
//
// No algebra is performed: "(x+1)^2" and "x^2+2x+1" stay different.
func (n *Normalizer) NormalizeExpression(s string) string {
	out := n.normalizeExpressionOnce(s)
	for range maxExpressionPasses {
		next := n.normalizeExpressionOnce(out)
		if next == out {
			break
		}
		out = next
	}
	return out
}

// maxExpressionPasses bounds the re-normalization of output in which a
// dropped token exposed a new enclosing group, as in "*{a+b}".
const maxExpressionPasses = 4

func (n *Normalizer) normalizeExpressionOnce(s string) string {
	s = ExtractMathContent(n.Preprocess(foldMathGlyphs(s)))
	tokens := n.tokenize(s)
	tokens = dropRedundantBraces(tokens)
	return strings.Join(tokens, " ")
}

func (n *Normalizer) tokenize(s string) []string {
	var tokens []string
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case isSpace(c):
			i++
		case c == '$' || c == '*':
			i++
		case c == '\\' && i+1 < len(s) && isSpace(s[i+1]):
			i += 2
		case c == '\\':
			j := i + 1
			for j < len(s) && isLetter(s[j]) {
				j++
			}
			if j == i+1 {
				if j < len(s) {
					_, size := utf8.DecodeRuneInString(s[j:])
					j += size
				}
			}
			tok := s[i:j]
			if _, drop := droppedCommands[tok]; !drop && tok != `\` && !isMathDelimiter(tok) {
				tokens = append(tokens, tok)
			}
			i = j
		case isDigit(c) || (c == '.' && i+1 < len(s) && isDigit(s[i+1])):
			j := i
			for j < len(s) && isDigit(s[j]) {
				j++
			}
			if j < len(s) && s[j] == '.' && j+1 < len(s) && isDigit(s[j+1]) {
				j++
				for j < len(s) && isDigit(s[j]) {
					j++
				}
			}
			tokens = append(tokens, s[i:j])
			i = j
		case isLetter(c):
			j := i
			for j < len(s) && isLetter(s[j]) {
				j++
			}
			tokens = append(tokens, n.canonicalWord(s[i:j]))
			i = j
		default:
			_, size := utf8.DecodeRuneInString(s[i:])
			tokens = append(tokens, s[i:i+size])
			i += size
		}
	}
	return tokens
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }

func isMathDelimiter(tok string) bool {
	return tok == `\(` || tok == `\)` || tok == `\[` || tok == `\]`
}

// canonicalWord rewrites whitelisted unit words. Single letters are never
// touched because they are far more often variables than units.
func (n *Normalizer) canonicalWord(w string) string {
	if len(w) < 2 {
		return w
	}
	if c, ok := n.tables.Units[strings.ToLower(w)]; ok && len(c) >= 2 {
		return c
	}
	return w
}

// dropRedundantBraces rewrites "{ x }" to "x" until no such group remains.
func dropRedundantBraces(tokens []string) []string {
	for {
		changed := false
		out := tokens[:0:0]
		for i := 0; i < len(tokens); i++ {
			if i+2 < len(tokens) && tokens[i] == "{" && tokens[i+2] == "}" && tokens[i+1] != "{" && tokens[i+1] != "}" {
				out = append(out, tokens[i+1])
				i += 2
				changed = true
				continue
			}
			out = append(out, tokens[i])
		}
		tokens = out
		if !changed {
			return tokens
		}
	}
}

// SplitEquation splits an equation into its sides on top-level "=".
// Each side is normalized independently.
func (n *Normalizer) SplitEquation(s string) []string {
	s = ExtractMathContent(n.Preprocess(foldMathGlyphs(s)))
	parts := SplitTopLevel(s, '=')
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = n.NormalizeExpression(p)
	}
	return out
}
