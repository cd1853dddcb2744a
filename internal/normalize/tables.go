// Package normalize canonicalizes raw physics answers: LaTeX cleanup,
// delimiter extraction, numeric parsing and rounding, symbolic expression
// canonicalization, units, and free text.
//
// Every function is pure. The lookup tables that drive the rewrites live in
// an immutable Tables value handed to a Normalizer at construction, so
// callers can substitute alternate tables without touching globals.
package normalize

import (
	"maps"
	"slices"
	"strings"
)

// SymbolRewrite maps a LaTeX command that downstream parsing cannot handle
// to the atomic identifier it is wrapped as (\mathrm{Name}).
type SymbolRewrite struct {
	Command string
	Name    string
}

// Tables holds the lookup data used by a Normalizer.
type Tables struct {
	// ProtectedSymbols are rewritten to \mathrm{Name}. Longer commands are
	// matched first. Standard Greek letters are deliberately absent.
	ProtectedSymbols []SymbolRewrite

	// Decorations are commands whose single argument replaces the whole
	// command, e.g. \vec{F} -> F.
	Decorations []string

	// Units maps accepted unit spellings (lower-cased) to a canonical symbol.
	Units map[string]string

	// FillerPrefixes are stripped from the start of free text answers.
	FillerPrefixes []string

	// FillerSuffixes are stripped from the end of free text answers.
	FillerSuffixes []string
}

// DefaultTables returns the tables used by the package-level functions.
// Each call returns a fresh copy that the caller may modify.
func DefaultTables() Tables {
	return Tables{
		ProtectedSymbols: slices.Clone(defaultProtectedSymbols),
		Decorations:      slices.Clone(defaultDecorations),
		Units:            maps.Clone(defaultUnits),
		FillerPrefixes:   slices.Clone(defaultFillerPrefixes),
		FillerSuffixes:   slices.Clone(defaultFillerSuffixes),
	}
}

// clone returns a deep copy with protected symbols sorted longest first so
// that \mu_{0} wins over shorter overlapping commands.
func (t Tables) clone() Tables {
	out := Tables{
		ProtectedSymbols: slices.Clone(t.ProtectedSymbols),
		Decorations:      slices.Clone(t.Decorations),
		Units:            make(map[string]string, len(t.Units)),
		FillerPrefixes:   sortedByLength(t.FillerPrefixes),
		FillerSuffixes:   sortedByLength(t.FillerSuffixes),
	}
	for k, v := range t.Units {
		out.Units[strings.ToLower(k)] = v
	}
	slices.SortStableFunc(out.ProtectedSymbols, func(a, b SymbolRewrite) int {
		return len(b.Command) - len(a.Command)
	})
	return out
}

func sortedByLength(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	slices.SortStableFunc(out, func(a, b string) int { return len(b) - len(a) })
	return out
}

var defaultProtectedSymbols = []SymbolRewrite{
	{Command: `\hbar`, Name: "hbar"},
	{Command: `\mu_0`, Name: "mu_0"},
	{Command: `\mu_{0}`, Name: "mu_0"},
	{Command: `\epsilon_0`, Name: "epsilon_0"},
	{Command: `\epsilon_{0}`, Name: "epsilon_0"},
	{Command: `\varepsilon_0`, Name: "epsilon_0"},
	{Command: `\varepsilon_{0}`, Name: "epsilon_0"},
	{Command: `\ell`, Name: "ell"},
	{Command: `\square`, Name: "square"},
	{Command: `\angstrom`, Name: "angstrom"},
	{Command: `\AA`, Name: "angstrom"},
	{Command: `\degree`, Name: "degree"},
	{Command: `\circ`, Name: "degree"},
}

var defaultDecorations = []string{
	`\vec`,
	`\hat`,
	`\mathbf`,
	`\boldsymbol`,
	`\overrightarrow`,
}

// defaultUnits only lists spellings that cannot be confused with a
// variable name once case is ignored; single letters such as "m" or "s"
// are accepted as units only inside a quantity's unit suffix.
var defaultUnits = map[string]string{
	"m": "m", "meter": "m", "meters": "m", "metre": "m", "metres": "m",
	"km": "km", "cm": "cm", "mm": "mm", "nm": "nm", "um": "um", "μm": "um",
	"s": "s", "sec": "s", "second": "s", "seconds": "s",
	"ms": "ms", "min": "min", "h": "h", "hr": "h", "hour": "h", "hours": "h",
	"g": "g", "gram": "g", "grams": "g", "kg": "kg", "kilogram": "kg", "kilograms": "kg",
	"n": "N", "newton": "N", "newtons": "N",
	"j": "J", "joule": "J", "joules": "J", "kj": "kJ",
	"w": "W", "watt": "W", "watts": "W", "kw": "kW",
	"pa": "Pa", "pascal": "Pa", "kpa": "kPa", "atm": "atm",
	"hz": "Hz", "hertz": "Hz", "khz": "kHz",
	"v": "V", "volt": "V", "volts": "V",
	"a": "A", "amp": "A", "ampere": "A", "amperes": "A",
	"c": "C", "coulomb": "C", "coulombs": "C",
	"ohm": "ohm", "ohms": "ohm",
	"f": "F", "farad": "F", "t": "T", "tesla": "T", "wb": "Wb",
	"k": "K", "kelvin": "K", "mol": "mol", "rad": "rad",
	"deg": "deg", "degree": "deg", "degrees": "deg",
	"ev": "eV", "kev": "keV", "gev": "GeV",
	"l": "L", "liter": "L", "litre": "L",
	"angstrom": "angstrom",
}

var defaultFillerPrefixes = []string{
	"the final answer is",
	"final answer:",
	"the answer is",
	"answer is",
	"answer:",
	"the",
	"an",
	"a",
}

var defaultFillerSuffixes = []string{
	"is the answer",
}
