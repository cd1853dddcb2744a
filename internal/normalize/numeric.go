package normalize

import (
	"math"
	"strconv"
	"strings"

	"github.com/ahrav/physgrade/internal/domain"
)

// NumericForm selects how ParseNumericBase decomposes a literal.
type NumericForm int

const (
	// FixedPoint keeps the mantissa exactly as written: "3.0e8" is 3.0 x 10^8
	// and "1.50" is 1.50 x 10^0.
	FixedPoint NumericForm = iota

	// Scientific normalizes the mantissa into 1 <= |m| < 10.
	Scientific
)

// Numeric is a parsed numeric literal. Mantissa * 10^Exponent == Value.
type Numeric struct {
	Mantissa float64
	Exponent int

	// Decimals is the number of digits after the mantissa's decimal point.
	// Trailing zeros are significant and counted.
	Decimals int

	// Value is the number itself, parsed from the decimal text so that no
	// multiplication drift is introduced.
	Value float64
}

// literal is the decimal text of a number split into its parts.
type literal struct {
	negative bool
	intPart  string
	fracPart string
	exponent int
}

// ParseNumericBase parses s as a complete numeric literal. It accepts an
// optional sign, a decimal point, thousands separators of the form
// 1,234,567 and an exponent written as e/E, \times 10^{n}, \cdot 10^{n},
// ×10^n, *10^n or a bare 10^{n}. Malformed text returns a
// *domain.NumberParseError.
func ParseNumericBase(s string, form NumericForm) (Numeric, error) {
	lit, rest, err := scanLiteral(s)
	if err != nil {
		return Numeric{}, err
	}
	if strings.TrimSpace(rest) != "" {
		return Numeric{}, &domain.NumberParseError{Input: s, Reason: "trailing characters"}
	}
	return lit.numeric(s, form)
}

// ParseNumericPrefix parses the longest numeric literal at the start of s
// and returns the unparsed remainder, e.g. "9.8 m/s^2" -> 9.8, " m/s^2".
func ParseNumericPrefix(s string, form NumericForm) (Numeric, string, error) {
	lit, rest, err := scanLiteral(s)
	if err != nil {
		return Numeric{}, s, err
	}
	n, err := lit.numeric(s, form)
	if err != nil {
		return Numeric{}, s, err
	}
	return n, rest, nil
}

// IsNumericLiteral reports whether s parses completely as a number.
func IsNumericLiteral(s string) bool {
	_, err := ParseNumericBase(s, FixedPoint)
	return err == nil
}

// maxDecimalExponent bounds the written exponent beyond the digit count.
// float64 cannot represent anything past it, and decimal-text shifting
// would otherwise allocate one byte per place.
const maxDecimalExponent = 400

func (l literal) numeric(input string, form NumericForm) (Numeric, error) {
	if bound := maxDecimalExponent + len(l.intPart) + len(l.fracPart); l.exponent > bound || l.exponent < -bound {
		return Numeric{}, &domain.NumberParseError{Input: input, Reason: "exponent out of range"}
	}
	sign := ""
	if l.negative {
		sign = "-"
	}
	intPart := l.intPart
	if intPart == "" {
		intPart = "0"
	}
	value, err := strconv.ParseFloat(sign+intPart+"."+l.fracPart+"0e"+strconv.Itoa(l.exponent), 64)
	if err != nil || math.IsInf(value, 0) || math.IsNaN(value) {
		return Numeric{}, &domain.NumberParseError{Input: input, Reason: "value out of range"}
	}

	if form == FixedPoint {
		m, _ := strconv.ParseFloat(sign+intPart+"."+l.fracPart+"0", 64)
		return Numeric{Mantissa: m, Exponent: l.exponent, Decimals: len(l.fracPart), Value: value}, nil
	}

	digits := l.intPart + l.fracPart
	first := strings.IndexFunc(digits, func(r rune) bool { return r != '0' })
	if first < 0 {
		return Numeric{Mantissa: 0, Exponent: 0, Decimals: len(l.fracPart), Value: 0}, nil
	}
	sig := digits[first:]
	exp := l.exponent + len(l.intPart) - first - 1
	m, _ := strconv.ParseFloat(sign+sig[:1]+"."+sig[1:]+"0", 64)
	return Numeric{Mantissa: m, Exponent: exp, Decimals: len(sig) - 1, Value: value}, nil
}

// AtExponent re-expresses the number as a mantissa for 10^exp, e.g.
// 2.99e8 at exponent 7 is 29.9. The shift is done on decimal text.
func (n Numeric) AtExponent(exp int) float64 {
	s := shiftDecimal(strconv.FormatFloat(n.Mantissa, 'f', -1, 64), n.Exponent-exp)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return n.Value / math.Pow10(exp)
	}
	return v
}

var unicodeNumberReplacer = strings.NewReplacer(
	"−", "-",
	"–", "-",
	"×", `\times `,
	"·", `\cdot `,
	"⋅", `\cdot `,
)

// scanLiteral reads a numeric literal from the start of s.
func scanLiteral(input string) (literal, string, error) {
	s := strings.TrimSpace(unicodeNumberReplacer.Replace(input))
	var lit literal
	i := 0

	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		lit.negative = s[i] == '-'
		i++
	}
	for i < len(s) && s[i] == ' ' {
		i++
	}

	start := i
	i = scanIntDigits(s, i)
	lit.intPart = strings.ReplaceAll(s[start:i], ",", "")

	if i < len(s) && s[i] == '.' {
		j := i + 1
		for j < len(s) && isDigit(s[j]) {
			j++
		}
		if j > i+1 || lit.intPart != "" {
			lit.fracPart = s[i+1 : j]
			i = j
		}
	}
	if lit.intPart == "" && lit.fracPart == "" {
		return literal{}, input, &domain.NumberParseError{Input: input, Reason: "no digits"}
	}

	// A bare power of ten such as 10^{5} has an implicit mantissa of 1.
	if lit.intPart == "10" && lit.fracPart == "" && i < len(s) && s[i] == '^' {
		if exp, next, ok := scanPower(s, i+1); ok {
			lit.intPart, lit.exponent = "1", exp
			return lit, s[next:], nil
		}
	}

	if exp, next, ok := scanExponent(s, i); ok {
		lit.exponent = exp
		i = next
	}
	return lit, s[i:], nil
}

// scanIntDigits consumes a digit run, accepting comma thousands separators
// only when every group after the first has exactly three digits.
func scanIntDigits(s string, i int) int {
	start := i
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	if i == start || i-start > 3 {
		return i
	}
	end := i
	for end+3 < len(s) && s[end] == ',' && isDigit(s[end+1]) && isDigit(s[end+2]) && isDigit(s[end+3]) {
		if end+4 < len(s) && isDigit(s[end+4]) {
			break
		}
		end += 4
	}
	return end
}

var timesOperators = []string{`\times`, `\cdot`, "*", "x"}

// scanExponent reads an exponent suffix starting at i.
func scanExponent(s string, i int) (int, int, bool) {
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		k := i + 1
		if k < len(s) && (s[k] == '+' || s[k] == '-') {
			k++
		}
		d := k
		for d < len(s) && isDigit(s[d]) {
			d++
		}
		if d > k {
			exp, err := strconv.Atoi(s[i+1 : d])
			if err == nil {
				return exp, d, true
			}
		}
		return 0, i, false
	}

	j := skipSpaces(s, i)
	for _, op := range timesOperators {
		if !strings.HasPrefix(s[j:], op) {
			continue
		}
		k := skipSpaces(s, j+len(op))
		if !strings.HasPrefix(s[k:], "10") {
			return 0, i, false
		}
		k = skipSpaces(s, k+2)
		if k >= len(s) || s[k] != '^' {
			return 0, i, false
		}
		if exp, next, ok := scanPower(s, k+1); ok {
			return exp, next, true
		}
		return 0, i, false
	}
	return 0, i, false
}

// scanPower reads "n", "-n" or "{n}" after a caret. An unbraced 10^23 is
// read as the full digit run even though LaTeX would take only one digit.
func scanPower(s string, i int) (int, int, bool) {
	i = skipSpaces(s, i)
	braced := i < len(s) && s[i] == '{'
	if braced {
		i = skipSpaces(s, i+1)
	}
	start := i
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	d := i
	for d < len(s) && isDigit(s[d]) {
		d++
	}
	if d == i {
		return 0, 0, false
	}
	exp, err := strconv.Atoi(s[start:d])
	if err != nil {
		return 0, 0, false
	}
	if braced {
		d = skipSpaces(s, d)
		if d >= len(s) || s[d] != '}' {
			return 0, 0, false
		}
		d++
	}
	return exp, d, true
}

func skipSpaces(s string, i int) int {
	for i < len(s) && s[i] == ' ' {
		i++
	}
	return i
}

// DecimalPlaces counts the digits after the decimal point in the shortest
// decimal representation of x that round-trips.
func DecimalPlaces(x float64) int {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	s := strconv.FormatFloat(x, 'f', -1, 64)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}

// RoundToDecimalPlaces rounds x half away from zero. Rounding is done on
// the shortest decimal string of x, so 1.005 rounds to 1.01 even though its
// binary value is slightly below 1.005.
func RoundToDecimalPlaces(x float64, places int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	if places < 0 {
		places = 0
	}
	r, err := strconv.ParseFloat(roundDecimalString(strconv.FormatFloat(x, 'f', -1, 64), places), 64)
	if err != nil {
		return x
	}
	return r
}

// FormatNumericValue renders mantissa * 10^exponent with exactly decimals
// digits after the point, rounding half away from zero.
func FormatNumericValue(mantissa float64, exponent, decimals int) string {
	if math.IsNaN(mantissa) || math.IsInf(mantissa, 0) {
		return strconv.FormatFloat(mantissa, 'f', -1, 64)
	}
	if decimals < 0 {
		decimals = 0
	}
	shifted := shiftDecimal(strconv.FormatFloat(mantissa, 'f', -1, 64), exponent)
	return roundDecimalString(shifted, decimals)
}

// splitDecimal breaks "-12.34" into its sign, integer and fraction digits.
func splitDecimal(s string) (bool, string, string) {
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimLeft(s, "+-")
	intPart, fracPart, _ := strings.Cut(s, ".")
	return neg, intPart, fracPart
}

// shiftDecimal moves the decimal point of s by exp places.
func shiftDecimal(s string, exp int) string {
	neg, intPart, fracPart := splitDecimal(s)
	digits := intPart + fracPart
	point := len(intPart) + exp
	switch {
	case point <= 0:
		intPart, fracPart = "0", strings.Repeat("0", -point)+digits
	case point >= len(digits):
		intPart, fracPart = digits+strings.Repeat("0", point-len(digits)), ""
	default:
		intPart, fracPart = digits[:point], digits[point:]
	}
	intPart = strings.TrimLeft(intPart, "0")
	if intPart == "" {
		intPart = "0"
	}
	out := intPart
	if fracPart != "" {
		out += "." + fracPart
	}
	if neg {
		out = "-" + out
	}
	return out
}

// roundDecimalString rounds a plain decimal string to places fraction
// digits, half away from zero, and always emits exactly places digits.
func roundDecimalString(s string, places int) string {
	neg, intPart, fracPart := splitDecimal(s)
	if intPart == "" {
		intPart = "0"
	}

	if len(fracPart) > places {
		roundUp := fracPart[places] >= '5'
		fracPart = fracPart[:places]
		if roundUp {
			digits := []byte(intPart + fracPart)
			k := len(digits) - 1
			for ; k >= 0; k-- {
				if digits[k] < '9' {
					digits[k]++
					break
				}
				digits[k] = '0'
			}
			if k < 0 {
				digits = append([]byte{'1'}, digits...)
			}
			intPart = string(digits[:len(digits)-places])
			fracPart = string(digits[len(digits)-places:])
		}
	} else {
		fracPart += strings.Repeat("0", places-len(fracPart))
	}

	out := intPart
	if places > 0 {
		out += "." + fracPart
	}
	if neg && strings.Trim(out, "0.") != "" {
		out = "-" + out
	}
	return out
}
