package testutils

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/ahrav/physgrade/internal/domain"
)

// GenerateDataset builds size labelled cases spread across every answer
// category. The same seed always yields the same dataset. Labels assume
// grading.DefaultConfig.
func GenerateDataset(size int, seed int64) *Dataset {
	rng := rand.New(rand.NewSource(seed))

	d := &Dataset{
		Metadata: Metadata{
			Name:        "Synthetic Physics Grading Dataset",
			Version:     "1.0.0",
			Seed:        seed,
			Description: "Generated grading cases with known verdicts. NOT FOR PRODUCTION USE.",
			Size:        size,
		},
		Cases: make([]Case, 0, size),
	}

	generators := []func(*rand.Rand) Case{
		numberCase,
		quantityCase,
		formulaCase,
		equationCase,
		textCase,
		optionCase,
	}
	for i := range size {
		c := generators[i%len(generators)](rng)
		c.ID = fmt.Sprintf("%s-%04d", c.Category, i)
		d.Cases = append(d.Cases, c)
	}
	return d
}

// formatFixed renders n scaled by 10^-decimals without going through a
// float, so the text is exact.
func formatFixed(n, decimals int) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := strconv.Itoa(n)
	if decimals > 0 {
		if len(s) <= decimals {
			s = strings.Repeat("0", decimals-len(s)+1) + s
		}
		s = s[:len(s)-decimals] + "." + s[len(s)-decimals:]
	}
	if neg {
		s = "-" + s
	}
	return s
}

// numberPair returns a ground truth and a candidate for one of three
// outcomes: identical text, extra candidate precision that rounds back to
// the ground truth, or a value that differs in the last ground-truth digit.
func numberPair(rng *rand.Rand) (gt, candidate string, equal bool) {
	gtInt := 1 + rng.Intn(99999)
	decimals := rng.Intn(4)
	gt = formatFixed(gtInt, decimals)

	switch rng.Intn(3) {
	case 0:
		return gt, gt, true
	case 1:
		// Offsets of 0.1 to 0.3 in the ground truth's last place round away.
		k := 1 + rng.Intn(3)
		if rng.Intn(2) == 0 {
			k = -k
		}
		return gt, formatFixed(gtInt*100+10*k, decimals+2), true
	default:
		return gt, formatFixed(gtInt+1+rng.Intn(5), decimals), false
	}
}

func numberCase(rng *rand.Rand) Case {
	gt, candidate, equal := numberPair(rng)
	return Case{
		Question:    "Compute the numerical result.",
		GroundTruth: gt,
		Candidate:   candidate,
		Category:    domain.CategoryNumber,
		WantEqual:   equal,
	}
}

var quantityUnits = []struct{ symbol, name string }{
	{"m/s", "v"},
	{"kg", "m"},
	{"N", "F"},
	{"J", "E"},
	{"Pa", "p"},
	{"s", "t"},
}

func quantityCase(rng *rand.Rand) Case {
	gt, candidate, equal := numberPair(rng)
	u := quantityUnits[rng.Intn(len(quantityUnits))]
	c := Case{
		Question:    fmt.Sprintf("Find %s.", u.name),
		GroundTruth: gt + " " + u.symbol,
		Category:    domain.CategoryPhysicalQuantity,
		WantEqual:   equal,
	}

	switch {
	case equal && rng.Intn(2) == 0:
		c.Candidate = fmt.Sprintf("%s = %s %s", u.name, candidate, u.symbol)
	case equal:
		c.Candidate = candidate + " " + u.symbol
	case rng.Intn(2) == 0:
		c.Candidate = candidate + " " + u.symbol
	default:
		// Right number, wrong unit.
		other := quantityUnits[(indexOfUnit(u.symbol)+1+rng.Intn(len(quantityUnits)-1))%len(quantityUnits)]
		c.Candidate = gt + " " + other.symbol
	}
	return c
}

func indexOfUnit(symbol string) int {
	for i, u := range quantityUnits {
		if u.symbol == symbol {
			return i
		}
	}
	return 0
}

// formulaPairs hold two spellings that normalize to the same expression.
var formulaPairs = [][2]string{
	{"a+b-c", "a + b - c"},
	{`2\cdot x`, "2x"},
	{"x^{2}+1", "x^2 + 1"},
	{"$a+b$", "a+b"},
	{`2 \times y`, "2*y"},
}

func formulaCase(rng *rand.Rand) Case {
	i := rng.Intn(len(formulaPairs))
	c := Case{
		Question:    "Give the expression.",
		GroundTruth: formulaPairs[i][0],
		Category:    domain.CategoryFormula,
	}
	if rng.Intn(2) == 0 {
		c.Candidate = formulaPairs[i][1]
		c.WantEqual = true
	} else {
		c.Candidate = formulaPairs[(i+1)%len(formulaPairs)][1]
	}
	return c
}

var equations = [][2]string{
	{"F", "m a"},
	{"E", "m c^2"},
	{"p", "m v"},
	{"W", "F d"},
	{"P", "I V"},
}

func equationCase(rng *rand.Rand) Case {
	i := rng.Intn(len(equations))
	lhs, rhs := equations[i][0], equations[i][1]
	c := Case{
		Question:    "State the relation.",
		GroundTruth: lhs + " = " + rhs,
		Category:    domain.CategoryEquation,
	}
	switch rng.Intn(3) {
	case 0:
		c.Candidate, c.WantEqual = lhs+" = "+rhs, true
	case 1:
		c.Candidate, c.WantEqual = rhs+" = "+lhs, true
	default:
		c.Candidate = lhs + " = " + equations[(i+1)%len(equations)][1]
	}
	return c
}

var textAnswers = []string{
	"energy is conserved",
	"momentum is conserved",
	"the net force is zero",
	"it moves in a straight line",
	"the current decreases",
}

func textCase(rng *rand.Rand) Case {
	i := rng.Intn(len(textAnswers))
	c := Case{
		Question:    "Explain what happens.",
		GroundTruth: textAnswers[i],
		Category:    domain.CategoryText,
	}
	if rng.Intn(2) == 0 {
		c.Candidate = strings.ToUpper(textAnswers[i][:1]) + textAnswers[i][1:] + "."
		c.WantEqual = true
	} else {
		c.Candidate = textAnswers[(i+1)%len(textAnswers)]
	}
	return c
}

var optionForms = []func(letter string) string{
	strings.ToUpper,
	func(l string) string { return "(" + l + ")" },
	func(l string) string { return strings.ToUpper(l) + "." },
	func(l string) string { return "(" + strings.ToUpper(l) + ")." },
}

func optionCase(rng *rand.Rand) Case {
	letters := "abcd"
	i := rng.Intn(len(letters))
	form := func() string { return optionForms[rng.Intn(len(optionForms))](letters[i : i+1]) }
	c := Case{
		Question:    "Choose the correct option.",
		GroundTruth: form(),
		Category:    domain.CategoryOption,
	}
	if rng.Intn(2) == 0 {
		c.Candidate, c.WantEqual = form(), true
	} else {
		j := (i + 1 + rng.Intn(len(letters)-1)) % len(letters)
		c.Candidate = optionForms[rng.Intn(len(optionForms))](letters[j : j+1])
	}
	return c
}
