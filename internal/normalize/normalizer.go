package normalize

// Normalizer applies the canonicalization pipeline with a fixed set of
// lookup tables. It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	tables      Tables
	unitSymbols map[string]struct{}
}

// New returns a Normalizer that uses a private copy of tables.
func New(tables Tables) *Normalizer {
	n := &Normalizer{
		tables:      tables.clone(),
		unitSymbols: make(map[string]struct{}, len(tables.Units)),
	}
	for _, sym := range n.tables.Units {
		n.unitSymbols[sym] = struct{}{}
	}
	return n
}

// Tables returns a copy of the tables this Normalizer was built with.
func (n *Normalizer) Tables() Tables { return n.tables.clone() }

var defaultNormalizer = New(DefaultTables())

// Default returns the shared Normalizer built from DefaultTables.
func Default() *Normalizer { return defaultNormalizer }

// Preprocess runs Default().Preprocess.
func Preprocess(raw string) string { return defaultNormalizer.Preprocess(raw) }

// NormalizeExpression runs Default().NormalizeExpression.
func NormalizeExpression(s string) string { return defaultNormalizer.NormalizeExpression(s) }

// NormalizeText runs Default().NormalizeText.
func NormalizeText(s string) string { return defaultNormalizer.NormalizeText(s) }

// NormalizeUnit runs Default().NormalizeUnit.
func NormalizeUnit(s string) string { return defaultNormalizer.NormalizeUnit(s) }
