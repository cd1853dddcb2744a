package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "blank", input: "   ", want: ""},
		{name: "case and whitespace", input: "Hello   World", want: "hello world"},
		{name: "terminal punctuation", input: "Energy is conserved!", want: "energy is conserved"},
		{name: "inner punctuation kept", input: "Energy, is conserved.", want: "energy, is conserved"},
		{name: "answer prefix", input: "The answer is 42.", want: "42"},
		{name: "final answer prefix", input: "Final answer: Momentum", want: "momentum"},
		{name: "article", input: "A ball rolls", want: "ball rolls"},
		{name: "article only at boundary", input: "it is a ball", want: "it is a ball"},
		{name: "word boundary respected", input: "There is friction", want: "there is friction"},
		{name: "suffix filler", input: "friction is the answer", want: "friction"},
		{name: "never emptied", input: "The", want: "the"},
		{name: "stacked filler", input: "The answer is: the momentum.", want: "momentum"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeText(tt.input))
		})
	}
}

func TestNormalizeText_CustomFiller(t *testing.T) {
	n := New(Tables{FillerPrefixes: []string{"Result:"}})

	assert.Equal(t, "5 m", n.NormalizeText("Result: 5 m"))
	assert.Equal(t, "the 5 m", n.NormalizeText("The 5 m"))
}

func TestNormalizeText_FoldCycle(t *testing.T) {
	for _, s := range []string{"ꮹ", "Ꮹ", "ꮹ answer", "ΣΑΣ"} {
		t.Run(s, func(t *testing.T) {
			once := NormalizeText(s)
			assert.Equal(t, once, NormalizeText(once))
		})
	}
	assert.Equal(t, NormalizeText("ꮹ"), NormalizeText("Ꮹ"), "both cases of a letter fold alike")
}

func FuzzNormalizeTextIdempotent(f *testing.F) {
	seeds := []string{
		"", "The answer is 42.", "A", "a a a", "the the", "Final answer: B!",
		"friction is the answer", " ; x ,", "ΣΑΣ", "ﬁnal", "ꮹ", "Ꮹ", "ꮹᏉ",
	}
	for _, s := range seeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, s string) {
		once := NormalizeText(s)
		if twice := NormalizeText(once); twice != once {
			t.Fatalf("not idempotent: %q -> %q -> %q", s, once, twice)
		}
	})
}
