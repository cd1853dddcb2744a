package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAnswer(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		category Category
		opts     []AnswerOption
		wantErr  error
	}{
		{name: "number", value: "1.5", category: CategoryNumber},
		{name: "quantity text", value: "3 m/s", category: CategoryPhysicalQuantity},
		{name: "unparsable number kept for string fallback", value: "N/A", category: CategoryNumber},
		{name: "formula", value: "x^2", category: CategoryFormula},
		{name: "confidence in range", value: "B", category: CategoryOption, opts: []AnswerOption{WithConfidence(0.7)}},
		{name: "empty text", value: "  ", category: CategoryText, wantErr: ErrEmptyValue},
		{name: "empty number", value: "", category: CategoryNumber, wantErr: ErrInvalidAnswer},
		{name: "infinite number", value: "1e999", category: CategoryNumber, wantErr: ErrInvalidAnswer},
		{name: "nan", value: "NaN", category: CategoryPhysicalQuantity, wantErr: ErrInvalidAnswer},
		{name: "unknown category", value: "x", category: "vector", wantErr: ErrInvalidCategory},
		{name: "confidence out of range", value: "B", category: CategoryOption, opts: []AnswerOption{WithConfidence(1.2)}, wantErr: ErrInvalidAnswer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewAnswer(tt.value, tt.category, tt.opts...)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, Answer{}, a)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.value, a.Value())
			assert.Equal(t, tt.category, a.Category())
		})
	}
}

func TestNewNumberAnswer(t *testing.T) {
	a, err := NewNumberAnswer(1.5, WithConfidence(0.9))
	require.NoError(t, err)
	assert.Equal(t, "1.5", a.Value())
	assert.Equal(t, CategoryNumber, a.Category())

	c, ok := a.Confidence()
	assert.True(t, ok)
	assert.Equal(t, 0.9, c)

	_, err = NewNumberAnswer(math.Inf(1))
	assert.ErrorIs(t, err, ErrInvalidAnswer)
	_, err = NewNumberAnswer(math.NaN())
	assert.ErrorIs(t, err, ErrInvalidAnswer)
}

func TestAnswer_Immutability(t *testing.T) {
	md := map[string]string{"source": "model-a"}
	a, err := NewAnswer("42", CategoryNumber, WithMetadata(md))
	require.NoError(t, err)

	md["source"] = "changed"
	assert.Equal(t, "model-a", a.Metadata()["source"])

	got := a.Metadata()
	got["source"] = "changed again"
	assert.Equal(t, "model-a", a.Metadata()["source"])

	_, ok := a.Confidence()
	assert.False(t, ok)
}

func TestAnswer_ZeroValueIsInvalid(t *testing.T) {
	assert.ErrorIs(t, Answer{}.Validate(), ErrInvalidCategory)
}
