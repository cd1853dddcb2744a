package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerdict_JSON(t *testing.T) {
	v := Verdict{
		ID:           "verdict-1",
		FirstCorrect: &Candidate{ID: "c2", Content: "3.0 m/s"},
		Accuracy:     0.5,
		Graded:       2,
		ByCategory:   map[Category]CategoryStats{CategoryPhysicalQuantity: {Total: 2, Correct: 1}},
		Timestamp:    time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(v)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "verdict-1", m["id"])
	assert.Equal(t, 0.5, m["accuracy"])
	assert.Contains(t, m["by_category"], "physical_quantity")
	assert.Equal(t, "c2", m["first_correct"].(map[string]any)["id"])
}

func TestVerdict_OmitEmpty(t *testing.T) {
	data, err := json.Marshal(Verdict{ID: "v"})
	require.NoError(t, err)

	s := string(data)
	assert.NotContains(t, s, "first_correct")
	assert.NotContains(t, s, "by_category")
	assert.Contains(t, s, `"accuracy":0`)
}

func TestCategoryStats_Accuracy(t *testing.T) {
	assert.Equal(t, 0.0, CategoryStats{}.Accuracy())
	assert.Equal(t, 0.75, CategoryStats{Total: 4, Correct: 3}.Accuracy())
}

func TestComparisonResult(t *testing.T) {
	assert.Equal(t, 1.0, ComparisonResult{Equal: true}.Score())
	assert.Equal(t, 0.0, ComparisonResult{Reason: ReasonTextMismatch}.Score())

	data, err := json.Marshal(ComparisonResult{
		Equal:       true,
		Category:    CategoryText,
		Candidate:   NormalizedForm{Category: CategoryText, Canonical: "gravity"},
		GroundTruth: NormalizedForm{Category: CategoryText, Canonical: "gravity"},
	})
	require.NoError(t, err)

	s := string(data)
	assert.NotContains(t, s, "reason")
	assert.NotContains(t, s, "mantissa")
	assert.Contains(t, s, `"canonical":"gravity"`)
}
