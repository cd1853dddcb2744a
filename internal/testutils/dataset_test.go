package testutils

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/physgrade/internal/domain"
)

func TestGenerateDataset(t *testing.T) {
	d := GenerateDataset(120, 42)

	require.NoError(t, d.Validate())
	assert.Len(t, d.Cases, 120)

	stats := ComputeStatistics(d)
	assert.Equal(t, 120, stats.Total)
	for _, cat := range []domain.Category{
		domain.CategoryNumber, domain.CategoryPhysicalQuantity, domain.CategoryFormula,
		domain.CategoryEquation, domain.CategoryText, domain.CategoryOption,
	} {
		assert.Equal(t, 20, stats.ByCategory[cat], "category %s", cat)
	}
	assert.Positive(t, stats.Equal)
	assert.Less(t, stats.Equal, stats.Total)
}

func TestGenerateDataset_Deterministic(t *testing.T) {
	assert.Equal(t, GenerateDataset(30, 7), GenerateDataset(30, 7))
	assert.NotEqual(t, GenerateDataset(30, 7).Cases, GenerateDataset(30, 8).Cases)
}

func TestFormatFixed(t *testing.T) {
	tests := []struct {
		n, decimals int
		want        string
	}{
		{314, 2, "3.14"},
		{5, 2, "0.05"},
		{5, 0, "5"},
		{12345, 3, "12.345"},
		{-70, 2, "-0.70"},
		{100, 1, "10.0"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatFixed(tt.n, tt.decimals))
		})
	}
}

func TestDataset_Validate(t *testing.T) {
	valid := func() *Dataset { return GenerateDataset(6, 1) }

	tests := []struct {
		name   string
		mutate func(d *Dataset)
		errMsg string
	}{
		{name: "valid", mutate: func(*Dataset) {}},
		{name: "size mismatch", mutate: func(d *Dataset) { d.Metadata.Size = 99 }, errMsg: "doesn't match"},
		{name: "missing name", mutate: func(d *Dataset) { d.Metadata.Name = "" }, errMsg: "Name"},
		{name: "missing ground truth", mutate: func(d *Dataset) { d.Cases[0].GroundTruth = "" }, errMsg: "GroundTruth"},
		{name: "bad category", mutate: func(d *Dataset) { d.Cases[1].Category = "vector" }, errMsg: "invalid category"},
		{name: "duplicate id", mutate: func(d *Dataset) { d.Cases[2].ID = d.Cases[0].ID }, errMsg: "duplicate case ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid()
			tt.mutate(d)
			err := d.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	var nilDataset *Dataset
	assert.Error(t, nilDataset.Validate())
}

func TestSaveLoadDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dataset.json")
	d := GenerateDataset(12, 3)

	require.NoError(t, SaveDataset(d, path))
	loaded, err := LoadDataset(path)
	require.NoError(t, err)
	assert.Equal(t, d, loaded)

	_, err = LoadDataset(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "failed to read dataset file")
}

func TestWriteInputJSONL(t *testing.T) {
	d := GenerateDataset(4, 9)

	var buf bytes.Buffer
	require.NoError(t, WriteInputJSONL(&buf, d.Cases))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	for i, line := range lines {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		assert.Equal(t, d.Cases[i].ID, rec["id"])
		assert.NotContains(t, rec, "want_equal", "labels must not leak into grading input")
	}
}
