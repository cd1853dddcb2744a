// Package testutils provides grading fixtures for tests and benchmarks: a
// reproducible dataset generator, a JSON dataset format and a corpus of
// adversarial answer strings. It is not part of the public API.
package testutils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/physgrade/internal/domain"
)

// validate is the package-level validator for dataset structs.
var validate = validator.New()

// Case is one labelled comparison: a candidate, its ground truth and
// whether the engine's default policy should judge them equal.
type Case struct {
	ID          string          `json:"id" validate:"required"`
	Question    string          `json:"question,omitempty"`
	GroundTruth string          `json:"ground_truth" validate:"required"`
	Candidate   string          `json:"candidate" validate:"required"`
	Category    domain.Category `json:"category" validate:"required"`
	WantEqual   bool            `json:"want_equal"`
}

// Metadata describes how a dataset was produced.
type Metadata struct {
	Name        string `json:"name" validate:"required"`
	Version     string `json:"version" validate:"required"`
	Seed        int64  `json:"seed"`
	Description string `json:"description,omitempty"`
	// Size must equal len(Dataset.Cases).
	Size int `json:"case_count" validate:"gt=0"`
}

// Dataset is a labelled collection of grading cases.
type Dataset struct {
	Cases    []Case   `json:"cases" validate:"dive"`
	Metadata Metadata `json:"metadata"`
}

// Validate checks struct tags, category names, ID uniqueness and that the
// metadata size matches the case count.
func (d *Dataset) Validate() error {
	if d == nil {
		return fmt.Errorf("dataset is nil")
	}
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("dataset validation failed: %w", err)
	}
	if d.Metadata.Size != len(d.Cases) {
		return fmt.Errorf("metadata size (%d) doesn't match actual case count (%d)", d.Metadata.Size, len(d.Cases))
	}

	seen := make(map[string]struct{}, len(d.Cases))
	for i, c := range d.Cases {
		if !c.Category.IsValid() {
			return fmt.Errorf("case %d (%s): %w: %q", i, c.ID, domain.ErrInvalidCategory, c.Category)
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("duplicate case ID: %s", c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	return nil
}

// LoadDataset reads and validates a dataset from a JSON file.
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset file: %w", err)
	}

	var dataset Dataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		return nil, fmt.Errorf("failed to parse dataset JSON: %w", err)
	}
	if err := dataset.Validate(); err != nil {
		return nil, err
	}
	return &dataset, nil
}

// SaveDataset writes d to path as indented JSON, creating parent
// directories as needed.
func SaveDataset(d *Dataset, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal dataset: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write dataset file: %w", err)
	}
	return nil
}

// inputRecord is the JSONL shape read by the physgrade command. The label
// is deliberately left out.
type inputRecord struct {
	ID          string          `json:"id"`
	Question    string          `json:"question,omitempty"`
	GroundTruth string          `json:"ground_truth"`
	Candidate   string          `json:"candidate"`
	Category    domain.Category `json:"category,omitempty"`
}

// WriteInputJSONL writes cases as unlabelled grading input, one per line.
func WriteInputJSONL(w io.Writer, cases []Case) error {
	enc := json.NewEncoder(w)
	for _, c := range cases {
		rec := inputRecord{
			ID:          c.ID,
			Question:    c.Question,
			GroundTruth: c.GroundTruth,
			Candidate:   c.Candidate,
			Category:    c.Category,
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("case %s: %w", c.ID, err)
		}
	}
	return nil
}

// Statistics summarizes a dataset.
type Statistics struct {
	Total      int
	Equal      int
	ByCategory map[domain.Category]int
}

// ComputeStatistics counts cases overall, per category and by label.
func ComputeStatistics(d *Dataset) Statistics {
	stats := Statistics{
		Total:      len(d.Cases),
		ByCategory: make(map[domain.Category]int),
	}
	for _, c := range d.Cases {
		stats.ByCategory[c.Category]++
		if c.WantEqual {
			stats.Equal++
		}
	}
	return stats
}
