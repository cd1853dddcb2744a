// Command generate_dataset writes a synthetic labelled grading dataset and
// the matching unlabelled JSONL input for physgrade.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/ahrav/physgrade/internal/testutils"
)

func main() {
	var (
		size        = flag.Int("size", 600, "Number of grading cases to generate")
		seed        = flag.Int64("seed", 0, "Random seed (0 uses the current time)")
		datasetPath = flag.String("output", "testdata/grading_dataset/dataset.json", "Labelled dataset output path")
		inputPath   = flag.String("input-jsonl", "", "Unlabelled physgrade input path (defaults next to -output)")
	)
	flag.Parse()

	if *size <= 0 {
		log.Fatalf("size must be positive, got %d", *size)
	}
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	if *inputPath == "" {
		*inputPath = filepath.Join(filepath.Dir(*datasetPath), "input.jsonl")
	}

	dataset := testutils.GenerateDataset(*size, *seed)
	if err := dataset.Validate(); err != nil {
		log.Fatalf("Generated dataset is invalid: %v", err)
	}
	if err := testutils.SaveDataset(dataset, *datasetPath); err != nil {
		log.Fatalf("Failed to save dataset: %v", err)
	}

	f, err := os.Create(filepath.Clean(*inputPath))
	if err != nil {
		log.Fatalf("Failed to create input file: %v", err)
	}
	if err := testutils.WriteInputJSONL(f, dataset.Cases); err != nil {
		_ = f.Close()
		log.Fatalf("Failed to write input: %v", err)
	}
	if err := f.Close(); err != nil {
		log.Fatalf("Failed to close input: %v", err)
	}

	stats := testutils.ComputeStatistics(dataset)
	fmt.Printf("Generated grading dataset:\n")
	fmt.Printf("- Dataset: %s\n", *datasetPath)
	fmt.Printf("- Input: %s\n", *inputPath)
	fmt.Printf("- Seed: %d\n", *seed)
	fmt.Printf("- Total cases: %d\n", stats.Total)
	fmt.Printf("- Expected equal: %d\n", stats.Equal)
	fmt.Printf("- Categories: %v\n", stats.ByCategory)
}
