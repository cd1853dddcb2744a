package domain

import (
	"fmt"
	"testing"
)

func benchmarkComparisons(n int) []ComparisonResult {
	out := make([]ComparisonResult, n)
	for i := range out {
		out[i] = ComparisonResult{
			Equal:       i%2 == 0,
			Category:    CategoryPhysicalQuantity,
			Candidate:   NormalizedForm{Canonical: fmt.Sprintf("%d.0 m/s", i), Numeric: true, Value: float64(i), Unit: "m/s"},
			GroundTruth: NormalizedForm{Canonical: "3.0 m/s", Numeric: true, Value: 3, Unit: "m/s"},
		}
	}
	return out
}

func BenchmarkState_Get(b *testing.B) {
	b.Run("string", func(b *testing.B) {
		state := With(NewState(), KeyGroundTruth, "3.0 m/s")
		b.ReportAllocs()
		for b.Loop() {
			_, _ = Get(state, KeyGroundTruth)
		}
	})

	for _, size := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("comparisons_%d", size), func(b *testing.B) {
			state := With(NewState(), KeyComparisons, benchmarkComparisons(size))
			b.ReportAllocs()
			for b.Loop() {
				_, _ = Get(state, KeyComparisons)
			}
		})
	}
}

func BenchmarkState_With(b *testing.B) {
	base := With(With(NewState(), KeyGroundTruth, "3.0 m/s"), KeyCategory, CategoryPhysicalQuantity)
	candidates := []Candidate{{ID: "1", Content: "3 m/s"}, {ID: "2", Content: "2.9 m/s"}}

	b.ReportAllocs()
	for b.Loop() {
		_ = With(base, KeyCandidates, candidates)
	}
}

func BenchmarkState_ConcurrentRead(b *testing.B) {
	state := With(NewState(), KeyComparisons, benchmarkComparisons(100))

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = Get(state, KeyComparisons)
		}
	})
}
