package ports

import (
	"time"
)

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus. All methods must be safe for concurrent use.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	RecordGauge(metric string, value float64, labels map[string]string)
}

// Metric names and label keys shared by the engine and its collectors.
const (
	MetricComparisons    = "comparisons_total"
	MetricUnitExecutions = "unit_executions_total"
	MetricBatchAccuracy  = "batch_accuracy"

	OperationCompare  = "compare"
	OperationClassify = "classify"
	OperationBatch    = "batch"
	OperationPipeline = "pipeline"
	OperationUnit     = "unit"

	LabelCategory = "category"
	LabelOutcome  = "outcome"
	LabelReason   = "reason"
	LabelUnit     = "unit"

	OutcomeEqual    = "equal"
	OutcomeNotEqual = "not_equal"
	OutcomeOK       = "ok"
	OutcomeError    = "error"

	// CategoryAll labels aggregate values that span every category.
	CategoryAll = "all"
)
