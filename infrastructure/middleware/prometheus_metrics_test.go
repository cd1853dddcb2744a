package middleware

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/physgrade/internal/domain"
	"github.com/ahrav/physgrade/internal/grading"
	"github.com/ahrav/physgrade/internal/ports"
)

func newTestMetrics(t *testing.T) (*PrometheusMetrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewPrometheusMetrics(reg), reg
}

func TestNewPrometheusMetrics_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm := NewPrometheusMetrics(reg)
	require.NotNil(t, pm)

	assert.Panics(t, func() { NewPrometheusMetrics(reg) }, "duplicate registration must panic")
	assert.NotPanics(t, func() { NewPrometheusMetrics(prometheus.NewRegistry()) })
}

func TestPrometheusMetrics_RecordCounter(t *testing.T) {
	pm, _ := newTestMetrics(t)

	pm.RecordCounter(ports.MetricComparisons, 1, map[string]string{
		ports.LabelCategory: "number",
		ports.LabelOutcome:  ports.OutcomeEqual,
	})
	pm.RecordCounter(ports.MetricComparisons, 2, map[string]string{
		ports.LabelCategory: "number",
		ports.LabelOutcome:  ports.OutcomeNotEqual,
		ports.LabelReason:   string(domain.ReasonNumericMismatch),
	})
	pm.RecordCounter(ports.MetricUnitExecutions, 1, map[string]string{ports.LabelUnit: "match"})
	pm.RecordCounter("custom_total", 3, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(pm.comparisons.WithLabelValues("number", ports.OutcomeEqual, "")))
	assert.Equal(t, 2.0, testutil.ToFloat64(pm.comparisons.WithLabelValues("number", ports.OutcomeNotEqual, "numeric_mismatch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.unitExecutions.WithLabelValues("match", ports.OutcomeOK)))
	assert.Equal(t, 3.0, testutil.ToFloat64(pm.operationCounter.WithLabelValues("custom_total", ports.OutcomeOK)))
}

func TestPrometheusMetrics_RecordGauge(t *testing.T) {
	pm, _ := newTestMetrics(t)

	pm.RecordGauge(ports.MetricBatchAccuracy, 0.75, nil)
	pm.RecordGauge(ports.MetricBatchAccuracy, 0.5, map[string]string{ports.LabelCategory: "option"})
	pm.RecordGauge("queue_depth", 4, nil)

	assert.Equal(t, 0.75, testutil.ToFloat64(pm.batchAccuracy.WithLabelValues(ports.CategoryAll)))
	assert.Equal(t, 0.5, testutil.ToFloat64(pm.batchAccuracy.WithLabelValues("option")))
	assert.Equal(t, 4.0, testutil.ToFloat64(pm.systemGauges.WithLabelValues("queue_depth")))
}

func TestPrometheusMetrics_RecordLatency(t *testing.T) {
	pm, reg := newTestMetrics(t)

	pm.RecordLatency(ports.OperationCompare, time.Millisecond, map[string]string{ports.LabelCategory: "text"})
	pm.RecordLatency(ports.OperationUnit, 2*time.Millisecond, map[string]string{ports.LabelUnit: "match"})
	pm.RecordLatency(ports.OperationBatch, time.Second, map[string]string{ports.LabelUnit: ""})

	assert.Equal(t, 3, testutil.CollectAndCount(pm.operationLatency))

	count, err := testutil.GatherAndCount(reg, "grading_operation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestPrometheusMetrics_WithEngine(t *testing.T) {
	pm, _ := newTestMetrics(t)
	engine, err := grading.NewEngine(grading.DefaultConfig(), grading.WithMetrics(pm))
	require.NoError(t, err)

	engine.CompareRaw("3 m/s", "3.0 m/s", "")
	engine.CompareRaw("4 m/s", "3.0 m/s", "")
	engine.CompareRaw("B", "b", domain.CategoryOption)

	assert.Equal(t, 1.0, testutil.ToFloat64(pm.comparisons.WithLabelValues("physical_quantity", ports.OutcomeEqual, "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.comparisons.WithLabelValues("physical_quantity", ports.OutcomeNotEqual, "numeric_mismatch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.comparisons.WithLabelValues("option", ports.OutcomeEqual, "")))
}

func TestPrometheusMetrics_ConcurrentRecording(t *testing.T) {
	pm, _ := newTestMetrics(t)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				pm.RecordCounter(ports.MetricUnitExecutions, 1, map[string]string{ports.LabelUnit: "match"})
				pm.RecordLatency(ports.OperationUnit, time.Microsecond, nil)
				pm.RecordGauge(ports.MetricBatchAccuracy, 1, nil)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1000.0, testutil.ToFloat64(pm.unitExecutions.WithLabelValues("match", ports.OutcomeOK)))
}
