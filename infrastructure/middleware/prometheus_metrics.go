// Package middleware provides cross-cutting concerns for the grading engine:
// a Prometheus metrics collector and a guard that wraps pipeline units with
// input limits and observability hooks.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/physgrade/internal/ports"
)

var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

const namespace = "grading"

// PrometheusMetrics implements ports.MetricsCollector using Prometheus.
// It tracks comparison outcomes, operation latency, unit executions and
// batch accuracy for the grading engine.
type PrometheusMetrics struct {
	comparisons      *prometheus.CounterVec
	unitExecutions   *prometheus.CounterVec
	operationLatency *prometheus.HistogramVec
	batchAccuracy    *prometheus.GaugeVec
	operationCounter *prometheus.CounterVec
	systemGauges     *prometheus.GaugeVec
}

// NewPrometheusMetrics creates the grading metrics and registers them with
// reg. Pass prometheus.DefaultRegisterer to expose them on the global
// registry; tests use a fresh prometheus.NewRegistry().
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)
	return &PrometheusMetrics{
		comparisons: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "comparisons_total",
				Help:      "Answer comparisons by category, outcome and failure reason.",
			},
			[]string{ports.LabelCategory, ports.LabelOutcome, ports.LabelReason},
		),
		unitExecutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "unit_executions_total",
				Help:      "Pipeline unit executions by unit and outcome.",
			},
			[]string{ports.LabelUnit, ports.LabelOutcome},
		),
		operationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of grading operations.",
				Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"operation", ports.LabelCategory, ports.LabelUnit},
		),
		batchAccuracy: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "batch_accuracy",
				Help:      "Accuracy of the most recent batch run, overall and per category.",
			},
			[]string{ports.LabelCategory},
		),
		operationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Other grading counters keyed by metric name.",
			},
			[]string{"metric", ports.LabelOutcome},
		),
		systemGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "system_state",
				Help:      "Other grading gauges keyed by metric name.",
			},
			[]string{"metric"},
		),
	}
}

// RecordLatency implements ports.MetricsCollector.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	pm.operationLatency.WithLabelValues(
		operation,
		labelOr(labels, ports.LabelCategory, "none"),
		labelOr(labels, ports.LabelUnit, "none"),
	).Observe(duration.Seconds())
}

// RecordCounter implements ports.MetricsCollector.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case ports.MetricComparisons:
		pm.comparisons.WithLabelValues(
			labelOr(labels, ports.LabelCategory, "unknown"),
			labelOr(labels, ports.LabelOutcome, "unknown"),
			labels[ports.LabelReason],
		).Add(value)
	case ports.MetricUnitExecutions:
		pm.unitExecutions.WithLabelValues(
			labelOr(labels, ports.LabelUnit, "unknown"),
			labelOr(labels, ports.LabelOutcome, ports.OutcomeOK),
		).Add(value)
	default:
		pm.operationCounter.WithLabelValues(metric, labelOr(labels, ports.LabelOutcome, ports.OutcomeOK)).Add(value)
	}
}

// RecordGauge implements ports.MetricsCollector.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, labels map[string]string) {
	switch metric {
	case ports.MetricBatchAccuracy:
		pm.batchAccuracy.WithLabelValues(labelOr(labels, ports.LabelCategory, ports.CategoryAll)).Set(value)
	default:
		pm.systemGauges.WithLabelValues(metric).Set(value)
	}
}

func labelOr(labels map[string]string, key, fallback string) string {
	if v, ok := labels[key]; ok && v != "" {
		return v
	}
	return fallback
}
