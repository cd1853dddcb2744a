package middleware

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/physgrade/internal/domain"
	"github.com/ahrav/physgrade/internal/ports"
)

var _ UnitObserver = (*OTelUnitObserver)(nil)

// OTelUnitObserver traces guarded unit executions and reports their
// latency and outcome to a MetricsCollector. The span lives in the context
// returned by PreExecute, so one observer may serve concurrent executions.
type OTelUnitObserver struct {
	metrics ports.MetricsCollector
	tracer  trace.Tracer
}

// NewOTelUnitObserver creates an observer. metrics may be nil.
func NewOTelUnitObserver(metrics ports.MetricsCollector) *OTelUnitObserver {
	return &OTelUnitObserver{
		metrics: metrics,
		tracer:  otel.Tracer("unit-guard"),
	}
}

// PreExecute starts a span for the unit and records the input size.
func (o *OTelUnitObserver) PreExecute(ctx context.Context, unit string, state domain.State) context.Context {
	ctx, span := o.tracer.Start(ctx, "UnitGuard.Execute",
		trace.WithAttributes(attribute.String("unit.id", unit)))

	candidates, _ := domain.Get(state, domain.KeyCandidates)
	span.SetAttributes(attribute.Int("guard.candidates", len(candidates)))
	return ctx
}

// PostExecute ends the span and records metrics.
func (o *OTelUnitObserver) PostExecute(ctx context.Context, unit string, state domain.State, elapsed time.Duration, err error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	outcome := ports.OutcomeOK
	if err != nil {
		outcome = ports.OutcomeError
		var limitErr *LimitExceededError
		if errors.As(err, &limitErr) {
			span.AddEvent("guard.limit_exceeded", trace.WithAttributes(
				attribute.String("limit", limitErr.Limit),
				attribute.Int("max", limitErr.Max),
				attribute.Int("got", limitErr.Got),
			))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		if v, ok := domain.Get(state, domain.KeyVerdict); ok && v != nil {
			span.AddEvent("verdict", trace.WithAttributes(
				attribute.String("verdict.id", v.ID),
				attribute.Float64("verdict.accuracy", v.Accuracy),
			))
		}
		span.SetStatus(codes.Ok, "")
	}

	if o.metrics == nil {
		return
	}
	labels := map[string]string{ports.LabelUnit: unit}
	o.metrics.RecordLatency(ports.OperationUnit, elapsed, labels)
	o.metrics.RecordCounter(ports.MetricUnitExecutions, 1, map[string]string{
		ports.LabelUnit:    unit,
		ports.LabelOutcome: outcome,
	})
}
