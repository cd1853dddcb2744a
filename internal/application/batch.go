package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ahrav/physgrade/internal/domain"
	"github.com/ahrav/physgrade/internal/ports"
)

// Item is one grading task: a ground truth and the candidates to grade
// against it. Candidate is shorthand for a single-element Candidates.
type Item struct {
	ID          string   `json:"id"`
	Question    string   `json:"question,omitempty"`
	GroundTruth string   `json:"ground_truth"`
	Candidate   string   `json:"candidate,omitempty"`
	Candidates  []string `json:"candidates,omitempty"`
	Category    string   `json:"category,omitempty"`
}

func (it Item) candidates() []string {
	if len(it.Candidates) > 0 {
		return it.Candidates
	}
	return []string{it.Candidate}
}

// ItemResult is the outcome of grading one Item. Index is the item's
// position in the input.
type ItemResult struct {
	ID          string                    `json:"id"`
	Index       int                       `json:"index"`
	Category    domain.Category           `json:"category,omitempty"`
	Comparisons []domain.ComparisonResult `json:"comparisons,omitempty"`
	Verdict     *domain.Verdict           `json:"verdict,omitempty"`
	Error       string                    `json:"error,omitempty"`
}

// Correct reports whether every candidate of the item was judged equal.
func (r ItemResult) Correct() bool {
	if r.Error != "" || len(r.Comparisons) == 0 {
		return false
	}
	for _, c := range r.Comparisons {
		if !c.Equal {
			return false
		}
	}
	return true
}

// Report summarizes a batch run. Results are in input order.
type Report struct {
	RunID      string                                   `json:"run_id"`
	Results    []ItemResult                             `json:"results"`
	Graded     int                                      `json:"graded"`
	Correct    int                                      `json:"correct"`
	Failed     int                                      `json:"failed"`
	Accuracy   float64                                  `json:"accuracy"`
	ByCategory map[domain.Category]domain.CategoryStats `json:"by_category"`
	Duration   time.Duration                            `json:"duration"`
}

// BatchGrader runs a grading pipeline over many items concurrently.
// It is safe for concurrent use; each Grade call is an independent run.
type BatchGrader struct {
	exec            ports.Executable
	cfg             BatchConfig
	defaultCategory domain.Category
	limiter         *rate.Limiter
	logger          *slog.Logger
	metrics         ports.MetricsCollector
	tracer          trace.Tracer
}

// BatchOption customizes a BatchGrader.
type BatchOption func(*BatchGrader)

// WithLogger sets the structured logger. The default is slog.Default().
func WithLogger(l *slog.Logger) BatchOption {
	return func(b *BatchGrader) { b.logger = l }
}

// WithBatchMetrics reports batch accuracy and latency to m.
func WithBatchMetrics(m ports.MetricsCollector) BatchOption {
	return func(b *BatchGrader) { b.metrics = m }
}

// NewBatchGrader creates a grader that runs exec once per item.
func NewBatchGrader(exec ports.Executable, cfg BatchConfig, opts ...BatchOption) (*BatchGrader, error) {
	if exec == nil {
		return nil, fmt.Errorf("batch grader: executable is required")
	}
	if cfg.Concurrency < 0 {
		return nil, fmt.Errorf("batch grader: concurrency cannot be negative, got %d", cfg.Concurrency)
	}
	if cfg.MaxPerSecond < 0 || math.IsNaN(cfg.MaxPerSecond) {
		return nil, fmt.Errorf("batch grader: max_per_second cannot be negative, got %v", cfg.MaxPerSecond)
	}

	b := &BatchGrader{
		exec:   exec,
		cfg:    cfg,
		logger: slog.Default(),
		tracer: otel.Tracer("batch-grader"),
	}
	if cfg.DefaultCategory != "" {
		cat, err := domain.ParseCategory(cfg.DefaultCategory)
		if err != nil {
			return nil, fmt.Errorf("batch grader: %w", err)
		}
		b.defaultCategory = cat
	}
	if cfg.MaxPerSecond > 0 {
		b.limiter = rate.NewLimiter(rate.Limit(cfg.MaxPerSecond), max(1, int(cfg.MaxPerSecond)))
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Grade grades items and returns a report with one result per item.
//
// With FailFast set, the first item error cancels the remaining work and
// is returned together with the partial report. Otherwise item errors are
// recorded on their results and returned joined; the report is complete.
func (b *BatchGrader) Grade(ctx context.Context, items []Item) (*Report, error) {
	runID := uuid.NewString()
	ctx, span := b.tracer.Start(ctx, "BatchGrader.Grade",
		trace.WithAttributes(
			attribute.String("batch.run_id", runID),
			attribute.Int("batch.items", len(items)),
		))
	defer span.End()

	logger := b.logger.With("run_id", runID, "pipeline", b.exec.ID())
	logger.InfoContext(ctx, "batch started", "items", len(items))
	start := time.Now()

	results := make([]ItemResult, len(items))
	var (
		mu       sync.Mutex
		itemErrs []error
	)

	g, gctx := errgroup.WithContext(ctx)
	limit := b.cfg.Concurrency
	if limit == 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(limit)

	for i, item := range items {
		id := item.ID
		if id == "" {
			id = strconv.Itoa(i)
		}
		results[i] = ItemResult{ID: id, Index: i}

		if gctx.Err() != nil {
			results[i].Error = gctx.Err().Error()
			continue
		}

		g.Go(func() error {
			res, err := b.gradeItem(gctx, runID, id, item)
			res.ID, res.Index = id, i
			if err != nil {
				res.Error = err.Error()
				logger.WarnContext(gctx, "item failed", "item", id, "error", err)
				mu.Lock()
				itemErrs = append(itemErrs, fmt.Errorf("item %s: %w", id, err))
				mu.Unlock()
			}
			results[i] = res
			if err != nil && b.cfg.FailFast {
				return fmt.Errorf("item %s: %w", id, err)
			}
			return nil
		})
	}

	waitErr := g.Wait()
	report := b.summarize(runID, results, time.Since(start))
	b.record(report)

	span.SetAttributes(
		attribute.Float64("batch.accuracy", report.Accuracy),
		attribute.Int("batch.failed", report.Failed),
	)
	logger.InfoContext(ctx, "batch finished",
		"graded", report.Graded,
		"correct", report.Correct,
		"failed", report.Failed,
		"accuracy", report.Accuracy,
		"duration", report.Duration,
	)

	if waitErr != nil {
		span.RecordError(waitErr)
		span.SetStatus(codes.Error, waitErr.Error())
		return report, waitErr
	}
	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return report, err
	}
	if err := errors.Join(itemErrs...); err != nil {
		span.SetStatus(codes.Error, "some items failed")
		return report, err
	}
	return report, nil
}

func (b *BatchGrader) gradeItem(ctx context.Context, runID, id string, item Item) (ItemResult, error) {
	var res ItemResult
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return res, err
		}
	}

	state, err := b.itemState(runID, id, item)
	if err != nil {
		return res, err
	}

	out, err := b.exec.Execute(ctx, state)
	if err != nil {
		return res, err
	}

	comparisons, ok := domain.Get(out, domain.KeyComparisons)
	if !ok {
		return res, fmt.Errorf("pipeline %s produced no comparisons", b.exec.ID())
	}
	res.Comparisons = comparisons
	res.Category, _ = domain.Get(out, domain.KeyCategory)
	res.Verdict, _ = domain.Get(out, domain.KeyVerdict)
	return res, nil
}

func (b *BatchGrader) itemState(runID, id string, item Item) (domain.State, error) {
	contents := item.candidates()
	candidates := make([]domain.Candidate, len(contents))
	for i, c := range contents {
		candidates[i] = domain.Candidate{ID: fmt.Sprintf("%s/%d", id, i), Content: c}
	}

	state := domain.NewState().WithExecutionContext(domain.ExecutionContext{
		PipelineID:  b.exec.ID(),
		ExecutionID: runID + "/" + id,
	})
	state = domain.With(state, domain.KeyGroundTruth, item.GroundTruth)
	state = domain.With(state, domain.KeyCandidates, candidates)
	if item.Question != "" {
		state = domain.With(state, domain.KeyQuestion, item.Question)
	}

	switch {
	case item.Category != "":
		cat, err := domain.ParseCategory(item.Category)
		if err != nil {
			return state, err
		}
		state = domain.With(state, domain.KeyCategory, cat)
	case b.defaultCategory != "":
		state = domain.With(state, domain.KeyCategory, b.defaultCategory)
	}
	return state, nil
}

func (b *BatchGrader) summarize(runID string, results []ItemResult, elapsed time.Duration) *Report {
	report := &Report{
		RunID:      runID,
		Results:    results,
		ByCategory: make(map[domain.Category]domain.CategoryStats),
		Duration:   elapsed,
	}
	for _, r := range results {
		if r.Error != "" {
			report.Failed++
			continue
		}
		report.Graded++
		stats := report.ByCategory[r.Category]
		stats.Total++
		if r.Correct() {
			report.Correct++
			stats.Correct++
		}
		report.ByCategory[r.Category] = stats
	}
	if report.Graded > 0 {
		report.Accuracy = float64(report.Correct) / float64(report.Graded)
	}
	return report
}

func (b *BatchGrader) record(report *Report) {
	if b.metrics == nil {
		return
	}
	b.metrics.RecordLatency(ports.OperationBatch, report.Duration, nil)
	b.metrics.RecordGauge(ports.MetricBatchAccuracy, report.Accuracy, map[string]string{
		ports.LabelCategory: ports.CategoryAll,
	})
	for cat, stats := range report.ByCategory {
		b.metrics.RecordGauge(ports.MetricBatchAccuracy, stats.Accuracy(), map[string]string{
			ports.LabelCategory: string(cat),
		})
	}
}
