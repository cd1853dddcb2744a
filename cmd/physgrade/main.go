// Command physgrade grades a JSONL file of physics answers against their
// ground truths using a YAML grading configuration.
//
//	physgrade -config grading.yaml -input pairs.jsonl -output results.jsonl
//
// Each input line is an application.Item. Each output line is the matching
// application.ItemResult, in input order. A run summary is logged on exit.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ahrav/physgrade/infrastructure/middleware"
	"github.com/ahrav/physgrade/internal/application"
	"github.com/ahrav/physgrade/internal/grading"
)

// maxLineBytes bounds a single JSONL record.
const maxLineBytes = 4 << 20

type options struct {
	configPath string
	inputPath  string
	outputPath string
	metricsOut string
	logFormat  string
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run is main without process globals. It returns the exit code: 0 on
// success, 1 when any item failed, 2 on usage or setup errors.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return 2
	}

	logger, err := newLogger(opts.logFormat, opts.logLevel, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	cfg := application.DefaultGradingConfig()
	if opts.configPath != "" {
		loaded, err := application.LoadConfig(opts.configPath)
		if err != nil {
			logger.Error("failed to load config", "path", opts.configPath, "error", err)
			return 2
		}
		cfg = *loaded
	}

	registry := prometheus.NewRegistry()
	metrics := middleware.NewPrometheusMetrics(registry)

	grader, err := newGrader(cfg, metrics, logger)
	if err != nil {
		logger.Error("failed to build grader", "error", err)
		return 2
	}

	in, closeIn, err := openInput(opts.inputPath, stdin)
	if err != nil {
		logger.Error("failed to open input", "error", err)
		return 2
	}
	defer closeIn()

	items, err := readItems(in)
	if err != nil {
		logger.Error("failed to read input", "error", err)
		return 2
	}

	report, gradeErr := grader.Grade(ctx, items)
	if report == nil {
		logger.Error("grading failed", "error", gradeErr)
		return 2
	}

	out, closeOut, err := openOutput(opts.outputPath, stdout)
	if err != nil {
		logger.Error("failed to open output", "error", err)
		return 2
	}
	if err := writeResults(out, report.Results); err != nil {
		logger.Error("failed to write results", "error", err)
		closeOut()
		return 2
	}
	if err := closeOut(); err != nil {
		logger.Error("failed to close output", "error", err)
		return 2
	}

	if opts.metricsOut != "" {
		if err := prometheus.WriteToTextfile(opts.metricsOut, registry); err != nil {
			logger.Error("failed to write metrics", "path", opts.metricsOut, "error", err)
			return 2
		}
	}

	logger.Info("grading complete",
		"run_id", report.RunID,
		"items", len(report.Results),
		"graded", report.Graded,
		"correct", report.Correct,
		"failed", report.Failed,
		"accuracy", report.Accuracy,
	)
	for cat, stats := range report.ByCategory {
		logger.Info("category accuracy", "category", cat, "total", stats.Total, "correct", stats.Correct, "accuracy", stats.Accuracy())
	}

	if gradeErr != nil {
		return 1
	}
	return 0
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("physgrade", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "Path to the grading YAML config (defaults are used when empty)")
	fs.StringVar(&opts.inputPath, "input", "-", "Input JSONL file, or - for stdin")
	fs.StringVar(&opts.outputPath, "output", "-", "Output JSONL file, or - for stdout")
	fs.StringVar(&opts.metricsOut, "metrics-out", "", "Write Prometheus metrics in text format to this file")
	fs.StringVar(&opts.logFormat, "log-format", "text", "Log format: text or json")
	fs.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		err := fmt.Errorf("unexpected arguments: %v", fs.Args())
		fmt.Fprintln(stderr, err)
		return opts, err
	}
	return opts, nil
}

func newLogger(format, level string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	handlerOpts := &slog.HandlerOptions{Level: lvl}
	switch format {
	case "text":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	}
	return nil, fmt.Errorf("invalid log format %q: want text or json", format)
}

// newGrader wires the engine, unit registry, guarded pipeline and batch
// grader described by cfg. All of them report to metrics.
func newGrader(cfg application.GradingConfig, metrics *middleware.PrometheusMetrics, logger *slog.Logger) (*application.BatchGrader, error) {
	engine, err := grading.NewEngine(cfg.Engine, grading.WithMetrics(metrics))
	if err != nil {
		return nil, err
	}

	guard := middleware.Guard(
		middleware.LimitsFromConfig(cfg.Limits),
		middleware.NewOTelUnitObserver(metrics),
	)
	pipeline, err := application.BuildPipeline("grading", cfg.Units, application.NewDefaultUnitRegistry(engine), guard)
	if err != nil {
		return nil, err
	}

	return application.NewBatchGrader(pipeline, cfg.Batch,
		application.WithLogger(logger),
		application.WithBatchMetrics(metrics),
	)
}

func openInput(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

func openOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

// readItems decodes one Item per non-blank line. Unknown fields are
// rejected so typos in field names do not silently drop data.
func readItems(r io.Reader) ([]application.Item, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var items []application.Item
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		var item application.Item
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&item); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %w", line+1, err)
	}
	if len(items) == 0 {
		return nil, errors.New("no items in input")
	}
	return items, nil
}

func writeResults(w io.Writer, results []application.ItemResult) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return bw.Flush()
}
