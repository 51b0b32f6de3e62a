package pipeline

import (
	"context"
	"io"
	"log"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/autodoc/autodoc/pkg/analyzer"
	"github.com/autodoc/autodoc/pkg/parser"
	"github.com/autodoc/autodoc/pkg/report"
	"github.com/autodoc/autodoc/pkg/summary"
	"github.com/autodoc/autodoc/pkg/telemetry"
)

// Runner executes report runs. A Runner holds no per-run state and may be
// shared; each Run is independent.
type Runner struct {
	loader     *parser.Loader
	analyzer   *analyzer.Analyzer
	summarizer summary.Summarizer
	publisher  Publisher
	tracer     trace.Tracer
	onStage    func(StageEvent)
	logger     *log.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithSummarizer sets the narrative generator. Default: summary.Fallback.
func WithSummarizer(s summary.Summarizer) Option {
	return func(r *Runner) { r.summarizer = s }
}

// WithPublisher enables the publish stage.
func WithPublisher(p Publisher) Option {
	return func(r *Runner) { r.publisher = p }
}

// WithTracer sets the tracer used for stage spans. Default: telemetry.Tracer().
func WithTracer(t trace.Tracer) Option {
	return func(r *Runner) { r.tracer = t }
}

// WithStageHook registers a callback invoked before and after each stage.
func WithStageHook(fn func(StageEvent)) Option {
	return func(r *Runner) { r.onStage = fn }
}

// WithAnalyzer replaces the default analyzer (e.g. to change chart size).
func WithAnalyzer(a *analyzer.Analyzer) Option {
	return func(r *Runner) { r.analyzer = a }
}

// WithLoader replaces the default file loader.
func WithLoader(l *parser.Loader) Option {
	return func(r *Runner) { r.loader = l }
}

// WithLogger enables stage diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// New creates a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{
		loader:     parser.NewLoader(parser.DefaultConfig()),
		analyzer:   analyzer.New(),
		summarizer: summary.Fallback{},
		logger:     log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.tracer == nil {
		r.tracer = telemetry.Tracer()
	}
	return r
}

// Run executes req. Loader, analyzer, renderer and publisher errors abort the
// run and are returned as-is; a failing narrative never does. A publish
// failure still returns the Result so the rendered artifacts and any URIs
// that did upload stay visible.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	if req.OutputDir == "" {
		req.OutputDir = "output"
	}

	res := &Result{RunID: uuid.New().String()}

	ctx, span := r.tracer.Start(ctx, "autodoc.run", trace.WithAttributes(
		attribute.String("autodoc.run_id", res.RunID),
		attribute.String("autodoc.input", req.InputPath),
	))
	defer span.End()

	stages := r.plan(req)
	r.logger.Printf("[pipeline] run %s: %s -> %s (%d stages)", res.RunID, req.InputPath, req.OutputDir, len(stages))

	for i, st := range stages {
		err := r.runStage(ctx, res, st, i+1, len(stages), func(ctx context.Context) error {
			return r.execute(ctx, st, req, res)
		})
		if err != nil {
			telemetry.RecordError(span, err)
			if st == StagePublish {
				return res, err
			}
			return nil, err
		}
	}

	return res, nil
}

// plan lists the stages req needs, in execution order.
func (r *Runner) plan(req Request) []string {
	stages := []string{StageLoad, StageAnalyze}
	if req.Summary {
		stages = append(stages, StageSummarize)
	}
	if req.PDF {
		stages = append(stages, StagePDF)
	}
	if req.Excel {
		stages = append(stages, StageXLSX)
	}
	if r.publisher != nil && (req.PDF || req.Excel) {
		stages = append(stages, StagePublish)
	}
	return stages
}

// runStage wraps fn in a span, the stage hook and timing.
func (r *Runner) runStage(ctx context.Context, res *Result, stage string, index, total int, fn func(context.Context) error) error {
	ctx, span := r.tracer.Start(ctx, "autodoc."+stage)
	defer span.End()

	r.emit(StageEvent{Stage: stage, Index: index, Total: total})

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	res.Stages = append(res.Stages, StageTiming{Stage: stage, Duration: elapsed})
	telemetry.RecordError(span, err)

	if err != nil {
		r.logger.Printf("[pipeline] %s failed after %v: %v", stage, elapsed, err)
	} else {
		r.logger.Printf("[pipeline] %s done in %v", stage, elapsed)
	}

	r.emit(StageEvent{Stage: stage, Index: index, Total: total, Done: true, Duration: elapsed, Err: err})
	return err
}

func (r *Runner) emit(ev StageEvent) {
	if r.onStage != nil {
		r.onStage(ev)
	}
}

// execute performs one stage, storing its output on res.
func (r *Runner) execute(ctx context.Context, stage string, req Request, res *Result) error {
	span := trace.SpanFromContext(ctx)

	switch stage {
	case StageLoad:
		ds, err := r.loader.Load(ctx, req.InputPath)
		if err != nil {
			return err
		}
		res.Dataset = ds
		span.SetAttributes(
			attribute.Int("autodoc.rows", ds.NumRows()),
			attribute.Int("autodoc.columns", len(ds.Columns)),
		)

	case StageAnalyze:
		m, charts, err := r.analyzer.Analyze(res.Dataset, req.OutputDir)
		if err != nil {
			return err
		}
		res.Metrics = m
		res.Charts = charts
		span.SetAttributes(attribute.Int("autodoc.charts", len(charts)))

	case StageSummarize:
		res.Narrative = r.summarizer.Summarize(ctx, summary.NewContext(req.Title, res.Metrics))
		res.HasNarrative = true
		span.SetAttributes(attribute.String("autodoc.summarizer", r.summarizer.Name()))

	case StagePDF:
		path, err := report.RenderPDF(report.PDFInput{
			Title:     req.Title,
			Metrics:   res.Metrics,
			Charts:    res.Charts,
			OutputDir: req.OutputDir,
			LogoPath:  req.LogoPath,
			Narrative: res.Narrative,
		})
		if err != nil {
			return err
		}
		res.PDFPath = path

	case StageXLSX:
		path, err := report.RenderXLSX(res.Dataset, res.Metrics, filepath.Join(req.OutputDir, report.XLSXFile))
		if err != nil {
			return err
		}
		res.ExcelPath = path

	case StagePublish:
		uris, err := r.publisher.Publish(ctx, res.RunID, res.Artifacts())
		res.Published = uris
		if err != nil {
			return err
		}
	}

	return nil
}
