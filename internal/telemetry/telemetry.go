// Package telemetry wires OpenTelemetry tracing around training runs.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "boxes.training"

// Init installs a global TracerProvider exporting spans to w as JSON.
// The returned shutdown flushes pending spans and must be called.
func Init(ctx context.Context, w io.Writer, version string) (shutdown func(context.Context) error, err error) {
	if ctx == nil {
		return nil, fmt.Errorf("telemetry: nil context")
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", "boxes"),
		attribute.String("service.version", version),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// Tracer emits run and batch spans. Disabled tracers hand out no-op spans.
type Tracer struct {
	tracer  trace.Tracer
	logger  *slog.Logger
	enabled bool
}

// NewTracer uses the global provider.
func NewTracer(logger *slog.Logger, enabled bool) *Tracer {
	return NewTracerFrom(otel.GetTracerProvider(), logger, enabled)
}

// NewTracerFrom uses the given provider.
func NewTracerFrom(tp trace.TracerProvider, logger *slog.Logger, enabled bool) *Tracer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracer{
		tracer:  tp.Tracer(tracerName),
		logger:  logger,
		enabled: enabled,
	}
}

// Enabled reports whether spans are recorded.
func (t *Tracer) Enabled() bool { return t != nil && t.enabled }

// StartRun opens the span covering a whole training run.
func (t *Tracer) StartRun(ctx context.Context, runID, kind, recorder string, seed uint64, exponent float64) (context.Context, trace.Span) {
	if !t.Enabled() {
		return ctx, noop.Span{}
	}
	ctx, span := t.tracer.Start(ctx, "boxes.run",
		trace.WithAttributes(
			attribute.String("boxes.run.id", runID),
			attribute.String("boxes.run.kind", kind),
			attribute.String("boxes.run.recorder", recorder),
			attribute.Int64("boxes.run.seed", int64(seed)),
			attribute.Float64("boxes.run.exponent", exponent),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	t.logger.Log(ctx, slog.LevelDebug, "run span started", "run_id", runID)
	return ctx, span
}

// EndRun closes a run span with the episode count and final error.
func (t *Tracer) EndRun(span trace.Span, episodes int64, underflows int64, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.SetAttributes(
		attribute.Int64("boxes.run.episodes", episodes),
		attribute.Int64("boxes.run.underflows", underflows),
	)
	span.End()
}

// StartBatch opens a child span for one statistics batch.
func (t *Tracer) StartBatch(ctx context.Context, index int, start int64) (context.Context, trace.Span) {
	if !t.Enabled() {
		return ctx, noop.Span{}
	}
	return t.tracer.Start(ctx, "boxes.batch",
		trace.WithAttributes(
			attribute.Int("boxes.batch.index", index),
			attribute.Int64("boxes.batch.start", start),
		),
	)
}

// EndBatch closes a batch span.
func (t *Tracer) EndBatch(span trace.Span, episodes, underflows int) {
	if span == nil {
		return
	}
	span.SetAttributes(
		attribute.Int("boxes.batch.episodes", episodes),
		attribute.Int("boxes.batch.underflows", underflows),
	)
	span.End()
}
