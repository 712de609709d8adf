package telemetry

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// LogExporter implements the OpenTelemetry SpanExporter interface and writes
// completed spans to a structured logger. It gives deployments without a
// trace collector a way to see probe and build timings in their logs.
//
// Export failures cannot happen here, so ExportSpans always returns nil and
// never blocks the trace pipeline.
type LogExporter struct {
	logger *slog.Logger
}

// NewLogExporter creates a LogExporter writing to the given logger.
func NewLogExporter(logger *slog.Logger) *LogExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogExporter{logger: logger}
}

// ExportSpans writes each completed span to the logger at debug level.
func (e *LogExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, span := range spans {
		sc := span.SpanContext()
		e.logger.Debug("span completed",
			"name", span.Name(),
			"trace_id", sc.TraceID().String(),
			"span_id", sc.SpanID().String(),
			"duration", span.EndTime().Sub(span.StartTime()),
			"status", span.Status().Code.String(),
		)
	}
	return nil
}

// Shutdown performs cleanup when the exporter is being shut down.
// This implementation is a no-op as the logger outlives the exporter.
func (e *LogExporter) Shutdown(ctx context.Context) error {
	return nil
}

// NewTracerProvider creates a TracerProvider that exports spans through a
// LogExporter.
//
// The provider uses a SimpleSpanProcessor for immediate export without
// batching, so a span appears in the log the moment it ends.
func NewTracerProvider(serviceName string, logger *slog.Logger) *sdktrace.TracerProvider {
	if logger == nil {
		logger = slog.Default()
	}

	exporter := NewLogExporter(logger)

	// Immediate export, no batching
	processor := sdktrace.NewSimpleSpanProcessor(exporter)

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
		),
	)
	if err != nil {
		logger.Warn("failed to create resource, using default", "error", err)
		res = resource.Default()
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(processor),
		sdktrace.WithResource(res),
	)
}
