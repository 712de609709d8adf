// Package telemetry provides OpenTelemetry instrumentation for identity
// probing and client construction.
//
// Instrumentation is entirely optional: a nil *Telemetry (or one built
// without providers) is safe to call and records nothing. Applications that
// already run an OpenTelemetry pipeline pass their tracer and meter
// provider in; everyone else pays nothing.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/steadymq/sdk/identity"
)

// Options configures telemetry output.
type Options struct {
	// Tracer emits spans around device probes and client builds.
	// Nil disables tracing.
	Tracer trace.Tracer

	// MeterProvider supplies the meter for metric instruments.
	// Nil disables metrics.
	MeterProvider metric.MeterProvider

	// Logger receives instrument-creation warnings. Defaults to slog.Default().
	Logger *slog.Logger
}

// Telemetry records spans and metrics for the identity pipeline.
// The zero value and nil are both inert.
type Telemetry struct {
	tracer  trace.Tracer
	metrics *instruments
	logger  *slog.Logger
}

// instruments holds the metric instruments. These are created once in New
// and reused for every recording.
type instruments struct {
	// probeDuration records how long a device probe took, in milliseconds
	probeDuration metric.Float64Histogram

	// probeCount increments for each device probe performed
	probeCount metric.Int64Counter

	// buildCount increments for each MQTT client built
	buildCount metric.Int64Counter
}

// New creates a Telemetry from the given options. Providers that are nil
// disable their half of the output; New(Options{}) is valid and inert.
func New(opts Options) (*Telemetry, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	t := &Telemetry{
		tracer: opts.Tracer,
		logger: logger,
	}

	if opts.MeterProvider != nil {
		m, err := initInstruments(opts.MeterProvider.Meter("steadymq"))
		if err != nil {
			return nil, err
		}
		t.metrics = m
	}

	return t, nil
}

// initInstruments creates all metric instruments.
func initInstruments(meter metric.Meter) (*instruments, error) {
	m := &instruments{}
	var err error

	m.probeDuration, err = meter.Float64Histogram(
		"identity.probe.duration",
		metric.WithDescription("Time spent probing the platform for device identifiers"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create probe duration histogram: %w", err)
	}

	m.probeCount, err = meter.Int64Counter(
		"identity.probe.count",
		metric.WithDescription("Number of device probes performed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create probe counter: %w", err)
	}

	m.buildCount, err = meter.Int64Counter(
		"connector.build.count",
		metric.WithDescription("Number of MQTT clients built"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create build counter: %w", err)
	}

	return m, nil
}

// StartSpan begins a span when a tracer is configured. Without one, the
// caller gets its context back and a span that is safe to End.
func (t *Telemetry) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if t == nil || t.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	ctx, span := t.tracer.Start(ctx, name)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}

// RecordProbe captures the outcome of a device probe: which platform was
// probed, how long it took, and what it found.
func (t *Telemetry) RecordProbe(ctx context.Context, platform string, duration time.Duration, connections int, hasSerial bool) {
	if t == nil || t.metrics == nil {
		return
	}

	opts := metric.WithAttributes(
		attribute.String("platform", platform),
		attribute.Bool("has_serial", hasSerial),
		attribute.Int("connections", connections),
	)

	t.metrics.probeDuration.Record(ctx, float64(duration.Milliseconds()), opts)
	t.metrics.probeCount.Add(ctx, 1, opts)
}

// ObserveProbe adapts a collected fact set into the probe instruments.
// Callers measure the probe themselves and hand over the outcome.
func (t *Telemetry) ObserveProbe(ctx context.Context, platform identity.Platform, facts identity.FactSet, duration time.Duration) {
	t.RecordProbe(ctx, platform.String(), duration, len(facts.Connections), facts.Serial != "")
}

// RecordBuild counts a constructed MQTT client, tagged with the protocol
// revision it speaks.
func (t *Telemetry) RecordBuild(ctx context.Context, protocol string) {
	if t == nil || t.metrics == nil {
		return
	}

	t.metrics.buildCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("protocol", protocol),
	))
}
