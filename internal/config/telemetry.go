package config

import (
	"context"
	"fmt"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// DevTelemetry bundles a meter and tracer that print every instrument
// observation and span to stdout, for local inspection of C7/C8 quality
// metrics and query spans. Never wired on the hot path by default; a
// caller opts in explicitly when Config.TelemetryEnabled is set.
type DevTelemetry struct {
	Meter    metric.Meter
	Tracer   trace.Tracer
	Shutdown func(context.Context) error
}

// NewDevTelemetry builds a DevTelemetry backed by the stdout exporters.
// Call Shutdown to flush and release the underlying providers.
func NewDevTelemetry() (*DevTelemetry, error) {
	metricExporter, err := stdoutmetric.New()
	if err != nil {
		return nil, fmt.Errorf("config: create stdout metric exporter: %w", err)
	}
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
	)

	traceExporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("config: create stdout trace exporter: %w", err)
	}
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
	)

	const instrumentationName = "fantasim-world-sub000/partition"
	return &DevTelemetry{
		Meter:  meterProvider.Meter(instrumentationName),
		Tracer: tracerProvider.Tracer(instrumentationName),
		Shutdown: func(ctx context.Context) error {
			if err := meterProvider.Shutdown(ctx); err != nil {
				return fmt.Errorf("config: shutdown meter provider: %w", err)
			}
			if err := tracerProvider.Shutdown(ctx); err != nil {
				return fmt.Errorf("config: shutdown tracer provider: %w", err)
			}
			return nil
		},
	}, nil
}
