package telemetry

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func testConfig() Config {
	return Config{
		ServiceName:    "printshop-api",
		ServiceVersion: "1.4.2",
		Environment:    "staging",
		SampleRate:     1.0,
	}
}

func setupTelemetry(t *testing.T, tracing, metrics bool) (*Telemetry, func()) {
	t.Helper()

	cfg := testConfig()
	cfg.EnableTracing = tracing
	cfg.EnableMetrics = metrics

	tel, err := Initialize(context.Background(), cfg,
		WithTraceExporter(NewNoopTraceExporter()),
		WithMetricExporter(NewNoopMetricExporter()),
	)
	if err != nil {
		t.Fatalf("initialize telemetry: %v", err)
	}

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(ctx); err != nil {
			t.Errorf("shutdown telemetry: %v", err)
		}
	}

	return tel, cleanup
}

func setupTelemetryWithTracing(t *testing.T) (*Telemetry, func()) {
	return setupTelemetry(t, true, false)
}

func setupTelemetryWithMetrics(t *testing.T) (*Telemetry, func()) {
	return setupTelemetry(t, false, true)
}

func setupTelemetryWithBoth(t *testing.T) (*Telemetry, func()) {
	return setupTelemetry(t, true, true)
}

// setupTracerProvider installs an in-memory exporter so tests can inspect
// finished spans.
func setupTracerProvider(t *testing.T) (*tracetest.InMemoryExporter, func()) {
	t.Helper()

	exp := tracetest.NewInMemoryExporter()
	tp := trace.NewTracerProvider(trace.WithSyncer(exp))
	otel.SetTracerProvider(tp)

	return exp, func() { otel.SetTracerProvider(nil) }
}
