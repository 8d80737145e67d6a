// Package tracing wires OpenTelemetry distributed tracing into the gate
// server, exporting spans over OTLP/gRPC when an endpoint is configured.
// Commands that never call New (every one-shot CLI invocation) still import
// it transitively through pkg/scan, which starts spans against whatever
// TracerProvider is globally registered — the OpenTelemetry no-op provider
// when nothing has called New, a real exporter once the gate server has.
package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// TracerName is the instrumentation scope every span in this module is
// recorded under.
const TracerName = "skillvault"

// Config configures the OTLP/gRPC trace exporter.
type Config struct {
	ServiceName  string
	Endpoint     string // host:port, e.g. "localhost:4317"; empty disables tracing entirely
	Insecure     bool
	BatchTimeout time.Duration
}

// Provider owns the process-wide TracerProvider and exporter connection.
// Shutdown must be called before the process exits so buffered spans flush.
type Provider struct {
	tp *sdktrace.TracerProvider
}

// New connects an OTLP/gRPC exporter and registers it as the global
// TracerProvider. Callers that never configure an endpoint should not call
// New at all; pkg/scan's spans are harmless no-ops against the default
// global provider in that case.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 5 * time.Second
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing: build resource: %w", err)
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("tracing: connect otlp exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(cfg.BatchTimeout)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	return &Provider{tp: tp}, nil
}

// Shutdown flushes buffered spans and closes the exporter connection.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tp == nil {
		return nil
	}
	return p.tp.Shutdown(ctx)
}
