// # internal/shared/observability/tracing.go
package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "nekoscript"

// Tracer delegates to the global provider, so spans started before
// InitTracing are still valid no-ops.
var Tracer trace.Tracer = otel.Tracer(instrumentationName)

// TracingConfig selects the exporter. An empty Endpoint keeps the no-op
// provider.
type TracingConfig struct {
	ServiceName string
	Endpoint    string
	Insecure    bool
}

// ShutdownFunc flushes and stops the provider.
type ShutdownFunc func(context.Context) error

// InitTracing installs an OTLP gRPC tracer provider.
func InitTracing(ctx context.Context, cfg TracingConfig) (ShutdownFunc, error) {
	if cfg.Endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	tp, err := installProvider(exporter, cfg.ServiceName)
	if err != nil {
		return nil, err
	}
	return tp.Shutdown, nil
}

func installProvider(exporter sdktrace.SpanExporter, serviceName string) (*sdktrace.TracerProvider, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", serviceName)),
	)
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	slog.Debug("tracing enabled", "service", serviceName)
	return tp, nil
}

// RecordError marks span as failed when err is non-nil.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetAttributes(attribute.Bool("error", true))
}
