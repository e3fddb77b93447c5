package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// TraceConfig configures the OTel SDK a Mapper's Tracer is drawn from. It
// corresponds to the telemetry configuration's "exporter: {otlp}" option.
type TraceConfig struct {
	// ServiceName identifies this process in exported spans.
	ServiceName string

	// RuntimeID, if set, is attached as a resource attribute so spans from
	// multiple runtime instances in one collector can be told apart.
	RuntimeID string

	// OTLPEndpoint is the collector's gRPC endpoint (e.g. "localhost:4317").
	// Leaving it empty returns a no-op tracer that never exports.
	OTLPEndpoint string

	// Insecure disables TLS on the OTLP connection, for local collectors.
	Insecure bool
}

// NewTracer builds an OpenTelemetry trace.Tracer per cfg, along with a
// shutdown func that flushes and stops the underlying provider. When
// cfg.OTLPEndpoint is empty the returned tracer is a process-wide no-op
// tracer and shutdown is a no-op.
func NewTracer(cfg TraceConfig) (trace.Tracer, func(context.Context) error) {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "agentcore-runtime"
	}

	if cfg.OTLPEndpoint == "" {
		return otel.Tracer(serviceName), func(context.Context) error { return nil }
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptrace.New(context.Background(), otlptracegrpc.NewClient(opts...))
	if err != nil {
		return otel.Tracer(serviceName), func(context.Context) error { return nil }
	}

	attrs := []attribute.KeyValue{semconv.ServiceName(serviceName)}
	if cfg.RuntimeID != "" {
		attrs = append(attrs, attribute.String("agentcore.runtime_id", cfg.RuntimeID))
	}
	res, err := resource.New(context.Background(), resource.WithAttributes(attrs...))
	if err != nil {
		res = resource.Default()
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	return provider.Tracer(serviceName), provider.Shutdown
}
