package telemetry

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ServiceName identifies this service in traces, logs and health responses.
const ServiceName = "notification-service"

// ShutdownFunc flushes and stops a tracer provider.
type ShutdownFunc func(context.Context) error

// NewTracerProvider returns an OTLP/gRPC-backed tracer provider exporting to
// endpoint. An empty endpoint yields a no-op provider.
func NewTracerProvider(ctx context.Context, endpoint, version string) (trace.TracerProvider, ShutdownFunc, error) {
	if endpoint == "" {
		return noop.NewTracerProvider(), func(context.Context) error { return nil }, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithInsecure()}
	if isURL(endpoint) {
		opts = append(opts, otlptracegrpc.WithEndpointURL(endpoint))
	} else {
		opts = append(opts, otlptracegrpc.WithEndpoint(endpoint))
	}
	exp, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("creating OTLP trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(newResource(version)),
	)
	return tp, tp.Shutdown, nil
}

func newResource(version string) *resource.Resource {
	return resource.NewSchemaless(
		attribute.String("service.name", ServiceName),
		attribute.String("service.version", version),
	)
}

func isURL(endpoint string) bool {
	return strings.Contains(endpoint, "://")
}
