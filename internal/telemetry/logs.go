package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// NewLogHandler returns an slog.Handler that exports records over OTLP/gRPC
// to endpoint. An empty endpoint yields a nil handler and a no-op shutdown.
func NewLogHandler(ctx context.Context, endpoint, version string) (slog.Handler, ShutdownFunc, error) {
	if endpoint == "" {
		return nil, func(context.Context) error { return nil }, nil
	}

	opts := []otlploggrpc.Option{otlploggrpc.WithInsecure()}
	if isURL(endpoint) {
		opts = append(opts, otlploggrpc.WithEndpointURL(endpoint))
	} else {
		opts = append(opts, otlploggrpc.WithEndpoint(endpoint))
	}
	exp, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("creating OTLP log exporter: %w", err)
	}

	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)),
		sdklog.WithResource(newResource(version)),
	)
	return otelslog.NewHandler(ServiceName, otelslog.WithLoggerProvider(lp)), lp.Shutdown, nil
}
