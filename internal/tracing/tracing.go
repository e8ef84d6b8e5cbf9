// Package tracing sets up the OpenTelemetry tracer provider for build spans.
package tracing

import (
	"context"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/hazae41/glace/internal/config"
	"github.com/hazae41/glace/internal/foundation/errors"
	"github.com/hazae41/glace/internal/version"
)

// InstrumentationName names the tracer handed to the build observer.
const InstrumentationName = "github.com/hazae41/glace"

// NewProvider builds a tracer provider for cfg. It returns nil when tracing
// is disabled. Stdout spans go to w.
func NewProvider(ctx context.Context, cfg config.TracingConfig, w io.Writer) (*sdktrace.TracerProvider, error) {
	var (
		exporter sdktrace.SpanExporter
		err      error
	)
	switch cfg.Exporter {
	case config.TraceExporterNone, "":
		return nil, nil
	case config.TraceExporterStdout:
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	case config.TraceExporterOTLP:
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)
	default:
		return nil, errors.ConfigError("unknown trace exporter").WithContext("exporter", string(cfg.Exporter)).Build()
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to create trace exporter").
			WithContext("exporter", string(cfg.Exporter)).Build()
	}

	res := resource.NewWithAttributes("",
		attribute.String("service.name", "glace"),
		attribute.String("service.version", version.Version),
	)
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	), nil
}
