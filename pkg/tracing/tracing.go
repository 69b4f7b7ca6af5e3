// Package tracing wires the OpenTelemetry tracer provider for the service.
package tracing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/okian/livemap/pkg/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// InstrumentationName is the tracer name used across the service.
const InstrumentationName = "github.com/okian/livemap"

const shutdownTimeout = 5 * time.Second

// ErrUnsupportedExporter is returned for unknown exporter names.
var ErrUnsupportedExporter = errors.New("unsupported tracing exporter")

// Config governs how tracing is initialised.
type Config struct {
	Enabled     bool
	ServiceName string
	Exporter    string // stdout | otlphttp
	Endpoint    string // used when Exporter == otlphttp
	SampleRatio float64
	// Writer receives stdout exporter output; defaults to os.Stdout.
	Writer io.Writer
}

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

// Init installs a global tracer provider according to cfg and returns its
// shutdown function. When tracing is disabled a noop provider is installed.
func Init(ctx context.Context, cfg Config, log logger.Logger) (ShutdownFunc, error) {
	if log == nil {
		log = logger.Noop()
	}

	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		otel.SetTextMapPropagator(propagation.TraceContext{})
		log.Debug(ctx, "tracing disabled; using noop tracer provider")
		return func(context.Context) error { return nil }, nil
	}

	exp, err := exporterFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	service := cfg.ServiceName
	if service == "" {
		service = "livemap"
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", service),
		attribute.String("service.namespace", "vtps"),
	))
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	ratio := cfg.SampleRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Info(ctx, "tracing enabled",
		logger.String("exporter", cfg.Exporter),
		logger.String("service_name", service),
		logger.Float64("sample_ratio", ratio),
	)
	return tp.Shutdown, nil
}

func exporterFromConfig(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch strings.ToLower(cfg.Exporter) {
	case "stdout", "":
		w := cfg.Writer
		if w == nil {
			w = os.Stdout
		}
		return stdouttrace.New(
			stdouttrace.WithWriter(w),
			stdouttrace.WithoutTimestamps(),
		)
	case "otlphttp", "otlp":
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = "localhost:4318"
		}
		return otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(endpoint),
			otlptracehttp.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedExporter, cfg.Exporter)
	}
}

// Tracer returns the service tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

// Shutdown invokes fn with a bounded timeout, logging failures.
func Shutdown(ctx context.Context, fn ShutdownFunc, log logger.Logger) {
	if fn == nil {
		return
	}
	if log == nil {
		log = logger.Noop()
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Warn(ctx, "tracing shutdown failed", logger.Error(err))
	}
}
