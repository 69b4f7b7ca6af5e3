package worker

import (
	"github.com/okian/livemap/pkg/logger"
	"go.opentelemetry.io/otel/trace"
)

// Option applies a configuration option to the RenderLoop.
type Option func(*RenderLoop)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *RenderLoop) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *RenderLoop) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithTracer sets the tracer used for per-event spans.
func WithTracer(t trace.Tracer) Option {
	return func(w *RenderLoop) {
		if t != nil {
			w.tracer = t
		}
	}
}
