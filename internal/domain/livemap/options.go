package livemap

import (
	"time"

	"github.com/okian/livemap/pkg/logger"
	"go.opentelemetry.io/otel/trace"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithSelectionSink sets the callback notified when a marker is activated.
func WithSelectionSink(sink SelectionSink) Option {
	return func(e *Engine) {
		if sink != nil {
			e.sink = sink
		}
	}
}

// WithFitPadding sets the padding in pixels used by fit-all.
func WithFitPadding(px int) Option {
	return func(e *Engine) {
		if px >= 0 {
			e.camera.padding = px
		}
	}
}

// WithFocusZoom sets the zoom level used when centering on the selection.
func WithFocusZoom(zoom float64) Option {
	return func(e *Engine) {
		if zoom > 0 {
			e.camera.zoom = zoom
		}
	}
}

// WithFocusDuration sets the duration of the centering animation.
func WithFocusDuration(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.camera.duration = d
		}
	}
}

// WithHandleGenerator replaces the marker handle generator.
func WithHandleGenerator(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newHandle = fn
		}
	}
}

// WithTracer sets the tracer used for render pass spans.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}
