// Package worker runs the render loop: the one goroutine that owns the map
// engine and applies queued events to it in order.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/livemap/internal/domain/livemap"
	"github.com/okian/livemap/internal/domain/model"
	"github.com/okian/livemap/pkg/logger"
	"github.com/okian/livemap/pkg/metrics"
	"github.com/okian/livemap/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const teardownTimeout = 5 * time.Second

// Event abstracts what the worker reads off the queue.
type Event = model.Event

// Engine is the map state the render loop drives. *livemap.Engine
// satisfies it.
type Engine interface {
	Ready(ctx context.Context) error
	SetEntities(ctx context.Context, entities []model.Entity) error
	Select(ctx context.Context, id string) error
	Activate(ctx context.Context, handle string) error
	Close(ctx context.Context) error
}

// Queue defines how the worker receives events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker processes events until stopped.
type Worker interface {
	// Run starts the loop until ctx is canceled, the queue is closed, a
	// teardown event arrives or Shutdown is called. The engine is always
	// torn down before Run returns.
	Run(ctx context.Context)

	// Shutdown stops the loop and waits for the teardown to finish.
	Shutdown(ctx context.Context) error
}

// RenderLoop implements Worker over a single engine.
type RenderLoop struct {
	queue  Queue
	engine Engine
	name   string

	shutdown chan struct{}
	stopped  chan struct{}
	done     chan struct{}

	logger logger.Logger
	tracer trace.Tracer
}

// NewRenderLoop creates a render loop worker.
func NewRenderLoop(queue Queue, engine Engine, opts ...Option) *RenderLoop {
	w := &RenderLoop{
		queue:    queue,
		engine:   engine,
		name:     "render-loop",
		shutdown: make(chan struct{}),
		stopped:  make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.GetOrNoop().Named("worker"),
		tracer:   tracing.Tracer(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *RenderLoop) Run(ctx context.Context) {
	defer close(w.done)
	defer w.teardown(ctx)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if event.Kind == model.EventTeardown {
				w.logger.Info(ctx, "teardown requested")
				return
			}
			if err := w.processEvent(ctx, event); err != nil {
				w.report(ctx, event, err)
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *RenderLoop) Shutdown(ctx context.Context) error {
	select {
	case <-w.stopped:
	default:
		close(w.stopped)
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed once Run has returned.
func (w *RenderLoop) Done() <-chan struct{} { return w.done }

func (w *RenderLoop) processEvent(ctx context.Context, event Event) error { //nolint:gocritic // hugeParam: Event must be passed by value for channel semantics
	ctx, span := w.tracer.Start(ctx, "render_loop."+event.Kind.String(),
		trace.WithAttributes(attribute.String("event.kind", event.Kind.String())))
	defer span.End()

	var err error
	switch event.Kind {
	case model.EventReady:
		err = w.engine.Ready(ctx)
	case model.EventSnapshot:
		span.SetAttributes(attribute.Int("entities", len(event.Entities)))
		err = w.engine.SetEntities(ctx, event.Entities)
	case model.EventSelect:
		span.SetAttributes(attribute.String("entity_id", event.EntityID))
		err = w.engine.Select(ctx, event.EntityID)
	case model.EventActivate:
		span.SetAttributes(attribute.String("handle", event.Handle))
		err = w.engine.Activate(ctx, event.Handle)
	default:
		err = fmt.Errorf("unsupported event kind %d", event.Kind)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (w *RenderLoop) report(ctx context.Context, event Event, err error) { //nolint:gocritic // hugeParam
	// stale marker handles are expected after a rebuild
	if errors.Is(err, livemap.ErrUnknownMarker) {
		w.logger.Debug(ctx, "ignoring activation of a replaced marker",
			logger.String("handle", event.Handle))
		return
	}
	metrics.RecordErrorByComponent("worker", event.Kind.String())
	w.logger.Error(ctx, "error processing event",
		logger.String("kind", event.Kind.String()),
		logger.Error(err),
	)
}

func (w *RenderLoop) teardown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
	defer cancel()
	if err := w.engine.Close(ctx); err != nil {
		metrics.RecordErrorByComponent("worker", "teardown")
		w.logger.Error(ctx, "engine teardown failed", logger.Error(err))
		return
	}
	w.logger.Info(ctx, "render loop stopped")
}
