package livemap

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/okian/livemap/internal/domain/model"
	"github.com/okian/livemap/pkg/logger"
	"github.com/okian/livemap/pkg/metrics"
	"github.com/okian/livemap/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// State is a read-only summary of the engine, safe to read from any goroutine.
type State struct {
	Ready     bool   `json:"ready"`
	Closed    bool   `json:"closed"`
	Entities  int    `json:"entities"`
	Markers   int    `json:"markers"`
	Selection string `json:"selection,omitempty"`
	// Resolved is true when the selection names a placed marker.
	Resolved bool `json:"selection_resolved"`
}

// Engine synchronizes a Surface with entity snapshots and the selection.
type Engine struct {
	surface   Surface
	sink      SelectionSink
	camera    *camera
	registry  *registry
	selection Selection
	newHandle func() string
	log       logger.Logger
	tracer    trace.Tracer

	entities []model.Entity
	ready    bool
	closed   bool

	state atomic.Pointer[State]
}

// New creates an Engine over surface. The engine performs no surface
// operation until Ready is called.
func New(surface Surface, opts ...Option) (*Engine, error) {
	if surface == nil {
		return nil, ErrNilSurface
	}
	e := &Engine{
		surface:   surface,
		sink:      func(context.Context, string) {},
		newHandle: uuid.NewString,
		log:       logger.GetOrNoop().Named("livemap"),
		tracer:    tracing.Tracer(),
		camera: &camera{
			surface:  surface,
			padding:  DefaultFitPadding,
			zoom:     DefaultFocusZoom,
			duration: DefaultFocusDuration,
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.camera.log = e.log
	e.registry = newRegistry(surface, e.newHandle, e.log)
	e.publish()
	return e, nil
}

// Ready marks the map as initialized and renders whatever snapshot and
// selection arrived before it. Calling it again is a no-op.
func (e *Engine) Ready(ctx context.Context) error {
	if e.closed {
		return ErrClosed
	}
	if e.ready {
		return nil
	}
	e.ready = true
	e.log.Info(ctx, "map ready; rendering deferred state",
		logger.Int("entities", len(e.entities)),
		logger.String("selection", e.selection.Get()),
	)
	e.renderSnapshot(ctx)
	return nil
}

// SetEntities replaces the current snapshot. The slice is copied and
// repeated identities collapse to their later entry.
func (e *Engine) SetEntities(ctx context.Context, entities []model.Entity) error {
	if e.closed {
		return ErrClosed
	}
	e.entities = model.Latest(entities)
	if !e.ready {
		metrics.RecordDeferredOperation()
		e.publish()
		return nil
	}
	e.renderSnapshot(ctx)
	return nil
}

// Select sets the selection. An empty id clears it. Identities that are
// not in the snapshot are accepted and simply do not resolve.
func (e *Engine) Select(ctx context.Context, id string) error {
	if e.closed {
		return ErrClosed
	}
	changed := e.selection.Set(id)
	if changed {
		metrics.RecordSelectionChange()
	}
	if !e.ready {
		metrics.RecordDeferredOperation()
		e.publish()
		return nil
	}
	e.renderSelection(ctx, changed)
	return nil
}

// Activate handles a click on the marker identified by handle: the entity
// becomes the selection and the selection sink is notified.
func (e *Engine) Activate(ctx context.Context, handle string) error {
	if e.closed {
		return ErrClosed
	}
	p, ok := e.registry.byHandleLookup(handle)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMarker, handle)
	}
	p.activate(ctx)
	return nil
}

// onMarkerActivated is bound to every marker by the registry.
func (e *Engine) onMarkerActivated(ctx context.Context, id string) {
	if err := e.Select(ctx, id); err != nil {
		e.log.Warn(ctx, "select from marker failed", logger.String("entity", id), logger.Error(err))
		return
	}
	e.sink(ctx, id)
}

// Close removes every marker and disposes the surface. It is idempotent.
func (e *Engine) Close(ctx context.Context) error {
	if e.closed {
		return nil
	}
	e.closed = true
	e.registry.clear(ctx)
	metrics.UpdateMarkersActive(0)
	err := e.surface.Close(ctx)
	e.publish()
	if err != nil {
		return fmt.Errorf("close surface: %w", err)
	}
	e.log.Info(ctx, "map engine closed")
	return nil
}

// State returns the latest published state.
func (e *Engine) State() State {
	if s := e.state.Load(); s != nil {
		return *s
	}
	return State{}
}

// Entities returns a copy of the current snapshot. Like every other method
// except State, it must be called from the goroutine that owns the engine.
func (e *Engine) Entities() []model.Entity {
	return append([]model.Entity(nil), e.entities...)
}

// renderSnapshot rebuilds markers, fits the camera, then centers on the
// selection so a concurrent selection wins over the overview.
func (e *Engine) renderSnapshot(ctx context.Context) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "livemap.render_snapshot",
		trace.WithAttributes(attribute.Int("entities", len(e.entities))))
	defer span.End()

	e.registry.rebuild(ctx, e.entities, e.onMarkerActivated)
	fitted := e.camera.fitAll(ctx, e.entities)
	centered := e.camera.center(ctx, e.entities, e.selection.Get())
	e.emphasize(ctx)

	span.SetAttributes(
		attribute.Int("markers", e.registry.len()),
		attribute.Bool("fitted", fitted),
		attribute.Bool("centered", centered),
	)
	e.publish()
	metrics.RecordRenderLatency("snapshot", float64(time.Since(start).Microseconds())/1000)
	e.log.Debug(ctx, "snapshot rendered",
		logger.Int("entities", len(e.entities)),
		logger.Int("markers", e.registry.len()),
		logger.Bool("fitted", fitted),
		logger.Bool("centered", centered),
	)
}

// renderSelection centers on a changed selection and restyles all markers.
func (e *Engine) renderSelection(ctx context.Context, changed bool) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "livemap.render_selection",
		trace.WithAttributes(attribute.String("selection", e.selection.Get())))
	defer span.End()

	centered := false
	if changed {
		centered = e.camera.center(ctx, e.entities, e.selection.Get())
	}
	e.emphasize(ctx)

	span.SetAttributes(attribute.Bool("centered", centered))
	e.publish()
	metrics.RecordRenderLatency("selection", float64(time.Since(start).Microseconds())/1000)
}

func (e *Engine) publish() {
	sel := e.selection.Get()
	resolved := false
	if sel != "" && e.registry != nil {
		_, resolved = e.registry.byEntity[sel]
	}
	markers := 0
	if e.registry != nil {
		markers = e.registry.len()
	}
	e.state.Store(&State{
		Ready:     e.ready,
		Closed:    e.closed,
		Entities:  len(e.entities),
		Markers:   markers,
		Selection: sel,
		Resolved:  resolved,
	})
}
