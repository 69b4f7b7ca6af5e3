// Package service wires the live map: a bounded event queue feeding a
// single render loop that owns the map engine, a snapshot source and the
// credential gate. It implements the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	eventqueue "github.com/okian/livemap/internal/adapters/mq/queue"
	"github.com/okian/livemap/internal/adapters/mq/worker"
	"github.com/okian/livemap/internal/adapters/surface/scene"
	"github.com/okian/livemap/internal/domain/livemap"
	"github.com/okian/livemap/internal/domain/model"
	"github.com/okian/livemap/pkg/logger"
	"github.com/okian/livemap/pkg/metrics"
)

const (
	defaultQueueSize = 1024
	configPrompt     = "Enter a map access token to load the live map."
)

// MapSurface is a map surface whose initialization is gated on a credential.
type MapSurface interface {
	livemap.Surface
	Load(ctx context.Context, token string) error
}

// MapConfig reports whether the map credential has been supplied.
type MapConfig struct {
	Configured bool   `json:"configured"`
	Prompt     string `json:"prompt,omitempty"`
}

// SceneView is what dashboard clients render.
type SceneView struct {
	Scene    scene.Scene    `json:"scene"`
	State    livemap.State  `json:"state"`
	Entities []model.Entity `json:"entities"`
}

// Service implements the API dependencies for the live map.
type Service struct {
	mu sync.RWMutex

	// Core components
	surface MapSurface
	source  Source
	queue   *eventqueue.InMemoryQueue
	engine  *livemap.Engine
	loop    *worker.RenderLoop
	poller  *poller

	// Configuration
	queueSize       int
	refreshInterval time.Duration
	fitPadding      int
	focusZoom       float64
	focusDuration   time.Duration

	// State
	token      string
	configured bool
	started    bool
	stopped    bool
	entities   []model.Entity
	activated  atomic.Value // string: last entity selected on the map
	stopLoop   context.CancelFunc
	stopPoller context.CancelFunc

	logger logger.Logger
}

// New constructs a Service around surface.
func New(surface MapSurface, opts ...Option) *Service {
	s := &Service{
		surface:         surface,
		queueSize:       defaultQueueSize,
		refreshInterval: 30 * time.Second,
		fitPadding:      livemap.DefaultFitPadding,
		focusZoom:       livemap.DefaultFocusZoom,
		focusDuration:   livemap.DefaultFocusDuration,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.GetOrNoop().Named("service")
	}
	s.activated.Store("")
	return s
}

// Start builds the queue, engine and render loop, starts polling when a
// source is set and loads the map when a token was supplied.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	s.logger.Info(ctx, "starting live map service...")

	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	engine, err := livemap.New(s.surface,
		livemap.WithLogger(s.logger.Named("livemap")),
		livemap.WithSelectionSink(s.onMapSelection),
		livemap.WithFitPadding(s.fitPadding),
		livemap.WithFocusZoom(s.focusZoom),
		livemap.WithFocusDuration(s.focusDuration),
	)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("create map engine: %w", err)
	}
	s.engine = engine

	loopCtx, stopLoop := context.WithCancel(context.WithoutCancel(ctx))
	s.stopLoop = stopLoop
	s.loop = worker.NewRenderLoop(s.queue, engine, worker.WithLogger(s.logger.Named("worker")))
	go s.loop.Run(loopCtx)

	if s.source != nil {
		pollCtx, stopPoller := context.WithCancel(loopCtx)
		s.stopPoller = stopPoller
		s.poller = newPoller(s.source, s.refreshInterval, s.publish, s.logger.Named("poller"))
		go s.poller.run(pollCtx)
	}

	s.started = true
	token := s.token
	s.logger.Info(ctx, "live map service started",
		logger.Int("queueSize", s.queueSize),
		logger.String("source", s.sourceName()),
		logger.Bool("token", token != ""),
	)
	s.mu.Unlock()

	if token != "" {
		if err := s.Configure(ctx, token); err != nil {
			s.logger.Warn(ctx, "map did not load with the configured token", logger.Error(err))
		}
	}
	return nil
}

// Stop stops polling, tears the map down and closes the queue.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.stopped = true
	p, stopPoller := s.poller, s.stopPoller
	loop, q, stopLoop := s.loop, s.queue, s.stopLoop
	s.mu.Unlock()

	s.logger.Info(ctx, "stopping live map service...")

	// the poller must stop before the queue closes
	if p != nil {
		stopPoller()
		<-p.done
	}
	err := loop.Shutdown(ctx)
	_ = q.Close()
	stopLoop()

	s.logger.Info(ctx, "live map service stopped")
	if err != nil {
		return fmt.Errorf("stop render loop: %w", err)
	}
	return nil
}

// Configure supplies the map credential, loads the surface and tells the
// render loop the map is ready.
func (s *Service) Configure(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrMissingToken
	}
	if err := s.surface.Load(ctx, token); err != nil {
		metrics.RecordErrorByComponent("service", "map_load")
		return fmt.Errorf("%w: %w", ErrMapLoad, err)
	}
	s.mu.Lock()
	s.token = token
	s.configured = true
	s.mu.Unlock()

	s.logger.Info(ctx, "map credential accepted")
	return s.enqueue(ctx, model.Event{Kind: model.EventReady, At: time.Now()})
}

// MapConfig reports whether the credential gate is open.
func (s *Service) MapConfig() MapConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.configured {
		return MapConfig{Configured: true}
	}
	return MapConfig{Prompt: configPrompt}
}

// PushSnapshot replaces the snapshot. It is refused when a polled source
// owns the snapshot.
func (s *Service) PushSnapshot(ctx context.Context, entities []model.Entity) error {
	if s.source != nil {
		return ErrPushDisabled
	}
	return s.publish(ctx, entities)
}

func (s *Service) publish(ctx context.Context, entities []model.Entity) error {
	snapshot := model.Latest(entities)
	if err := s.enqueue(ctx, model.SnapshotEvent(snapshot)); err != nil {
		return err
	}
	s.mu.Lock()
	s.entities = snapshot
	s.mu.Unlock()
	metrics.UpdateSnapshotEntities(len(snapshot))
	return nil
}

// Select changes the selection; an empty id clears it.
func (s *Service) Select(ctx context.Context, id string) error {
	return s.enqueue(ctx, model.SelectEvent(strings.TrimSpace(id)))
}

// Activate reports a click on the marker identified by handle.
func (s *Service) Activate(ctx context.Context, handle string) error {
	return s.enqueue(ctx, model.ActivateEvent(handle))
}

// Refresh asks the source for a new snapshot now. coalesced is true when
// a refresh was already pending.
func (s *Service) Refresh(context.Context) (coalesced bool, err error) {
	s.mu.RLock()
	p := s.poller
	s.mu.RUnlock()
	if p == nil {
		return false, ErrNoSource
	}
	return !p.Trigger(), nil
}

// Scene returns the renderable scene. It fails until the map is configured.
func (s *Service) Scene(context.Context) (SceneView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.configured {
		return SceneView{}, ErrNotConfigured
	}
	sc, ok := s.surface.(interface{ Snapshot() scene.Scene })
	if !ok {
		return SceneView{}, ErrNoScene
	}
	view := SceneView{
		Scene:    sc.Snapshot(),
		Entities: append([]model.Entity{}, s.entities...),
	}
	if s.engine != nil {
		view.State = s.engine.State()
	}
	return view, nil
}

// State returns the engine state, or the zero state before Start.
func (s *Service) State() livemap.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.engine == nil {
		return livemap.State{}
	}
	return s.engine.State()
}

// LastActivated returns the last entity selected by clicking the map.
func (s *Service) LastActivated() string {
	id, _ := s.activated.Load().(string)
	return id
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":        s.started,
		"configured":     s.configured,
		"source":         s.sourceName(),
		"queueCapacity":  s.queueSize,
		"lastActivated":  s.LastActivated(),
		"snapshotLength": len(s.entities),
	}

	if s.queue != nil {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		metrics.UpdateQueueSize(queueLen)
	}
	if s.engine != nil {
		st := s.engine.State()
		stats["ready"] = st.Ready
		stats["closed"] = st.Closed
		stats["markers"] = st.Markers
		stats["selection"] = st.Selection
		stats["selectionResolved"] = st.Resolved
		metrics.UpdateMarkersActive(st.Markers)
	}
	if s.poller != nil {
		stats["refresh"] = s.poller.Status()
	}
	return stats
}

// onMapSelection runs on the render loop when a marker is activated.
func (s *Service) onMapSelection(ctx context.Context, id string) {
	s.activated.Store(id)
	s.logger.Info(ctx, "entity selected on map", logger.String("entity", id))
}

func (s *Service) enqueue(ctx context.Context, e model.Event) error {
	s.mu.RLock()
	q := s.queue
	s.mu.RUnlock()
	if q == nil {
		return ErrNotStarted
	}
	if q.IsClosed() {
		return ErrStopped
	}
	if !q.Enqueue(ctx, e) {
		s.logger.Warn(ctx, "event queue full; dropping event", logger.String("kind", e.Kind.String()))
		return ErrBackpressure
	}
	return nil
}

func (s *Service) sourceName() string {
	if s.source == nil {
		return "push"
	}
	return s.source.Name()
}
