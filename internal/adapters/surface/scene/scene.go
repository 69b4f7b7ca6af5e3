// Package scene is a server-side map surface. It keeps the marker set,
// styles, popups and the camera as plain data that a browser dashboard or
// any other client renders from Snapshot.
package scene

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/okian/livemap/internal/adapters/surface/projection"
	"github.com/okian/livemap/internal/domain/livemap"
	"github.com/okian/livemap/internal/domain/model"
	"github.com/okian/livemap/pkg/logger"
)

// Default viewport used to turn fit commands into a center and zoom.
const (
	defaultWidth  = 1280
	defaultHeight = 720
)

// Camera is the last viewport command applied to the scene.
type Camera struct {
	Kind       string           `json:"kind"` // "initial", "fit" or "ease"
	Center     model.Coordinate `json:"center"`
	Zoom       float64          `json:"zoom"`
	Bounds     *model.Bounds    `json:"bounds,omitempty"`
	Padding    int              `json:"padding,omitempty"`
	DurationMs int64            `json:"duration_ms"`
	IssuedAt   time.Time        `json:"issued_at"`
}

// Node is a placed marker and its current style.
type Node struct {
	livemap.Marker
	Style livemap.Style `json:"style"`
}

// Scene is the serializable state of the surface.
type Scene struct {
	Revision uint64 `json:"revision"`
	Loaded   bool   `json:"loaded"`
	Closed   bool   `json:"closed"`
	Camera   Camera `json:"camera"`
	Markers  []Node `json:"markers"`
}

// Surface implements livemap.Surface in memory. It is safe for concurrent
// use: the render loop writes while HTTP handlers read.
type Surface struct {
	mu       sync.RWMutex
	loaded   bool
	closed   bool
	nodes    map[string]*Node
	order    []string
	camera   Camera
	revision uint64

	width, height int
	log           logger.Logger
	now           func() time.Time
}

var _ livemap.Surface = (*Surface)(nil)

// New creates an unloaded scene surface.
func New(opts ...Option) *Surface {
	s := &Surface{
		nodes:  make(map[string]*Node),
		width:  defaultWidth,
		height: defaultHeight,
		log:    logger.GetOrNoop().Named("scene"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.camera = Camera{Kind: "initial", Center: model.Coordinate{Lng: -74.006, Lat: 40.7128}, Zoom: 10}
	return s
}

// Load initializes the map with an access token. The scene reports loaded
// only after a non-empty token has been supplied; loading twice is a no-op.
func (s *Surface) Load(ctx context.Context, token string) error {
	if token == "" {
		return ErrMissingToken
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.loaded {
		return nil
	}
	s.loaded = true
	s.bump()
	s.log.Info(ctx, "map loaded", logger.String("viewport", fmt.Sprintf("%dx%d", s.width, s.height)))
	return nil
}

// Loaded reports whether Load has succeeded.
func (s *Surface) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// AddMarker places m with the default style.
func (s *Surface) AddMarker(_ context.Context, m livemap.Marker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return err
	}
	if _, dup := s.nodes[m.Handle]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicate, m.Handle)
	}
	s.nodes[m.Handle] = &Node{Marker: m, Style: livemap.DefaultStyle}
	s.order = append(s.order, m.Handle)
	s.bump()
	return nil
}

// RemoveMarker detaches a marker and its popup.
func (s *Surface) RemoveMarker(_ context.Context, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return err
	}
	if _, ok := s.nodes[handle]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownHandle, handle)
	}
	delete(s.nodes, handle)
	for i, h := range s.order {
		if h == handle {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.bump()
	return nil
}

// StyleMarker applies an emphasis style.
func (s *Surface) StyleMarker(_ context.Context, handle string, st livemap.Style) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return err
	}
	n, ok := s.nodes[handle]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownHandle, handle)
	}
	if n.Style == st {
		return nil
	}
	n.Style = st
	s.bump()
	return nil
}

// FitBounds frames b in the scene viewport.
func (s *Surface) FitBounds(_ context.Context, b model.Bounds, padding int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return err
	}
	center, zoom := projection.Fit(b, s.width, s.height, padding)
	bounds := b
	s.camera = Camera{
		Kind:     "fit",
		Center:   center,
		Zoom:     zoom,
		Bounds:   &bounds,
		Padding:  padding,
		IssuedAt: s.now(),
	}
	s.bump()
	return nil
}

// EaseTo records an animated camera move. Clients animate from their
// current viewport; a newer command replaces this one.
func (s *Surface) EaseTo(_ context.Context, center model.Coordinate, zoom float64, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return err
	}
	s.camera = Camera{
		Kind:       "ease",
		Center:     center,
		Zoom:       projection.Clamp(zoom),
		DurationMs: d.Milliseconds(),
		IssuedAt:   s.now(),
	}
	s.bump()
	return nil
}

// Close disposes the scene. Any markers left are dropped.
func (s *Surface) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if n := len(s.nodes); n > 0 {
		s.log.Warn(ctx, "disposing map with markers still attached", logger.Int("markers", n))
	}
	s.closed = true
	s.nodes = make(map[string]*Node)
	s.order = nil
	s.bump()
	return nil
}

// Snapshot returns a copy of the scene, markers in placement order with the
// emphasized marker last so clients can paint in order.
func (s *Surface) Snapshot() Scene {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := Scene{
		Revision: s.revision,
		Loaded:   s.loaded,
		Closed:   s.closed,
		Camera:   s.camera,
		Markers:  make([]Node, 0, len(s.order)),
	}
	if s.camera.Bounds != nil {
		b := *s.camera.Bounds
		out.Camera.Bounds = &b
	}
	for _, h := range s.order {
		out.Markers = append(out.Markers, *s.nodes[h])
	}
	sortByZ(out.Markers)
	return out
}

// Revision returns the change counter, bumped on every mutation.
func (s *Surface) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

func (s *Surface) usable() error {
	if s.closed {
		return ErrClosed
	}
	if !s.loaded {
		return ErrNotLoaded
	}
	return nil
}

func (s *Surface) bump() { s.revision++ }

// sortByZ orders nodes by z-index, keeping insertion order among equals.
func sortByZ(nodes []Node) {
	slices.SortStableFunc(nodes, func(a, b Node) int {
		return cmp.Compare(a.Style.ZIndex, b.Style.ZIndex)
	})
}
