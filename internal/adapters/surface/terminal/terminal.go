// Package terminal draws the live map into a terminal with tcell. Markers
// are projected with Web Mercator onto character cells; the selected
// marker's popup is drawn next to it. Mouse clicks and Tab report marker
// activations back to the caller.
package terminal

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/okian/livemap/internal/adapters/surface/projection"
	"github.com/okian/livemap/internal/domain/livemap"
	"github.com/okian/livemap/internal/domain/model"
	"github.com/okian/livemap/pkg/logger"
)

const (
	defaultCellWidth  = 8
	defaultCellHeight = 16
	frameInterval     = 33 * time.Millisecond
	statusRows        = 1
)

type node struct {
	livemap.Marker
	style livemap.Style
}

// camera is an animated move between two viewports.
type camera struct {
	from, to projection.Viewport
	start    time.Time
	duration time.Duration
}

func (c camera) at(now time.Time) projection.Viewport {
	if c.duration <= 0 || !now.Before(c.start.Add(c.duration)) {
		return c.to
	}
	t := float64(now.Sub(c.start)) / float64(c.duration)
	// ease-out cubic
	t = 1 - (1-t)*(1-t)*(1-t)
	return projection.Lerp(c.from, c.to, t)
}

// Surface implements livemap.Surface on a tcell screen.
type Surface struct {
	mu     sync.Mutex
	screen tcell.Screen
	loaded bool
	closed bool

	nodes map[string]*node
	order []string
	cam   camera

	cellW, cellH int
	onActivate   func(handle string)
	onQuit       func()
	log          logger.Logger
	now          func() time.Time
}

var _ livemap.Surface = (*Surface)(nil)

// New creates a surface over screen. The screen is initialized by Load.
func New(screen tcell.Screen, opts ...Option) *Surface {
	s := &Surface{
		screen:     screen,
		nodes:      make(map[string]*node),
		cellW:      defaultCellWidth,
		cellH:      defaultCellHeight,
		onActivate: func(string) {},
		onQuit:     func() {},
		log:        logger.GetOrNoop().Named("terminal"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cam.to = projection.Viewport{Center: model.Coordinate{Lng: -74.006, Lat: 40.7128}, Zoom: 10}
	return s
}

// Load initializes the screen. A non-empty map token is required, as for
// the hosted map styles.
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
	if err := s.screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	s.screen.EnableMouse()
	s.screen.HideCursor()
	s.loaded = true
	s.draw()
	w, h := s.screen.Size()
	s.log.Info(ctx, "terminal map loaded", logger.Int("cols", w), logger.Int("rows", h))
	return nil
}

// AddMarker places m on the map.
func (s *Surface) AddMarker(_ context.Context, m livemap.Marker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return err
	}
	if _, ok := s.nodes[m.Handle]; !ok {
		s.order = append(s.order, m.Handle)
	}
	s.nodes[m.Handle] = &node{Marker: m, style: livemap.DefaultStyle}
	s.draw()
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
	s.draw()
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
	n.style = st
	s.draw()
	return nil
}

// FitBounds frames b immediately.
func (s *Surface) FitBounds(_ context.Context, b model.Bounds, padding int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return err
	}
	w, h := s.pixels()
	center, zoom := projection.Fit(b, w, h, padding)
	s.cam = camera{to: projection.Viewport{Center: center, Zoom: zoom, Width: w, Height: h}}
	s.draw()
	return nil
}

// EaseTo animates from the current viewport to center at zoom. A running
// animation is superseded from wherever it currently is.
func (s *Surface) EaseTo(_ context.Context, center model.Coordinate, zoom float64, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return err
	}
	now := s.now()
	w, h := s.pixels()
	s.cam = camera{
		from:     s.cam.at(now),
		to:       projection.Viewport{Center: center, Zoom: projection.Clamp(zoom), Width: w, Height: h},
		start:    now,
		duration: d,
	}
	s.draw()
	return nil
}

// Close restores the terminal. It is idempotent.
func (s *Surface) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.nodes = make(map[string]*node)
	s.order = nil
	if s.loaded {
		s.screen.Fini()
	}
	return nil
}

// Locate returns the cell where the marker is drawn.
func (s *Surface) Locate(handle string) (x, y int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, found := s.nodes[handle]
	if !found {
		return 0, 0, false
	}
	x, y = s.cellOf(s.viewport(), n.Position)
	return x, y, true
}

// Run processes terminal input until ctx is done or the screen is closed.
func (s *Surface) Run(ctx context.Context) error {
	s.mu.Lock()
	loaded := s.loaded
	s.mu.Unlock()
	if !loaded {
		return ErrNotLoaded
	}

	events := make(chan tcell.Event)
	go func() {
		defer close(events)
		for {
			ev := s.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			s.handle(ev)
		case <-ticker.C:
			s.mu.Lock()
			if s.animating() {
				s.draw()
			}
			s.mu.Unlock()
		}
	}
}

func (s *Surface) handle(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		s.mu.Lock()
		if s.usable() == nil {
			s.screen.Sync()
			s.draw()
		}
		s.mu.Unlock()
	case *tcell.EventKey:
		switch {
		case ev.Key() == tcell.KeyEscape, ev.Key() == tcell.KeyCtrlC, ev.Key() == tcell.KeyRune && ev.Rune() == 'q':
			s.onQuit()
		case ev.Key() == tcell.KeyTab:
			if h, ok := s.cycle(1); ok {
				s.onActivate(h)
			}
		case ev.Key() == tcell.KeyBacktab:
			if h, ok := s.cycle(-1); ok {
				s.onActivate(h)
			}
		}
	case *tcell.EventMouse:
		if ev.Buttons()&tcell.Button1 == 0 {
			return
		}
		x, y := ev.Position()
		if h, ok := s.hit(x, y); ok {
			s.onActivate(h)
		}
	}
}

// cycle returns the marker after (or before) the emphasized one.
func (s *Surface) cycle(step int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.order)
	if n == 0 {
		return "", false
	}
	cur := -1
	for i, h := range s.order {
		if s.nodes[h].style.PopupOpen {
			cur = i
			break
		}
	}
	if cur < 0 && step < 0 {
		cur = 0
	}
	next := ((cur+step)%n + n) % n
	return s.order[next], true
}

// hit finds the topmost marker drawn at or next to the cell.
func (s *Surface) hit(x, y int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vp := s.viewport()
	best, bestZ := "", -1
	for _, h := range s.order {
		n := s.nodes[h]
		cx, cy := s.cellOf(vp, n.Position)
		if cy != y || x < cx-1 || x > cx+1 {
			continue
		}
		if n.style.ZIndex > bestZ {
			best, bestZ = h, n.style.ZIndex
		}
	}
	return best, bestZ >= 0
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

func (s *Surface) animating() bool {
	return s.cam.duration > 0 && s.now().Before(s.cam.start.Add(s.cam.duration))
}

func (s *Surface) pixels() (int, int) {
	cols, rows := s.screen.Size()
	rows -= statusRows
	if rows < 1 {
		rows = 1
	}
	return cols * s.cellW, rows * s.cellH
}

func (s *Surface) viewport() projection.Viewport {
	vp := s.cam.at(s.now())
	vp.Width, vp.Height = s.pixels()
	return vp
}

func (s *Surface) cellOf(vp projection.Viewport, c model.Coordinate) (int, int) {
	p := vp.ToScreen(c)
	return int(math.Floor(p.X / float64(s.cellW))), int(math.Floor(p.Y / float64(s.cellH)))
}
