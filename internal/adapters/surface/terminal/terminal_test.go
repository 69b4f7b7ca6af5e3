package terminal_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/okian/livemap/internal/adapters/surface/projection"
	"github.com/okian/livemap/internal/adapters/surface/terminal"
	"github.com/okian/livemap/internal/domain/livemap"
	"github.com/okian/livemap/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var (
	mary  = model.Coordinate{Lng: -74.006, Lat: 40.7128}
	linda = model.Coordinate{Lng: -73.9857, Lat: 40.7484}
)

func newLoaded(opts ...terminal.Option) (*terminal.Surface, tcell.SimulationScreen) {
	screen := tcell.NewSimulationScreen("UTF-8")
	s := terminal.New(screen, opts...)
	So(s.Load(context.Background(), "pk.test"), ShouldBeNil)
	screen.SetSize(80, 24)
	return s, screen
}

func place(s *terminal.Surface) {
	ctx := context.Background()
	So(s.AddMarker(ctx, livemap.Marker{Handle: "h1", EntityID: "1", Glyph: "M", Color: "#22c55e", Position: mary,
		Popup: livemap.Popup{Title: "Mary Johnson", Status: "nominal", LastContact: "2 minutes ago"}}), ShouldBeNil)
	So(s.AddMarker(ctx, livemap.Marker{Handle: "h2", EntityID: "2", Glyph: "L", Color: "#ef4444", Position: linda,
		Popup: livemap.Popup{Title: "Linda Davis", Status: "critical", LastContact: "1 hour ago"}}), ShouldBeNil)
	So(s.FitBounds(ctx, model.NewBounds(mary).Extend(linda), 50), ShouldBeNil)
}

func runeAt(screen tcell.SimulationScreen, x, y int) rune {
	r, _, _, _ := screen.GetContent(x, y)
	return r
}

func TestTerminalDrawing(t *testing.T) {
	Convey("Given a terminal surface", t, func() {
		ctx := context.Background()

		Convey("It requires a token to load", func() {
			s := terminal.New(tcell.NewSimulationScreen("UTF-8"))
			So(errors.Is(s.Load(ctx, ""), terminal.ErrMissingToken), ShouldBeTrue)
			So(errors.Is(s.AddMarker(ctx, livemap.Marker{Handle: "h"}), terminal.ErrNotLoaded), ShouldBeTrue)
			So(errors.Is(s.Run(ctx), terminal.ErrNotLoaded), ShouldBeTrue)
		})

		Convey("When two markers are placed and fitted", func() {
			s, screen := newLoaded()
			defer s.Close(ctx)
			place(s)

			Convey("Then both glyphs are on screen in different cells", func() {
				x1, y1, ok1 := s.Locate("h1")
				x2, y2, ok2 := s.Locate("h2")
				So(ok1 && ok2, ShouldBeTrue)
				So([2]int{x1, y1}, ShouldNotResemble, [2]int{x2, y2})
				So(runeAt(screen, x1, y1), ShouldEqual, 'M')
				So(runeAt(screen, x2, y2), ShouldEqual, 'L')
				// Mary is south-west of Linda
				So(x1, ShouldBeLessThan, x2)
				So(y1, ShouldBeGreaterThan, y2)
			})

			Convey("Then selecting a marker draws brackets around it", func() {
				So(s.StyleMarker(ctx, "h2", livemap.SelectedStyle), ShouldBeNil)
				x, y, _ := s.Locate("h2")
				So(runeAt(screen, x-1, y), ShouldEqual, '[')
				So(runeAt(screen, x+1, y), ShouldEqual, ']')
			})

			Convey("Then removing a marker clears its cell", func() {
				x, y, _ := s.Locate("h1")
				So(s.RemoveMarker(ctx, "h1"), ShouldBeNil)
				So(runeAt(screen, x, y), ShouldNotEqual, 'M')
				_, _, ok := s.Locate("h1")
				So(ok, ShouldBeFalse)
				So(errors.Is(s.RemoveMarker(ctx, "h1"), terminal.ErrUnknownHandle), ShouldBeTrue)
			})

			Convey("Then an instant ease centers the marker", func() {
				So(s.EaseTo(ctx, linda, 15, 0), ShouldBeNil)
				x, y, _ := s.Locate("h2")
				So(x, ShouldEqual, 40)
				So(y, ShouldEqual, 11)
			})

			Convey("Then a marker just past the left edge is off screen", func() {
				So(s.EaseTo(ctx, linda, 15, 0), ShouldBeNil)
				// 3px left of the first column: 80 cols * 8px / 2 from the center
				p := projection.Project(linda, 15)
				p.X -= 80*8/2 + 3
				west := projection.Unproject(p, 15)
				So(s.AddMarker(ctx, livemap.Marker{Handle: "h3", EntityID: "3", Glyph: "W", Color: "#22c55e", Position: west}), ShouldBeNil)

				x, y, ok := s.Locate("h3")
				So(ok, ShouldBeTrue)
				So(x, ShouldEqual, -1)
				So(y, ShouldEqual, 11)
				So(runeAt(screen, 0, y), ShouldNotEqual, 'W')
			})
		})

		Convey("When closed", func() {
			s, _ := newLoaded()
			So(s.Close(ctx), ShouldBeNil)
			So(s.Close(ctx), ShouldBeNil)
			So(errors.Is(s.FitBounds(ctx, model.NewBounds(mary), 0), terminal.ErrClosed), ShouldBeTrue)
		})
	})
}

func TestTerminalAnimation(t *testing.T) {
	Convey("Given a surface with a controllable clock", t, func() {
		ctx := context.Background()
		now := time.Unix(1_700_000_000, 0)
		s, _ := newLoaded(terminal.WithClock(func() time.Time { return now }))
		defer s.Close(ctx)
		place(s)
		startX, _, _ := s.Locate("h2")

		So(s.EaseTo(ctx, linda, 15, time.Second), ShouldBeNil)

		Convey("The camera is still near the start at t=0", func() {
			x, _, _ := s.Locate("h2")
			So(x, ShouldEqual, startX)
		})

		Convey("The camera arrives once the duration elapsed", func() {
			now = now.Add(time.Second)
			x, y, _ := s.Locate("h2")
			So(x, ShouldEqual, 40)
			So(y, ShouldEqual, 11)
		})
	})
}

func TestTerminalInput(t *testing.T) {
	Convey("Given a running surface", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		activated := make(chan string, 4)
		quit := make(chan struct{}, 1)
		s, screen := newLoaded(
			terminal.WithActivationHandler(func(h string) { activated <- h }),
			terminal.WithQuitHandler(func() { quit <- struct{}{} }),
		)
		place(s)

		done := make(chan error, 1)
		go func() { done <- s.Run(ctx) }()

		receive := func() string {
			select {
			case h := <-activated:
				return h
			case <-time.After(time.Second):
				return ""
			}
		}

		Convey("A click on a marker activates it", func() {
			x, y, _ := s.Locate("h2")
			screen.InjectMouse(x, y, tcell.Button1, tcell.ModNone)
			So(receive(), ShouldEqual, "h2")
		})

		Convey("A click on empty map does nothing", func() {
			screen.InjectMouse(0, 0, tcell.Button1, tcell.ModNone)
			screen.InjectKey(tcell.KeyTab, 0, tcell.ModNone)
			So(receive(), ShouldEqual, "h1")
		})

		Convey("Tab moves to the marker after the selected one", func() {
			So(s.StyleMarker(context.Background(), "h1", livemap.SelectedStyle), ShouldBeNil)
			screen.InjectKey(tcell.KeyTab, 0, tcell.ModNone)
			So(receive(), ShouldEqual, "h2")
		})

		Convey("q asks to quit", func() {
			screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)
			select {
			case <-quit:
			case <-time.After(time.Second):
				So("no quit", ShouldBeEmpty)
			}
		})

		Convey("Closing the surface ends Run", func() {
			So(s.Close(context.Background()), ShouldBeNil)
			select {
			case err := <-done:
				So(err, ShouldBeNil)
			case <-time.After(time.Second):
				So("run did not return", ShouldBeEmpty)
			}
		})

		Reset(func() {
			cancel()
			_ = s.Close(context.Background())
		})
	})
}
