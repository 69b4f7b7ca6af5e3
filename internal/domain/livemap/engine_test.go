package livemap_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/okian/livemap/internal/domain/livemap"
	"github.com/okian/livemap/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type cameraCmd struct {
	kind     string // fit | ease
	bounds   model.Bounds
	padding  int
	center   model.Coordinate
	zoom     float64
	duration time.Duration
}

// recordingSurface keeps the live marker set and every camera command.
type recordingSurface struct {
	markers map[string]livemap.Marker
	styles  map[string]livemap.Style
	camera  []cameraCmd
	added   int
	removed int
	closed  int
	failAdd map[string]bool
}

func newRecordingSurface() *recordingSurface {
	return &recordingSurface{
		markers: map[string]livemap.Marker{},
		styles:  map[string]livemap.Style{},
		failAdd: map[string]bool{},
	}
}

func (s *recordingSurface) AddMarker(_ context.Context, m livemap.Marker) error {
	if s.failAdd[m.EntityID] {
		return errors.New("surface rejected marker")
	}
	if _, dup := s.markers[m.Handle]; dup {
		return fmt.Errorf("handle reused: %s", m.Handle)
	}
	s.markers[m.Handle] = m
	s.styles[m.Handle] = livemap.DefaultStyle
	s.added++
	return nil
}

func (s *recordingSurface) RemoveMarker(_ context.Context, handle string) error {
	if _, ok := s.markers[handle]; !ok {
		return fmt.Errorf("no marker %s", handle)
	}
	delete(s.markers, handle)
	delete(s.styles, handle)
	s.removed++
	return nil
}

func (s *recordingSurface) StyleMarker(_ context.Context, handle string, st livemap.Style) error {
	if _, ok := s.markers[handle]; !ok {
		return fmt.Errorf("no marker %s", handle)
	}
	s.styles[handle] = st
	return nil
}

func (s *recordingSurface) FitBounds(_ context.Context, b model.Bounds, padding int) error {
	s.camera = append(s.camera, cameraCmd{kind: "fit", bounds: b, padding: padding})
	return nil
}

func (s *recordingSurface) EaseTo(_ context.Context, c model.Coordinate, zoom float64, d time.Duration) error {
	s.camera = append(s.camera, cameraCmd{kind: "ease", center: c, zoom: zoom, duration: d})
	return nil
}

func (s *recordingSurface) Close(context.Context) error {
	s.closed++
	return nil
}

func (s *recordingSurface) entityIDs() []string {
	ids := make([]string, 0, len(s.markers))
	for _, m := range s.markers {
		ids = append(ids, m.EntityID)
	}
	sort.Strings(ids)
	return ids
}

func (s *recordingSurface) byEntity(id string) (livemap.Marker, livemap.Style, bool) {
	for h, m := range s.markers {
		if m.EntityID == id {
			return m, s.styles[h], true
		}
	}
	return livemap.Marker{}, livemap.Style{}, false
}

func (s *recordingSurface) selectedCount() int {
	n := 0
	for _, st := range s.styles {
		if st == livemap.SelectedStyle {
			n++
		}
	}
	return n
}

func (s *recordingSurface) resetCamera() { s.camera = nil }

func at(lng, lat float64) *model.Coordinate { return &model.Coordinate{Lng: lng, Lat: lat} }

func sequentialHandles() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("h%d", n)
	}
}

func scenario() []model.Entity {
	return []model.Entity{
		{ID: "1", Label: "Mary Johnson", Status: model.StatusNominal, Coordinate: at(-74.006, 40.7128), LastContact: "2 minutes ago"},
		{ID: "2", Label: "Linda Davis", Status: model.StatusCritical, Coordinate: at(-73.9857, 40.7484), LastContact: "1 hour ago"},
	}
}

func newReadyEngine(ctx context.Context, s *recordingSurface, opts ...livemap.Option) *livemap.Engine {
	opts = append([]livemap.Option{livemap.WithHandleGenerator(sequentialHandles())}, opts...)
	e, err := livemap.New(s, opts...)
	So(err, ShouldBeNil)
	So(e.Ready(ctx), ShouldBeNil)
	return e
}

func TestEngineScenarios(t *testing.T) {
	Convey("Given a ready engine and the two-entity snapshot", t, func() {
		ctx := context.Background()
		s := newRecordingSurface()
		e := newReadyEngine(ctx, s)
		So(e.SetEntities(ctx, scenario()), ShouldBeNil)

		Convey("When nothing is selected", func() {
			Convey("Then there is one green and one red marker", func() {
				So(s.entityIDs(), ShouldResemble, []string{"1", "2"})
				m1, st1, _ := s.byEntity("1")
				m2, st2, _ := s.byEntity("2")
				So(m1.Color, ShouldEqual, "#22c55e")
				So(m2.Color, ShouldEqual, "#ef4444")
				So(m1.Popup.Title, ShouldEqual, "Mary Johnson")
				So(m2.Popup.LastContact, ShouldEqual, "1 hour ago")
				So(st1.PopupOpen, ShouldBeFalse)
				So(st2.PopupOpen, ShouldBeFalse)
			})

			Convey("And the viewport was fitted around both with padding", func() {
				So(len(s.camera), ShouldEqual, 1)
				cmd := s.camera[0]
				So(cmd.kind, ShouldEqual, "fit")
				So(cmd.padding, ShouldEqual, livemap.DefaultFitPadding)
				for _, ent := range scenario() {
					So(cmd.bounds.Contains(*ent.Coordinate), ShouldBeTrue)
				}
			})
		})

		Convey("When entity 2 is selected", func() {
			s.resetCamera()
			So(e.Select(ctx, "2"), ShouldBeNil)

			Convey("Then marker 2 is emphasized with its popup open", func() {
				_, st2, _ := s.byEntity("2")
				_, st1, _ := s.byEntity("1")
				So(st2, ShouldResemble, livemap.SelectedStyle)
				So(st1, ShouldResemble, livemap.DefaultStyle)
				So(s.selectedCount(), ShouldEqual, 1)
			})

			Convey("And the camera eases to entity 2 at close zoom", func() {
				So(len(s.camera), ShouldEqual, 1)
				So(s.camera[0].kind, ShouldEqual, "ease")
				So(s.camera[0].center, ShouldResemble, model.Coordinate{Lng: -73.9857, Lat: 40.7484})
				So(s.camera[0].zoom, ShouldEqual, livemap.DefaultFocusZoom)
				So(s.camera[0].duration, ShouldEqual, time.Second)
			})

			Convey("And the published state reports a resolved selection", func() {
				st := e.State()
				So(st.Selection, ShouldEqual, "2")
				So(st.Resolved, ShouldBeTrue)
				So(st.Markers, ShouldEqual, 2)
			})
		})

		Convey("When the snapshot becomes empty", func() {
			s.resetCamera()
			So(e.SetEntities(ctx, nil), ShouldBeNil)

			Convey("Then no marker remains and no camera command is issued", func() {
				So(len(s.markers), ShouldEqual, 0)
				So(len(s.camera), ShouldEqual, 0)
				So(e.State().Markers, ShouldEqual, 0)
			})
		})
	})
}

func TestEngineSelection(t *testing.T) {
	Convey("Given a ready engine with a snapshot", t, func() {
		ctx := context.Background()
		s := newRecordingSurface()
		e := newReadyEngine(ctx, s)
		So(e.SetEntities(ctx, scenario()), ShouldBeNil)
		s.resetCamera()

		Convey("When a stale identity is selected", func() {
			So(e.Select(ctx, "ghost"), ShouldBeNil)

			Convey("Then no marker is emphasized and the camera does not move", func() {
				So(s.selectedCount(), ShouldEqual, 0)
				So(len(s.camera), ShouldEqual, 0)
				So(e.State().Resolved, ShouldBeFalse)
			})
		})

		Convey("When the same identity is selected twice", func() {
			So(e.Select(ctx, "1"), ShouldBeNil)
			So(e.Select(ctx, "1"), ShouldBeNil)

			Convey("Then the camera is centered only once", func() {
				So(len(s.camera), ShouldEqual, 1)
				So(s.selectedCount(), ShouldEqual, 1)
			})
		})

		Convey("When the selection is cleared", func() {
			So(e.Select(ctx, "1"), ShouldBeNil)
			So(e.Select(ctx, ""), ShouldBeNil)

			Convey("Then every marker is back to the default style", func() {
				So(s.selectedCount(), ShouldEqual, 0)
				for _, st := range s.styles {
					So(st, ShouldResemble, livemap.DefaultStyle)
				}
			})
		})

		Convey("When a refresh arrives while something is selected", func() {
			So(e.Select(ctx, "1"), ShouldBeNil)
			s.resetCamera()
			So(e.SetEntities(ctx, scenario()), ShouldBeNil)

			Convey("Then the camera ends centered on the selection, after the fit", func() {
				So(len(s.camera), ShouldEqual, 2)
				So(s.camera[0].kind, ShouldEqual, "fit")
				So(s.camera[1].kind, ShouldEqual, "ease")
				So(s.camera[1].center, ShouldResemble, *scenario()[0].Coordinate)
			})

			Convey("And the new marker for the selection carries the emphasis", func() {
				_, st, ok := s.byEntity("1")
				So(ok, ShouldBeTrue)
				So(st, ShouldResemble, livemap.SelectedStyle)
				So(s.selectedCount(), ShouldEqual, 1)
			})
		})

		Convey("When the selected entity disappears from the next snapshot", func() {
			So(e.Select(ctx, "2"), ShouldBeNil)
			s.resetCamera()
			So(e.SetEntities(ctx, scenario()[:1]), ShouldBeNil)

			Convey("Then the selection is stale: fit only, nothing emphasized", func() {
				So(len(s.camera), ShouldEqual, 1)
				So(s.camera[0].kind, ShouldEqual, "fit")
				So(s.selectedCount(), ShouldEqual, 0)
				So(e.State().Selection, ShouldEqual, "2")
			})
		})
	})
}

func TestEngineReconciliation(t *testing.T) {
	Convey("Given a ready engine", t, func() {
		ctx := context.Background()
		s := newRecordingSurface()
		e := newReadyEngine(ctx, s)

		Convey("When the snapshot contains unplaceable coordinates", func() {
			entities := append(scenario(),
				model.Entity{ID: "3", Label: "Nowhere", Status: model.StatusDegraded},
				model.Entity{ID: "4", Label: "Broken", Status: model.StatusDegraded, Coordinate: at(math.NaN(), 40)},
			)
			So(e.SetEntities(ctx, entities), ShouldBeNil)

			Convey("Then they are skipped and the rest are placed", func() {
				So(s.entityIDs(), ShouldResemble, []string{"1", "2"})
				So(e.State().Entities, ShouldEqual, 4)
			})

			Convey("And the fit covers only the valid coordinates", func() {
				So(s.camera[len(s.camera)-1].bounds, ShouldResemble, model.Bounds{
					SouthWest: model.Coordinate{Lng: -74.006, Lat: 40.7128},
					NorthEast: model.Coordinate{Lng: -73.9857, Lat: 40.7484},
				})
			})
		})

		Convey("When the same snapshot is reconciled twice", func() {
			So(e.Select(ctx, "2"), ShouldBeNil)
			So(e.SetEntities(ctx, scenario()), ShouldBeNil)
			first := s.entityIDs()
			_, st1, _ := s.byEntity("2")
			So(e.SetEntities(ctx, scenario()), ShouldBeNil)

			Convey("Then the marker set and styles are unchanged", func() {
				So(s.entityIDs(), ShouldResemble, first)
				_, st2, _ := s.byEntity("2")
				So(st2, ShouldResemble, st1)
				So(len(s.markers), ShouldEqual, 2)
			})

			Convey("And every rebuild used fresh handles", func() {
				So(s.added, ShouldEqual, 4)
				So(s.removed, ShouldEqual, 2)
			})
		})

		Convey("When a snapshot repeats an identity", func() {
			entities := append(scenario(), model.Entity{ID: "1", Label: "Mary Johnson", Status: model.StatusDegraded, Coordinate: at(-74.1, 40.6)})
			So(e.SetEntities(ctx, entities), ShouldBeNil)

			Convey("Then there is exactly one marker for it, from the later entry", func() {
				So(s.entityIDs(), ShouldResemble, []string{"1", "2"})
				m, _, _ := s.byEntity("1")
				So(m.Color, ShouldEqual, model.StatusDegraded.Color())
				So(e.State().Entities, ShouldEqual, 2)
			})

			Convey("And selecting it centers on the placed marker", func() {
				s.resetCamera()
				So(e.Select(ctx, "1"), ShouldBeNil)
				m, st, _ := s.byEntity("1")
				So(st, ShouldResemble, livemap.SelectedStyle)
				So(len(s.camera), ShouldEqual, 1)
				So(s.camera[0].kind, ShouldEqual, "ease")
				So(s.camera[0].center, ShouldResemble, m.Position)
				So(m.Position, ShouldResemble, model.Coordinate{Lng: -74.1, Lat: 40.6})
			})
		})

		Convey("When the later entry for an identity has no coordinate", func() {
			So(e.Select(ctx, "1"), ShouldBeNil)
			s.resetCamera()
			entities := append(scenario(), model.Entity{ID: "1", Label: "Mary Johnson", Status: model.StatusDegraded})
			So(e.SetEntities(ctx, entities), ShouldBeNil)

			Convey("Then the identity is not drawn and the camera does not center on it", func() {
				So(s.entityIDs(), ShouldResemble, []string{"2"})
				for _, cmd := range s.camera {
					So(cmd.kind, ShouldNotEqual, "ease")
				}
				So(e.State().Resolved, ShouldBeFalse)
			})
		})

		Convey("When the surface rejects one marker", func() {
			s.failAdd["1"] = true
			So(e.SetEntities(ctx, scenario()), ShouldBeNil)

			Convey("Then the pass continues with the others", func() {
				So(s.entityIDs(), ShouldResemble, []string{"2"})
			})
		})
	})
}

func TestEngineLifecycle(t *testing.T) {
	Convey("Given an engine that is not ready yet", t, func() {
		ctx := context.Background()
		s := newRecordingSurface()
		e, err := livemap.New(s,
			livemap.WithHandleGenerator(sequentialHandles()),
			livemap.WithFitPadding(20),
			livemap.WithFocusZoom(12),
			livemap.WithFocusDuration(500*time.Millisecond),
		)
		So(err, ShouldBeNil)

		Convey("When snapshot and selection arrive before ready", func() {
			So(e.SetEntities(ctx, scenario()), ShouldBeNil)
			So(e.Select(ctx, "2"), ShouldBeNil)

			Convey("Then nothing touches the surface", func() {
				So(len(s.markers), ShouldEqual, 0)
				So(len(s.camera), ShouldEqual, 0)
				So(e.State().Ready, ShouldBeFalse)
			})

			Convey("And on ready the deferred state is rendered: fit then center", func() {
				So(e.Ready(ctx), ShouldBeNil)
				So(s.entityIDs(), ShouldResemble, []string{"1", "2"})
				So(len(s.camera), ShouldEqual, 2)
				So(s.camera[0].padding, ShouldEqual, 20)
				So(s.camera[1].zoom, ShouldEqual, 12)
				So(s.camera[1].duration, ShouldEqual, 500*time.Millisecond)
				So(s.selectedCount(), ShouldEqual, 1)

				Convey("And a second ready is a no-op", func() {
					So(e.Ready(ctx), ShouldBeNil)
					So(len(s.camera), ShouldEqual, 2)
				})
			})
		})

		Convey("When the engine is closed", func() {
			So(e.Ready(ctx), ShouldBeNil)
			So(e.SetEntities(ctx, scenario()), ShouldBeNil)
			So(e.Close(ctx), ShouldBeNil)
			So(e.Close(ctx), ShouldBeNil)

			Convey("Then every marker is released and the surface disposed once", func() {
				So(len(s.markers), ShouldEqual, 0)
				So(s.closed, ShouldEqual, 1)
				So(e.State().Closed, ShouldBeTrue)
			})

			Convey("And further operations report ErrClosed", func() {
				So(errors.Is(e.SetEntities(ctx, scenario()), livemap.ErrClosed), ShouldBeTrue)
				So(errors.Is(e.Select(ctx, "1"), livemap.ErrClosed), ShouldBeTrue)
				So(errors.Is(e.Ready(ctx), livemap.ErrClosed), ShouldBeTrue)
				So(errors.Is(e.Activate(ctx, "h1"), livemap.ErrClosed), ShouldBeTrue)
			})
		})

		Convey("When constructed without a surface", func() {
			_, err := livemap.New(nil)
			So(errors.Is(err, livemap.ErrNilSurface), ShouldBeTrue)
		})
	})
}

func TestEngineActivation(t *testing.T) {
	Convey("Given a ready engine with a selection sink", t, func() {
		ctx := context.Background()
		s := newRecordingSurface()
		var reported []string
		e := newReadyEngine(ctx, s, livemap.WithSelectionSink(func(_ context.Context, id string) {
			reported = append(reported, id)
		}))
		So(e.SetEntities(ctx, scenario()), ShouldBeNil)

		Convey("When a marker is clicked", func() {
			m, _, _ := s.byEntity("1")
			So(e.Activate(ctx, m.Handle), ShouldBeNil)

			Convey("Then the entity is selected and reported to the sink", func() {
				So(reported, ShouldResemble, []string{"1"})
				So(e.State().Selection, ShouldEqual, "1")
				_, st, _ := s.byEntity("1")
				So(st, ShouldResemble, livemap.SelectedStyle)
			})
		})

		Convey("When a handle from a previous rebuild is clicked", func() {
			old, _, _ := s.byEntity("1")
			So(e.SetEntities(ctx, scenario()), ShouldBeNil)
			err := e.Activate(ctx, old.Handle)

			Convey("Then it is rejected as unknown", func() {
				So(errors.Is(err, livemap.ErrUnknownMarker), ShouldBeTrue)
				So(reported, ShouldBeEmpty)
			})
		})
	})
}

func TestSelection(t *testing.T) {
	var sel livemap.Selection
	if sel.Get() != "" {
		t.Fatal("zero selection should be empty")
	}
	if !sel.Set("a") || sel.Set("a") || !sel.Set("") {
		t.Fatal("Set should report changes only")
	}
}
