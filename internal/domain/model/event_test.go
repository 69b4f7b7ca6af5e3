package model_test

import (
	"math"
	"testing"

	model "github.com/okian/livemap/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func coord(lng, lat float64) *model.Coordinate {
	return &model.Coordinate{Lng: lng, Lat: lat}
}

func TestStatus(t *testing.T) {
	convey.Convey("Given backend and dashboard status strings", t, func() {
		convey.Convey("When parsing known values", func() {
			convey.So(must(model.ParseStatus("safe")), convey.ShouldEqual, model.StatusNominal)
			convey.So(must(model.ParseStatus("Warning")), convey.ShouldEqual, model.StatusDegraded)
			convey.So(must(model.ParseStatus(" emergency ")), convey.ShouldEqual, model.StatusCritical)
			convey.So(must(model.ParseStatus("critical")), convey.ShouldEqual, model.StatusCritical)
		})

		convey.Convey("When parsing an unknown value", func() {
			_, err := model.ParseStatus("lost")
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("Then each status maps to its marker color", func() {
			convey.So(model.StatusNominal.Color(), convey.ShouldEqual, "#22c55e")
			convey.So(model.StatusDegraded.Color(), convey.ShouldEqual, "#f59e0b")
			convey.So(model.StatusCritical.Color(), convey.ShouldEqual, "#ef4444")
		})
	})
}

func must(s model.Status, err error) model.Status {
	if err != nil {
		panic(err)
	}
	return s
}

func TestEntityPosition(t *testing.T) {
	convey.Convey("Given entities with various coordinates", t, func() {
		valid := model.Entity{ID: "1", Coordinate: coord(-74.006, 40.7128)}
		missing := model.Entity{ID: "2"}
		nan := model.Entity{ID: "3", Coordinate: coord(math.NaN(), 40)}
		outOfRange := model.Entity{ID: "4", Coordinate: coord(200, 40)}

		convey.Convey("Then only finite in-range coordinates are placeable", func() {
			_, ok := valid.Position()
			convey.So(ok, convey.ShouldBeTrue)
			_, ok = missing.Position()
			convey.So(ok, convey.ShouldBeFalse)
			_, ok = nan.Position()
			convey.So(ok, convey.ShouldBeFalse)
			_, ok = outOfRange.Position()
			convey.So(ok, convey.ShouldBeFalse)
		})

		convey.Convey("Then the initial falls back to a question mark", func() {
			convey.So(model.Entity{Label: "mary"}.Initial(), convey.ShouldEqual, "M")
			convey.So(model.Entity{}.Initial(), convey.ShouldEqual, "?")
		})
	})
}

func TestBoundsOf(t *testing.T) {
	convey.Convey("Given a snapshot with one unplaceable entity", t, func() {
		entities := []model.Entity{
			{ID: "bad", Coordinate: coord(math.NaN(), math.NaN())},
			{ID: "1", Coordinate: coord(-74.006, 40.7128)},
			{ID: "2", Coordinate: coord(-73.9857, 40.7484)},
		}

		b, ok := model.BoundsOf(entities)

		convey.Convey("Then the bounds cover every valid coordinate", func() {
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(b.SouthWest, convey.ShouldResemble, model.Coordinate{Lng: -74.006, Lat: 40.7128})
			convey.So(b.NorthEast, convey.ShouldResemble, model.Coordinate{Lng: -73.9857, Lat: 40.7484})
			for _, e := range entities[1:] {
				convey.So(b.Contains(*e.Coordinate), convey.ShouldBeTrue)
			}
		})

		convey.Convey("And an empty snapshot yields no bounds", func() {
			_, ok := model.BoundsOf(nil)
			convey.So(ok, convey.ShouldBeFalse)
		})
	})
}

func TestEventConstructors(t *testing.T) {
	convey.Convey("Given the event constructors", t, func() {
		convey.So(model.SelectEvent("2").Kind, convey.ShouldEqual, model.EventSelect)
		convey.So(model.ActivateEvent("h").Handle, convey.ShouldEqual, "h")
		convey.So(model.SnapshotEvent(nil).At.IsZero(), convey.ShouldBeFalse)
		convey.So(model.EventTeardown.String(), convey.ShouldEqual, "teardown")
		convey.So(model.EventKind(99).String(), convey.ShouldEqual, "unknown")
	})
}

func TestLatest(t *testing.T) {
	convey.Convey("Given a snapshot that repeats an identity", t, func() {
		entities := []model.Entity{
			{ID: "1", Status: model.StatusNominal, Coordinate: coord(-74.006, 40.7128)},
			{ID: "2", Status: model.StatusCritical, Coordinate: coord(-73.9857, 40.7484)},
			{ID: "1", Status: model.StatusDegraded, Coordinate: coord(-74.1, 40.6)},
		}

		convey.Convey("Then the later entry replaces the earlier one in its slot", func() {
			got := model.Latest(entities)
			convey.So(got, convey.ShouldHaveLength, 2)
			convey.So(got[0].ID, convey.ShouldEqual, "1")
			convey.So(got[0].Status, convey.ShouldEqual, model.StatusDegraded)
			convey.So(got[1].ID, convey.ShouldEqual, "2")
			convey.So(entities, convey.ShouldHaveLength, 3)
		})

		convey.Convey("And Find agrees with it", func() {
			e, ok := model.Find(entities, "1")
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(*e.Coordinate, convey.ShouldResemble, model.Coordinate{Lng: -74.1, Lat: 40.6})
		})

		convey.Convey("And a later entry without a coordinate still wins", func() {
			got := model.Latest(append(entities, model.Entity{ID: "1", Status: model.StatusNominal}))
			convey.So(got[0].Coordinate, convey.ShouldBeNil)
		})
	})
}
