// Package projection converts between geographic coordinates and Web
// Mercator pixel space, the projection used by slippy map tiles.
package projection

import (
	"math"

	"github.com/okian/livemap/internal/domain/model"
)

// Projection constants.
const (
	TileSize = 256.0
	MaxLat   = 85.05112878
	MaxZoom  = 18.0
	MinZoom  = 0.0
)

// Point is a position in pixel space at some zoom level.
type Point struct {
	X, Y float64
}

// WorldSize is the width and height of the world in pixels at zoom.
func WorldSize(zoom float64) float64 {
	return TileSize * math.Exp2(zoom)
}

// Project maps c to pixel space at zoom. Latitudes beyond the Mercator
// limit are clamped.
func Project(c model.Coordinate, zoom float64) Point {
	lat := math.Max(-MaxLat, math.Min(MaxLat, c.Lat)) * math.Pi / 180
	size := WorldSize(zoom)
	return Point{
		X: (c.Lng + 180) / 360 * size,
		Y: (1 - math.Log(math.Tan(lat)+1/math.Cos(lat))/math.Pi) / 2 * size,
	}
}

// Unproject maps a pixel position at zoom back to a coordinate.
func Unproject(p Point, zoom float64) model.Coordinate {
	size := WorldSize(zoom)
	n := math.Pi - 2*math.Pi*p.Y/size
	return model.Coordinate{
		Lng: p.X/size*360 - 180,
		Lat: 180 / math.Pi * math.Atan(math.Sinh(n)),
	}
}

// Fit returns the center and zoom that frame b inside a width x height
// viewport with padding pixels on every side. A degenerate region (one
// point) is shown at MaxZoom.
func Fit(b model.Bounds, width, height, padding int) (model.Coordinate, float64) {
	sw := Project(b.SouthWest, 0)
	ne := Project(b.NorthEast, 0)
	center := Unproject(Point{X: (sw.X + ne.X) / 2, Y: (sw.Y + ne.Y) / 2}, 0)

	availW := float64(width - 2*padding)
	availH := float64(height - 2*padding)
	if availW <= 0 || availH <= 0 {
		return center, MinZoom
	}

	dx := math.Abs(ne.X - sw.X)
	dy := math.Abs(sw.Y - ne.Y)
	zoom := MaxZoom
	if dx > 0 {
		zoom = math.Min(zoom, math.Log2(availW/dx))
	}
	if dy > 0 {
		zoom = math.Min(zoom, math.Log2(availH/dy))
	}
	return center, Clamp(zoom)
}

// Clamp limits zoom to the supported range.
func Clamp(zoom float64) float64 {
	return math.Max(MinZoom, math.Min(MaxZoom, zoom))
}

// Viewport is a camera over a pixel viewport.
type Viewport struct {
	Center        model.Coordinate
	Zoom          float64
	Width, Height int
}

// ToScreen maps c to viewport pixels, origin top-left.
func (v Viewport) ToScreen(c model.Coordinate) Point {
	p := Project(c, v.Zoom)
	o := Project(v.Center, v.Zoom)
	return Point{
		X: p.X - o.X + float64(v.Width)/2,
		Y: p.Y - o.Y + float64(v.Height)/2,
	}
}

// Lerp interpolates between two cameras in projected space, t in [0,1].
func Lerp(from, to Viewport, t float64) Viewport {
	t = math.Max(0, math.Min(1, t))
	a := Project(from.Center, 0)
	b := Project(to.Center, 0)
	out := to
	out.Center = Unproject(Point{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}, 0)
	out.Zoom = from.Zoom + (to.Zoom-from.Zoom)*t
	return out
}
