package model

// Bounds is an axis-aligned longitude/latitude rectangle.
type Bounds struct {
	SouthWest Coordinate `json:"sw"`
	NorthEast Coordinate `json:"ne"`
}

// NewBounds returns the degenerate bounds around a single coordinate.
func NewBounds(c Coordinate) Bounds {
	return Bounds{SouthWest: c, NorthEast: c}
}

// Extend returns b grown to include c.
func (b Bounds) Extend(c Coordinate) Bounds {
	if c.Lng < b.SouthWest.Lng {
		b.SouthWest.Lng = c.Lng
	}
	if c.Lat < b.SouthWest.Lat {
		b.SouthWest.Lat = c.Lat
	}
	if c.Lng > b.NorthEast.Lng {
		b.NorthEast.Lng = c.Lng
	}
	if c.Lat > b.NorthEast.Lat {
		b.NorthEast.Lat = c.Lat
	}
	return b
}

// Contains reports whether c lies inside b, edges included.
func (b Bounds) Contains(c Coordinate) bool {
	return c.Lng >= b.SouthWest.Lng && c.Lng <= b.NorthEast.Lng &&
		c.Lat >= b.SouthWest.Lat && c.Lat <= b.NorthEast.Lat
}

// Center returns the midpoint of b.
func (b Bounds) Center() Coordinate {
	return Coordinate{
		Lng: (b.SouthWest.Lng + b.NorthEast.Lng) / 2,
		Lat: (b.SouthWest.Lat + b.NorthEast.Lat) / 2,
	}
}

// BoundsOf folds every placeable entity coordinate into one region,
// seeded with the first valid one. ok is false when none is placeable.
func BoundsOf(entities []Entity) (b Bounds, ok bool) {
	for i := range entities {
		c, valid := entities[i].Position()
		if !valid {
			continue
		}
		if !ok {
			b, ok = NewBounds(c), true
			continue
		}
		b = b.Extend(c)
	}
	return b, ok
}
