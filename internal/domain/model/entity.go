// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"math"
	"strings"
)

// Status is the display status of a tracked entity.
type Status string

// Known statuses.
const (
	StatusNominal  Status = "nominal"
	StatusDegraded Status = "degraded"
	StatusCritical Status = "critical"
)

// ParseStatus accepts the dashboard statuses and the backend aliases
// (safe, warning, emergency).
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nominal", "safe":
		return StatusNominal, nil
	case "degraded", "warning":
		return StatusDegraded, nil
	case "critical", "emergency":
		return StatusCritical, nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNominal, StatusDegraded, StatusCritical:
		return true
	}
	return false
}

// Color returns the marker fill color for s.
func (s Status) Color() string {
	switch s {
	case StatusNominal:
		return "#22c55e"
	case StatusDegraded:
		return "#f59e0b"
	case StatusCritical:
		return "#ef4444"
	default:
		return "#6b7280"
	}
}

// Coordinate is a longitude/latitude pair in degrees.
// A nil *Coordinate means the position is unknown.
type Coordinate struct {
	Lng float64 `json:"lng" yaml:"lng"`
	Lat float64 `json:"lat" yaml:"lat"`
}

// Valid reports whether c is a finite position on the globe.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lng) || math.IsNaN(c.Lat) || math.IsInf(c.Lng, 0) || math.IsInf(c.Lat, 0) {
		return false
	}
	return c.Lng >= -180 && c.Lng <= 180 && c.Lat >= -90 && c.Lat <= 90
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%.5f,%.5f)", c.Lng, c.Lat)
}

// Entity is one tracked individual as supplied by a snapshot provider.
type Entity struct {
	ID          string      `json:"id" yaml:"id"`
	Label       string      `json:"label" yaml:"label"`
	Status      Status      `json:"status" yaml:"status"`
	Coordinate  *Coordinate `json:"coordinate,omitempty" yaml:"coordinate,omitempty"`
	LastContact string      `json:"last_contact" yaml:"last_contact"`
}

// Position returns the entity coordinate and whether it can be placed.
func (e Entity) Position() (Coordinate, bool) {
	if e.Coordinate == nil || !e.Coordinate.Valid() {
		return Coordinate{}, false
	}
	return *e.Coordinate, true
}

// Initial returns the first rune of the label, used as the marker glyph.
func (e Entity) Initial() string {
	for _, r := range strings.TrimSpace(e.Label) {
		return strings.ToUpper(string(r))
	}
	return "?"
}

// Find returns the entity with the given identity from a snapshot. When
// the identity repeats, the last entry is the one returned.
func Find(entities []Entity, id string) (Entity, bool) {
	if id == "" {
		return Entity{}, false
	}
	for i := len(entities) - 1; i >= 0; i-- {
		if entities[i].ID == id {
			return entities[i], true
		}
	}
	return Entity{}, false
}

// Latest collapses repeated identities: each identity keeps the slot of its
// first occurrence and the value of its last one, even when that last value
// has no placeable coordinate. The input is not modified.
func Latest(entities []Entity) []Entity {
	out := make([]Entity, 0, len(entities))
	slot := make(map[string]int, len(entities))
	for _, e := range entities {
		if i, seen := slot[e.ID]; seen {
			out[i] = e
			continue
		}
		slot[e.ID] = len(out)
		out = append(out, e)
	}
	return out
}
