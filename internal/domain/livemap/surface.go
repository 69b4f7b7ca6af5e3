// Package livemap keeps the markers of an imperative map surface in step with
// a declaratively supplied entity snapshot and drives the camera and marker
// emphasis for the selected entity.
//
// An Engine is not safe for concurrent use. It is owned by a single render
// loop which applies snapshot, selection, activation, ready and teardown
// events in order.
package livemap

import (
	"context"
	"time"

	"github.com/okian/livemap/internal/domain/model"
)

// Popup is the info card attached to a marker.
type Popup struct {
	Title       string `json:"title"`
	Status      string `json:"status"`
	LastContact string `json:"last_contact"`
}

// Marker is the visual placed on the surface for one entity.
type Marker struct {
	Handle   string           `json:"handle"`
	EntityID string           `json:"entity_id"`
	Glyph    string           `json:"glyph"`
	Color    string           `json:"color"`
	Position model.Coordinate `json:"position"`
	Popup    Popup            `json:"popup"`
}

// Style is the emphasis state of a marker.
type Style struct {
	Scale       float64 `json:"scale"`
	BorderWidth int     `json:"border_width"`
	BorderColor string  `json:"border_color"`
	ZIndex      int     `json:"z_index"`
	PopupOpen   bool    `json:"popup_open"`
}

// Emphasis styles.
var (
	SelectedStyle = Style{Scale: 1.3, BorderWidth: 4, BorderColor: "#2563eb", ZIndex: 1000, PopupOpen: true}
	DefaultStyle  = Style{Scale: 1, BorderWidth: 3, BorderColor: "#ffffff", ZIndex: 1, PopupOpen: false}
)

// Surface is the imperative map the engine drives. Implementations own the
// rendering; the engine owns which markers exist and where the camera goes.
// Viewport changes are commands and are never read back.
type Surface interface {
	// AddMarker places m on the map with its popup attached but hidden.
	AddMarker(ctx context.Context, m Marker) error
	// RemoveMarker detaches the marker and its popup.
	RemoveMarker(ctx context.Context, handle string) error
	// StyleMarker applies an emphasis style, opening or closing the popup.
	StyleMarker(ctx context.Context, handle string, s Style) error
	// FitBounds frames b with padding pixels around it.
	FitBounds(ctx context.Context, b model.Bounds, padding int) error
	// EaseTo animates the camera to center at zoom over d. A newer camera
	// command supersedes a running animation.
	EaseTo(ctx context.Context, center model.Coordinate, zoom float64, d time.Duration) error
	// Close disposes the map handle.
	Close(ctx context.Context) error
}

// SelectionSink receives the identity of an entity whose marker was activated.
type SelectionSink func(ctx context.Context, entityID string)
