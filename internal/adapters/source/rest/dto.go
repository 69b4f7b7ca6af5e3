package rest

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/okian/livemap/internal/domain/model"
)

// personDTO is one row of the people list endpoint.
type personDTO struct {
	ID              string       `json:"id" validate:"required"`
	FirstName       string       `json:"first_name" validate:"max=100"`
	LastName        string       `json:"last_name" validate:"max=100"`
	CurrentStatus   string       `json:"current_status" validate:"required,oneof=safe warning emergency"`
	LastContactTime *time.Time   `json:"last_contact_time"`
	LastLocation    *locationDTO `json:"last_location" validate:"omitempty"`
}

// locationDTO carries decimals serialized as strings.
type locationDTO struct {
	Latitude     string     `json:"latitude" validate:"required,numeric"`
	Longitude    string     `json:"longitude" validate:"required,numeric"`
	Timestamp    *time.Time `json:"timestamp"`
	BatteryLevel *int       `json:"battery_level"`
}

// pageDTO is the paginated envelope.
type pageDTO struct {
	Count   int               `json:"count"`
	Next    *string           `json:"next"`
	Results []json.RawMessage `json:"results"`
}

const neverContacted = "never"

func (p personDTO) toEntity(now time.Time) model.Entity {
	status, _ := model.ParseStatus(p.CurrentStatus)
	e := model.Entity{
		ID:          p.ID,
		Label:       strings.TrimSpace(p.FirstName + " " + p.LastName),
		Status:      status,
		LastContact: neverContacted,
	}
	if p.LastContactTime != nil {
		e.LastContact = humanize.RelTime(*p.LastContactTime, now, "ago", "from now")
	}
	if p.LastLocation != nil {
		e.Coordinate = p.LastLocation.coordinate()
	}
	return e
}

// coordinate returns nil when either decimal does not parse; range checks
// are left to the map engine, which skips unplaceable entities.
func (l *locationDTO) coordinate() *model.Coordinate {
	lat, err := strconv.ParseFloat(strings.TrimSpace(l.Latitude), 64)
	if err != nil {
		return nil
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(l.Longitude), 64)
	if err != nil {
		return nil
	}
	return &model.Coordinate{Lng: lng, Lat: lat}
}
