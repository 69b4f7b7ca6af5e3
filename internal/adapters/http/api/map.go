package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/livemap/internal/domain/model"
)

const maxBodyBytes = 4 << 20

// MapHandler serves the map endpoints.
type MapHandler struct {
	deps Dependencies
}

// NewMapHandler creates a new map handler.
func NewMapHandler(deps Dependencies) *MapHandler {
	return &MapHandler{deps: deps}
}

type configRequest struct {
	Token string `json:"token" validate:"required"`
}

type selectRequest struct {
	EntityID string `json:"entity_id" validate:"max=256"`
}

type coordinateRequest struct {
	Lng *float64 `json:"lng" validate:"required"`
	Lat *float64 `json:"lat" validate:"required"`
}

type entityRequest struct {
	ID          string             `json:"id" validate:"required,max=256"`
	Label       string             `json:"label" validate:"max=512"`
	Status      string             `json:"status" validate:"required,oneof=nominal degraded critical safe warning emergency"`
	Coordinate  *coordinateRequest `json:"coordinate" validate:"omitempty"`
	LastContact string             `json:"last_contact" validate:"max=128"`
}

type snapshotRequest struct {
	Entities []entityRequest `validate:"dive"`
}

func (e entityRequest) toEntity() model.Entity {
	status, _ := model.ParseStatus(e.Status)
	out := model.Entity{
		ID:          e.ID,
		Label:       strings.TrimSpace(e.Label),
		Status:      status,
		LastContact: e.LastContact,
	}
	if e.Coordinate != nil {
		out.Coordinate = &model.Coordinate{Lng: *e.Coordinate.Lng, Lat: *e.Coordinate.Lat}
	}
	return out
}

// HandleGetConfig handles GET /map/config.
func (h *MapHandler) HandleGetConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.MapConfig())
}

// HandlePostConfig handles POST /map/config with {"token": "..."}.
func (h *MapHandler) HandlePostConfig(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.deps.Configure(r.Context(), req.Token); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.MapConfig())
}

// HandleScene handles GET /map/scene.
func (h *MapHandler) HandleScene(w http.ResponseWriter, r *http.Request) {
	view, err := h.deps.Scene(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, view)
}

// HandleSelect handles POST /map/select with {"entity_id": "..."}; an empty
// id clears the selection.
func (h *MapHandler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.deps.Select(r.Context(), req.EntityID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}

// HandleActivate handles POST /map/markers/{handle}/activate.
func (h *MapHandler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	handle := strings.TrimSpace(r.PathValue("handle"))
	if handle == "" {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing marker handle", ErrBadRequest))
		return
	}
	if err := h.deps.Activate(r.Context(), handle); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}

// HandleSnapshot handles POST /map/snapshot with a JSON array of entities.
func (h *MapHandler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	var req snapshotRequest
	if !decode(w, r, &req.Entities) {
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	entities := make([]model.Entity, len(req.Entities))
	for i, e := range req.Entities {
		entities[i] = e.toEntity()
	}
	if err := h.deps.PushSnapshot(r.Context(), entities); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}

// HandleRefresh handles POST /map/refresh.
func (h *MapHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	coalesced, err := h.deps.Refresh(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Coalesced: coalesced})
}

// decode reads a JSON body into v and validates structs. It writes the
// error response and returns false on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: invalid json: %w", ErrBadRequest, err))
		return false
	}
	switch v.(type) {
	case *configRequest, *selectRequest:
		if err := validate.Struct(v); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
			return false
		}
	}
	return true
}
