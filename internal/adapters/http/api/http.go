// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	service "github.com/okian/livemap/internal/app"
	"github.com/okian/livemap/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	// Configure supplies the map credential.
	Configure(ctx context.Context, token string) error
	MapConfig() service.MapConfig

	// Scene returns the renderable map; fails until configured.
	Scene(ctx context.Context) (service.SceneView, error)

	// Write operations are queued for the render loop. They fail with
	// service.ErrBackpressure when the queue is full.
	Select(ctx context.Context, id string) error
	Activate(ctx context.Context, handle string) error
	PushSnapshot(ctx context.Context, entities []model.Entity) error
	Refresh(ctx context.Context) (coalesced bool, err error)
}

// Server wires HTTP routes for the live map API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	mapHandler       *MapHandler
	dashboardHandler *dashboardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		mapHandler:       NewMapHandler(deps),
		dashboardHandler: newDashboardHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /dashboard", s.dashboardHandler.HandleDashboard)
	mux.Handle("GET /{$}", http.RedirectHandler("/dashboard", http.StatusFound))

	mux.HandleFunc("GET /map/config", MetricsMiddleware(s.mapHandler.HandleGetConfig, "map_config"))
	mux.HandleFunc("POST /map/config", MetricsMiddleware(s.mapHandler.HandlePostConfig, "map_config"))
	mux.HandleFunc("GET /map/scene", MetricsMiddleware(s.mapHandler.HandleScene, "map_scene"))
	mux.HandleFunc("POST /map/select", MetricsMiddleware(s.mapHandler.HandleSelect, "map_select"))
	mux.HandleFunc("POST /map/markers/{handle}/activate", MetricsMiddleware(s.mapHandler.HandleActivate, "map_activate"))
	mux.HandleFunc("POST /map/snapshot", MetricsMiddleware(s.mapHandler.HandleSnapshot, "map_snapshot"))
	mux.HandleFunc("POST /map/refresh", MetricsMiddleware(s.mapHandler.HandleRefresh, "map_refresh"))
}

type ackResponse struct {
	Status    string `json:"status"`
	Coalesced bool   `json:"coalesced,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates service sentinels into status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	case errors.Is(err, service.ErrMissingToken):
		writeError(w, http.StatusBadRequest, "missing_token", err)
	case errors.Is(err, service.ErrNotConfigured):
		writeError(w, http.StatusConflict, "not_configured", err)
	case errors.Is(err, service.ErrNoSource), errors.Is(err, service.ErrPushDisabled), errors.Is(err, service.ErrNoScene):
		writeError(w, http.StatusConflict, "conflict", err)
	case errors.Is(err, service.ErrMapLoad):
		writeError(w, http.StatusBadGateway, "map_load_failed", err)
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, service.ErrStopped):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal", err)
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())
