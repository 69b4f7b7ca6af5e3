package service

import "errors"

// Sentinel errors returned by the service. The HTTP layer maps them to
// status codes.
var (
	ErrNotStarted    = errors.New("service not started")
	ErrStopped       = errors.New("service stopped")
	ErrBackpressure  = errors.New("event queue full")
	ErrMissingToken  = errors.New("map access token is required")
	ErrMapLoad       = errors.New("map failed to load")
	ErrNotConfigured = errors.New("map is not configured")
	ErrNoScene       = errors.New("surface does not expose a scene")
	ErrNoSource      = errors.New("no snapshot source to refresh from")
	ErrPushDisabled  = errors.New("snapshots come from a polled source")
)
