// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a YAML file and the environment on top and validates.
package config

import (
	"context"
	"time"
)

// Surface and source kinds.
const (
	SurfaceScene    = "scene"
	SurfaceTerminal = "terminal"

	SourceREST   = "rest"
	SourceStatic = "static"
	SourcePush   = "push"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error"`

	// LogFile redirects logs away from stdout; the terminal surface needs it.
	LogFile string `koanf:"log_file"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// EventQueueSize bounds the render loop's event queue.
	EventQueueSize int `koanf:"queue_size" validate:"min=1"`

	// MapToken is the map access credential. Without it the map never
	// becomes ready; it can also be supplied at runtime.
	MapToken string `koanf:"map_token"`

	// Surface selects the map renderer: scene or terminal.
	Surface string `koanf:"surface" validate:"oneof=scene terminal"`

	// Source selects where snapshots come from: rest, static or push.
	Source string `koanf:"source" validate:"oneof=rest static push"`

	// BackendURL and BackendToken address the people API for the rest source.
	BackendURL   string `koanf:"backend_url" validate:"omitempty,url"`
	BackendToken string `koanf:"backend_token"`

	// StaticPath is the YAML fixture for the static source.
	StaticPath string `koanf:"static_path"`

	// RefreshIntervalMS is the polling period; 0 disables polling.
	RefreshIntervalMS int `koanf:"refresh_interval_ms" validate:"min=0"`
	FetchTimeoutMS    int `koanf:"fetch_timeout_ms" validate:"min=1"`
	FetchMaxRetries   int `koanf:"fetch_max_retries" validate:"min=0,max=10"`

	// Camera tuning.
	FitPadding      int     `koanf:"fit_padding" validate:"min=0"`
	FocusZoom       float64 `koanf:"focus_zoom" validate:"gt=0,lte=22"`
	FocusDurationMS int     `koanf:"focus_duration_ms" validate:"min=0"`

	// Tracing.
	TracingEnabled     bool    `koanf:"tracing_enabled"`
	TracingExporter    string  `koanf:"tracing_exporter" validate:"oneof=stdout otlphttp"`
	TracingEndpoint    string  `koanf:"tracing_endpoint"`
	TracingSampleRatio float64 `koanf:"tracing_sample_ratio" validate:"min=0,max=1"`
}

// New creates a Config with defaults. Context is accepted first to follow
// the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":9080",
		EventQueueSize:     1024,
		Surface:            SurfaceScene,
		Source:             SourcePush,
		RefreshIntervalMS:  30_000,
		FetchTimeoutMS:     5_000,
		FetchMaxRetries:    3,
		FitPadding:         50,
		FocusZoom:          15,
		FocusDurationMS:    1_000,
		TracingExporter:    "stdout",
		TracingEndpoint:    "localhost:4318",
		TracingSampleRatio: 1,
	}
}

// RefreshInterval returns the polling period.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalMS) * time.Millisecond
}

// FetchTimeout returns the per-attempt fetch timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutMS) * time.Millisecond
}

// FocusDuration returns the duration of the center-on-selection animation.
func (c *Config) FocusDuration() time.Duration {
	return time.Duration(c.FocusDurationMS) * time.Millisecond
}
