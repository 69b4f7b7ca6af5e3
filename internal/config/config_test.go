package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/livemap/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.EventQueueSize, convey.ShouldEqual, 1024)
			convey.So(cfg.Surface, convey.ShouldEqual, config.SurfaceScene)
			convey.So(cfg.Source, convey.ShouldEqual, config.SourcePush)
			convey.So(cfg.MapToken, convey.ShouldBeEmpty)
			convey.So(cfg.FitPadding, convey.ShouldEqual, 50)
			convey.So(cfg.FocusZoom, convey.ShouldEqual, 15)
			convey.So(cfg.FocusDuration(), convey.ShouldEqual, time.Second)
			convey.So(cfg.RefreshInterval(), convey.ShouldEqual, 30*time.Second)
			convey.So(cfg.FetchTimeout(), convey.ShouldEqual, 5*time.Second)
		})

		convey.Convey("Then the defaults validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unknown surface", func(c *config.Config) { c.Surface = "webgl" }},
		{"unknown source", func(c *config.Config) { c.Source = "kafka" }},
		{"rest without url", func(c *config.Config) { c.Source = config.SourceREST }},
		{"rest with bad url", func(c *config.Config) { c.Source = config.SourceREST; c.BackendURL = "not a url" }},
		{"static without path", func(c *config.Config) { c.Source = config.SourceStatic }},
		{"zero queue", func(c *config.Config) { c.EventQueueSize = 0 }},
		{"negative padding", func(c *config.Config) { c.FitPadding = -1 }},
		{"zero zoom", func(c *config.Config) { c.FocusZoom = 0 }},
		{"bad sample ratio", func(c *config.Config) { c.TracingSampleRatio = 2 }},
		{"bad exporter", func(c *config.Config) { c.TracingExporter = "zipkin" }},
		{"bad log level", func(c *config.Config) { c.LogLevel = "trace" }},
		{"terminal without token", func(c *config.Config) { c.Surface = config.SurfaceTerminal }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.New(context.Background())
			tc.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, config.ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	t.Run("rest with url", func(t *testing.T) {
		cfg := config.New(context.Background())
		cfg.Source = config.SourceREST
		cfg.BackendURL = "http://localhost:8000/api"
		if err := cfg.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}
