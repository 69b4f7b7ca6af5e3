package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/livemap/internal/adapters/source/rest"
	"github.com/okian/livemap/internal/adapters/source/static"
	"github.com/okian/livemap/internal/adapters/surface/scene"
	app "github.com/okian/livemap/internal/app"
	"github.com/okian/livemap/internal/config"
	"github.com/okian/livemap/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestBuilders(t *testing.T) {
	convey.Convey("Given a default configuration", t, func() {
		cfg := config.New(context.Background())
		log := logger.Noop()

		convey.Convey("The push source builds no poller source", func() {
			src, err := buildSource(cfg, log)
			convey.So(err, convey.ShouldBeNil)
			convey.So(src, convey.ShouldBeNil)
		})

		convey.Convey("The rest source builds a client", func() {
			cfg.Source = config.SourceREST
			cfg.BackendURL = "http://localhost:8000/api"
			src, err := buildSource(cfg, log)
			convey.So(err, convey.ShouldBeNil)
			_, ok := src.(*rest.Client)
			convey.So(ok, convey.ShouldBeTrue)
		})

		convey.Convey("The static source needs a path", func() {
			cfg.Source = config.SourceStatic
			_, err := buildSource(cfg, log)
			convey.So(err, convey.ShouldNotBeNil)

			cfg.StaticPath = "people.yaml"
			src, err := buildSource(cfg, log)
			convey.So(err, convey.ShouldBeNil)
			_, ok := src.(*static.Source)
			convey.So(ok, convey.ShouldBeTrue)
		})

		convey.Convey("The scene surface is the default", func() {
			surface, err := buildSurface(cfg, log, func(string) {}, func() {})
			convey.So(err, convey.ShouldBeNil)
			_, ok := surface.(*scene.Surface)
			convey.So(ok, convey.ShouldBeTrue)
		})

		convey.Convey("Logs go to stdout unless a file is configured", func() {
			w, closeFn, err := logWriter(cfg)
			convey.So(err, convey.ShouldBeNil)
			convey.So(w, convey.ShouldEqual, os.Stdout)
			closeFn()

			cfg.Surface = config.SurfaceTerminal
			w, closeFn, err = logWriter(cfg)
			convey.So(err, convey.ShouldBeNil)
			convey.So(w, convey.ShouldEqual, io.Discard)
			closeFn()

			cfg.LogFile = filepath.Join(t.TempDir(), "livemap.log")
			w, closeFn, err = logWriter(cfg)
			convey.So(err, convey.ShouldBeNil)
			convey.So(w, convey.ShouldNotBeNil)
			closeFn()
			_, statErr := os.Stat(cfg.LogFile)
			convey.So(statErr, convey.ShouldBeNil)
		})
	})
}

func TestServerEndToEnd(t *testing.T) {
	convey.Convey("Given a started push service behind the HTTP server", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		svc := app.New(scene.New(), app.WithLogger(logger.Noop()))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)

		srv := httptest.NewServer(newHTTPServer(ctx, ":0", svc).Handler)
		convey.Reset(func() {
			srv.Close()
			_ = svc.Stop(context.Background())
			cancel()
		})

		post := func(path, body string) int {
			resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()
			return resp.StatusCode
		}

		convey.Convey("A pushed snapshot is drawn once the token arrives", func() {
			convey.So(post("/map/snapshot", `[
				{"id":"1","label":"Ana","status":"safe","coordinate":{"lng":-74.006,"lat":40.7128}},
				{"id":"2","label":"Ben","status":"emergency","coordinate":{"lng":-73.9857,"lat":40.7484}}
			]`), convey.ShouldEqual, http.StatusAccepted)
			convey.So(post("/map/config", `{"token":"pk.test"}`), convey.ShouldEqual, http.StatusOK)

			var view app.SceneView
			deadline := time.Now().Add(3 * time.Second)
			for time.Now().Before(deadline) {
				resp, err := http.Get(srv.URL + "/map/scene")
				convey.So(err, convey.ShouldBeNil)
				_ = json.NewDecoder(resp.Body).Decode(&view)
				_ = resp.Body.Close()
				if view.State.Markers == 2 {
					break
				}
				time.Sleep(10 * time.Millisecond)
			}
			convey.So(view.State.Ready, convey.ShouldBeTrue)
			convey.So(view.Scene.Markers, convey.ShouldHaveLength, 2)
			convey.So(view.Scene.Camera.Kind, convey.ShouldEqual, "fit")
		})

		convey.Convey("The OpenAPI document is served", func() {
			resp, err := http.Get(srv.URL + "/openapi.yaml")
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
		})
	})
}

func TestSystemMetrics(t *testing.T) {
	convey.Convey("The system metrics updater stops with its context", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
		convey.So(updateSystemMetrics, convey.ShouldNotPanic)
	})
}
