package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/okian/livemap/internal/adapters/http/api"
	"github.com/okian/livemap/internal/adapters/http/swagger"
	"github.com/okian/livemap/internal/adapters/source/rest"
	"github.com/okian/livemap/internal/adapters/source/static"
	"github.com/okian/livemap/internal/adapters/surface/scene"
	"github.com/okian/livemap/internal/adapters/surface/terminal"
	app "github.com/okian/livemap/internal/app"
	"github.com/okian/livemap/internal/config"
	"github.com/okian/livemap/pkg/logger"
	"github.com/okian/livemap/pkg/metrics"
	"github.com/okian/livemap/pkg/tracing"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 10 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
	serviceName           = "livemap"
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := run(ctx, stop, cfg); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func run(ctx context.Context, stop context.CancelFunc, cfg *config.Config) error {
	logOut, closeLog, err := logWriter(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	if err := logger.InitWithWriter(logOut); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		Enabled:     cfg.TracingEnabled,
		ServiceName: serviceName,
		Exporter:    cfg.TracingExporter,
		Endpoint:    cfg.TracingEndpoint,
		SampleRatio: cfg.TracingSampleRatio,
		Writer:      logOut,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer tracing.Shutdown(context.WithoutCancel(ctx), shutdownTracing, log)

	src, err := buildSource(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to build source: %w", err)
	}

	var (
		svc  *app.Service
		term *terminal.Surface
	)
	surface, err := buildSurface(cfg, log, func(handle string) {
		if err := svc.Activate(ctx, handle); err != nil {
			log.Warn(ctx, "marker activation dropped", logger.String("handle", handle), logger.Error(err))
		}
	}, stop)
	if err != nil {
		return fmt.Errorf("failed to build surface: %w", err)
	}
	if t, ok := surface.(*terminal.Surface); ok {
		term = t
	}

	opts := []app.Option{
		app.WithLogger(log),
		app.WithQueueSize(cfg.EventQueueSize),
		app.WithMapToken(cfg.MapToken),
		app.WithRefreshInterval(cfg.RefreshInterval()),
		app.WithCamera(cfg.FitPadding, cfg.FocusZoom, cfg.FocusDuration()),
	}
	if src != nil {
		opts = append(opts, app.WithSource(src))
	}
	svc = app.New(surface, opts...)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := svc.Stop(stopCtx); err != nil {
			log.Error(ctx, "service stop failed", logger.Error(err))
		}
	}()

	go startSystemMetricsUpdater(ctx)

	srv := newHTTPServer(ctx, cfg.Addr, svc)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	if term != nil {
		if err := term.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error(ctx, "terminal surface stopped", logger.Error(err))
		}
		stop()
	}

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// logWriter picks the log destination. The terminal surface owns the tty,
// so without a log file its logs are discarded.
func logWriter(cfg *config.Config) (io.Writer, func(), error) {
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		return f, func() { _ = f.Close() }, nil
	}
	if cfg.Surface == config.SurfaceTerminal {
		return io.Discard, func() {}, nil
	}
	return os.Stdout, func() {}, nil
}

// buildSource returns the configured snapshot source, or nil for push.
func buildSource(cfg *config.Config, log logger.Logger) (app.Source, error) {
	switch cfg.Source {
	case config.SourceREST:
		c, err := rest.New(cfg.BackendURL, cfg.BackendToken,
			rest.WithTimeout(cfg.FetchTimeout()),
			rest.WithMaxRetries(cfg.FetchMaxRetries),
			rest.WithLogger(log.Named("rest")),
		)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.SourceStatic:
		s, err := static.New(cfg.StaticPath, log.Named("static"))
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, nil
	}
}

// buildSurface returns the configured map surface.
func buildSurface(cfg *config.Config, log logger.Logger, onActivate func(string), onQuit func()) (app.MapSurface, error) {
	if cfg.Surface == config.SurfaceTerminal {
		screen, err := tcell.NewScreen()
		if err != nil {
			return nil, fmt.Errorf("open terminal: %w", err)
		}
		return terminal.New(screen,
			terminal.WithLogger(log.Named("terminal")),
			terminal.WithActivationHandler(onActivate),
			terminal.WithQuitHandler(onQuit),
		), nil
	}
	return scene.New(scene.WithLogger(log.Named("scene"))), nil
}

func newHTTPServer(ctx context.Context, addr string, svc *app.Service) *http.Server {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc).Register(ctx, mux)

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// startSystemMetricsUpdater updates process metrics until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
