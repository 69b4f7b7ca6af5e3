package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/livemap/internal/feedsim"
	"github.com/okian/livemap/pkg/logger"
)

func main() {
	def := feedsim.DefaultConfig()
	var (
		baseURL  = flag.String("url", def.BaseURL, "Base URL of the service")
		token    = flag.String("token", "", "Map token to configure before pushing (optional)")
		people   = flag.Int("people", def.People, "Population size")
		ticks    = flag.Int("ticks", 0, "Number of snapshots to push; 0 runs until interrupted")
		interval = flag.Duration("interval", def.Interval, "Delay between snapshots")
		timeout  = flag.Duration("timeout", def.Timeout, "HTTP request timeout")
		seed     = flag.Uint64("seed", def.Seed, "Random seed")
		lng      = flag.Float64("lng", def.Center.Lng, "Population center longitude")
		lat      = flag.Float64("lat", def.Center.Lat, "Population center latitude")
		spread   = flag.Float64("spread", def.Spread, "Initial spread in degrees")
		noSelect = flag.Bool("no-select", false, "Do not select people while running")
		verbose  = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := &feedsim.Config{
		BaseURL:  *baseURL,
		Token:    *token,
		People:   *people,
		Ticks:    *ticks,
		Interval: *interval,
		Timeout:  *timeout,
		Seed:     *seed,
		Center:   feedsim.Point{Lng: *lng, Lat: *lat},
		Spread:   *spread,
		Select:   !*noSelect,
	}
	if _, err := feedsim.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("feed simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
