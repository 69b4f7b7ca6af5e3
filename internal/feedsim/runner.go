package feedsim

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/livemap/pkg/logger"
)

// selectEvery is how many ticks pass between random selections.
const selectEvery = 5

type sceneState struct {
	State struct {
		Markers   int    `json:"markers"`
		Selection string `json:"selection"`
	} `json:"state"`
}

// Run pushes cfg.Ticks snapshots of a drifting population to the service.
// A zero Ticks runs until ctx is done, which is not an error.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log := logger.GetOrNoop().Named("feedsim")
	stats := &Stats{StartTime: time.Now()}
	c := newClient(cfg.BaseURL, cfg.Timeout, func() { stats.Retries++ })
	pop := NewPopulation(cfg.People, cfg.Center, cfg.Spread, cfg.Seed, nil)

	log.Info(ctx, "starting feed simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("people", cfg.People),
		logger.Int("ticks", cfg.Ticks),
		logger.Duration("interval", cfg.Interval),
	)

	if cfg.Token != "" {
		if _, err := c.post(ctx, "/map/config", map[string]string{"token": cfg.Token}); err != nil {
			return stats, fmt.Errorf("configure map: %w", err)
		}
	}

	ticker := time.NewTicker(max(cfg.Interval, time.Millisecond))
	defer ticker.Stop()
	for tick := 0; cfg.Ticks == 0 || tick < cfg.Ticks; tick++ {
		if tick > 0 {
			select {
			case <-ctx.Done():
				stats.Duration = time.Since(stats.StartTime)
				return stats, nil
			case <-ticker.C:
			}
			pop.Step()
		}

		stats.Snapshots++
		if _, err := c.post(ctx, "/map/snapshot", pop.Snapshot()); err != nil {
			stats.Rejected++
			log.Warn(ctx, "snapshot rejected", logger.Int("tick", tick), logger.Error(err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		stats.Accepted++

		if cfg.Select && tick%selectEvery == 0 {
			id := pop.Pick()
			if _, err := c.post(ctx, "/map/select", map[string]string{"entity_id": id}); err != nil {
				log.Warn(ctx, "selection rejected", logger.String("entity", id), logger.Error(err))
			} else {
				stats.Selections++
			}
		}
	}

	var scene sceneState
	if err := c.get(ctx, "/map/scene", &scene); err == nil {
		stats.LastMarkers = scene.State.Markers
	} else {
		log.Debug(ctx, "scene not readable", logger.Error(err))
	}
	stats.Duration = time.Since(stats.StartTime)
	log.Info(ctx, "feed simulation finished",
		logger.Int("snapshots", stats.Snapshots),
		logger.Int("accepted", stats.Accepted),
		logger.Int("rejected", stats.Rejected),
		logger.Int("retries", stats.Retries),
		logger.Int("markers", stats.LastMarkers),
		logger.Duration("duration", stats.Duration),
	)
	return stats, nil
}
