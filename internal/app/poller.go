package service

import (
	"context"
	"sync"
	"time"

	"github.com/okian/livemap/internal/domain/model"
	"github.com/okian/livemap/pkg/logger"
	"github.com/okian/livemap/pkg/metrics"
)

// Source produces full entity snapshots.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]model.Entity, error)
}

// RefreshStatus describes the poller's last activity.
type RefreshStatus struct {
	LastSuccess time.Time `json:"last_success"`
	LastError   string    `json:"last_error,omitempty"`
	InFlight    bool      `json:"in_flight"`
	Fetches     int       `json:"fetches"`
}

// poller fetches snapshots on an interval and on demand. Manual requests
// that arrive while one is already pending collapse into it.
type poller struct {
	source   Source
	interval time.Duration
	publish  func(ctx context.Context, entities []model.Entity) error
	log      logger.Logger

	trigger chan struct{}
	done    chan struct{}

	mu     sync.RWMutex
	status RefreshStatus
}

func newPoller(src Source, interval time.Duration, publish func(context.Context, []model.Entity) error, log logger.Logger) *poller {
	return &poller{
		source:   src,
		interval: interval,
		publish:  publish,
		log:      log,
		trigger:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

func (p *poller) run(ctx context.Context) {
	defer close(p.done)

	p.refresh(ctx, "startup")

	var tick <-chan time.Time
	if p.interval > 0 {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			p.refresh(ctx, "interval")
		case <-p.trigger:
			p.refresh(ctx, "manual")
		}
	}
}

// Trigger requests an immediate fetch. It reports false when a request is
// already pending and this one was folded into it.
func (p *poller) Trigger() bool {
	select {
	case p.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

func (p *poller) Status() RefreshStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

func (p *poller) refresh(ctx context.Context, reason string) {
	p.mu.Lock()
	p.status.InFlight = true
	p.mu.Unlock()

	start := time.Now()
	entities, err := p.source.Fetch(ctx)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000

	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.InFlight = false
	p.status.Fetches++

	if err != nil {
		// keep the previous snapshot on screen
		metrics.RecordFetch(p.source.Name(), "error", latencyMs)
		metrics.RecordErrorByComponent("poller", "fetch")
		p.status.LastError = err.Error()
		p.log.Warn(ctx, "snapshot refresh failed",
			logger.String("source", p.source.Name()),
			logger.String("reason", reason),
			logger.Error(err),
		)
		return
	}

	metrics.RecordFetch(p.source.Name(), "success", latencyMs)
	if err := p.publish(ctx, entities); err != nil {
		p.status.LastError = err.Error()
		p.log.Warn(ctx, "snapshot not published", logger.Error(err))
		return
	}
	p.status.LastError = ""
	p.status.LastSuccess = time.Now()
	metrics.UpdateLastRefresh(p.status.LastSuccess.Unix())
	p.log.Debug(ctx, "snapshot refreshed",
		logger.String("source", p.source.Name()),
		logger.String("reason", reason),
		logger.Int("entities", len(entities)),
		logger.Float64("latency_ms", latencyMs),
	)
}
