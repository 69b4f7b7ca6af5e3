package service

import (
	"time"

	"github.com/okian/livemap/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithQueueSize sets the capacity of the render loop's event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMapToken supplies the map credential up front. Without it the map
// waits for Configure.
func WithMapToken(token string) Option {
	return func(s *Service) {
		s.token = token
	}
}

// WithSource sets the polled snapshot source. Without one, snapshots are
// pushed through PushSnapshot.
func WithSource(src Source) Option {
	return func(s *Service) {
		s.source = src
	}
}

// WithRefreshInterval sets the polling period; 0 polls once at start and
// then only on Refresh.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.refreshInterval = d
		}
	}
}

// WithCamera tunes fit padding, focus zoom and focus animation duration.
func WithCamera(padding int, zoom float64, duration time.Duration) Option {
	return func(s *Service) {
		s.fitPadding = padding
		s.focusZoom = zoom
		s.focusDuration = duration
	}
}
