package scene

import (
	"time"

	"github.com/okian/livemap/pkg/logger"
)

// Option applies a configuration option to the Surface.
type Option func(*Surface)

// WithViewport sets the pixel size used to resolve fit commands.
func WithViewport(width, height int) Option {
	return func(s *Surface) {
		if width > 0 && height > 0 {
			s.width, s.height = width, height
		}
	}
}

// WithLogger sets a custom logger for the surface.
func WithLogger(l logger.Logger) Option {
	return func(s *Surface) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock replaces the time source used to stamp camera commands.
func WithClock(now func() time.Time) Option {
	return func(s *Surface) {
		if now != nil {
			s.now = now
		}
	}
}
