package terminal

import (
	"time"

	"github.com/okian/livemap/pkg/logger"
)

// Option applies a configuration option to the Surface.
type Option func(*Surface)

// WithCellSize sets how many map pixels one character cell covers.
func WithCellSize(width, height int) Option {
	return func(s *Surface) {
		if width > 0 && height > 0 {
			s.cellW, s.cellH = width, height
		}
	}
}

// WithActivationHandler sets the callback invoked with the handle of a
// clicked or tabbed-to marker. It is called without internal locks held.
func WithActivationHandler(fn func(handle string)) Option {
	return func(s *Surface) {
		if fn != nil {
			s.onActivate = fn
		}
	}
}

// WithQuitHandler sets the callback invoked on Esc, Ctrl-C or q.
func WithQuitHandler(fn func()) Option {
	return func(s *Surface) {
		if fn != nil {
			s.onQuit = fn
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

// WithClock replaces the time source used for camera animation.
func WithClock(now func() time.Time) Option {
	return func(s *Surface) {
		if now != nil {
			s.now = now
		}
	}
}
