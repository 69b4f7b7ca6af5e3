package livemap

import "errors"

// Sentinel errors for engine operations.
var (
	ErrClosed        = errors.New("map engine closed")
	ErrUnknownMarker = errors.New("unknown marker handle")
	ErrNilSurface    = errors.New("map surface is nil")
)
