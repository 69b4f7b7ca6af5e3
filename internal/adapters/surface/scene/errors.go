package scene

import "errors"

// Sentinel errors for scene operations.
var (
	ErrNotLoaded     = errors.New("map not loaded")
	ErrClosed        = errors.New("map disposed")
	ErrMissingToken  = errors.New("map access token is required")
	ErrUnknownHandle = errors.New("unknown marker handle")
	ErrDuplicate     = errors.New("marker handle already placed")
)
