package terminal

import "errors"

// Sentinel errors for terminal surface operations.
var (
	ErrNotLoaded     = errors.New("terminal map not loaded")
	ErrClosed        = errors.New("terminal map disposed")
	ErrMissingToken  = errors.New("map access token is required")
	ErrUnknownHandle = errors.New("unknown marker handle")
)
