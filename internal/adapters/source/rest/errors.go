package rest

import "errors"

// Sentinel errors for snapshot fetches.
var (
	ErrFetch        = errors.New("snapshot fetch failed")
	ErrUnauthorized = errors.New("backend rejected credentials")
	ErrBadResponse  = errors.New("unexpected backend response")
	ErrNoBaseURL    = errors.New("backend url is required")
	ErrForeignLink  = errors.New("next link leaves the backend")
)
