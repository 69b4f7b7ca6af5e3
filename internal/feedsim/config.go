// Package feedsim drives a running live map with a simulated population:
// people drift around a center point, change status and occasionally lose
// their position, and every tick the whole population is pushed as a
// snapshot.
package feedsim

import (
	"errors"
	"time"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL  string        // Base URL of the service
	Token    string        // Map token sent to /map/config when set
	People   int           // Population size
	Ticks    int           // Number of snapshots to push; 0 runs until cancelled
	Interval time.Duration // Delay between snapshots
	Timeout  time.Duration // HTTP request timeout
	Seed     uint64        // Random seed; runs with the same seed are identical
	Center   Point         // Population center
	Spread   float64       // Initial spread in degrees
	Select   bool          // Select a random person every few ticks
}

// Point is a longitude/latitude pair.
type Point struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// Person is one simulated individual, in the wire shape of /map/snapshot.
type Person struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Status      string `json:"status"`
	Coordinate  *Point `json:"coordinate,omitempty"`
	LastContact string `json:"last_contact"`
}

// Stats holds run statistics.
type Stats struct {
	Snapshots   int
	Accepted    int
	Rejected    int
	Retries     int
	Selections  int
	StartTime   time.Time
	Duration    time.Duration
	LastMarkers int
}

// Errors returned by Run.
var (
	ErrNoBaseURL    = errors.New("feedsim: base url is required")
	ErrNoPeople     = errors.New("feedsim: population must be positive")
	ErrUnexpected   = errors.New("feedsim: unexpected response")
	ErrNotReachable = errors.New("feedsim: service not reachable")
)

// DefaultConfig returns a small population around lower Manhattan.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:  "http://localhost:9080",
		People:   25,
		Interval: 2 * time.Second,
		Timeout:  10 * time.Second,
		Seed:     1,
		Center:   Point{Lng: -74.006, Lat: 40.7128},
		Spread:   0.05,
		Select:   true,
	}
}

func (c *Config) validate() error {
	switch {
	case c.BaseURL == "":
		return ErrNoBaseURL
	case c.People <= 0:
		return ErrNoPeople
	}
	return nil
}
