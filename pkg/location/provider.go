// Package location produces the user's position as a stream of fixes.
package location

import (
	"context"
	"time"

	"foodstreet/pkg/geo"
)

// Fix is one position sample.
type Fix struct {
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Accuracy  float64   `json:"accuracy_meters,omitempty"`
	Heading   float64   `json:"heading"` // degrees, -1 when unknown
	Timestamp time.Time `json:"timestamp"`
}

// Point returns the fix as a geo.Point.
func (f Fix) Point() geo.Point {
	return geo.Point{Lat: f.Lat, Lon: f.Lon}
}

// Provider is a platform position backend.
type Provider interface {
	// Authorize asks for location access; it fails with ErrPermissionDenied when refused.
	Authorize(ctx context.Context) error
	// Current returns the latest position, or ErrNoFix when none is known yet.
	Current(ctx context.Context) (Fix, error)
}

// Source is a running stream of fixes.
type Source interface {
	Start(ctx context.Context) error
	Stop()
	Updates() <-chan Fix
	IsRunning() bool
}
