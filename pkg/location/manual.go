package location

import (
	"context"
	"fmt"
	"sync"
	"time"

	"foodstreet/pkg/geo"
)

// Manual is a provider fed from outside, e.g. the browser's geolocation via the HTTP API.
type Manual struct {
	mu         sync.RWMutex
	fix        Fix
	has        bool
	permission bool
}

// NewManual creates a manual provider.
func NewManual(permissionGranted bool) *Manual {
	return &Manual{permission: permissionGranted}
}

// Set records a new position.
func (m *Manual) Set(lat, lon, accuracy float64) error {
	p := geo.Point{Lat: lat, Lon: lon}
	if !p.Valid() {
		return fmt.Errorf("invalid coordinates %f,%f", lat, lon)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fix = Fix{Lat: lat, Lon: lon, Accuracy: accuracy, Heading: -1, Timestamp: time.Now()}
	m.has = true
	return nil
}

// SetPermission grants or revokes location access.
func (m *Manual) SetPermission(granted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.permission = granted
}

// Authorize implements Provider.
func (m *Manual) Authorize(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.permission {
		return ErrPermissionDenied
	}
	return nil
}

// Current implements Provider.
func (m *Manual) Current(ctx context.Context) (Fix, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.has {
		return Fix{}, ErrNoFix
	}
	return m.fix, nil
}
