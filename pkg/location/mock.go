package location

import (
	"context"
	"sync"
	"time"

	"foodstreet/pkg/config"
	"foodstreet/pkg/geo"
)

// MockWalker simulates a pedestrian walking a route at constant speed.
// Position is derived from elapsed time, so it is the same however often it is polled.
type MockWalker struct {
	mu         sync.Mutex
	route      []geo.Point
	segments   []float64 // cumulative distance at the start of each segment
	total      float64
	speed      float64
	loop       bool
	permission bool
	start      time.Time
	now        func() time.Time
}

// NewMockWalker creates a walker over cfg.Route. A looping route closes back to its first point.
func NewMockWalker(cfg config.MockConfig, permissionGranted bool) *MockWalker {
	m := &MockWalker{
		speed:      cfg.SpeedMps,
		loop:       cfg.Loop,
		permission: permissionGranted,
		now:        time.Now,
	}
	if m.speed <= 0 {
		m.speed = 1.4
	}
	for _, rp := range cfg.Route {
		m.route = append(m.route, geo.Point{Lat: rp.Lat, Lon: rp.Lon})
	}
	if m.loop && len(m.route) > 1 {
		m.route = append(m.route, m.route[0])
	}
	for i := 0; i+1 < len(m.route); i++ {
		m.segments = append(m.segments, m.total)
		m.total += geo.Distance(m.route[i], m.route[i+1])
	}
	return m
}

// SetClock replaces the time source (tests).
func (m *MockWalker) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
	m.start = time.Time{}
}

// Authorize implements Provider.
func (m *MockWalker) Authorize(ctx context.Context) error {
	if !m.permission {
		return ErrPermissionDenied
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.start.IsZero() {
		m.start = m.now()
	}
	return nil
}

// Current implements Provider.
func (m *MockWalker) Current(ctx context.Context) (Fix, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.route) == 0 {
		return Fix{}, ErrNoFix
	}
	now := m.now()
	if m.start.IsZero() {
		m.start = now
	}
	p := m.positionAt(now.Sub(m.start).Seconds() * m.speed)
	return Fix{Lat: p.Lat, Lon: p.Lon, Accuracy: 5, Heading: -1, Timestamp: now}, nil
}

func (m *MockWalker) positionAt(dist float64) geo.Point {
	if m.total <= 0 {
		return m.route[0]
	}
	if m.loop {
		for dist >= m.total {
			dist -= m.total
		}
	} else if dist >= m.total {
		return m.route[len(m.route)-1]
	}

	i := len(m.segments) - 1
	for i > 0 && m.segments[i] > dist {
		i--
	}
	from, to := m.route[i], m.route[i+1]
	along := dist - m.segments[i]
	return geo.DestinationPoint(from, along, geo.Bearing(from, to))
}
