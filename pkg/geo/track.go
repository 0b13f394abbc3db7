package geo

import "sync"

// TrackBuffer maintains a rolling window of fixes and calculates the walking direction.
type TrackBuffer struct {
	mu         sync.RWMutex
	samples    []Point
	windowSize int
	minMove    float64 // meters; jitter below this does not change the direction
	last       float64
}

// NewTrackBuffer creates a new buffer with the specified sample window size.
// minMoveMeters filters GPS jitter: the direction only updates once the window spans at least that distance.
func NewTrackBuffer(windowSize int, minMoveMeters float64) *TrackBuffer {
	if windowSize < 2 {
		windowSize = 2
	}
	return &TrackBuffer{
		windowSize: windowSize,
		minMove:    minMoveMeters,
		last:       -1,
	}
}

// Push adds a new point and returns the current direction in degrees, or -1 if unknown.
func (b *TrackBuffer) Push(p Point) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.samples = append(b.samples, p)
	if len(b.samples) > b.windowSize {
		b.samples = b.samples[1:]
	}

	if len(b.samples) < 2 {
		return b.last
	}

	first, newest := b.samples[0], b.samples[len(b.samples)-1]
	if Distance(first, newest) < b.minMove {
		return b.last
	}
	b.last = Bearing(first, newest)
	return b.last
}

// Reset clears the buffer history.
func (b *TrackBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples = nil
	b.last = -1
}
