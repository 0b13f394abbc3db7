package geo

import (
	"math"
	"testing"
)

func TestTrackBuffer(t *testing.T) {
	tests := []struct {
		name       string
		windowSize int
		minMove    float64
		points     []Point
		wantTracks []float64 // Expected direction after EACH push
	}{
		{
			name:       "Standard 3-Sample Window",
			windowSize: 3,
			points: []Point{
				{Lat: 10, Lon: 20}, // 1st: unknown
				{Lat: 11, Lon: 20}, // 2nd: North (0)
				{Lat: 11, Lon: 21}, // 3rd: NE based on 10,20 -> 11,21 (approx 45)
				{Lat: 10, Lon: 21}, // 4th: SE based on 11,20 -> 10,21 (approx 135)
			},
			wantTracks: []float64{-1, 0, 45, 135},
		},
		{
			name:       "Jitter Ignored",
			windowSize: 3,
			minMove:    5,
			points: []Point{
				{Lat: 10.7601, Lon: 106.7029},
				{Lat: 10.76011, Lon: 106.7029}, // ~1m north, below threshold
				{Lat: 10.7602, Lon: 106.7029},  // ~11m north
			},
			wantTracks: []float64{-1, -1, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewTrackBuffer(tt.windowSize, tt.minMove)
			for i, p := range tt.points {
				got := b.Push(p)
				if math.Abs(got-tt.wantTracks[i]) > 1.0 {
					t.Errorf("Step %d: Push() = %v, want approx %v", i, got, tt.wantTracks[i])
				}
			}
		})
	}
}

func TestTrackBuffer_Reset(t *testing.T) {
	b := NewTrackBuffer(5, 0)
	b.Push(Point{10, 20})
	b.Push(Point{11, 20})
	b.Reset()

	if got := b.Push(Point{12, 20}); got != -1 {
		t.Errorf("expected unknown direction after reset, got %v", got)
	}
}
