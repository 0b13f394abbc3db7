package geofence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodstreet/pkg/geo"
	"foodstreet/pkg/model"
)

var user = geo.Point{Lat: 10.7601, Lon: 106.7029}

// poiAt places a POI at the given distance and bearing from user.
func poiAt(id string, distMeters, bearing, radius float64, priority int) *model.TrackedPOI {
	p := geo.DestinationPoint(user, distMeters, bearing)
	return &model.TrackedPOI{POI: &model.POI{
		ID:           id,
		Lat:          p.Lat,
		Lon:          p.Lon,
		RadiusMeters: radius,
		Priority:     priority,
	}}
}

func TestSelectActive(t *testing.T) {
	tests := []struct {
		name   string
		pois   []*model.TrackedPOI
		wantID string
	}{
		{
			name:   "Empty",
			pois:   nil,
			wantID: "",
		},
		{
			name: "No Candidates",
			pois: []*model.TrackedPOI{
				poiAt("far1", 50, 0, 40, 5),
				poiAt("far2", 200, 90, 100, 0),
			},
			wantID: "",
		},
		{
			name: "Radius Inclusive",
			pois: []*model.TrackedPOI{
				poiAt("edge", 40, 0, 40.0001, 0),
			},
			wantID: "edge",
		},
		{
			name: "Priority Beats Distance",
			pois: []*model.TrackedPOI{
				poiAt("near", 10, 0, 40, 1),
				poiAt("far", 30, 180, 40, 2),
			},
			wantID: "far",
		},
		{
			name: "Distance Tie-Break",
			pois: []*model.TrackedPOI{
				poiAt("twenty", 20, 0, 40, 0),
				poiAt("ten", 10, 90, 40, 0),
			},
			wantID: "ten",
		},
		{
			name: "Input Order Tie-Break",
			pois: []*model.TrackedPOI{
				poiAt("first", 15, 45, 40, 3),
				poiAt("second", 15, 45, 40, 3),
			},
			wantID: "first",
		},
		{
			name: "Out Of Radius High Priority Ignored",
			pois: []*model.TrackedPOI{
				poiAt("big", 60, 0, 40, 10),
				poiAt("small", 5, 0, 40, 0),
			},
			wantID: "small",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectActive(user, tt.pois)
			assert.Equal(t, tt.wantID, got.ID())
		})
	}
}

func TestSelectActive_OrderIsDeterministic(t *testing.T) {
	for i := 0; i < 50; i++ {
		pois := []*model.TrackedPOI{
			poiAt("first", 12, 270, 40, 1),
			poiAt("second", 12, 270, 40, 1),
			poiAt("third", 12, 270, 40, 1),
		}
		require.Equal(t, "first", SelectActive(user, pois).ID())
	}
}

func TestSelectActive_RecordsDistanceForAll(t *testing.T) {
	pois := []*model.TrackedPOI{
		poiAt("in", 10, 0, 40, 0),
		poiAt("out", 120, 90, 40, 0),
		poiAt("way-out", 900, 200, 40, 0),
	}

	SelectActive(user, pois)

	for _, tp := range pois {
		want := geo.Distance(user, geo.Point{Lat: tp.POI.Lat, Lon: tp.POI.Lon})
		assert.InDelta(t, want, tp.State.DistanceMeters, 1.0, tp.ID())
		assert.True(t, tp.State.DistanceKnown(), tp.ID())
	}
	assert.InDelta(t, 120, pois[1].State.DistanceMeters, 1.0)
	assert.InDelta(t, 900, pois[2].State.DistanceMeters, 1.0)
}

func TestSelectActive_FoodStreetScenario(t *testing.T) {
	a := &model.TrackedPOI{POI: &model.POI{
		ID: "A", Lat: 10.7601, Lon: 106.7029, RadiusMeters: 40, Priority: 1,
	}}

	got := SelectActive(geo.Point{Lat: 10.76015, Lon: 106.70295}, []*model.TrackedPOI{a})

	require.NotNil(t, got)
	assert.Equal(t, "A", got.ID())
	assert.InDelta(t, 6, a.State.DistanceMeters, 2.5) // ~7.8m by haversine
}

func TestTrack(t *testing.T) {
	pois := []model.POI{{ID: "a"}, {ID: "b"}}
	tracked := Track(pois)

	require.Len(t, tracked, 2)
	assert.Equal(t, "b", tracked[1].ID())
	assert.False(t, tracked[0].State.DistanceKnown())
	assert.Same(t, &pois[0], tracked[0].POI)
}
