// Package geofence decides which POI the user is currently standing in.
package geofence

import (
	"foodstreet/pkg/geo"
	"foodstreet/pkg/model"
)

// SelectActive computes the distance from user to every POI and returns the POI whose
// geofence should be considered entered, or nil when the user is inside none.
//
// The distance is written to State.DistanceMeters for all POIs, not only the winner.
// A POI is a candidate when its distance is within its radius (inclusive). Among candidates
// the highest priority wins, then the smallest distance, then the earliest in input order.
// Input is not validated; callers pass valid coordinates and positive radii.
func SelectActive(user geo.Point, pois []*model.TrackedPOI) *model.TrackedPOI {
	var best *model.TrackedPOI

	for _, tp := range pois {
		if tp == nil || tp.POI == nil {
			continue
		}
		d := geo.Distance(user, geo.Point{Lat: tp.POI.Lat, Lon: tp.POI.Lon})
		tp.State.DistanceMeters = d

		if d > tp.POI.RadiusMeters {
			continue
		}
		if best == nil || beats(tp, best) {
			best = tp
		}
	}

	return best
}

// beats reports whether candidate strictly outranks the current best.
// Strict comparisons keep the earlier POI on a full tie.
func beats(candidate, best *model.TrackedPOI) bool {
	if candidate.POI.Priority != best.POI.Priority {
		return candidate.POI.Priority > best.POI.Priority
	}
	return candidate.State.DistanceMeters < best.State.DistanceMeters
}

// Track wraps plain POIs into tracked entries with unknown distance.
func Track(pois []model.POI) []*model.TrackedPOI {
	out := make([]*model.TrackedPOI, len(pois))
	for i := range pois {
		out[i] = &model.TrackedPOI{POI: &pois[i]}
	}
	return out
}
