package model

// RuntimeState is the transient per-POI overlay owned by the session.
type RuntimeState struct {
	// DistanceMeters is the last computed distance to the user. Zero or negative means unknown.
	DistanceMeters float64 `json:"distance_meters"`
	IsActive       bool    `json:"is_active"`
}

// DistanceKnown reports whether a distance has been computed.
func (s RuntimeState) DistanceKnown() bool {
	return s.DistanceMeters > 0
}

// TrackedPOI pairs a POI with its runtime overlay.
type TrackedPOI struct {
	POI   *POI         `json:"poi"`
	State RuntimeState `json:"state"`
}

// ID returns the id of the underlying POI.
func (t *TrackedPOI) ID() string {
	if t == nil || t.POI == nil {
		return ""
	}
	return t.POI.ID
}
