package session

import "errors"

var (
	// ErrNotTracking is returned by operations that need a running location stream.
	ErrNotTracking = errors.New("session: not tracking")
	// ErrNoActivePOI is returned by PlayOnDemand without an id while the user is outside every geofence.
	ErrNoActivePOI = errors.New("session: no active poi")
)
