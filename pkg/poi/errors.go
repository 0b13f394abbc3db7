package poi

import "errors"

var (
	// ErrPOINotFound indicates the requested POI is not in the loaded set.
	ErrPOINotFound = errors.New("poi not found")
	// ErrStoreFailure indicates a failure in the underlying storage.
	ErrStoreFailure = errors.New("poi store failure")
)
