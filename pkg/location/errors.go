package location

import "errors"

var (
	// ErrPermissionDenied is returned by Start when the provider is not authorized.
	ErrPermissionDenied = errors.New("location permission denied")
	// ErrNoFix means the provider has no position yet.
	ErrNoFix = errors.New("no location fix")
)
