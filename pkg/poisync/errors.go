package poisync

import "errors"

// ErrNoBackend is returned when no admin endpoint (and no admin database file) could serve a request.
var ErrNoBackend = errors.New("poisync: no admin backend reachable")
