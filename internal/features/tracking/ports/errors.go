package ports

import "errors"

// ErrNotFound is returned by CycleTx.Lookup when the tracking code has no
// persisted row yet.
var ErrNotFound = errors.New("tracking code not found")
