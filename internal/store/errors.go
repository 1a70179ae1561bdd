package store

import "errors"

var (
	// ErrRequestNotFound is returned when no row matches the request id
	ErrRequestNotFound = errors.New("leave request not found")

	// ErrPersistenceFailure is returned when a sheet operation fails or a
	// write does not read back as written. Callers must treat the
	// transition as not applied and must not fire its notification.
	ErrPersistenceFailure = errors.New("persistence failure")
)
