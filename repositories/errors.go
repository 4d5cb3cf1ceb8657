package repositories

import "errors"

var (
	// ErrNotFound is returned when the requested row does not exist
	ErrNotFound = errors.New("not found")

	// ErrNotAuthorized is returned when the caller holds no grant for the operation
	ErrNotAuthorized = errors.New("not authorized")
)
