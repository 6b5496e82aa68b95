package storage

import "errors"

// Storage errors for append-only stores.
var (
	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists. Append-only stores do not allow updates.
	ErrDuplicateKey = errors.New("duplicate key: append-only store does not allow updates")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnavailable is returned when the store connection cannot be established.
	ErrUnavailable = errors.New("store unavailable")

	// ErrReadUnsupported is returned when a write-only backend is queried.
	ErrReadUnsupported = errors.New("backend does not support reads")
)
