package store

import "errors"

var (
	// ErrNotFound is returned when the requested row doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write violates a uniqueness constraint
	ErrConflict = errors.New("conflict")

	// ErrInvalid is returned when a write is rejected by a check constraint
	// or fails validation before reaching the database
	ErrInvalid = errors.New("invalid")
)
