package models

import "errors"

var (
	// ErrNotFound is returned for an unknown tournament, competitor or position.
	ErrNotFound = errors.New("not found")

	// ErrInvalidAction is returned when an action is not legal in the current state.
	ErrInvalidAction = errors.New("invalid action")

	// ErrWriteConflict is returned when a concurrent write was detected. Retryable.
	ErrWriteConflict = errors.New("write conflict")
)
