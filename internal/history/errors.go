package history

import "errors"

var (
	// ErrInvalidRecord is returned when a record lacks its uri, kind or state.
	ErrInvalidRecord = errors.New("history: invalid record")

	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("history: record not found")
)
