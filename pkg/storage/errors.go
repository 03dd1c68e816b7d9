package storage

import "errors"

// since these errors are allocated at init time, it is better to leave
// them as normal errors instead of errors that have stack encoded.
var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrCollision is returned when an insert hits a uniqueness
	// constraint: the edge or row already exists.
	ErrCollision = errors.New("item already exists")

	// ErrCapacityExceeded is returned when a post-insert re-count shows
	// a tournament over its participant limit; the insert has been
	// rolled back.
	ErrCapacityExceeded = errors.New("participant capacity exceeded")

	// ErrInvalidTransition is returned when a participation edge is not
	// in the status a state transition requires.
	ErrInvalidTransition = errors.New("invalid participation state transition")

	ErrCancelled = errors.New("request has been cancelled")
)
