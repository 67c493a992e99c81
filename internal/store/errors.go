package store

import "errors"

var (
	// ErrUnauthorized is returned for writes attempted with no established owner.
	ErrUnauthorized = errors.New("no authenticated owner")
	// ErrNotFound is returned when an id is absent from (or not owned by)
	// the owner's collection.
	ErrNotFound = errors.New("invoice not found")
)

// PersistenceError wraps a failed storage read/write.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return "invoice store: " + e.Op + ": " + e.Err.Error() }
func (e *PersistenceError) Unwrap() error { return e.Err }
