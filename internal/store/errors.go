package store

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a unique constraint rejects a write,
// e.g. registering an already-taken username.
var ErrDuplicate = errors.New("duplicate")
