package library

import (
	"errors"
	"fmt"
)

// ErrNotFound reports a missing user, session or collection. Deleting a
// book by an unknown id is deliberately a no-op and does not use it.
var ErrNotFound = errors.New("not found")

// ValidationError reports a record rejected at the Add boundary.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// CorruptDataError reports a book file that exists but cannot be parsed
// as an array of records. The load fails loudly instead of dropping data.
type CorruptDataError struct {
	Path string
	Err  error
}

func (e *CorruptDataError) Error() string {
	return fmt.Sprintf("corrupt book file %s: %v", e.Path, e.Err)
}

func (e *CorruptDataError) Unwrap() error { return e.Err }
