package repositories

import (
	"errors"
	"fmt"
)

// ErrCartRecordCorrupt marks a stored cart payload that could not be decoded.
// The cart service treats it as "no saved cart" and starts from an empty state.
var ErrCartRecordCorrupt = errors.New("repositories: cart record corrupt")

// Error is a plain RepositoryError implementation for non-Firestore backends.
type Error struct {
	Op          string
	Err         error
	NotFound    bool
	Conflict    bool
	Unavailable bool
}

// NewNotFound constructs a not-found categorised repository error.
func NewNotFound(op string, err error) *Error {
	return &Error{Op: op, Err: err, NotFound: true}
}

// NewConflict constructs a conflict categorised repository error.
func NewConflict(op string, err error) *Error {
	return &Error{Op: op, Err: err, Conflict: true}
}

// NewUnavailable constructs an unavailable categorised repository error.
func NewUnavailable(op string, err error) *Error {
	return &Error{Op: op, Err: err, Unavailable: true}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "repository error"
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsNotFound reports whether the error represents a missing record.
func (e *Error) IsNotFound() bool { return e != nil && e.NotFound }

// IsConflict reports whether the error represents a conflicting write.
func (e *Error) IsConflict() bool { return e != nil && e.Conflict }

// IsUnavailable reports whether the error represents a backend outage.
func (e *Error) IsUnavailable() bool { return e != nil && e.Unavailable }

func asRepositoryError(err error, target *RepositoryError) bool {
	return errors.As(err, target)
}
