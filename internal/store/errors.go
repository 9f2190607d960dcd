package store

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNotFound covers both a missing row and a row owned by someone else.
// Callers cannot tell the two apart.
var ErrNotFound = errors.New("not found")

// ValidationError rejects input before anything is written.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConflictError reports a uniqueness violation on Field.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already exists", e.Field)
}

// StorageError wraps a failed database call. The wrapped error carries a
// stack trace for server-side logs and must not be shown to clients.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(err error, op string) error {
	return &StorageError{Op: op, Err: errors.WithStack(err)}
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
