// Package core defines the error taxonomy shared by the service layers.
package core

import (
	"errors"
	"fmt"
)

var (
	ErrLengthMismatch    = errors.New("parallel arrays differ in length")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrDuplicateID       = errors.New("duplicate id in batch")
	ErrInvalidID         = errors.New("invalid id")
	ErrMissingFilter     = errors.New("missing user_id filter")
)

// ValidationError reports a malformed request: wrong shapes, mismatched
// lengths or dimensions, invalid ids. It is never partially applied and maps
// to a 4xx response at the gateway.
type ValidationError struct {
	Op  string
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Invalid wraps err as a ValidationError for the given operation.
func Invalid(op string, err error) *ValidationError {
	return &ValidationError{Op: op, Err: err}
}

// Invalidf builds a ValidationError from a format string.
func Invalidf(op, format string, args ...any) *ValidationError {
	return &ValidationError{Op: op, Err: fmt.Errorf(format, args...)}
}

// BackendError reports a storage or embedding-provider failure. It maps to
// a 5xx response at the gateway and is not retried by the service.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// Unavailable wraps err as a BackendError for the given operation.
func Unavailable(op string, err error) *BackendError {
	return &BackendError{Op: op, Err: err}
}
