// Package errors provides the base error kinds shared by every fieldcrypt package.
// Component packages wrap these sentinels with their own context so callers can
// test for either the specific kind or the generic category.
package errors

import (
	"errors"
	"fmt"
)

// Base error kinds.
var (
	// ErrNotFound indicates the requested record or secret does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a write collided with existing data.
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates the caller supplied data that cannot be processed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnavailable indicates a remote dependency could not serve the request.
	ErrUnavailable = errors.New("unavailable")
)

// New creates a new error with the given message.
func New(message string) error {
	return errors.New(message)
}

// Wrap wraps an error with additional context while preserving the error chain.
// Returns nil when err is nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join returns an error that wraps the given errors, discarding nils.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
