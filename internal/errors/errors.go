// Package errors provides standardized domain errors that express business intent
// rather than infrastructure details. These errors should be used by use cases
// and mapped to appropriate HTTP status codes by handlers.
package errors

import (
	"errors"
	"fmt"
)

// Standard domain errors that can be used across all domain modules.
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input data is invalid or fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates the request lacks valid authentication credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrStorage indicates a fault in the durable storage layer.
	ErrStorage = errors.New("storage failure")

	// ErrCrypto indicates an unrecoverable cryptographic failure (e.g. the
	// random source). It never signals a failed authentication check.
	ErrCrypto = errors.New("crypto failure")
)

// New creates a new error with the given message.
// This is a convenience wrapper around errors.New for consistency.
func New(message string) error {
	return errors.New(message)
}

// Wrap wraps an error with additional context while preserving the error chain.
// Use this to add context at each layer without losing the original error type.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// WrapWith attaches a sentinel to an underlying error while keeping both in the
// error chain. Repositories use it to tag driver errors with ErrStorage without
// discarding the original cause.
func WrapWith(sentinel, err error, message string) error {
	if err == nil {
		return fmt.Errorf("%s: %w", message, sentinel)
	}
	return fmt.Errorf("%s: %w: %w", message, sentinel, err)
}

// Is reports whether any error in err's tree matches target.
// This is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
// This is a convenience wrapper around errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}
