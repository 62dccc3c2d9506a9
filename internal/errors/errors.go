// Package errors provides the error taxonomy shared by every layer of the client core.
// Sentinel errors express the failure class; AppError carries the class together with
// the machine-readable code, HTTP status and contextual details of a concrete failure.
package errors

import (
	"errors"
	"fmt"
)

// Standard taxonomy sentinels. Every AppError unwraps to exactly one of them, so
// callers branch with errors.Is regardless of where the error was created.
var (
	// ErrNetwork indicates no connectivity or no response from the remote side.
	ErrNetwork = errors.New("network error")

	// ErrTimeout indicates a client-side timeout. It is retried like ErrNetwork.
	ErrTimeout = errors.New("request timed out")

	// ErrUnauthorized indicates the request lacks valid authentication credentials (401).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the authenticated user doesn't have permission (403).
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound indicates the requested resource does not exist (404).
	ErrNotFound = errors.New("not found")

	// ErrRateLimited indicates the remote side throttled the request (429).
	ErrRateLimited = errors.New("rate limited")

	// ErrServer indicates a 5xx response.
	ErrServer = errors.New("server error")

	// ErrInvalidInput indicates malformed input, including failed schema checks.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStorage indicates a persistence I/O failure.
	ErrStorage = errors.New("storage error")

	// ErrStorageParse indicates corrupt persisted JSON.
	ErrStorageParse = errors.New("storage parse error")

	// ErrUnknown is the fallback for unrecognized errors.
	ErrUnknown = errors.New("unknown error")
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

// Join is a convenience wrapper around errors.Join.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
