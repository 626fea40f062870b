// Package common defines shared constants, sentinel errors and random helpers
// used across the skillauth packages. Callers should use errors.Is to match
// the error values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound          = errors.New("not found")
	ErrorAlreadyExists     = errors.New("already exists")
	ErrPersistenceConflict = errors.New("persistence conflict")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrRetryable      = errors.New("retryable failure")

	// Validation errors.
	ErrorEmptyIdentity = errors.New("empty identity")
	ErrorEmptyPassword = errors.New("empty password")

	// Access token errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
