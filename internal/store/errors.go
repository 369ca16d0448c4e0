package store

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by both adapters and the router. Adapters never
// surface backend-specific errors; every failure wraps exactly one of
// these sentinels so callers can match with errors.Is.
var (
	// ErrValidation marks bad input shape (missing required photo,
	// unknown unit). Recovered locally, never retried.
	ErrValidation = errors.New("invalid input")

	// ErrNotFound marks a missing lure or catch, including cloud rows
	// outside the caller's ownership scope.
	ErrNotFound = errors.New("record not found")

	// ErrTransient marks network failures and timeouts. The router may
	// downgrade it into a successful local write; it is never shown raw
	// to the end user.
	ErrTransient = errors.New("temporarily unavailable")

	// ErrAuth marks a missing or rejected session. No silent fallback:
	// the user's intent was to persist to the cloud.
	ErrAuth = errors.New("not authenticated")

	// ErrCorrupt marks an unparseable local slot. Recovery is an
	// explicit user-initiated reset, never automatic data loss.
	ErrCorrupt = errors.New("local storage corrupt")
)

// NotFound wraps ErrNotFound with the offending identifier.
func NotFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

// Transient wraps an underlying network or timeout error.
func Transient(op string, err error) error {
	return fmt.Errorf("%s: %v: %w", op, err, ErrTransient)
}

// Invalid wraps a validation failure.
func Invalid(err error) error {
	return fmt.Errorf("%v: %w", err, ErrValidation)
}
