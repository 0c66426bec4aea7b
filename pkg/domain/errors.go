package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the tracker contract. Callers match with errors.Is.
var (
	// ErrInvalidEvent indicates a malformed normalized event (missing
	// platform or event name).
	ErrInvalidEvent = errors.New("invalid event")

	// ErrNotFound indicates a lookup miss on an internal id.
	ErrNotFound = errors.New("event not found")

	// ErrStoreUnavailable indicates a backend I/O failure. The tracker never
	// swallows it; the polling layer decides whether to skip the cycle.
	ErrStoreUnavailable = errors.New("event store unavailable")
)

// NewInvalidEventError wraps ErrInvalidEvent with a field-level reason.
func NewInvalidEventError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidEvent, reason)
}

// StoreError wraps a backend failure so it matches ErrStoreUnavailable while
// preserving the underlying cause.
func StoreError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
