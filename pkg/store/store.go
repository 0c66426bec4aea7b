// Package store provides keyed persistence for tracked events. Two backends
// exist: an in-memory map used for dry-run and tests, and a Postgres table
// used in production. The tracker owns all invariants; the store is plain
// keyed storage plus a dedup-key scan.
package store

import (
	"context"

	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/domain"
)

// Store is the persistence contract the tracker depends on.
//
// Backend I/O failures are reported wrapped in domain.ErrStoreUnavailable.
// FindActiveByKey returns (nil, nil) on a clean miss; a store holding more
// than one active record for the same key is a prior-bug inconsistency, and
// implementations must return the record with the lowest internal id and
// log the anomaly rather than fail.
type Store interface {
	// Put inserts or overwrites the record at its internal id. Id freshness
	// is the caller's responsibility.
	Put(ctx context.Context, record domain.TrackedEvent) error

	// Get returns the record with the given internal id, or
	// domain.ErrNotFound.
	Get(ctx context.Context, internalID string) (domain.TrackedEvent, error)

	// FindActiveByKey returns the active record matching the dedup key, or
	// nil when none exists.
	FindActiveByKey(ctx context.Context, key domain.EventKey) (*domain.TrackedEvent, error)

	// ListActive returns all active records in insertion (id) order.
	ListActive(ctx context.Context) ([]domain.TrackedEvent, error)

	// MaxID returns the highest numeric internal id currently stored, or 0
	// when the store is empty. Used to continue id allocation across
	// restarts.
	MaxID(ctx context.Context) (int, error)
}
