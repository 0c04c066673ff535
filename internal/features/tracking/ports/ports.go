package ports

import (
	"context"

	"cargo-watcher/internal/features/tracking/domain"
)

// SnapshotSource fetches the full set of tracking records for one cycle.
// This is a Secondary Port (Driven Port) implemented by the portal adapters.
type SnapshotSource interface {
	// Fetch returns the current snapshot of tracking records. A nil or empty
	// slice means there is nothing to reconcile this cycle. Authentication,
	// transport and parse failures are all returned as errors; the engine
	// treats them identically.
	Fetch(ctx context.Context) ([]domain.TrackingRecord, error)
}

// Notifier delivers a human-readable message for a detected transition.
// Delivery is best-effort: implementations return errors for logging only,
// the engine never retries within a cycle.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// ItemStore is the durable state keyed by tracking code.
type ItemStore interface {
	// Begin opens the unit of work for one reconciliation cycle. All
	// mutations go through the returned CycleTx and commit or roll back
	// together.
	Begin(ctx context.Context) (CycleTx, error)

	// ListItems returns persisted items for the command surface. When
	// arrivedOnly is true, only items with a set arrival date are returned.
	ListItems(ctx context.Context, arrivedOnly bool) ([]domain.Item, error)

	// Ping verifies the backing database is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}

// CycleTx is the per-cycle transaction over the item table. Commit applies
// every mutation atomically; Rollback discards them all. Rollback after
// Commit is a no-op, so callers may defer it.
type CycleTx interface {
	// Lookup returns the persisted arrival state for a code.
	// Returns ErrNotFound when the code is unknown.
	Lookup(ctx context.Context, track string) (arrivedAt string, err error)

	// InsertNew creates a row for a code. Inserting an already-known code is
	// a no-op, not an error.
	InsertNew(ctx context.Context, track, title, addedAt, arrivedAt string) error

	// MarkArrived sets the arrival date only if it is currently unset.
	// Returns true when this call won the transition, false when another
	// writer already set it.
	MarkArrived(ctx context.Context, track, arrivedAt string) (bool, error)

	Commit() error
	Rollback() error
}
