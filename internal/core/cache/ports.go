package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned when no snapshot is cached or the entry expired.
var ErrCacheMiss = errors.New("snapshot not cached")

// SnapshotCache holds the most recent portal snapshot so an on-demand run
// can reuse it instead of logging into the portal again. This is a port
// following hexagonal architecture; Redis is the only adapter today.
type SnapshotCache interface {
	// GetSnapshot returns the cached snapshot payload.
	// Returns ErrCacheMiss when nothing usable is cached.
	GetSnapshot(ctx context.Context) ([]byte, error)

	// SetSnapshot stores the snapshot payload with the given TTL.
	// TTL of 0 means no expiration.
	SetSnapshot(ctx context.Context, payload []byte, ttl time.Duration) error

	// Ping checks if the cache backend is reachable.
	Ping(ctx context.Context) error

	// Close closes the cache connection.
	Close() error
}
