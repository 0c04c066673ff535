package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"cargo-watcher/internal/core/cache"
	"cargo-watcher/internal/core/logger"
	"cargo-watcher/internal/features/tracking/domain"
	"cargo-watcher/internal/features/tracking/ports"

	"go.uber.org/zap"
)

// CachedSource serves a recent snapshot from the cache before going to the
// portal, so the run-now endpoint between scheduled cycles does not trigger
// a fresh portal login. Cache trouble degrades to a direct fetch; it never
// fails a cycle on its own.
type CachedSource struct {
	inner  ports.SnapshotSource
	cache  cache.SnapshotCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedSource wraps source with the given snapshot cache and TTL.
func NewCachedSource(source ports.SnapshotSource, snapshots cache.SnapshotCache, ttl time.Duration) *CachedSource {
	return &CachedSource{
		inner:  source,
		cache:  snapshots,
		ttl:    ttl,
		logger: logger.Get(),
	}
}

// Fetch returns the cached snapshot when fresh, otherwise fetches from the
// portal and refreshes the cache.
func (c *CachedSource) Fetch(ctx context.Context) ([]domain.TrackingRecord, error) {
	if payload, err := c.cache.GetSnapshot(ctx); err == nil {
		var records []domain.TrackingRecord
		if jsonErr := json.Unmarshal(payload, &records); jsonErr == nil {
			c.logger.Debug("Serving snapshot from cache", zap.Int("records", len(records)))
			return records, nil
		}
		// A corrupt entry falls through to a live fetch.
		c.logger.Warn("Discarding corrupt cached snapshot")
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		c.logger.Warn("Snapshot cache unavailable", zap.Error(err))
	}

	records, err := c.inner.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	if payload, jsonErr := json.Marshal(records); jsonErr == nil {
		if cacheErr := c.cache.SetSnapshot(ctx, payload, c.ttl); cacheErr != nil {
			c.logger.Warn("Failed to cache snapshot", zap.Error(cacheErr))
		}
	}

	return records, nil
}
