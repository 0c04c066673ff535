package adapter

import (
	"context"
	"fmt"
	"time"

	"cargo-watcher/internal/core/logger"
	"cargo-watcher/internal/features/tracking/domain"
	"cargo-watcher/internal/features/tracking/ports"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerSource wraps a SnapshotSource in a circuit breaker so a flapping
// portal is skipped for a cooldown window instead of being hammered every
// cycle. An open breaker fails the cycle immediately; the engine already
// treats that as "retry next trigger".
type BreakerSource struct {
	inner   ports.SnapshotSource
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerSource wraps source. The breaker opens after three consecutive
// fetch failures and probes again after the cooldown.
func NewBreakerSource(source ports.SnapshotSource, cooldown time.Duration) *BreakerSource {
	log := logger.Get()

	settings := gobreaker.Settings{
		Name:    "portal-fetch",
		Timeout: cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Portal breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &BreakerSource{
		inner:   source,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Fetch delegates to the wrapped source through the breaker.
func (b *BreakerSource) Fetch(ctx context.Context) ([]domain.TrackingRecord, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.inner.Fetch(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("portal fetch rejected: %w", err)
	}

	records, _ := result.([]domain.TrackingRecord)
	return records, nil
}
