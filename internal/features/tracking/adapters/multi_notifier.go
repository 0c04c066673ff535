package adapter

import (
	"context"
	"errors"

	"cargo-watcher/internal/core/logger"
	"cargo-watcher/internal/features/tracking/ports"

	"go.uber.org/zap"
)

// MultiNotifier fans one message out to several sinks. Each sink is tried
// regardless of earlier failures; delivery counts as successful when at
// least one sink accepted the message.
type MultiNotifier struct {
	sinks  []ports.Notifier
	logger *zap.Logger
}

// NewMultiNotifier creates a MultiNotifier over the given sinks.
func NewMultiNotifier(sinks ...ports.Notifier) *MultiNotifier {
	return &MultiNotifier{
		sinks:  sinks,
		logger: logger.Get(),
	}
}

// Notify delivers the message to every sink.
func (m *MultiNotifier) Notify(ctx context.Context, message string) error {
	if len(m.sinks) == 0 {
		return errors.New("no notification sinks configured")
	}

	var errs []error
	for _, sink := range m.sinks {
		if err := sink.Notify(ctx, message); err != nil {
			m.logger.Warn("Notification sink failed", zap.Error(err))
			errs = append(errs, err)
		}
	}

	if len(errs) == len(m.sinks) {
		return errors.Join(errs...)
	}
	return nil
}
