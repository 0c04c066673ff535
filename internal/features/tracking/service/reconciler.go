package service

import (
	"context"
	"errors"
	"fmt"

	"cargo-watcher/internal/core/logger"
	"cargo-watcher/internal/features/tracking/domain"
	"cargo-watcher/internal/features/tracking/ports"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Reconciler diffs a freshly fetched snapshot against the item store, commits
// the resulting state changes in one transaction and notifies exactly once
// per detected arrival.
type Reconciler struct {
	source   ports.SnapshotSource
	store    ports.ItemStore
	notifier ports.Notifier
	logger   *zap.Logger
}

// NewReconciler creates a Reconciler over the given source, store and sink.
func NewReconciler(source ports.SnapshotSource, store ports.ItemStore, notifier ports.Notifier) *Reconciler {
	return &Reconciler{
		source:   source,
		store:    store,
		notifier: notifier,
		logger:   logger.Get(),
	}
}

// pendingNotification is a message decided during the transaction and held
// back until the whole cycle commits. Never announce what a rollback could
// undo.
type pendingNotification struct {
	track   string
	message string
}

// RunCycle executes one reconciliation cycle. It returns an error for the
// caller to log; no error ever aborts more than the current cycle, and a
// panicking collaborator is contained the same way.
func (r *Reconciler) RunCycle(ctx context.Context) (err error) {
	cycleID := ulid.Make().String()
	log := r.logger.With(zap.String("cycle_id", cycleID))

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("cycle panicked: %v", rec)
			log.Error("Cycle panicked", zap.Any("panic", rec))
		}
	}()

	records, err := r.source.Fetch(ctx)
	if err != nil {
		log.Error("Snapshot fetch failed, skipping cycle", zap.Error(err))
		return fmt.Errorf("snapshot fetch failed: %w", err)
	}

	if len(records) == 0 {
		log.Info("Snapshot empty, nothing to reconcile")
		return nil
	}

	log.Info("Snapshot fetched", zap.Int("records", len(records)))

	pending, err := r.reconcile(ctx, log, records)
	if err != nil {
		return err
	}

	r.dispatch(ctx, log, pending)

	log.Info("Cycle complete",
		zap.Int("records", len(records)),
		zap.Int("notifications", len(pending)),
	)
	return nil
}

// reconcile applies the snapshot inside a single transaction and returns the
// notifications to send once the commit is durable.
func (r *Reconciler) reconcile(ctx context.Context, log *zap.Logger, records []domain.TrackingRecord) ([]pendingNotification, error) {
	tx, err := r.store.Begin(ctx)
	if err != nil {
		log.Error("Failed to begin cycle transaction", zap.Error(err))
		return nil, err
	}
	defer tx.Rollback()

	var pending []pendingNotification

	for _, rec := range records {
		if ok, reason := rec.Validate(); !ok {
			log.Warn("Skipping malformed record",
				zap.String("reason", reason),
				zap.String("barcode", rec.Barcode),
			)
			continue
		}

		notification, err := r.reconcileRecord(ctx, tx, rec)
		if err != nil {
			log.Error("Cycle aborted, rolling back",
				zap.String("track", rec.Barcode),
				zap.Error(err),
			)
			return nil, err
		}
		if notification != nil {
			pending = append(pending, *notification)
		}
	}

	if err := tx.Commit(); err != nil {
		log.Error("Cycle commit failed, rolling back", zap.Error(err))
		return nil, err
	}

	return pending, nil
}

// reconcileRecord applies the decision table for one record and returns the
// notification it earned, if any.
func (r *Reconciler) reconcileRecord(ctx context.Context, tx ports.CycleTx, rec domain.TrackingRecord) (*pendingNotification, error) {
	arrivalDate := rec.ArrivalDate()

	storedArrival, err := tx.Lookup(ctx, rec.Barcode)
	switch {
	case errors.Is(err, ports.ErrNotFound):
		// New code: insert with whatever arrival state the snapshot shows.
		if err := tx.InsertNew(ctx, rec.Barcode, rec.Title, rec.AddedAt, arrivalDate); err != nil {
			return nil, err
		}
		if arrivalDate == "" {
			return nil, nil
		}
		return &pendingNotification{
			track:   rec.Barcode,
			message: domain.NewArrivalMessage(rec.Barcode, rec.Title, arrivalDate),
		}, nil

	case err != nil:
		return nil, err

	case storedArrival != "":
		// Already arrived in a previous cycle; never re-notify.
		return nil, nil

	case arrivalDate == "":
		// Known code, still in transit.
		return nil, nil

	default:
		// The transition. A losing conditional update means a concurrent
		// writer already announced it; stay silent then.
		won, err := tx.MarkArrived(ctx, rec.Barcode, arrivalDate)
		if err != nil {
			return nil, err
		}
		if !won {
			return nil, nil
		}
		return &pendingNotification{
			track:   rec.Barcode,
			message: domain.TransitionMessage(rec.Barcode, rec.Title, arrivalDate),
		}, nil
	}
}

// dispatch delivers the committed cycle's notifications. Failures are logged
// and swallowed; a missed notification is an accepted limitation, retrying
// here would risk duplicates.
func (r *Reconciler) dispatch(ctx context.Context, log *zap.Logger, pending []pendingNotification) {
	for _, p := range pending {
		if err := r.notifier.Notify(ctx, p.message); err != nil {
			log.Error("Notification delivery failed",
				zap.String("track", p.track),
				zap.Error(err),
			)
			continue
		}
		log.Info("Notification sent", zap.String("track", p.track))
	}
}
