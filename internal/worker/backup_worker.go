// Package worker maintains snapshot backups of trips. The API server
// writes locally and publishes a change event; this consumer copies the
// current state into the backup table so a restore point always exists.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tripledger/internal/amqp"
	"tripledger/internal/core"
)

// BackupStore is the storage surface the worker needs.
type BackupStore interface {
	GetTrip(ctx context.Context, id string) (core.Trip, error)
	SaveBackup(ctx context.Context, t core.Trip) error
	DeleteBackup(ctx context.Context, tripID string) error
}

type BackupWorker struct {
	store BackupStore
}

func NewBackupWorker(store BackupStore) *BackupWorker {
	return &BackupWorker{store: store}
}

// HandleTripEvent processes a single trip-changed message. An upsert
// snapshots the current trip state; a delete removes the backup. A trip
// that vanished between publish and consume counts as deleted.
func (w *BackupWorker) HandleTripEvent(ctx context.Context, msg *amqp.TripEventMessage) error {
	slog.InfoContext(ctx, "Processing trip event",
		"trip_id", msg.TripID,
		"event", msg.Event)

	switch msg.Event {
	case amqp.EventTripDeleted:
		if err := w.store.DeleteBackup(ctx, msg.TripID); err != nil {
			return fmt.Errorf("delete backup: %w", err)
		}
		return nil

	case amqp.EventTripUpserted:
		trip, err := w.store.GetTrip(ctx, msg.TripID)
		if errors.Is(err, core.ErrTripNotFound) {
			slog.WarnContext(ctx, "Trip gone before backup, removing snapshot", "trip_id", msg.TripID)
			if err := w.store.DeleteBackup(ctx, msg.TripID); err != nil {
				return fmt.Errorf("delete stale backup: %w", err)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("get trip: %w", err)
		}
		if err := w.store.SaveBackup(ctx, trip); err != nil {
			return fmt.Errorf("save backup: %w", err)
		}
		return nil

	default:
		slog.WarnContext(ctx, "Unknown trip event, ignoring", "event", msg.Event)
		return nil
	}
}
