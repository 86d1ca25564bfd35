// Package worker exports saved monthly snapshots to the configured sheet
// target, driven by AMQP messages with a periodic pending sweep as backup.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"billdash/internal/amqp"
	"billdash/internal/core"
	"billdash/internal/sheets"
	"billdash/internal/storage"
)

// SnapshotStore is the slice of the repository the worker needs.
type SnapshotStore interface {
	GetMonthlySnapshotByID(ctx context.Context, id int64) (*core.MonthlySnapshot, error)
	GetPendingSyncSnapshots(ctx context.Context, limit int) ([]storage.PendingSyncSnapshot, error)
	MarkSynced(ctx context.Context, id int64) error
	MarkSyncError(ctx context.Context, id int64) error
}

type SyncWorker struct {
	store     SnapshotStore
	exporter  sheets.SnapshotExporter
	batchSize int
}

func NewSyncWorker(store SnapshotStore, exporter sheets.SnapshotExporter, batchSize int) *SyncWorker {
	return &SyncWorker{
		store:     store,
		exporter:  exporter,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single snapshot sync message from AMQP.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.SnapshotSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"message_id", msg.MessageID,
		"snapshot_id", msg.SnapshotID,
		"month_year", msg.MonthYear)

	return w.exportSnapshot(ctx, msg.SnapshotID)
}

// ProcessPendingSnapshots exports any snapshots still marked pending. This is
// the backup path for lost AMQP messages. Exports run concurrently with a
// bounded degree of parallelism.
func (w *SyncWorker) ProcessPendingSnapshots(ctx context.Context) error {
	pending, err := w.store.GetPendingSyncSnapshots(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending snapshots: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending snapshots", "count", len(pending))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, p := range pending {
		g.Go(func() error {
			if err := w.exportSnapshot(gctx, p.ID); err != nil {
				slog.ErrorContext(gctx, "Failed to export pending snapshot",
					"snapshot_id", p.ID, "month_year", p.MonthYear, "error", err)
			}
			// Per-snapshot failures are logged and recorded, not fatal to
			// the sweep.
			return nil
		})
	}
	return g.Wait()
}

// StartupSyncCheck drains a larger pending backlog once at worker startup,
// recovering from downtime or missed messages.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.store.GetPendingSyncSnapshots(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending snapshots for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending snapshots found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending snapshots on startup, processing...",
		"count", len(pending))

	var successCount, errorCount atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, p := range pending {
		g.Go(func() error {
			if err := w.exportSnapshot(gctx, p.ID); err != nil {
				slog.ErrorContext(gctx, "Failed to export snapshot during startup",
					"snapshot_id", p.ID, "error", err)
				errorCount.Add(1)
				return nil
			}
			successCount.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", successCount.Load(),
		"errors", errorCount.Load())

	return nil
}

func (w *SyncWorker) exportSnapshot(ctx context.Context, id int64) error {
	snap, err := w.store.GetMonthlySnapshotByID(ctx, id)
	if err != nil {
		if markErr := w.store.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "snapshot_id", id, "error", markErr)
		}
		return fmt.Errorf("get snapshot from storage: %w", err)
	}

	ref, err := w.exporter.AppendSnapshot(ctx, *snap)
	if err != nil {
		if markErr := w.store.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "snapshot_id", id, "error", markErr)
		}
		return fmt.Errorf("append to export target: %w", err)
	}

	if err := w.store.MarkSynced(ctx, id); err != nil {
		// The export itself worked; record keeping failed.
		slog.ErrorContext(ctx, "Failed to mark as synced", "snapshot_id", id, "error", err)
	}

	slog.InfoContext(ctx, "Successfully exported snapshot",
		"snapshot_id", id,
		"month_year", snap.MonthYear,
		"row_ref", ref)

	return nil
}
