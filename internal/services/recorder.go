package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"billdash/internal/core"
	"billdash/internal/storage"
)

// ProjectionRecorder captures one projection entry per day so the history
// matcher has real data points to work from.
type ProjectionRecorder struct {
	storage     *storage.SQLiteRepository
	projections *ProjectionService
}

func NewProjectionRecorder(storage *storage.SQLiteRepository, projections *ProjectionService) *ProjectionRecorder {
	return &ProjectionRecorder{
		storage:     storage,
		projections: projections,
	}
}

// RecordDaily captures today's projection entry unless one already exists for
// the date. Returns whether an entry was recorded.
func (r *ProjectionRecorder) RecordDaily(ctx context.Context, now time.Time) (bool, error) {
	now = now.UTC()
	today := core.NewDate(now.Year(), int(now.Month()), now.Day())

	exists, err := r.storage.HasProjectionEntryForDate(ctx, today)
	if err != nil {
		return false, fmt.Errorf("check existing entry: %w", err)
	}
	if exists {
		slog.DebugContext(ctx, "Projection entry already recorded today",
			"entry_date", today.String())
		return false, nil
	}

	entry, err := r.projections.liveEntry(ctx, today, now.Format("15:04:05"))
	if err != nil {
		return false, err
	}

	if _, err := r.projections.Record(ctx, *entry); err != nil {
		return false, fmt.Errorf("record daily entry: %w", err)
	}

	slog.InfoContext(ctx, "Recorded daily projection entry",
		"entry_date", today.String(),
		"days_remaining", entry.DaysRemaining,
		"cash_available_cents", entry.CashAvailable.Cents)
	return true, nil
}

// Run records immediately, then on every tick until the context is canceled.
func (r *ProjectionRecorder) Run(ctx context.Context, interval time.Duration) error {
	if _, err := r.RecordDaily(ctx, time.Now()); err != nil {
		slog.ErrorContext(ctx, "Initial daily recording failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping projection recorder", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.RecordDaily(ctx, time.Now()); err != nil {
				slog.ErrorContext(ctx, "Daily recording failed", "error", err)
			}
		}
	}
}
