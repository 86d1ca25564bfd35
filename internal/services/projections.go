package services

import (
	"context"
	"fmt"
	"log/slog"

	"billdash/internal/core"
	"billdash/internal/projection"
	"billdash/internal/storage"
)

type ProjectionService struct {
	storage   *storage.SQLiteRepository
	dashboard *DashboardService
}

func NewProjectionService(storage *storage.SQLiteRepository, dashboard *DashboardService) *ProjectionService {
	return &ProjectionService{storage: storage, dashboard: dashboard}
}

// History returns the reconciled projection history: deduplicated on the
// natural key and sorted for display.
func (s *ProjectionService) History(ctx context.Context) ([]core.ProjectionEntry, error) {
	entries, err := s.storage.ListProjectionEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("load projection entries: %w", err)
	}
	return projection.Reconcile(entries), nil
}

// Current picks the history entry closest to the reference date and target
// days remaining. With no history at all, a live entry is computed from
// current dashboard state instead.
func (s *ProjectionService) Current(ctx context.Context, referenceDate core.Date, targetDays int) (*core.ProjectionEntry, error) {
	history, err := s.History(ctx)
	if err != nil {
		return nil, err
	}

	if matched := projection.Match(history, referenceDate, targetDays); matched != nil {
		return matched, nil
	}

	slog.InfoContext(ctx, "No projection history, computing live entry",
		"entry_date", referenceDate.String(),
		"days_remaining", targetDays)
	entry, err := s.liveEntry(ctx, referenceDate, core.MidnightEntryTime)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Record validates and upserts an entry; an existing entry with the same
// natural key is overwritten.
func (s *ProjectionService) Record(ctx context.Context, entry core.ProjectionEntry) (int64, error) {
	if err := entry.Validate(); err != nil {
		return 0, err
	}
	id, err := s.storage.UpsertProjectionEntry(ctx, entry)
	if err != nil {
		return 0, fmt.Errorf("record projection entry: %w", err)
	}
	return id, nil
}

// liveEntry derives a projection entry from current accounts, bills, and the
// active window. It is not persisted.
func (s *ProjectionService) liveEntry(ctx context.Context, referenceDate core.Date, entryTime string) (*core.ProjectionEntry, error) {
	view, err := s.dashboard.Dashboard(ctx, referenceDate)
	if err != nil {
		return nil, fmt.Errorf("compute live projection: %w", err)
	}

	return &core.ProjectionEntry{
		Date:            referenceDate,
		EntryTime:       entryTime,
		DaysRemaining:   view.DaysRemaining,
		AccountBalances: view.AccountBalances(),
		BillsRemaining:  view.CashFlow.BillsRemaining,
		TotalAvailable:  view.CashFlow.TotalAvailable,
		CashAvailable:   view.CashFlow.CashAvailable,
		CashPerWeek:     view.CashFlow.CashPerWeek,
		SpendingPerDay:  view.CashFlow.SpendingPerDay,
	}, nil
}
