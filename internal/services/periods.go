package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"billdash/internal/core"
	"billdash/internal/storage"
)

type PeriodService struct {
	storage *storage.SQLiteRepository
}

func NewPeriodService(storage *storage.SQLiteRepository) *PeriodService {
	return &PeriodService{storage: storage}
}

func (s *PeriodService) List(ctx context.Context) ([]core.BillingPeriod, error) {
	periods, err := s.storage.ListPeriods(ctx)
	if err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	return periods, nil
}

func (s *PeriodService) Get(ctx context.Context, id int64) (*core.BillingPeriod, error) {
	return s.storage.GetPeriod(ctx, id)
}

func (s *PeriodService) Create(ctx context.Context, p core.BillingPeriod) (int64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	id, err := s.storage.CreatePeriod(ctx, p)
	if err != nil {
		return 0, fmt.Errorf("create period: %w", err)
	}
	return id, nil
}

func (s *PeriodService) Update(ctx context.Context, p core.BillingPeriod) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return s.storage.UpdatePeriod(ctx, p)
}

func (s *PeriodService) Delete(ctx context.Context, id int64) error {
	return s.storage.DeletePeriod(ctx, id)
}

// Activate points the dashboard at a different billing period and resets
// payment progress, since paid counts are scoped to one window. Re-activating
// the already-active period is a no-op.
func (s *PeriodService) Activate(ctx context.Context, id int64) error {
	current, err := s.storage.ActivePeriod(ctx)
	if err == nil && current.ID == id {
		slog.InfoContext(ctx, "Period already active", "period_id", id)
		return nil
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("load active period: %w", err)
	}

	if err := s.storage.SetActivePeriod(ctx, id); err != nil {
		return err
	}
	if err := s.storage.ClearPaymentProgress(ctx); err != nil {
		return fmt.Errorf("reset payment progress: %w", err)
	}

	slog.InfoContext(ctx, "Billing period activated", "period_id", id)
	return nil
}

// DuplicateFromSnapshot creates a new period linked to an existing monthly
// snapshot, so the window's starting state can be restored later.
func (s *PeriodService) DuplicateFromSnapshot(ctx context.Context, name string, start, end core.Date, monthYear string) (int64, error) {
	snap, err := s.storage.GetMonthlySnapshot(ctx, monthYear)
	if err != nil {
		return 0, fmt.Errorf("load snapshot %s: %w", monthYear, err)
	}

	period := core.BillingPeriod{
		Name:       name,
		StartDate:  start,
		EndDate:    end,
		SnapshotID: &snap.ID,
		Notes:      fmt.Sprintf("duplicated from snapshot %s", monthYear),
	}
	return s.Create(ctx, period)
}
