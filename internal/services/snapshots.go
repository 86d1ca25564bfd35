package services

import (
	"context"
	"fmt"
	"log/slog"

	"billdash/internal/amqp"
	"billdash/internal/core"
	"billdash/internal/storage"
)

// SnapshotService captures and restores monthly snapshots. Saves are local
// first; the Sheets export happens asynchronously via AMQP.
type SnapshotService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
	dashboard  *DashboardService
}

func NewSnapshotService(storage *storage.SQLiteRepository, amqpClient *amqp.Client, dashboard *DashboardService) *SnapshotService {
	return &SnapshotService{
		storage:    storage,
		amqpClient: amqpClient,
		dashboard:  dashboard,
	}
}

// SaveMonthly captures current balances, bill payment state, and cash flow
// under the month key. Saving the same month again overwrites the previous
// snapshot. The sync message is best-effort: the local save already won.
func (s *SnapshotService) SaveMonthly(ctx context.Context, monthYear, notes string, today core.Date) (*core.MonthlySnapshot, error) {
	snap := core.MonthlySnapshot{MonthYear: monthYear, Notes: notes}
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	view, err := s.dashboard.Dashboard(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("capture dashboard state: %w", err)
	}

	snap.AccountBalances = view.AccountBalances()
	snap.CashFlow = view.CashFlow
	snap.BillStatuses = make(map[int64]core.BillStatus, len(view.Bills))
	for _, row := range view.Bills {
		status := core.BillStatus{PaymentsPaid: row.PaymentsPaid}
		if row.TotalPayments > 0 && row.PaymentsPaid >= row.TotalPayments {
			status.Paid = true
			paidDate := today
			status.PaidDate = &paidDate
		}
		snap.BillStatuses[row.Bill.ID] = status
	}

	id, err := s.storage.SaveMonthlySnapshot(ctx, snap)
	if err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}
	snap.ID = id

	if err := s.publishSyncMessage(ctx, id, monthYear); err != nil {
		slog.ErrorContext(ctx, "Failed to publish snapshot sync message",
			"snapshot_id", id, "month_year", monthYear, "error", err)
		// The snapshot is saved locally; the pending sweep will pick it up.
	}

	return &snap, nil
}

func (s *SnapshotService) List(ctx context.Context) ([]core.MonthlySnapshot, error) {
	snapshots, err := s.storage.ListMonthlySnapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return snapshots, nil
}

func (s *SnapshotService) Get(ctx context.Context, monthYear string) (*core.MonthlySnapshot, error) {
	return s.storage.GetMonthlySnapshot(ctx, monthYear)
}

// Restore re-applies a snapshot's account balances and payment progress.
// Accounts or bills that no longer exist are skipped with a warning.
func (s *SnapshotService) Restore(ctx context.Context, monthYear string) error {
	snap, err := s.storage.GetMonthlySnapshot(ctx, monthYear)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	for accountID, balance := range snap.AccountBalances {
		if err := s.storage.UpdateAccountBalance(ctx, accountID, balance); err != nil {
			slog.WarnContext(ctx, "Skipping balance restore for missing account",
				"account_id", accountID, "error", err)
		}
	}

	for billID, status := range snap.BillStatuses {
		if err := s.storage.SetPaymentProgress(ctx, billID, status.PaymentsPaid); err != nil {
			slog.WarnContext(ctx, "Skipping progress restore for bill",
				"bill_id", billID, "error", err)
		}
	}

	slog.InfoContext(ctx, "Snapshot restored", "month_year", monthYear, "snapshot_id", snap.ID)
	return nil
}

func (s *SnapshotService) publishSyncMessage(ctx context.Context, snapshotID int64, monthYear string) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return nil
	}
	return s.amqpClient.PublishSnapshotSync(ctx, snapshotID, monthYear)
}

// Close closes both storage and AMQP connections.
func (s *SnapshotService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close snapshot service: %v", errs)
	}
	return nil
}
