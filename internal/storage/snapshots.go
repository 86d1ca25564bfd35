package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"billdash/internal/core"
)

// Snapshot sync states mirror the pending/synced/error lifecycle used for
// the Sheets export queue.
const (
	SyncStatusPending = "pending"
	SyncStatusSynced  = "synced"
	SyncStatusError   = "error"
)

// billStatusRecord is the stored form of a bill status. Older snapshots only
// carried the paid flag; payments_paid is resolved from it on load so the
// rest of the system never sees the legacy shape.
type billStatusRecord struct {
	Paid         bool       `json:"paid"`
	PaidDate     *core.Date `json:"paid_date,omitempty"`
	PaymentsPaid *int       `json:"payments_paid,omitempty"`
}

func marshalBillStatuses(statuses map[int64]core.BillStatus) (string, error) {
	records := make(map[int64]billStatusRecord, len(statuses))
	for id, s := range statuses {
		paid := s.PaymentsPaid
		records[id] = billStatusRecord{
			Paid:         s.Paid,
			PaidDate:     s.PaidDate,
			PaymentsPaid: &paid,
		}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("marshal bill statuses: %w", err)
	}
	return string(data), nil
}

func unmarshalBillStatuses(data string) (map[int64]core.BillStatus, error) {
	if data == "" {
		return map[int64]core.BillStatus{}, nil
	}
	var records map[int64]billStatusRecord
	if err := json.Unmarshal([]byte(data), &records); err != nil {
		return nil, fmt.Errorf("unmarshal bill statuses: %w", err)
	}
	statuses := make(map[int64]core.BillStatus, len(records))
	for id, rec := range records {
		s := core.BillStatus{Paid: rec.Paid, PaidDate: rec.PaidDate}
		if rec.PaymentsPaid != nil {
			s.PaymentsPaid = *rec.PaymentsPaid
		} else if rec.Paid {
			s.PaymentsPaid = 1
		}
		statuses[id] = s
	}
	return statuses, nil
}

const snapshotColumns = `id, month_year, account_balances, bill_statuses,
	total_available_cents, bills_remaining_cents, cash_available_cents,
	cash_per_week, spending_per_day, notes, created_at, updated_at`

func scanSnapshot(scan func(dest ...any) error) (core.MonthlySnapshot, error) {
	var s core.MonthlySnapshot
	var balancesJSON, statusesJSON string
	var perWeek, perDay sql.NullFloat64
	var createdAt, updatedAt sql.NullTime

	err := scan(&s.ID, &s.MonthYear, &balancesJSON, &statusesJSON,
		&s.CashFlow.TotalAvailable.Cents, &s.CashFlow.BillsRemaining.Cents,
		&s.CashFlow.CashAvailable.Cents, &perWeek, &perDay, &s.Notes,
		&createdAt, &updatedAt)
	if err != nil {
		return core.MonthlySnapshot{}, err
	}

	s.AccountBalances, err = unmarshalBalances(balancesJSON)
	if err != nil {
		return core.MonthlySnapshot{}, err
	}
	s.BillStatuses, err = unmarshalBillStatuses(statusesJSON)
	if err != nil {
		return core.MonthlySnapshot{}, err
	}
	if perWeek.Valid {
		v := perWeek.Float64
		s.CashFlow.CashPerWeek = &v
	}
	if perDay.Valid {
		v := perDay.Float64
		s.CashFlow.SpendingPerDay = &v
	}
	s.CreatedAt = createdAt.Time
	s.UpdatedAt = updatedAt.Time
	return s, nil
}

// SaveMonthlySnapshot inserts a snapshot, overwriting any previous snapshot
// for the same month. Overwriting resets the sync state to pending.
func (r *SQLiteRepository) SaveMonthlySnapshot(ctx context.Context, s core.MonthlySnapshot) (int64, error) {
	balancesJSON, err := marshalBalances(s.AccountBalances)
	if err != nil {
		return 0, err
	}
	statusesJSON, err := marshalBillStatuses(s.BillStatuses)
	if err != nil {
		return 0, err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO monthly_snapshots (month_year, account_balances, bill_statuses,
			total_available_cents, bills_remaining_cents, cash_available_cents,
			cash_per_week, spending_per_day, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (month_year) DO UPDATE SET
			account_balances = excluded.account_balances,
			bill_statuses = excluded.bill_statuses,
			total_available_cents = excluded.total_available_cents,
			bills_remaining_cents = excluded.bills_remaining_cents,
			cash_available_cents = excluded.cash_available_cents,
			cash_per_week = excluded.cash_per_week,
			spending_per_day = excluded.spending_per_day,
			notes = excluded.notes,
			sync_status = 'pending',
			synced_at = NULL,
			updated_at = CURRENT_TIMESTAMP`,
		s.MonthYear, balancesJSON, statusesJSON,
		s.CashFlow.TotalAvailable.Cents, s.CashFlow.BillsRemaining.Cents,
		s.CashFlow.CashAvailable.Cents, nullableFloat(s.CashFlow.CashPerWeek),
		nullableFloat(s.CashFlow.SpendingPerDay), s.Notes)
	if err != nil {
		return 0, fmt.Errorf("save monthly snapshot: %w", err)
	}

	// LastInsertId is unreliable on conflict updates, so read the id back.
	var id int64
	err = r.db.QueryRowContext(ctx,
		`SELECT id FROM monthly_snapshots WHERE month_year = ?`, s.MonthYear).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("read snapshot id: %w", err)
	}

	slog.InfoContext(ctx, "Monthly snapshot saved", "id", id, "month_year", s.MonthYear)
	return id, nil
}

func (r *SQLiteRepository) GetMonthlySnapshot(ctx context.Context, monthYear string) (*core.MonthlySnapshot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM monthly_snapshots WHERE month_year = ?`, monthYear)
	s, err := scanSnapshot(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get monthly snapshot: %w", err)
	}
	return &s, nil
}

func (r *SQLiteRepository) GetMonthlySnapshotByID(ctx context.Context, id int64) (*core.MonthlySnapshot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM monthly_snapshots WHERE id = ?`, id)
	s, err := scanSnapshot(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get monthly snapshot by id: %w", err)
	}
	return &s, nil
}

func (r *SQLiteRepository) ListMonthlySnapshots(ctx context.Context) ([]core.MonthlySnapshot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+snapshotColumns+` FROM monthly_snapshots ORDER BY month_year DESC`)
	if err != nil {
		return nil, fmt.Errorf("list monthly snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []core.MonthlySnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan monthly snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}

// PendingSyncSnapshot is the minimal data carried on the sync queue.
type PendingSyncSnapshot struct {
	ID        int64
	MonthYear string
	UpdatedAt time.Time
}

// GetPendingSyncSnapshots returns snapshots waiting for export, oldest first.
func (r *SQLiteRepository) GetPendingSyncSnapshots(ctx context.Context, limit int) ([]PendingSyncSnapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, month_year, updated_at
		FROM monthly_snapshots
		WHERE sync_status = 'pending'
		ORDER BY updated_at ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync snapshots: %w", err)
	}
	defer rows.Close()

	var pending []PendingSyncSnapshot
	for rows.Next() {
		var p PendingSyncSnapshot
		var updatedAt sql.NullTime
		if err := rows.Scan(&p.ID, &p.MonthYear, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan pending sync snapshot: %w", err)
		}
		p.UpdatedAt = updatedAt.Time
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// MarkSynced marks a snapshot as successfully exported.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE monthly_snapshots
		SET sync_status = 'synced', synced_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark snapshot synced: %w", err)
	}
	if err := rowsAffectedOrNotFound(res); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Snapshot marked as synced", "id", id)
	return nil
}

// MarkSyncError marks a snapshot as having failed export.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE monthly_snapshots
		SET sync_status = 'error', updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark snapshot sync error: %w", err)
	}
	if err := rowsAffectedOrNotFound(res); err != nil {
		return err
	}

	slog.WarnContext(ctx, "Snapshot marked with sync error", "id", id)
	return nil
}

func (r *SQLiteRepository) DeleteMonthlySnapshot(ctx context.Context, monthYear string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM monthly_snapshots WHERE month_year = ?`, monthYear)
	if err != nil {
		return fmt.Errorf("delete monthly snapshot: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}
