package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"billdash/internal/core"
)

const activePeriodKey = "active_period_id"

const periodColumns = `id, name, start_date, end_date, snapshot_id, notes`

func scanPeriod(scan func(dest ...any) error) (core.BillingPeriod, error) {
	var p core.BillingPeriod
	var startDate, endDate string
	var snapshotID sql.NullInt64

	err := scan(&p.ID, &p.Name, &startDate, &endDate, &snapshotID, &p.Notes)
	if err != nil {
		return core.BillingPeriod{}, err
	}

	p.StartDate = parseStoredDate(startDate)
	p.EndDate = parseStoredDate(endDate)
	if snapshotID.Valid {
		id := snapshotID.Int64
		p.SnapshotID = &id
	}
	return p, nil
}

func (r *SQLiteRepository) ListPeriods(ctx context.Context) ([]core.BillingPeriod, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+periodColumns+` FROM billing_periods ORDER BY start_date DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list billing periods: %w", err)
	}
	defer rows.Close()

	var periods []core.BillingPeriod
	for rows.Next() {
		p, err := scanPeriod(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan billing period: %w", err)
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

func (r *SQLiteRepository) GetPeriod(ctx context.Context, id int64) (*core.BillingPeriod, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+periodColumns+` FROM billing_periods WHERE id = ?`, id)
	p, err := scanPeriod(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get billing period: %w", err)
	}
	return &p, nil
}

func (r *SQLiteRepository) CreatePeriod(ctx context.Context, p core.BillingPeriod) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO billing_periods (name, start_date, end_date, snapshot_id, notes)
		VALUES (?, ?, ?, ?, ?)`,
		p.Name, p.StartDate.String(), p.EndDate.String(),
		nullableInt64(p.SnapshotID), p.Notes)
	if err != nil {
		return 0, fmt.Errorf("create billing period: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("billing period insert id: %w", err)
	}

	slog.InfoContext(ctx, "Billing period created",
		"id", id,
		"name", p.Name,
		"window_start", p.StartDate.String(),
		"window_end", p.EndDate.String())
	return id, nil
}

func (r *SQLiteRepository) UpdatePeriod(ctx context.Context, p core.BillingPeriod) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE billing_periods
		SET name = ?, start_date = ?, end_date = ?, snapshot_id = ?, notes = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		p.Name, p.StartDate.String(), p.EndDate.String(),
		nullableInt64(p.SnapshotID), p.Notes, p.ID)
	if err != nil {
		return fmt.Errorf("update billing period: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}

func (r *SQLiteRepository) DeletePeriod(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM billing_periods WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete billing period: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}

// ActivePeriod returns the billing period the dashboard currently points at,
// or ErrNotFound when no period has been activated yet.
func (r *SQLiteRepository) ActivePeriod(ctx context.Context) (*core.BillingPeriod, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM app_state WHERE key = ?`, activePeriodKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read active period pointer: %w", err)
	}

	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse active period id %q: %w", value, err)
	}
	return r.GetPeriod(ctx, id)
}

// SetActivePeriod re-points the dashboard at a period. The period must exist.
func (r *SQLiteRepository) SetActivePeriod(ctx context.Context, id int64) error {
	if _, err := r.GetPeriod(ctx, id); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO app_state (key, value)
		VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP`,
		activePeriodKey, strconv.FormatInt(id, 10))
	if err != nil {
		return fmt.Errorf("set active period: %w", err)
	}

	slog.InfoContext(ctx, "Active billing period changed", "period_id", id)
	return nil
}
