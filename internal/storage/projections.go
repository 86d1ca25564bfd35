package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"billdash/internal/core"
)

// Account balances are stored as a JSON object of account id to cents.

func marshalBalances(balances map[int64]core.Money) (string, error) {
	cents := make(map[int64]int64, len(balances))
	for id, m := range balances {
		cents[id] = m.Cents
	}
	data, err := json.Marshal(cents)
	if err != nil {
		return "", fmt.Errorf("marshal balances: %w", err)
	}
	return string(data), nil
}

func unmarshalBalances(data string) (map[int64]core.Money, error) {
	if data == "" {
		return map[int64]core.Money{}, nil
	}
	var cents map[int64]int64
	if err := json.Unmarshal([]byte(data), &cents); err != nil {
		return nil, fmt.Errorf("unmarshal balances: %w", err)
	}
	balances := make(map[int64]core.Money, len(cents))
	for id, c := range cents {
		balances[id] = core.Money{Cents: c}
	}
	return balances, nil
}

const projectionColumns = `id, entry_date, entry_time, days_remaining, account_balances,
	bills_remaining_cents, total_available_cents, cash_available_cents,
	cash_per_week, spending_per_day, notes, created_at, updated_at`

func scanProjectionEntry(scan func(dest ...any) error) (core.ProjectionEntry, error) {
	var e core.ProjectionEntry
	var entryDate, balancesJSON string
	var perWeek, perDay sql.NullFloat64
	var createdAt, updatedAt sql.NullTime

	err := scan(&e.ID, &entryDate, &e.EntryTime, &e.DaysRemaining, &balancesJSON,
		&e.BillsRemaining.Cents, &e.TotalAvailable.Cents, &e.CashAvailable.Cents,
		&perWeek, &perDay, &e.Notes, &createdAt, &updatedAt)
	if err != nil {
		return core.ProjectionEntry{}, err
	}

	e.Date = parseStoredDate(entryDate)
	e.AccountBalances, err = unmarshalBalances(balancesJSON)
	if err != nil {
		return core.ProjectionEntry{}, err
	}
	if perWeek.Valid {
		v := perWeek.Float64
		e.CashPerWeek = &v
	}
	if perDay.Valid {
		v := perDay.Float64
		e.SpendingPerDay = &v
	}
	e.CreatedAt = createdAt.Time
	e.UpdatedAt = updatedAt.Time
	return e, nil
}

// ListProjectionEntries returns all stored entries, newest date first. The
// caller is expected to run them through the reconciler before display.
func (r *SQLiteRepository) ListProjectionEntries(ctx context.Context) ([]core.ProjectionEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+projectionColumns+` FROM projection_entries
		ORDER BY entry_date DESC, days_remaining ASC, entry_time DESC`)
	if err != nil {
		return nil, fmt.Errorf("list projection entries: %w", err)
	}
	defer rows.Close()

	var entries []core.ProjectionEntry
	for rows.Next() {
		e, err := scanProjectionEntry(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan projection entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *SQLiteRepository) GetProjectionEntry(ctx context.Context, id int64) (*core.ProjectionEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+projectionColumns+` FROM projection_entries WHERE id = ?`, id)
	e, err := scanProjectionEntry(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get projection entry: %w", err)
	}
	return &e, nil
}

// UpsertProjectionEntry inserts an entry, replacing any existing row with the
// same natural key (date, days remaining, entry time).
func (r *SQLiteRepository) UpsertProjectionEntry(ctx context.Context, e core.ProjectionEntry) (int64, error) {
	entryTime := e.EntryTime
	if entryTime == "" {
		entryTime = core.MidnightEntryTime
	}
	balancesJSON, err := marshalBalances(e.AccountBalances)
	if err != nil {
		return 0, err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO projection_entries (entry_date, entry_time, days_remaining,
			account_balances, bills_remaining_cents, total_available_cents,
			cash_available_cents, cash_per_week, spending_per_day, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (entry_date, days_remaining, entry_time) DO UPDATE SET
			account_balances = excluded.account_balances,
			bills_remaining_cents = excluded.bills_remaining_cents,
			total_available_cents = excluded.total_available_cents,
			cash_available_cents = excluded.cash_available_cents,
			cash_per_week = excluded.cash_per_week,
			spending_per_day = excluded.spending_per_day,
			notes = excluded.notes,
			updated_at = CURRENT_TIMESTAMP`,
		e.Date.String(), entryTime, e.DaysRemaining, balancesJSON,
		e.BillsRemaining.Cents, e.TotalAvailable.Cents, e.CashAvailable.Cents,
		nullableFloat(e.CashPerWeek), nullableFloat(e.SpendingPerDay), e.Notes)
	if err != nil {
		return 0, fmt.Errorf("upsert projection entry: %w", err)
	}

	// LastInsertId is unreliable on conflict updates, so read the id back.
	var id int64
	err = r.db.QueryRowContext(ctx,
		`SELECT id FROM projection_entries
		WHERE entry_date = ? AND days_remaining = ? AND entry_time = ?`,
		e.Date.String(), e.DaysRemaining, entryTime).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("read projection entry id: %w", err)
	}

	slog.InfoContext(ctx, "Projection entry saved",
		"id", id,
		"entry_date", e.Date.String(),
		"days_remaining", e.DaysRemaining,
		"entry_time", entryTime)
	return id, nil
}

// HasProjectionEntryForDate reports whether any entry exists for the date.
func (r *SQLiteRepository) HasProjectionEntryForDate(ctx context.Context, d core.Date) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM projection_entries WHERE entry_date = ?`, d.String()).
		Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count projection entries for date: %w", err)
	}
	return count > 0, nil
}

func (r *SQLiteRepository) DeleteProjectionEntry(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projection_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete projection entry: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}

func nullableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
