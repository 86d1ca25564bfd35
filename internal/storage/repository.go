// Package storage implements the SQLite persistence layer. Dates are stored
// as "YYYY-MM-DD" text and money as integer cents.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"billdash/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Ping verifies the database connection is alive.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func parseStoredDate(s string) core.Date {
	if s == "" {
		return core.Date{}
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return core.Date{}
	}
	return core.Date{Time: t}
}

// --- accounts ---

func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, type, balance_cents, sort_order
		FROM accounts
		ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		var a core.Account
		var typ string
		if err := rows.Scan(&a.ID, &a.Name, &typ, &a.Balance.Cents, &a.SortOrder); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		a.Type = core.AccountType(typ)
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id int64) (*core.Account, error) {
	var a core.Account
	var typ string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, type, balance_cents, sort_order
		FROM accounts WHERE id = ?`, id).
		Scan(&a.ID, &a.Name, &typ, &a.Balance.Cents, &a.SortOrder)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	a.Type = core.AccountType(typ)
	return &a, nil
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (name, type, balance_cents, sort_order)
		VALUES (?, ?, ?, ?)`,
		a.Name, string(a.Type), a.Balance.Cents, a.SortOrder)
	if err != nil {
		return 0, fmt.Errorf("create account: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("account insert id: %w", err)
	}

	slog.InfoContext(ctx, "Account created", "id", id, "name", a.Name)
	return id, nil
}

func (r *SQLiteRepository) UpdateAccount(ctx context.Context, a core.Account) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET name = ?, type = ?, balance_cents = ?, sort_order = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		a.Name, string(a.Type), a.Balance.Cents, a.SortOrder, a.ID)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}

func (r *SQLiteRepository) UpdateAccountBalance(ctx context.Context, id int64, balance core.Money) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET balance_cents = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		balance.Cents, id)
	if err != nil {
		return fmt.Errorf("update account balance: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}

func (r *SQLiteRepository) DeleteAccount(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}

// --- bills ---

const billColumns = `id, company_name, amount_cents, typical_amount_cents,
	charge_cycle, multiplier, next_due_date, payment_day, billing_account_id, category`

func scanBill(scan func(dest ...any) error) (core.Bill, error) {
	var b core.Bill
	var cycle, multiplier string
	var typicalCents, accountID sql.NullInt64
	var paymentDay sql.NullInt64
	var dueDate sql.NullString

	err := scan(&b.ID, &b.CompanyName, &b.Amount.Cents, &typicalCents,
		&cycle, &multiplier, &dueDate, &paymentDay, &accountID, &b.Category)
	if err != nil {
		return core.Bill{}, err
	}

	b.ChargeCycle = core.ChargeCycle(cycle)
	b.Multiplier = core.MultiplierType(multiplier)
	if typicalCents.Valid {
		b.TypicalAmount = &core.Money{Cents: typicalCents.Int64}
	}
	if paymentDay.Valid {
		day := int(paymentDay.Int64)
		b.PaymentDay = &day
	}
	if accountID.Valid {
		id := accountID.Int64
		b.BillingAccountID = &id
	}
	if dueDate.Valid {
		b.NextDueDate = parseStoredDate(dueDate.String)
	}
	return b, nil
}

func (r *SQLiteRepository) ListBills(ctx context.Context) ([]core.Bill, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+billColumns+` FROM bills ORDER BY company_name, id`)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	defer rows.Close()

	var bills []core.Bill
	for rows.Next() {
		b, err := scanBill(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		bills = append(bills, b)
	}
	return bills, rows.Err()
}

func (r *SQLiteRepository) GetBill(ctx context.Context, id int64) (*core.Bill, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+billColumns+` FROM bills WHERE id = ?`, id)
	b, err := scanBill(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get bill: %w", err)
	}
	return &b, nil
}

func (r *SQLiteRepository) CreateBill(ctx context.Context, b core.Bill) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO bills (company_name, amount_cents, typical_amount_cents,
			charge_cycle, multiplier, next_due_date, payment_day, billing_account_id, category)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.CompanyName, b.Amount.Cents, nullableCents(b.TypicalAmount),
		string(b.ChargeCycle), string(b.Multiplier), nullableDate(b.NextDueDate),
		nullableInt(b.PaymentDay), nullableInt64(b.BillingAccountID), b.Category)
	if err != nil {
		return 0, fmt.Errorf("create bill: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("bill insert id: %w", err)
	}

	slog.InfoContext(ctx, "Bill created",
		"id", id,
		"company_name", b.CompanyName,
		"amount_cents", b.Amount.Cents,
		"charge_cycle", string(b.ChargeCycle))
	return id, nil
}

func (r *SQLiteRepository) UpdateBill(ctx context.Context, b core.Bill) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE bills
		SET company_name = ?, amount_cents = ?, typical_amount_cents = ?,
			charge_cycle = ?, multiplier = ?, next_due_date = ?, payment_day = ?,
			billing_account_id = ?, category = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		b.CompanyName, b.Amount.Cents, nullableCents(b.TypicalAmount),
		string(b.ChargeCycle), string(b.Multiplier), nullableDate(b.NextDueDate),
		nullableInt(b.PaymentDay), nullableInt64(b.BillingAccountID), b.Category, b.ID)
	if err != nil {
		return fmt.Errorf("update bill: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}

func (r *SQLiteRepository) DeleteBill(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bills WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete bill: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}

// --- payment progress ---

func (r *SQLiteRepository) GetPaymentProgress(ctx context.Context) (core.PaymentProgress, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT bill_id, payments_paid FROM payment_progress`)
	if err != nil {
		return nil, fmt.Errorf("get payment progress: %w", err)
	}
	defer rows.Close()

	progress := make(core.PaymentProgress)
	for rows.Next() {
		var billID int64
		var paid int
		if err := rows.Scan(&billID, &paid); err != nil {
			return nil, fmt.Errorf("scan payment progress: %w", err)
		}
		progress[billID] = paid
	}
	return progress, rows.Err()
}

func (r *SQLiteRepository) SetPaymentProgress(ctx context.Context, billID int64, paymentsPaid int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payment_progress (bill_id, payments_paid)
		VALUES (?, ?)
		ON CONFLICT (bill_id) DO UPDATE SET
			payments_paid = excluded.payments_paid,
			updated_at = CURRENT_TIMESTAMP`,
		billID, paymentsPaid)
	if err != nil {
		return fmt.Errorf("set payment progress: %w", err)
	}

	slog.InfoContext(ctx, "Payment progress updated",
		"bill_id", billID, "payments_paid", paymentsPaid)
	return nil
}

// ClearPaymentProgress resets every bill's paid count, typically at the start
// of a new billing period.
func (r *SQLiteRepository) ClearPaymentProgress(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM payment_progress`); err != nil {
		return fmt.Errorf("clear payment progress: %w", err)
	}
	slog.InfoContext(ctx, "Payment progress cleared")
	return nil
}

// --- helpers ---

func rowsAffectedOrNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableCents(m *core.Money) any {
	if m == nil {
		return nil
	}
	return m.Cents
}

func nullableInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

func nullableInt64(i *int64) any {
	if i == nil {
		return nil
	}
	return *i
}

func nullableDate(d core.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}
