package core

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// MidnightEntryTime is the entry time assumed for older projection records
// that were captured before the time-of-day field existed.
const MidnightEntryTime = "00:00:00"

type (
	// ProjectionEntry is one timestamped capture of account and bill figures,
	// used to reconstruct historical and "current" cash-flow views. The
	// natural key (Date, DaysRemaining, EntryTime) is expected to be unique
	// among entries surfaced to the user.
	ProjectionEntry struct {
		ID   int64 `json:"id"`
		Date Date  `json:"date"`
		// EntryTime is the time of day the entry was captured, "HH:MM:SS".
		// Empty on records predating the field; normalized to midnight
		// during reconciliation.
		EntryTime       string          `json:"entry_time"`
		DaysRemaining   int             `json:"days_remaining"`
		AccountBalances map[int64]Money `json:"account_balances"`
		BillsRemaining  Money           `json:"bills_remaining_cents"`
		TotalAvailable  Money           `json:"total_available_cents"`
		CashAvailable   Money           `json:"cash_available_cents"`
		CashPerWeek     *float64        `json:"cash_per_week,omitempty"`
		SpendingPerDay  *float64        `json:"spending_per_day,omitempty"`
		Notes           string          `json:"notes,omitempty"`
		CreatedAt       time.Time       `json:"created_at"`
		UpdatedAt       time.Time       `json:"updated_at"`
	}

	// CashFlowSummary aggregates available cash against outstanding bills
	// for a window. CashAvailable may be negative; that is a meaningful
	// signal, not an error. The per-week and per-day rates are nil when the
	// window has no days remaining.
	CashFlowSummary struct {
		TotalAvailable Money    `json:"total_available_cents"`
		BillsRemaining Money    `json:"bills_remaining_cents"`
		CashAvailable  Money    `json:"cash_available_cents"`
		CashPerWeek    *float64 `json:"cash_per_week,omitempty"`
		SpendingPerDay *float64 `json:"spending_per_day,omitempty"`
	}

	// BillStatus is the per-bill payment state captured inside a snapshot.
	BillStatus struct {
		Paid         bool  `json:"paid"`
		PaidDate     *Date `json:"paid_date,omitempty"`
		PaymentsPaid int   `json:"payments_paid"`
	}

	// MonthlySnapshot is a point-in-time save of account balances and bill
	// payment state, keyed by calendar month ("YYYY-MM"). Re-saving the same
	// MonthYear overwrites the previous snapshot.
	MonthlySnapshot struct {
		ID              int64                `json:"id"`
		MonthYear       string               `json:"month_year"`
		AccountBalances map[int64]Money      `json:"account_balances"`
		BillStatuses    map[int64]BillStatus `json:"bill_statuses"`
		CashFlow        CashFlowSummary      `json:"cash_flow"`
		Notes           string               `json:"notes,omitempty"`
		CreatedAt       time.Time            `json:"created_at"`
		UpdatedAt       time.Time            `json:"updated_at"`
	}

	// BillingPeriod is an explicit, possibly non-calendar window with an
	// optional linked snapshot.
	BillingPeriod struct {
		ID         int64  `json:"id"`
		Name       string `json:"name"`
		StartDate  Date   `json:"start_date"`
		EndDate    Date   `json:"end_date"`
		SnapshotID *int64 `json:"snapshot_id,omitempty"`
		Notes      string `json:"notes,omitempty"`
	}
)

// NaturalKey returns the (date, days-remaining, entry-time) tuple that
// identifies a projection entry, with a missing entry time normalized to
// midnight.
func (e ProjectionEntry) NaturalKey() string {
	t := e.EntryTime
	if t == "" {
		t = MidnightEntryTime
	}
	return e.Date.String() + "|" + strconv.Itoa(e.DaysRemaining) + "|" + t
}

func (e ProjectionEntry) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return errors.New("invalid projection date: " + err.Error())
	}
	if e.DaysRemaining < 0 {
		return errors.New("days remaining must not be negative")
	}
	if e.EntryTime != "" {
		if _, err := time.Parse("15:04:05", e.EntryTime); err != nil {
			return errors.New("invalid entry time: must be HH:MM:SS")
		}
	}
	return nil
}

func (s MonthlySnapshot) Validate() error {
	if _, err := time.Parse("2006-01", s.MonthYear); err != nil {
		return errors.New("invalid month key: must be YYYY-MM")
	}
	return nil
}

func (bp BillingPeriod) Validate() error {
	if len(strings.TrimSpace(bp.Name)) == 0 {
		return errors.New("empty period name")
	}
	if err := bp.StartDate.Validate(); err != nil {
		return errors.New("invalid start date: " + err.Error())
	}
	if err := bp.EndDate.Validate(); err != nil {
		return errors.New("invalid end date: " + err.Error())
	}
	if bp.EndDate.Before(bp.StartDate.Time) {
		return errors.New("end date must not be before start date")
	}
	return nil
}

// Contains reports whether a date falls inside the period, bounds inclusive.
func (bp BillingPeriod) Contains(d Date) bool {
	return !d.Before(bp.StartDate.Time) && !d.After(bp.EndDate.Time)
}
