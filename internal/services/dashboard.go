// Package services orchestrates the dashboard, projection, snapshot, and
// billing-period operations on top of storage, AMQP, and the export adapters.
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"billdash/internal/billing"
	"billdash/internal/core"
	"billdash/internal/projection"
	"billdash/internal/storage"
)

// DashboardView is everything the dashboard screen needs for one billing
// window.
type DashboardView struct {
	Window        core.BillingPeriod       `json:"window"`
	DaysRemaining int                      `json:"days_remaining"`
	Accounts      []core.Account           `json:"accounts"`
	Bills         []core.BillWithRemaining `json:"bills"`
	Totals        core.BillTotals          `json:"totals"`
	CashFlow      core.CashFlowSummary     `json:"cash_flow"`
}

// WindowKey identifies the view's window for caching.
func (v DashboardView) WindowKey() string {
	return v.Window.StartDate.String() + "|" + v.Window.EndDate.String()
}

// AccountBalances returns the view's balances keyed by account id.
func (v DashboardView) AccountBalances() map[int64]core.Money {
	balances := make(map[int64]core.Money, len(v.Accounts))
	for _, a := range v.Accounts {
		balances[a.ID] = a.Balance
	}
	return balances
}

type DashboardService struct {
	storage *storage.SQLiteRepository
}

func NewDashboardService(storage *storage.SQLiteRepository) *DashboardService {
	return &DashboardService{storage: storage}
}

// Dashboard assembles the full view for the active billing period. When no
// period has been activated, the calendar month containing today is used.
func (s *DashboardService) Dashboard(ctx context.Context, today core.Date) (*DashboardView, error) {
	window, err := s.activeWindow(ctx, today)
	if err != nil {
		return nil, err
	}

	accounts, err := s.storage.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	bills, err := s.storage.ListBills(ctx)
	if err != nil {
		return nil, fmt.Errorf("load bills: %w", err)
	}
	progress, err := s.storage.GetPaymentProgress(ctx)
	if err != nil {
		return nil, fmt.Errorf("load payment progress: %w", err)
	}

	rows, totals := billing.Aggregate(bills, progress, window.StartDate, window.EndDate)
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Bill.CompanyName < rows[j].Bill.CompanyName
	})

	anchor := projection.AnchorDate(today, window.StartDate, window.EndDate)
	daysRemaining := remainingDays(anchor, window.EndDate)

	view := &DashboardView{
		Window:        window,
		DaysRemaining: daysRemaining,
		Accounts:      accounts,
		Bills:         rows,
		Totals:        totals,
	}
	view.CashFlow = projection.Project(view.AccountBalances(), totals.RemainingThisMonth, daysRemaining)

	return view, nil
}

func (s *DashboardService) activeWindow(ctx context.Context, today core.Date) (core.BillingPeriod, error) {
	period, err := s.storage.ActivePeriod(ctx)
	if err == nil {
		return *period, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return core.BillingPeriod{}, fmt.Errorf("load active period: %w", err)
	}
	return calendarMonthWindow(today), nil
}

func calendarMonthWindow(today core.Date) core.BillingPeriod {
	year, month := today.Year(), today.Month()
	lastDay := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	return core.BillingPeriod{
		Name:      today.Format("January 2006"),
		StartDate: core.NewDate(year, month, 1),
		EndDate:   core.NewDate(year, month, lastDay),
	}
}

// remainingDays counts from anchor through windowEnd inclusive, clamped at
// zero once the window has passed.
func remainingDays(anchor, windowEnd core.Date) int {
	if anchor.After(windowEnd.Time) {
		return 0
	}
	return int(windowEnd.Sub(anchor.Time).Hours()/24) + 1
}
