package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billdash/internal/core"
	"billdash/internal/storage"
)

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedAccount(t *testing.T, repo *storage.SQLiteRepository, name string, cents int64) int64 {
	t.Helper()
	id, err := repo.CreateAccount(context.Background(), core.Account{
		Name: name, Type: core.AccountChecking, Balance: core.Money{Cents: cents},
	})
	require.NoError(t, err)
	return id
}

func seedMonthlyBill(t *testing.T, repo *storage.SQLiteRepository, name string, cents int64, due core.Date) int64 {
	t.Helper()
	id, err := repo.CreateBill(context.Background(), core.Bill{
		CompanyName: name,
		Amount:      core.Money{Cents: cents},
		ChargeCycle: core.CycleMonthly,
		Multiplier:  core.MultiplierMonthly,
		NextDueDate: due,
	})
	require.NoError(t, err)
	return id
}

func activatePeriod(t *testing.T, repo *storage.SQLiteRepository, start, end core.Date) int64 {
	t.Helper()
	id, err := repo.CreatePeriod(context.Background(), core.BillingPeriod{
		Name: "test window", StartDate: start, EndDate: end,
	})
	require.NoError(t, err)
	require.NoError(t, repo.SetActivePeriod(context.Background(), id))
	return id
}

func TestDashboardDefaultsToCalendarMonth(t *testing.T) {
	repo := newTestRepo(t)
	seedAccount(t, repo, "Checking", 200000)
	svc := NewDashboardService(repo)

	view, err := svc.Dashboard(context.Background(), core.NewDate(2024, 2, 10))
	require.NoError(t, err)

	assert.Equal(t, "2024-02-01", view.Window.StartDate.String())
	assert.Equal(t, "2024-02-29", view.Window.EndDate.String(), "leap February")
	// Feb 10 through Feb 29 inclusive.
	assert.Equal(t, 20, view.DaysRemaining)
	assert.Equal(t, int64(200000), view.CashFlow.TotalAvailable.Cents)
}

func TestDashboardAggregatesBills(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedAccount(t, repo, "Checking", 200000)
	billID := seedMonthlyBill(t, repo, "Rent", 50000, core.NewDate(2024, 6, 1))
	seedMonthlyBill(t, repo, "Internet", 6000, core.NewDate(2024, 6, 15))
	require.NoError(t, repo.SetPaymentProgress(ctx, billID, 1))
	activatePeriod(t, repo, core.NewDate(2024, 6, 1), core.NewDate(2024, 6, 30))

	view, err := NewDashboardService(repo).Dashboard(ctx, core.NewDate(2024, 6, 1))
	require.NoError(t, err)

	require.Len(t, view.Bills, 2)
	// Sorted by company name.
	assert.Equal(t, "Internet", view.Bills[0].Bill.CompanyName)
	assert.Equal(t, "Rent", view.Bills[1].Bill.CompanyName)

	// Rent is fully paid for the window; only Internet remains.
	assert.Equal(t, int64(0), view.Bills[1].RemainingThisMonth.Cents)
	assert.Equal(t, int64(6000), view.Totals.RemainingThisMonth.Cents)
	assert.Equal(t, int64(194000), view.CashFlow.CashAvailable.Cents)
	assert.Equal(t, 30, view.DaysRemaining)
}

func TestProjectionCurrentLiveFallback(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedAccount(t, repo, "Checking", 100000)
	seedMonthlyBill(t, repo, "Rent", 40000, core.NewDate(2024, 6, 1))
	activatePeriod(t, repo, core.NewDate(2024, 6, 1), core.NewDate(2024, 6, 30))

	dashboard := NewDashboardService(repo)
	svc := NewProjectionService(repo, dashboard)

	entry, err := svc.Current(ctx, core.NewDate(2024, 6, 21), 10)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-21", entry.Date.String())
	assert.Equal(t, 10, entry.DaysRemaining)
	assert.Equal(t, int64(60000), entry.CashAvailable.Cents)
	assert.Zero(t, entry.ID, "live entries are not persisted")
}

func TestProjectionCurrentPrefersHistory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedAccount(t, repo, "Checking", 100000)
	activatePeriod(t, repo, core.NewDate(2024, 6, 1), core.NewDate(2024, 6, 30))

	dashboard := NewDashboardService(repo)
	svc := NewProjectionService(repo, dashboard)

	recorded := core.ProjectionEntry{
		Date:          core.NewDate(2024, 6, 20),
		EntryTime:     "09:00:00",
		DaysRemaining: 11,
		CashAvailable: core.Money{Cents: 42000},
	}
	_, err := svc.Record(ctx, recorded)
	require.NoError(t, err)

	entry, err := svc.Current(ctx, core.NewDate(2024, 6, 21), 10)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-20", entry.Date.String())
	assert.Equal(t, int64(42000), entry.CashAvailable.Cents)
}

func TestProjectionRecordUpsertsOnNaturalKey(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	svc := NewProjectionService(repo, NewDashboardService(repo))

	entry := core.ProjectionEntry{
		Date:          core.NewDate(2024, 6, 20),
		EntryTime:     "09:00:00",
		DaysRemaining: 11,
		CashAvailable: core.Money{Cents: 1000},
	}
	_, err := svc.Record(ctx, entry)
	require.NoError(t, err)

	entry.CashAvailable = core.Money{Cents: 2000}
	_, err = svc.Record(ctx, entry)
	require.NoError(t, err)

	history, err := svc.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, int64(2000), history[0].CashAvailable.Cents)
}

func TestSnapshotSaveAndRestore(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	accountID := seedAccount(t, repo, "Checking", 150000)
	billID := seedMonthlyBill(t, repo, "Rent", 50000, core.NewDate(2024, 6, 1))
	require.NoError(t, repo.SetPaymentProgress(ctx, billID, 1))
	activatePeriod(t, repo, core.NewDate(2024, 6, 1), core.NewDate(2024, 6, 30))

	dashboard := NewDashboardService(repo)
	svc := NewSnapshotService(repo, nil, dashboard)

	snap, err := svc.SaveMonthly(ctx, "2024-06", "june close", core.NewDate(2024, 6, 30))
	require.NoError(t, err)
	assert.NotZero(t, snap.ID)
	assert.Equal(t, int64(150000), snap.AccountBalances[accountID].Cents)
	assert.True(t, snap.BillStatuses[billID].Paid)
	assert.Equal(t, 1, snap.BillStatuses[billID].PaymentsPaid)

	// Drift the live state, then restore.
	require.NoError(t, repo.UpdateAccountBalance(ctx, accountID, core.Money{Cents: 999}))
	require.NoError(t, repo.ClearPaymentProgress(ctx))

	require.NoError(t, svc.Restore(ctx, "2024-06"))

	account, err := repo.GetAccount(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, int64(150000), account.Balance.Cents)

	progress, err := repo.GetPaymentProgress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, progress[billID])
}

func TestSnapshotSaveInvalidMonthKey(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewSnapshotService(repo, nil, NewDashboardService(repo))

	_, err := svc.SaveMonthly(context.Background(), "June 2024", "", core.NewDate(2024, 6, 30))
	require.Error(t, err)
}

func TestPeriodActivateResetsProgress(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	billID := seedMonthlyBill(t, repo, "Rent", 50000, core.NewDate(2024, 6, 1))
	require.NoError(t, repo.SetPaymentProgress(ctx, billID, 2))

	svc := NewPeriodService(repo)
	id, err := svc.Create(ctx, core.BillingPeriod{
		Name:      "July 2024",
		StartDate: core.NewDate(2024, 7, 1),
		EndDate:   core.NewDate(2024, 7, 31),
	})
	require.NoError(t, err)

	require.NoError(t, svc.Activate(ctx, id))

	progress, err := repo.GetPaymentProgress(ctx)
	require.NoError(t, err)
	assert.Empty(t, progress, "activating a new period resets paid counts")

	// Re-activating the same period must not wipe fresh progress.
	require.NoError(t, repo.SetPaymentProgress(ctx, billID, 1))
	require.NoError(t, svc.Activate(ctx, id))
	progress, err = repo.GetPaymentProgress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, progress[billID])
}

func TestPeriodDuplicateFromSnapshot(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedAccount(t, repo, "Checking", 100000)

	dashboard := NewDashboardService(repo)
	snapSvc := NewSnapshotService(repo, nil, dashboard)
	snap, err := snapSvc.SaveMonthly(ctx, "2024-06", "", core.NewDate(2024, 6, 30))
	require.NoError(t, err)

	svc := NewPeriodService(repo)
	id, err := svc.DuplicateFromSnapshot(ctx, "July 2024",
		core.NewDate(2024, 7, 1), core.NewDate(2024, 7, 31), "2024-06")
	require.NoError(t, err)

	period, err := svc.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, period.SnapshotID)
	assert.Equal(t, snap.ID, *period.SnapshotID)
}

func TestRecorderSkipsWhenEntryExistsForToday(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedAccount(t, repo, "Checking", 100000)

	dashboard := NewDashboardService(repo)
	projections := NewProjectionService(repo, dashboard)
	recorder := NewProjectionRecorder(repo, projections)

	now := time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC)
	recorded, err := recorder.RecordDaily(ctx, now)
	require.NoError(t, err)
	assert.True(t, recorded)

	// Second run on the same day is a no-op even at a different time.
	recorded, err = recorder.RecordDaily(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.False(t, recorded)

	history, err := projections.History(ctx)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
