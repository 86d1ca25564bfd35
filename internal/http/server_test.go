package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billdash/internal/core"
	"billdash/internal/services"
	"billdash/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *storage.SQLiteRepository) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	dashboards := services.NewDashboardService(repo)
	projections := services.NewProjectionService(repo, dashboards)
	snapshots := services.NewSnapshotService(repo, nil, dashboards)
	periods := services.NewPeriodService(repo)

	srv := NewServer(":0", repo, dashboards, projections, snapshots, periods)
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
		repo.Close()
	})
	return srv, repo
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = doJSON(t, srv, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", rec.Body.String())
}

func TestAccountLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/accounts", map[string]any{
		"name": "Checking", "type": "checking", "balance": "1500,50",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[core.Account](t, rec)
	assert.Equal(t, int64(150050), created.Balance.Cents)
	require.NotZero(t, created.ID)

	rec = doJSON(t, srv, http.MethodGet, "/api/accounts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	accounts := decodeBody[[]core.Account](t, rec)
	require.Len(t, accounts, 1)

	rec = doJSON(t, srv, http.MethodPut, "/api/accounts/1/balance", map[string]any{"balance": "2000.00"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/accounts", nil)
	accounts = decodeBody[[]core.Account](t, rec)
	assert.Equal(t, int64(200000), accounts[0].Balance.Cents)

	rec = doJSON(t, srv, http.MethodDelete, "/api/accounts/1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodDelete, "/api/accounts/1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateBillValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/bills", map[string]any{
		"company_name": "Rent", "amount": "not-a-number",
		"charge_cycle": "monthly", "multiplier": "monthly",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/bills", map[string]any{
		"company_name": "Rent", "amount": "500.00",
		"charge_cycle": "fortnightly", "multiplier": "monthly",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/bills", map[string]any{
		"company_name": "Rent", "amount": "500.00",
		"charge_cycle": "monthly", "multiplier": "monthly",
		"unknown_field": true,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboardReflectsProgressUpdates(t *testing.T) {
	srv, repo := newTestServer(t)
	ctx := context.Background()

	_, err := repo.CreateAccount(ctx, core.Account{
		Name: "Checking", Type: core.AccountChecking, Balance: core.Money{Cents: 200000},
	})
	require.NoError(t, err)
	_, err = repo.CreateBill(ctx, core.Bill{
		CompanyName: "Rent",
		Amount:      core.Money{Cents: 50000},
		ChargeCycle: core.CycleMonthly,
		Multiplier:  core.MultiplierMonthly,
	})
	require.NoError(t, err)

	rec := doJSON(t, srv, http.MethodGet, "/api/dashboard?date=2024-06-10", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decodeBody[services.DashboardView](t, rec)
	assert.Equal(t, int64(150000), view.CashFlow.CashAvailable.Cents)

	// Marking the bill paid must flush the cached view.
	rec = doJSON(t, srv, http.MethodPut, "/api/bills/1/progress", map[string]any{"payments_paid": 1})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = doJSON(t, srv, http.MethodGet, "/api/dashboard?date=2024-06-10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view = decodeBody[services.DashboardView](t, rec)
	assert.Equal(t, int64(200000), view.CashFlow.CashAvailable.Cents)
}

func TestBillProgressUnknownBill(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPut, "/api/bills/99/progress", map[string]any{"payments_paid": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProjectionEndpoints(t *testing.T) {
	srv, repo := newTestServer(t)
	ctx := context.Background()

	_, err := repo.CreateAccount(ctx, core.Account{
		Name: "Checking", Type: core.AccountChecking, Balance: core.Money{Cents: 120000},
	})
	require.NoError(t, err)

	// No history yet: current falls back to a live, unpersisted entry.
	rec := doJSON(t, srv, http.MethodGet, "/api/projections/current?date=2024-06-10", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	live := decodeBody[core.ProjectionEntry](t, rec)
	assert.Zero(t, live.ID)
	assert.Equal(t, int64(120000), live.CashAvailable.Cents)

	rec = doJSON(t, srv, http.MethodPost, "/api/projections", map[string]any{
		"date":                  "2024-06-10",
		"entry_time":            "08:30:00",
		"days_remaining":        21,
		"account_balances":      map[string]int64{"1": 120000},
		"bills_remaining_cents": 0,
		"total_available_cents": 120000,
		"cash_available_cents":  120000,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, srv, http.MethodGet, "/api/projections", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decodeBody[[]core.ProjectionEntry](t, rec)
	require.Len(t, entries, 1)
	assert.Equal(t, "08:30:00", entries[0].EntryTime)

	rec = doJSON(t, srv, http.MethodGet, "/api/projections/current?date=2024-06-10&days=21", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	matched := decodeBody[core.ProjectionEntry](t, rec)
	assert.Equal(t, entries[0].ID, matched.ID)
}

func TestSnapshotSaveAndRestoreEndpoints(t *testing.T) {
	srv, repo := newTestServer(t)
	ctx := context.Background()

	accountID, err := repo.CreateAccount(ctx, core.Account{
		Name: "Checking", Type: core.AccountChecking, Balance: core.Money{Cents: 80000},
	})
	require.NoError(t, err)

	rec := doJSON(t, srv, http.MethodPost, "/api/snapshots?date=2024-06-10", map[string]any{
		"month_year": "2024-06", "notes": "mid-month",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	snap := decodeBody[core.MonthlySnapshot](t, rec)
	assert.Equal(t, int64(80000), snap.AccountBalances[accountID].Cents)

	rec = doJSON(t, srv, http.MethodPost, "/api/snapshots", map[string]any{"month_year": "bad-key"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// Drift the balance, then restore.
	require.NoError(t, repo.UpdateAccountBalance(ctx, accountID, core.Money{Cents: 100}))
	rec = doJSON(t, srv, http.MethodPost, "/api/snapshots/2024-06/restore", nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	restored, err := repo.GetAccount(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, int64(80000), restored.Balance.Cents)

	rec = doJSON(t, srv, http.MethodPost, "/api/snapshots/2030-01/restore", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPeriodEndpoints(t *testing.T) {
	srv, repo := newTestServer(t)
	ctx := context.Background()

	rec := doJSON(t, srv, http.MethodPost, "/api/periods", map[string]any{
		"name": "June window", "start_date": "2024-05-28", "end_date": "2024-06-27",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	period := decodeBody[core.BillingPeriod](t, rec)
	require.NotZero(t, period.ID)

	rec = doJSON(t, srv, http.MethodPost, "/api/periods", map[string]any{
		"name": "backwards", "start_date": "2024-06-27", "end_date": "2024-05-28",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/periods/1/activate", nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	active, err := repo.ActivePeriod(ctx)
	require.NoError(t, err)
	assert.Equal(t, period.ID, active.ID)

	rec = doJSON(t, srv, http.MethodPost, "/api/periods/99/activate", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimitOnMutatingRequests(t *testing.T) {
	srv, _ := newTestServer(t)

	var last int
	for i := 0; i < 61; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/periods", bytes.NewBufferString("{"))
		rec := httptest.NewRecorder()
		srv.Server.Handler.ServeHTTP(rec, req)
		last = rec.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
	assert.Equal(t, int64(1), srv.metrics.totalRateLimitHits())

	// Reads are never limited.
	rec := doJSON(t, srv, http.MethodGet, "/api/periods", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), srv.metrics.totalRateLimitHits())
}
