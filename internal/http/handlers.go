package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"billdash/internal/core"
	applog "billdash/internal/log"
	"billdash/internal/services"
	"billdash/internal/storage"
)

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}

// respondStorageError maps service errors to HTTP status codes. Unknown
// errors become 500 without leaking internals.
func (s *Server) respondStorageError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		s.log.ErrorContext(r.Context(), "Request failed", err,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// dateParam reads an optional "YYYY-MM-DD" query parameter, falling back to
// today (UTC) when absent.
func dateParam(r *http.Request, name string) (core.Date, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		now := time.Now().UTC()
		return core.NewDate(now.Year(), int(now.Month()), now.Day()), nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return core.Date{}, core.ErrInvalidDate
	}
	return core.Date{Time: t}, nil
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// --- dashboard ---

func (s *Server) cachedDashboard(ctx context.Context, today core.Date) (*services.DashboardView, error) {
	key := dashboardCachePrefix + today.String()
	if view, found := s.dashCache.Get(key); found {
		return view, nil
	}
	view, err := s.dashboards.Dashboard(ctx, today)
	if err != nil {
		return nil, err
	}
	s.dashCache.Set(key, view)
	return view, nil
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	today, err := dateParam(r, "date")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date parameter")
		return
	}
	view, err := s.cachedDashboard(r.Context(), today)
	if err != nil {
		s.respondStorageError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// --- accounts ---

type accountRequest struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Balance   string `json:"balance"`
	SortOrder int    `json:"sort_order"`
}

func (req accountRequest) toAccount(id int64) (core.Account, error) {
	cents, err := core.ParseDecimalToCents(req.Balance)
	if err != nil {
		return core.Account{}, err
	}
	a := core.Account{
		ID:        id,
		Name:      strings.TrimSpace(req.Name),
		Type:      core.AccountType(req.Type),
		Balance:   core.Money{Cents: cents},
		SortOrder: req.SortOrder,
	}
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	return a, nil
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.store.ListAccounts(r.Context())
	if err != nil {
		s.respondStorageError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, accounts)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	account, err := req.toAccount(0)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	id, err := s.store.CreateAccount(r.Context(), account)
	if err != nil {
		s.respondStorageError(w, r, err)
		return
	}
	account.ID = id
	s.invalidateDashboard()
	respondJSON(w, http.StatusCreated, account)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	var req accountRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	account, err := req.toAccount(id)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := s.store.UpdateAccount(r.Context(), account); err != nil {
		s.respondStorageError(w, r, err)
		return
	}
	s.invalidateDashboard()
	respondJSON(w, http.StatusOK, account)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	if err := s.store.DeleteAccount(r.Context(), id); err != nil {
		s.respondStorageError(w, r, err)
		return
	}
	s.invalidateDashboard()
	respondJSON(w, http.StatusNoContent, nil)
}

type balanceRequest struct {
	Balance string `json:"balance"`
}

func (s *Server) handleUpdateAccountBalance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	var req balanceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cents, err := core.ParseDecimalToCents(req.Balance)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "invalid balance")
		return
	}
	if err := s.store.UpdateAccountBalance(r.Context(), id, core.Money{Cents: cents}); err != nil {
		s.respondStorageError(w, r, err)
		return
	}
	s.invalidateDashboard()
	respondJSON(w, http.StatusNoContent, nil)
}

// --- bills ---

type billRequest struct {
	CompanyName      string    `json:"company_name"`
	Amount           string    `json:"amount"`
	TypicalAmount    string    `json:"typical_amount"`
	ChargeCycle      string    `json:"charge_cycle"`
	Multiplier       string    `json:"multiplier"`
	NextDueDate      core.Date `json:"next_due_date"`
	PaymentDay       *int      `json:"payment_day"`
	BillingAccountID *int64    `json:"billing_account_id"`
	Category         string    `json:"category"`
}

func (req billRequest) toBill(id int64) (core.Bill, error) {
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.Bill{}, err
	}
	b := core.Bill{
		ID:               id,
		CompanyName:      strings.TrimSpace(req.CompanyName),
		Amount:           core.Money{Cents: cents},
		ChargeCycle:      core.ChargeCycle(req.ChargeCycle),
		Multiplier:       core.MultiplierType(req.Multiplier),
		NextDueDate:      req.NextDueDate,
		PaymentDay:       req.PaymentDay,
		BillingAccountID: req.BillingAccountID,
		Category:         strings.TrimSpace(req.Category),
	}
	if strings.TrimSpace(req.TypicalAmount) != "" {
		typical, err := core.ParseDecimalToCents(req.TypicalAmount)
		if err != nil {
			return core.Bill{}, err
		}
		b.TypicalAmount = &core.Money{Cents: typical}
	}
	if err := b.Validate(); err != nil {
		return core.Bill{}, err
	}
	return b, nil
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	bills, err := s.store.ListBills(r.Context())
	if err != nil {
		s.respondStorageError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, bills)
}

func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	var req billRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	bill, err := req.toBill(0)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	id, err := s.store.CreateBill(r.Context(), bill)
	if err != nil {
		s.respondStorageError(w, r, err)
		return
	}
	bill.ID = id
	s.invalidateDashboard()
	respondJSON(w, http.StatusCreated, bill)
}

func (s *Server) handleUpdateBill(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid bill id")
		return
	}
	var req billRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	bill, err := req.toBill(id)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := s.store.UpdateBill(r.Context(), bill); err != nil {
		s.respondStorageError(w, r, err)
		return
	}
	s.invalidateDashboard()
	respondJSON(w, http.StatusOK, bill)
}

func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid bill id")
		return
	}
	if err := s.store.DeleteBill(r.Context(), id); err != nil {
		s.respondStorageError(w, r, err)
		return
	}
	s.invalidateDashboard()
	respondJSON(w, http.StatusNoContent, nil)
}

type progressRequest struct {
	PaymentsPaid int `json:"payments_paid"`
}

func (s *Server) handleUpdateBillProgress(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid bill id")
		return
	}
	var req progressRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PaymentsPaid < 0 {
		respondError(w, http.StatusUnprocessableEntity, "payments_paid must not be negative")
		return
	}
	if _, err := s.store.GetBill(r.Context(), id); err != nil {
		s.respondStorageError(w, r, err)
		return
	}
	if err := s.store.SetPaymentProgress(r.Context(), id, req.PaymentsPaid); err != nil {
		s.respondStorageError(w, r, err)
		return
	}
	s.invalidateDashboard()
	respondJSON(w, http.StatusNoContent, nil)
}

// --- projections ---

func (s *Server) handleListProjections(w http.ResponseWriter, r *http.Request) {
	entries, err := s.projections.History(r.Context())
	if err != nil {
		s.respondStorageError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

func (s *Server) handleCurrentProjection(w http.ResponseWriter, r *http.Request) {
	refDate, err := dateParam(r, "date")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date parameter")
		return
	}

	var targetDays int
	if v := strings.TrimSpace(r.URL.Query().Get("days")); v != "" {
		targetDays, err = strconv.Atoi(v)
		if err != nil || targetDays < 0 {
			respondError(w, http.StatusBadRequest, "invalid days parameter")
			return
		}
	} else {
		view, err := s.cachedDashboard(r.Context(), refDate)
		if err != nil {
			s.respondStorageError(w, r, err)
			return
		}
		targetDays = view.DaysRemaining
	}

	entry, err := s.projections.Current(r.Context(), refDate, targetDays)
	if err != nil {
		s.respondStorageError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

func (s *Server) handleRecordProjection(w http.ResponseWriter, r *http.Request) {
	var entry core.ProjectionEntry
	if err := decodeJSON(r, &entry); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id, err := s.projections.Record(r.Context(), entry)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondStorageError(w, r, err)
			return
		}
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	entry.ID = id
	respondJSON(w, http.StatusCreated, entry)
}

// --- snapshots ---

type snapshotRequest struct {
	MonthYear string `json:"month_year"`
	Notes     string `json:"notes"`
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	snapshots, err := s.snapshots.List(r.Context())
	if err != nil {
		s.respondStorageError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, snapshots)
}

func (s *Server) handleSaveSnapshot(w http.ResponseWriter, r *http.Request) {
	var req snapshotRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	today, err := dateParam(r, "date")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date parameter")
		return
	}
	snap, err := s.snapshots.SaveMonthly(r.Context(), req.MonthYear, req.Notes, today)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondStorageError(w, r, err)
			return
		}
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleRestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	monthYear := r.PathValue("monthYear")
	if err := s.snapshots.Restore(r.Context(), monthYear); err != nil {
		s.respondStorageError(w, r, err)
		return
	}
	s.invalidateDashboard()
	respondJSON(w, http.StatusNoContent, nil)
}

// --- billing periods ---

type periodRequest struct {
	Name      string    `json:"name"`
	StartDate core.Date `json:"start_date"`
	EndDate   core.Date `json:"end_date"`
	Notes     string    `json:"notes"`
	// FromSnapshot links the new period to an existing monthly snapshot.
	FromSnapshot string `json:"from_snapshot"`
}

func (req periodRequest) toPeriod(id int64) (core.BillingPeriod, error) {
	p := core.BillingPeriod{
		ID:        id,
		Name:      strings.TrimSpace(req.Name),
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Notes:     strings.TrimSpace(req.Notes),
	}
	if err := p.Validate(); err != nil {
		return core.BillingPeriod{}, err
	}
	return p, nil
}

func (s *Server) handleListPeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := s.periods.List(r.Context())
	if err != nil {
		s.respondStorageError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, periods)
}

func (s *Server) handleCreatePeriod(w http.ResponseWriter, r *http.Request) {
	var req periodRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	period, err := req.toPeriod(0)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	var id int64
	if req.FromSnapshot != "" {
		id, err = s.periods.DuplicateFromSnapshot(r.Context(), period.Name, period.StartDate, period.EndDate, req.FromSnapshot)
	} else {
		id, err = s.periods.Create(r.Context(), period)
	}
	if err != nil {
		s.respondStorageError(w, r, err)
		return
	}

	created, err := s.periods.Get(r.Context(), id)
	if err != nil {
		s.respondStorageError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdatePeriod(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid period id")
		return
	}
	var req periodRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	period, err := req.toPeriod(id)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := s.periods.Update(r.Context(), period); err != nil {
		s.respondStorageError(w, r, err)
		return
	}
	s.invalidateDashboard()
	respondJSON(w, http.StatusOK, period)
}

func (s *Server) handleDeletePeriod(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid period id")
		return
	}
	if err := s.periods.Delete(r.Context(), id); err != nil {
		s.respondStorageError(w, r, err)
		return
	}
	s.invalidateDashboard()
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleActivatePeriod(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid period id")
		return
	}
	if err := s.periods.Activate(r.Context(), id); err != nil {
		s.respondStorageError(w, r, err)
		return
	}
	s.invalidateDashboard()
	respondJSON(w, http.StatusNoContent, nil)
}
