package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"billdash/internal/cache"
	applog "billdash/internal/log"
	"billdash/internal/services"
	"billdash/internal/storage"
)

// Server exposes the dashboard as a JSON API over a single http.Server.
type Server struct {
	http.Server

	store       *storage.SQLiteRepository
	dashboards  *services.DashboardService
	projections *services.ProjectionService
	snapshots   *services.SnapshotService
	periods     *services.PeriodService

	rateLimiter *rateLimiter
	metrics     *securityMetrics
	log         *applog.Logger

	// Dashboard views are cached per reference date and flushed on any
	// mutation, since every write can shift balances or remaining bills.
	dashCache    *cache.LRUCache[*services.DashboardView]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, store *storage.SQLiteRepository, dashboards *services.DashboardService, projections *services.ProjectionService, snapshots *services.SnapshotService, periods *services.PeriodService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		store:        store,
		dashboards:   dashboards,
		projections:  projections,
		snapshots:    snapshots,
		periods:      periods,
		rateLimiter:  newRateLimiter(60),
		metrics:      &securityMetrics{},
		log:          applog.New(applog.ComponentHTTP),
		dashCache:    cache.NewLRUCache[*services.DashboardView](100, 5*time.Minute),
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(s.dashCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/dashboard", s.withSecurityHeaders(s.handleDashboard))

	mux.HandleFunc("GET /api/accounts", s.withSecurityHeaders(s.handleListAccounts))
	mux.HandleFunc("POST /api/accounts", s.withSecurityHeaders(s.handleCreateAccount))
	mux.HandleFunc("PUT /api/accounts/{id}", s.withSecurityHeaders(s.handleUpdateAccount))
	mux.HandleFunc("DELETE /api/accounts/{id}", s.withSecurityHeaders(s.handleDeleteAccount))
	mux.HandleFunc("PUT /api/accounts/{id}/balance", s.withSecurityHeaders(s.handleUpdateAccountBalance))

	mux.HandleFunc("GET /api/bills", s.withSecurityHeaders(s.handleListBills))
	mux.HandleFunc("POST /api/bills", s.withSecurityHeaders(s.handleCreateBill))
	mux.HandleFunc("PUT /api/bills/{id}", s.withSecurityHeaders(s.handleUpdateBill))
	mux.HandleFunc("DELETE /api/bills/{id}", s.withSecurityHeaders(s.handleDeleteBill))
	mux.HandleFunc("PUT /api/bills/{id}/progress", s.withSecurityHeaders(s.handleUpdateBillProgress))

	mux.HandleFunc("GET /api/projections", s.withSecurityHeaders(s.handleListProjections))
	mux.HandleFunc("GET /api/projections/current", s.withSecurityHeaders(s.handleCurrentProjection))
	mux.HandleFunc("POST /api/projections", s.withSecurityHeaders(s.handleRecordProjection))

	mux.HandleFunc("GET /api/snapshots", s.withSecurityHeaders(s.handleListSnapshots))
	mux.HandleFunc("POST /api/snapshots", s.withSecurityHeaders(s.handleSaveSnapshot))
	mux.HandleFunc("POST /api/snapshots/{monthYear}/restore", s.withSecurityHeaders(s.handleRestoreSnapshot))

	mux.HandleFunc("GET /api/periods", s.withSecurityHeaders(s.handleListPeriods))
	mux.HandleFunc("POST /api/periods", s.withSecurityHeaders(s.handleCreatePeriod))
	mux.HandleFunc("PUT /api/periods/{id}", s.withSecurityHeaders(s.handleUpdatePeriod))
	mux.HandleFunc("DELETE /api/periods/{id}", s.withSecurityHeaders(s.handleDeletePeriod))
	mux.HandleFunc("POST /api/periods/{id}/activate", s.withSecurityHeaders(s.handleActivatePeriod))

	return s
}

// Shutdown stops the server and its background cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		if hits := s.metrics.totalRateLimitHits(); hits > 0 {
			s.log.InfoContext(ctx, "Rate limiter rejections during run",
				"rate_limit_hits", hits)
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	}
	return false
}

// withSecurityHeaders adds security headers, rate limiting, and request
// logging to a handler.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		s.log.InfoContext(ctx, "Request started",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldClientIP, clientIP)

		if isMutating(r.Method) && !s.rateLimiter.allow(clientIP, s.metrics) {
			s.log.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				"rate_limit_hits", s.metrics.totalRateLimitHits())
			w.Header().Set("Retry-After", "60")
			respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		s.log.InfoContext(ctx, "Request completed",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, duration.Milliseconds(),
			applog.FieldClientIP, clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.log.ErrorContext(r.Context(), "Readiness check failed", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

const dashboardCachePrefix = "dashboard:"

// invalidateDashboard flushes every cached dashboard view. Mutations can
// shift balances, remaining bills, or the active window, so the whole
// prefix goes.
func (s *Server) invalidateDashboard() {
	s.dashCache.InvalidatePrefix(dashboardCachePrefix)
}
