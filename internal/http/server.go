package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"spendwise/internal/cache"
	"spendwise/internal/core"
)

// LedgerService is the write side of the expense ledger.
type LedgerService interface {
	CreateExpense(ctx context.Context, userID int64, in core.ExpenseInput) (core.Expense, error)
	UpdateExpense(ctx context.Context, id, userID int64, in core.ExpenseInput) (core.Expense, error)
	DeleteExpense(ctx context.Context, id, userID int64) error
	ListExpenses(ctx context.Context, userID int64, filter core.ExpenseFilter) ([]core.Expense, error)
	GetExpense(ctx context.Context, id, userID int64) (core.Expense, error)
}

// AnalyticsService is the read side over the same ledger.
type AnalyticsService interface {
	Summary(ctx context.Context, userID int64, period core.Period) (core.Summary, error)
	Trends(ctx context.Context, userID int64) (core.Trends, error)
	BudgetStatus(ctx context.Context, userID int64) (core.BudgetStatus, error)
}

type Server struct {
	http.Server
	ledger    LedgerService
	analytics AnalyticsService

	rateLimiter *rateLimiter

	// LRU caches for analytics responses with eviction policy
	summaryCache *cache.LRUCache[core.Summary]
	trendsCache  *cache.LRUCache[core.Trends]
	budgetCache  *cache.LRUCache[core.BudgetStatus]

	cacheManager *cache.Manager
	shutdownOnce sync.Once
}

type ctxKey string

const requestIDKey ctxKey = "request_id"

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, ledger LedgerService, analytics AnalyticsService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		ledger:       ledger,
		analytics:    analytics,
		rateLimiter:  newRateLimiter(),
		summaryCache: cache.NewLRUCache[core.Summary](200, 5*time.Minute),
		trendsCache:  cache.NewLRUCache[core.Trends](100, 5*time.Minute),
		budgetCache:  cache.NewLRUCache[core.BudgetStatus](100, 5*time.Minute),
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.Register(s.trendsCache)
	s.cacheManager.Register(s.budgetCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /expenses", s.withMiddleware(s.handleCreateExpense))
	mux.HandleFunc("GET /expenses", s.withMiddleware(s.handleListExpenses))
	mux.HandleFunc("GET /expenses/{id}", s.withMiddleware(s.handleGetExpense))
	mux.HandleFunc("PUT /expenses/{id}", s.withMiddleware(s.handleUpdateExpense))
	mux.HandleFunc("DELETE /expenses/{id}", s.withMiddleware(s.handleDeleteExpense))

	mux.HandleFunc("GET /analytics/summary", s.withMiddleware(s.handleSummary))
	mux.HandleFunc("GET /analytics/trends", s.withMiddleware(s.handleTrends))
	mux.HandleFunc("GET /analytics/budget-status", s.withMiddleware(s.handleBudgetStatus))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// invalidateAnalytics drops every cached analytics response belonging to
// a user. Called after any write to their ledger so reads never serve
// totals that disagree with the balance.
func (s *Server) invalidateAnalytics(userID int64) {
	prefix := fmt.Sprintf("u:%d:", userID)
	s.summaryCache.DeletePrefix(prefix)
	s.trendsCache.DeletePrefix(prefix)
	s.budgetCache.DeletePrefix(prefix)
}

// withMiddleware adds security headers, rate limiting, and request logging
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		// Generate request ID for tracing
		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		// Apply rate limiting to mutating requests
		if mutating(r.Method) && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		// Capture status code for the completion log
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
