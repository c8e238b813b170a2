package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/singleflight"

	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/log"
)

const (
	maxWindowDays        = 366
	dailyCacheSize       = 64
	defaultCacheTTL      = time.Minute
	cacheCleanupInterval = 10 * time.Minute
)

// Ledger is what the API needs from the ledger service.
type Ledger interface {
	Create(ctx context.Context, ne core.NewExpense) (core.Expense, error)
	ListAll(ctx context.Context, order core.Order) ([]core.Expense, error)
	IsEmpty(ctx context.Context) (bool, error)
	DailyTotals(ctx context.Context, now time.Time, windowDays int) ([]core.DailyTotal, error)
	Now() time.Time
}

// Options tune a Server. Zero values fall back to UTC, a 7 day window,
// a one minute cache TTL and the default logger.
type Options struct {
	Location   *time.Location
	WindowDays int
	CacheTTL   time.Duration
	Logger     *log.Logger
}

type Server struct {
	http.Server
	ledger      Ledger
	loc         *time.Location
	windowDays  int
	logger      *log.Logger
	rateLimiter *rateLimiter
	metrics     securityMetrics

	dailyCache   *cache.LRUCache[[]core.DailyTotal]
	cacheManager *cache.Manager
	dailyGroup   singleflight.Group
	// cacheMu guards generation. It is bumped on every insert so an
	// in-flight computation cannot repopulate the cache with a stale series.
	cacheMu    sync.Mutex
	generation uint64

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, ledger Ledger, opts Options) *Server {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = core.DefaultWindowDays
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		ledger:       ledger,
		loc:          opts.Location,
		windowDays:   opts.WindowDays,
		logger:       opts.Logger.WithComponent(log.ComponentHTTP),
		rateLimiter:  newRateLimiter(rateLimitPerMinute),
		dailyCache:   cache.NewLRUCache[[]core.DailyTotal](dailyCacheSize, opts.CacheTTL),
		cacheManager: cache.NewManager(),
	}
	s.cacheManager.Register(s.dailyCache)
	s.cacheManager.StartCleanup(cacheCleanupInterval)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(log.Middleware(s.logger))
	r.Use(log.RequestIDMiddleware(func(r *http.Request) string {
		return middleware.GetReqID(r.Context())
	}))
	r.Use(s.logRequests)
	r.Use(s.securityHeaders)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, "not_found", "No such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api/expenses", func(r chi.Router) {
		r.With(s.limitWrites).Post("/", s.handleCreateExpense)
		r.Get("/", s.handleListExpenses)
		r.Get("/daily", s.handleDailyTotals)
	})

	return r
}

// logRequests writes start and end records through the request-scoped logger.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		sl := log.NewStructuredLogger(log.FromContext(r.Context()))
		sl.LogHTTPStart(r.Context(), r, clientIP)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		sl.LogHTTPEnd(r.Context(), r, status, time.Since(start).Milliseconds(), clientIP)
	})
}

// OnExpenseCreated drops cached daily series. Registered as a ledger observer.
func (s *Server) OnExpenseCreated(ctx context.Context, e core.Expense) error {
	s.cacheMu.Lock()
	s.generation++
	s.dailyCache.Purge()
	s.cacheMu.Unlock()
	s.logger.DebugContext(ctx, "Daily totals cache invalidated", log.FieldExpenseID, e.ID)
	return nil
}

// SecurityStats reports rate-limit and suspicious-request counters.
func (s *Server) SecurityStats() SecurityStats {
	return s.metrics.snapshot()
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// ListenAndServe runs the server until Shutdown; a graceful stop is not an error.
func (s *Server) ListenAndServe() error {
	if err := s.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
