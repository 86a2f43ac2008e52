package http

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"financia/internal/budget"
	"financia/internal/log"
	"financia/internal/middleware/ratelimit"
	"financia/internal/middleware/security"
	"financia/internal/middleware/trace"
)

// ReadyCheck reports whether dependencies are reachable.
type ReadyCheck func(ctx context.Context) error

// Options configures optional server behaviour.
type Options struct {
	Logger            *log.Logger
	Ready             ReadyCheck
	RequestsPerMinute int
	Now               func() time.Time
}

// Server serves one user's budget over JSON.
type Server struct {
	http.Server
	store       *budget.Store
	logger      *log.Logger
	ready       ReadyCheck
	now         func() time.Time
	rateLimiter *ratelimit.Limiter
	tracer      *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, store *budget.Store, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{
		store:  store,
		logger: opts.Logger.WithComponent(log.ComponentHTTP),
		ready:  opts.Ready,
		now:    opts.Now,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RequestsPerMinute,
		}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("PUT /api/salary", s.handleSetSalary)
	mux.HandleFunc("PUT /api/settings", s.handleSettings)

	mux.HandleFunc("POST /api/categories", s.handleAddCategory)
	mux.HandleFunc("PUT /api/categories/{id}/budget", s.handleUpdateBudget)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleRemoveCategory)

	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("POST /api/expenses", s.handleAddExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleRemoveExpense)

	mux.HandleFunc("PUT /api/investment", s.handleSetInvestment)
	mux.HandleFunc("GET /api/investment/projection", s.handleProjection)

	mux.HandleFunc("POST /api/months/close", s.handleCloseMonth)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("DELETE /api/history/{id}", s.handleRemoveHistory)

	limit := s.rateLimiter.Middleware(clientIP, func(w http.ResponseWriter, r *http.Request, retry time.Duration) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, clientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		w.Header().Set("Retry-After", strconv.Itoa(ratelimit.RetryAfterSeconds(retry)))
		writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded, try again later")
	})
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.tracer = trace.NewMiddleware(opts.Logger, clientIP)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.tracer.Middleware(headers.Middleware(limit(mux))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)

		limits := s.rateLimiter.GetMetrics()
		s.logger.InfoContext(ctx, "HTTP server stopped",
			"requests", s.tracer.GetMetrics().TotalRequests,
			"rate_limited", limits.Denied,
			"clients", limits.ClientCount)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
