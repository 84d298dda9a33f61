// Package api provides the HTTP API and middleware for payverify.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/clinicdesk/payverify/internal/activation"
	"github.com/clinicdesk/payverify/internal/auth"
	"github.com/clinicdesk/payverify/internal/config"
	"github.com/clinicdesk/payverify/internal/signature"
	"github.com/clinicdesk/payverify/internal/store"
)

// VerifyPath is where the checkout page posts the gateway callback.
const VerifyPath = "/api/verify-payment"

// Server is the HTTP API server.
type Server struct {
	verifier     *signature.Verifier
	activator    *activation.Activator
	store        store.Store // nil when storage is disabled
	auth         *auth.Service
	logger       *slog.Logger
	mux          *chi.Mux
	startTime    time.Time
	maxBodyBytes int64
	rl           *rateLimiter
}

// NewServer creates a new API server. st may be nil; the audit trail and the
// admin API are then disabled.
func NewServer(v *signature.Verifier, act *activation.Activator, st store.Store, as *auth.Service, cfg *config.Config, logger *slog.Logger) *Server {
	srv := &Server{
		verifier:     v,
		activator:    act,
		store:        st,
		auth:         as,
		logger:       logger.With("component", "api"),
		startTime:    time.Now(),
		maxBodyBytes: cfg.Server.MaxBodyBytes,
		rl:           newRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
	}

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	if cfg.Server.TrustProxy {
		mux.Use(chimw.RealIP)
	}
	mux.Use(srv.recoverMiddleware)
	mux.Use(securityHeadersMiddleware)

	// Health check routes (unauthenticated)
	mux.Get("/healthz", srv.handleHealthz)
	mux.Get("/readyz", srv.handleReadyz)

	// Payment callback. Method gating happens in the handler so that every
	// method gets the JSON error shape.
	mux.Group(func(r chi.Router) {
		r.Use(makeCORSMiddleware(cfg.Server.AllowedOrigins))
		r.Use(ipRateLimitMiddleware(srv.rl))
		r.HandleFunc(VerifyPath, srv.handleVerifyPayment)
	})

	// Admin API needs both a store to read and a token secret.
	if st != nil && as != nil && as.Enabled() {
		mux.Route("/api/admin", func(r chi.Router) {
			r.Use(srv.authMiddleware)
			r.Get("/subscriptions", srv.handleListSubscriptions)
			r.Get("/subscriptions/{paymentID}", srv.handleGetSubscription)
			r.With(srv.adminMiddleware).Get("/audit", srv.handleListAuditEvents)
		})
	}

	srv.mux = mux
	return srv
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// StartBackgroundTasks starts periodic cleanup of idle rate limiter buckets.
func (s *Server) StartBackgroundTasks(ctx context.Context) {
	s.rl.StartCleanup(ctx, 5*time.Minute, 10*time.Minute)
}

// --- Health handlers ---

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"uptime": time.Since(s.startTime).Truncate(time.Second).String(),
	})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			s.logger.Warn("readiness check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
