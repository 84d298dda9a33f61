// Package app ties the payverify components together and runs the server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/clinicdesk/payverify/internal/activation"
	"github.com/clinicdesk/payverify/internal/api"
	"github.com/clinicdesk/payverify/internal/auth"
	"github.com/clinicdesk/payverify/internal/config"
	"github.com/clinicdesk/payverify/internal/signature"
	"github.com/clinicdesk/payverify/internal/store"
)

// App is the payverify process.
type App struct {
	cfg    *config.Config
	store  store.Store // nil when storage is disabled
	api    *api.Server
	logger *slog.Logger
}

// New builds the app from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := store.New(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	// A nil store.Store must reach the activator as a nil interface.
	var subs activation.SubscriptionStore
	if db != nil {
		subs = db
	}
	act := activation.New(subs, activation.NewLogNotifier(logger), logger)

	secrets := cfg.SecretSource()
	verifier := signature.NewVerifier(secrets)
	authSvc := auth.NewService(cfg.Auth)
	apiSrv := api.NewServer(verifier, act, db, authSvc, cfg, logger)

	a := &App{
		cfg:    cfg,
		store:  db,
		api:    apiSrv,
		logger: logger.With("component", "app"),
	}

	// Startup warnings.
	if secrets.KeySecret() == "" {
		a.logger.Warn("razorpay key secret is not set; every verification will fail until it is",
			"env", cfg.Razorpay.SecretEnv)
	}
	if cfg.Razorpay.KeySecret != "" {
		a.logger.Warn("razorpay key secret is stored in the config file; prefer the environment variable")
	}
	for _, origin := range cfg.Server.AllowedOrigins {
		if origin == "*" {
			a.logger.Warn("CORS allowed_origins contains wildcard '*'; restrict to the checkout origin in production")
			break
		}
	}
	if cfg.Server.TrustProxy {
		a.logger.Info("trusting X-Forwarded-For / X-Real-IP for client addresses")
	}
	if db == nil {
		a.logger.Info("storage disabled; verified payments are logged only")
	} else if !authSvc.Enabled() {
		a.logger.Info("auth.jwt_secret not set; admin API disabled")
	}

	return a, nil
}

// Handler returns the HTTP handler. Used by tests.
func (a *App) Handler() http.Handler {
	return a.api.Handler()
}

// Run serves on the configured address until ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Server.Addr)
	if err != nil {
		a.closeStore()
		return fmt.Errorf("listen %s: %w", a.cfg.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled, then shuts down
// gracefully within the configured grace period.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.api.StartBackgroundTasks(ctx)

	if a.store != nil && a.cfg.Storage.AuditRetention.Duration > 0 {
		go a.runRetentionPurger(ctx, time.Hour, a.cfg.Storage.AuditRetention.Duration)
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("payverify listening", "addr", ln.Addr().String(), "path", api.VerifyPath)
		if a.cfg.Server.TLSCert != "" && a.cfg.Server.TLSKey != "" {
			errCh <- srv.ServeTLS(ln, a.cfg.Server.TLSCert, a.cfg.Server.TLSKey)
		} else {
			a.logger.Warn("TLS not configured, serving plain HTTP (terminate TLS at a proxy)")
			errCh <- srv.Serve(ln)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutting down gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownGrace.Duration)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("graceful shutdown failed, forcing close", "error", err)
			_ = srv.Close()
		} else {
			a.logger.Info("http server stopped gracefully")
		}

		a.closeStore()
		a.logger.Info("shutdown complete")
		return ctx.Err()

	case err := <-errCh:
		a.closeStore()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (a *App) closeStore() {
	if a.store == nil {
		return
	}
	a.logger.Info("closing store")
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close store", "error", err)
	}
}

func (a *App) runRetentionPurger(ctx context.Context, every, retention time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.purgeAuditEvents(ctx, retention)
		}
	}
}

func (a *App) purgeAuditEvents(ctx context.Context, retention time.Duration) {
	cutoff := time.Now().Add(-retention)
	if n, err := a.store.PurgeOldAuditEvents(ctx, cutoff); err != nil {
		a.logger.Warn("retention purge: audit events failed", "error", err)
	} else if n > 0 {
		a.logger.Info("retention purge: deleted old audit events", "count", n)
	}
}
