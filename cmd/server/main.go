package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/youowe/internal/action"
	"github.com/mmynk/youowe/internal/api"
	"github.com/mmynk/youowe/internal/auth"
	"github.com/mmynk/youowe/internal/config"
	"github.com/mmynk/youowe/internal/metrics"
	"github.com/mmynk/youowe/internal/middleware"
	"github.com/mmynk/youowe/internal/realtime"
	"github.com/mmynk/youowe/internal/service"
	"github.com/mmynk/youowe/internal/storage/sqlstore"
	"github.com/mmynk/youowe/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize storage", "driver", cfg.DBDriver, "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "driver", cfg.DBDriver)

	m := metrics.New()
	hub := realtime.NewHub(nil, m.RealtimeSubscribers())
	hasher := auth.NewBcryptHasher(0)

	// Without a provider, sign-up routes answer with an internal error.
	var identity auth.IdentityProvider
	if cfg.IdentityProviderConfigured() {
		client, err := auth.NewGoTrueClient(auth.GoTrueConfig{URL: cfg.AuthURL, APIKey: cfg.AuthAPIKey})
		if err != nil {
			slog.Error("Failed to create identity provider client", "error", err)
			os.Exit(1)
		}
		identity = client
	} else {
		slog.Warn("Identity provider not configured, sign-up is disabled")
	}

	actions := action.New(
		service.NewGroups(store, hasher, m),
		service.NewMembers(store, hasher, identity, m),
		service.NewOrders(store, hub, m),
	)

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	limiter.StartCleanup(time.Minute, ctx.Done())

	router := api.NewRouter(api.Options{
		Actions:             actions,
		Hub:                 hub,
		Verifier:            auth.NewTokenVerifier(cfg.AuthJWTSecret, cfg.AuthAudience),
		Metrics:             m,
		Limiter:             limiter,
		Store:               store,
		CORSOrigin:          cfg.CORSOrigin,
		SessionCookieName:   cfg.SessionCookieName,
		SessionCookieSecure: cfg.SessionCookieSecure,
	})

	// Wrap with h2c so clients may speak HTTP/2 without TLS
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h2c.NewHandler(router, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "address", server.Addr)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// Websocket connections are hijacked and not tracked by Shutdown.
	hub.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
	slog.Info("Server stopped")
}

func openStore(ctx context.Context, cfg *config.Config) (*sqlstore.Store, error) {
	if cfg.DBDriver == sqlstore.DriverPostgres {
		return sqlstore.OpenPostgres(ctx, cfg.DatabaseURL)
	}
	return sqlstore.OpenSQLite(cfg.DBPath)
}
