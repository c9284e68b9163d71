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

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	backendadapter "github.com/aledeev/tracklink/internal/adapter/driven/backend"
	httphandler "github.com/aledeev/tracklink/internal/adapter/driving/http"
	"github.com/aledeev/tracklink/internal/application"
	"github.com/aledeev/tracklink/internal/config"
	"github.com/aledeev/tracklink/internal/domain/model"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"backend_url", cfg.BackendURL,
		"http_timeout", cfg.HTTPTimeout,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Wire the backend adapter and the session.
	client := backendadapter.NewClient(cfg.BackendURL, cfg.HTTPTimeout)
	session := application.NewSession()

	// 4. Collaborator hooks. The surrounding product (chat, search) plugs its
	// own cache refresh in here; standalone we only log.
	hooks := application.Hooks{
		OnProjectsUpdate: func(projects []model.Project) {
			slog.Info("project registry updated", "count", len(projects))
		},
		RefreshInternalProjects: func() {
			slog.Info("internal project refresh requested")
		},
	}

	// 5. Create services.
	discoverySvc := application.NewDiscoveryService(client, session, slog.Default())
	credentialSvc := application.NewCredentialService(client, session, discoverySvc, hooks, slog.Default())
	linkSvc := application.NewLinkService(client, session, hooks, slog.Default())

	// 6. Preload credentials so the session starts in the right mode. A dead
	// backend at boot is not fatal; the first API call retries the fetch.
	if _, err := credentialSvc.Load(ctx); err != nil {
		slog.Error("initial credential load failed", "error", err)
	}

	// 7. Create HTTP handler and server.
	handler := httphandler.NewHandler(credentialSvc, discoverySvc, linkSvc, session, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(handler, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("tracklink started", "listen_addr", cfg.ListenAddr)

	// 8. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 9. Graceful shutdown with 10s timeout to drain in-flight requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
