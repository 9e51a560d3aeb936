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

	"github.com/alexedwards/scs/v2"
	"github.com/spf13/cobra"
	"github.com/threatdesk/threatdesk/internal/config"
	httpapp "github.com/threatdesk/threatdesk/internal/http"
	"github.com/threatdesk/threatdesk/internal/http/handlers"
	"github.com/threatdesk/threatdesk/internal/metrics"
	"github.com/threatdesk/threatdesk/internal/statussync"
	"github.com/threatdesk/threatdesk/internal/sync"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the background refresh loop.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func newSessionManager() *scs.SessionManager {
	sessions := scs.New()
	sessions.Lifetime = 12 * time.Hour
	sessions.IdleTimeout = 2 * time.Hour
	sessions.Cookie.Name = "threatdesk_session"
	sessions.Cookie.HttpOnly = true
	sessions.Cookie.SameSite = http.SameSiteLaxMode
	return sessions
}

func runServe() error {
	cfg, err := config.LoadOptionalDB()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	_, metricsErrCh := metrics.Listener{
		Addr:  cfg.MetricsAddr,
		Ready: func() bool { return rt.refresher.Snapshot() != nil },
	}.Start(ctx)

	signals := make(chan struct{}, 1)
	if rt.pool != nil && cfg.ResyncEnabled {
		go func() {
			if err := sync.ListenForRefreshRequests(ctx, rt.pool, signals); err != nil {
				slog.Error("refresh listener stopped", "err", err)
			}
		}()
	}
	scheduler := sync.Scheduler{Runner: rt.refresher, Interval: cfg.RefreshInterval, Signals: signals}
	go scheduler.Run(ctx)

	var syncer handlers.RefreshRunner = rt.refresher
	if !cfg.ResyncEnabled {
		syncer = nil
	}

	srv := httpapp.NewEchoServer(&handlers.Handlers{
		Snapshots:       rt.refresher,
		Syncer:          syncer,
		Status:          statussync.New(rt.registry, rt.refresher),
		Remediation:     rt.engine,
		Imports:         rt.imports,
		Catalog:         rt.catalog,
		Sources:         rt.registry,
		Sessions:        newSessionManager(),
		DefaultPageSize: cfg.DefaultPageSize,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", cfg.HTTPAddr, "resync_enabled", cfg.ResyncEnabled)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		return nil
	case err := <-metricsErrCh:
		return err
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
