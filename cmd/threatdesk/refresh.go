package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/threatdesk/threatdesk/internal/config"
	"github.com/threatdesk/threatdesk/internal/store"
	"github.com/threatdesk/threatdesk/internal/sync"
)

var refreshSignal bool

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Run one refresh cycle against every source and report the outcome.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if refreshSignal {
			return commandError(runRefreshSignal())
		}
		return commandError(runRefresh())
	},
}

func init() {
	refreshCmd.Flags().BoolVar(&refreshSignal, "signal", false, "Ask a running server to refresh instead of refreshing here (requires DATABASE_URL)")
}

func runRefresh() error {
	cfg, err := config.LoadOptionalDB()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := newRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	snap, err := rt.refresher.Refresh(ctx)
	if err != nil && !errors.Is(err, sync.ErrNoData) {
		return err
	}
	for src, n := range snap.Counts {
		slog.Info("source read", "source", src, "findings", n)
	}
	for src, srcErr := range snap.SourceErrors {
		slog.Warn("source unavailable", "source", src, "err", srcErr)
	}
	slog.Info("refresh finished",
		"findings", len(snap.Findings),
		"duplicates", snap.Stats.Duplicates,
		"failed_sources", len(snap.SourceErrors),
	)
	return err
}

func runRefreshSignal() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	err = sync.NewRefreshSignalRunner(pool).RunOnce(ctx)
	if errors.Is(err, sync.ErrRefreshQueued) {
		slog.Info("refresh requested", "channel", sync.RefreshNotifyChannel)
		return nil
	}
	return err
}
