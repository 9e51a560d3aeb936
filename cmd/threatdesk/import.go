package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/threatdesk/threatdesk/internal/config"
	"github.com/threatdesk/threatdesk/internal/connectors/spreadsheet"
	"github.com/threatdesk/threatdesk/internal/finding"
	"github.com/threatdesk/threatdesk/internal/store"
	"github.com/threatdesk/threatdesk/internal/sync"
)

var (
	importKind     string
	importNoNotify bool
)

var importCmd = &cobra.Command{
	Use:   "import <workbook.xlsx>",
	Short: "Append the rows of a spreadsheet to the persistent import cache.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return commandError(runImport(args[0]))
	},
}

func init() {
	importCmd.Flags().StringVar(&importKind, "kind", string(finding.ImportApplication), "Import kind: application or infrastructure")
	importCmd.Flags().BoolVar(&importNoNotify, "no-notify", false, "Do not ask a running server to refresh after the import")
}

func runImport(path string) error {
	kind, err := finding.ParseImportKind(importKind)
	if err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	n, err := spreadsheet.Import(ctx, store.NewImports(pool), f, kind)
	if err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	slog.Info("spreadsheet imported", "file", path, "kind", kind, "rows", n)

	if importNoNotify {
		return nil
	}
	if err := sync.NewRefreshSignalRunner(pool).RunOnce(ctx); err != nil && !errors.Is(err, sync.ErrRefreshQueued) {
		slog.Warn("could not request a refresh", "err", err)
	}
	return nil
}
