package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/threatdesk/threatdesk/internal/config"
	"github.com/threatdesk/threatdesk/internal/store"
	"golang.org/x/term"
)

var cacheClearYes bool

var cacheCmd = &cobra.Command{
	Use:         "cache",
	Short:       "Manage the persistent artifact and import caches.",
	Annotations: plainOutput(),
}

var cacheClearCmd = &cobra.Command{
	Use:       "clear <artifacts|imports>",
	Short:     "Empty one of the persistent caches.",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"artifacts", "imports"},
	RunE: func(cmd *cobra.Command, args []string) error {
		target := args[0]
		if !cacheClearYes {
			ok, err := confirmClear(cmd, target)
			if err != nil {
				return err
			}
			if !ok {
				cmd.Println("aborted")
				return nil
			}
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		pool, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		var n int64
		switch target {
		case "artifacts":
			n, err = store.NewArtifacts(pool).ClearArtifacts(ctx)
		case "imports":
			n, err = store.NewImports(pool).ClearImports(ctx)
		}
		if err != nil {
			return err
		}
		cmd.Printf("cleared %d %s\n", n, target)
		return nil
	},
}

func confirmClear(cmd *cobra.Command, target string) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, errors.New("refusing to clear without a terminal (use --yes)")
	}
	return promptYes(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Clear every cached %s? [y/N] ", target))
}

func promptYes(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprint(out, question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	cacheClearCmd.Flags().BoolVarP(&cacheClearYes, "yes", "y", false, "Skip the confirmation prompt")
}
