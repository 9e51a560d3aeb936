package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/threatdesk/threatdesk/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "threatdesk",
	Short:         "Threatdesk triages security findings from every scanner in one place.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		structured := commandUsesStructuredLogging(cmd)
		setCommandExecutionContext(commandExecutionContext{
			CommandPath:       cmd.CommandPath(),
			UsesStructuredLog: structured,
		})
		if !structured {
			return nil
		}
		_, err := logging.BootstrapFromEnv(logging.BootstrapOptions{
			Command: cmd.CommandPath(),
			Writer:  os.Stdout,
		})
		return err
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd, refreshCmd, migrateCmd, importCmd, cacheCmd)
}
