package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/threatdesk/threatdesk/internal/logging"
)

func main() {
	os.Exit(runMain(Execute, os.Stderr))
}

// exitStatus is how a failed command ends the process.
type exitStatus struct {
	code    int
	cause   error
	message string
	silent  bool
}

func runMain(execute func() error, stderr io.Writer) int {
	err := execute()
	if err == nil {
		return 0
	}
	st := resolveExit(err)
	if !st.silent {
		emitCommandError(st.cause, st.message, st.code, stderr)
	}
	return st.code
}

func resolveExit(err error) exitStatus {
	var ee *exitError
	switch {
	case errors.As(err, &ee):
		st := exitStatus{code: ee.code, cause: err, message: "command failed", silent: ee.silent}
		if ee.err != nil {
			st.cause = ee.err
		}
		if ee.code == exitCanceled {
			st.message = "command canceled"
		}
		return st
	case errors.Is(err, context.Canceled):
		return exitStatus{code: exitCanceled, cause: err, message: "command canceled"}
	default:
		return exitStatus{code: 1, cause: err, message: "command failed"}
	}
}

// emitCommandError reports a fatal error as a log record for long-running
// commands and as a bare line for interactive ones.
func emitCommandError(err error, message string, exitCode int, stderr io.Writer) {
	ctx := currentCommandExecutionContext()
	if !ctx.UsesStructuredLog {
		if exitCode == exitCanceled {
			fmt.Fprintln(stderr, "canceled")
			return
		}
		fmt.Fprintln(stderr, err)
		return
	}

	// The bootstrap in PersistentPreRunE may never have run, so build a
	// logger from the environment here.
	cfg, cfgErr := logging.LoadConfigFromEnv()
	if cfgErr != nil {
		cfg = logging.DefaultConfig()
	}
	logging.NewLogger(cfg, stderr, ctx.CommandPath).Error(message, "exit_code", exitCode, "error", err)
}
