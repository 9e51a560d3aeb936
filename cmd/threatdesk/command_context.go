package main

import (
	"sync"

	"github.com/spf13/cobra"
)

// annotationPlainOutput marks commands that talk to an operator directly and
// report errors as plain text instead of structured logs.
const annotationPlainOutput = "threatdesk/plain-output"

type commandExecutionContext struct {
	CommandPath       string
	UsesStructuredLog bool
}

var (
	commandContextMu sync.RWMutex
	commandContext   = commandExecutionContext{UsesStructuredLog: true}
)

func setCommandExecutionContext(ctx commandExecutionContext) {
	commandContextMu.Lock()
	defer commandContextMu.Unlock()
	commandContext = ctx
}

func resetCommandExecutionContext() {
	setCommandExecutionContext(commandExecutionContext{UsesStructuredLog: true})
}

func currentCommandExecutionContext() commandExecutionContext {
	commandContextMu.RLock()
	defer commandContextMu.RUnlock()
	return commandContext
}

func commandUsesStructuredLogging(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[annotationPlainOutput] == "true" {
			return false
		}
	}
	return true
}

func plainOutput() map[string]string {
	return map[string]string{annotationPlainOutput: "true"}
}
