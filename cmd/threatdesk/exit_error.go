package main

import (
	"context"
	"errors"
	"fmt"
)

// exitCanceled is the conventional status for a process stopped by SIGINT.
const exitCanceled = 130

type exitError struct {
	code   int
	err    error
	silent bool
}

func (e *exitError) Error() string {
	if e == nil {
		return ""
	}
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit %d", e.code)
}

func (e *exitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// commandError maps a run error onto the process exit status. Cancellation
// exits quietly with 130.
func commandError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return &exitError{code: exitCanceled, err: err, silent: true}
	}
	return &exitError{code: 1, err: err}
}
