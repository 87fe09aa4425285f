package main

import (
	"strconv"

	"sermonmux/internal/orchestrator"
)

// Exit codes for run commands.
const (
	exitOK        = 0
	exitFailures  = 1
	exitFaulted   = 2
	exitCancelled = 130
)

// exitError carries a process exit code through cobra. err may be nil when
// the command already reported the outcome.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return "exit status " + strconv.Itoa(e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// exitCodeFor maps a finished run to the process exit code. A completed run
// with per-language failures still exits non-zero.
func exitCodeFor(status orchestrator.Status) int {
	switch status.State {
	case orchestrator.StateCancelled:
		return exitCancelled
	case orchestrator.StateFaulted:
		return exitFaulted
	}
	if status.Failed > 0 {
		return exitFailures
	}
	return exitOK
}
