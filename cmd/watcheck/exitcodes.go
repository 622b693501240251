package main

import (
	stderrors "errors"

	"github.com/wippyai/wat-engine/errors"
)

// Exit codes.
const (
	ExitSuccess       = 0
	ExitProblems      = 1
	ExitInvalidUsage  = 64
	ExitConfigError   = 65
	ExitInternalError = 70
	ExitIOError       = 74
)

// errProblems signals that diagnostics with error severity were reported.
var errProblems = stderrors.New("problems found")

func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if stderrors.Is(err, errProblems) {
		return ExitProblems
	}
	var e *errors.Error
	if !stderrors.As(err, &e) {
		// cobra argument and flag errors
		return ExitInvalidUsage
	}
	switch e.Phase {
	case errors.PhaseConfig:
		return ExitConfigError
	case errors.PhaseLoad, errors.PhaseWatch:
		return ExitIOError
	}
	if e.Kind == errors.KindRejected {
		return ExitProblems
	}
	return ExitInternalError
}
