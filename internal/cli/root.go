package cli

import (
	"context"
	stderrors "errors"
)

// ErrNotSwarmable is returned by "swarm validate" when the epic cannot be
// split into waves. The report has already been printed.
var ErrNotSwarmable = stderrors.New("epic is not swarmable")

// Exit codes.
const (
	ExitOK           = 0
	ExitError        = 1
	ExitNotSwarmable = 2
	ExitInterrupted  = 130
)

// ExitCode maps an error returned by the command tree to a process exit
// code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case stderrors.Is(err, context.Canceled):
		return ExitInterrupted
	case stderrors.Is(err, ErrNotSwarmable):
		return ExitNotSwarmable
	}
	return ExitError
}
