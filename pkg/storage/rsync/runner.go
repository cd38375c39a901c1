package rsync

import (
	"context"
	"os/exec"
)

// Runner executes a command and returns its combined output
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// exit codes documented in rsync(1) as timeouts
const (
	exitTimeoutIO     = 30
	exitTimeoutDaemon = 35
)

func exitCode(err error) (int, bool) {
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return 0, false
	}
	return exitErr.ExitCode(), true
}
