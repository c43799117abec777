//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// DefaultWaitDelay bounds how long Run waits for the output pipes to close
// once the command has been killed. Installers started by the package manager
// inherit the pipes and may outlive it.
const DefaultWaitDelay = 5 * time.Second

// CommandResult is what a finished external command produced.
type CommandResult struct {
	// Output holds stdout and stderr interleaved in the order they were written.
	Output string
	// ExitCode is the exit status reported by the command.
	ExitCode int
}

// CommandRunner resolves and runs external commands.
//
// Run returns an error only when the command could not be run to completion:
// it failed to start, the I/O plumbing broke or the context ended. A command
// that merely exits with a non-zero status is reported through ExitCode.
type CommandRunner interface {
	LookPath(name string) (string, error)
	Run(ctx context.Context, name string, args ...string) (*CommandResult, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// WaitDelay overrides DefaultWaitDelay when positive.
	WaitDelay time.Duration
}

// LookPath implements CommandRunner.
func (ExecRunner) LookPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("look up %s: %w", name, err)
	}

	return path, nil
}

// Run implements CommandRunner. Standard error is merged into standard output.
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) (*CommandResult, error) {
	var output bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &output
	cmd.Stderr = &output

	cmd.WaitDelay = DefaultWaitDelay
	if r.WaitDelay > 0 {
		cmd.WaitDelay = r.WaitDelay
	}

	err := cmd.Run()
	result := &CommandResult{
		Output:   output.String(),
		ExitCode: cmd.ProcessState.ExitCode(),
	}

	// A killed process also surfaces as *exec.ExitError, so the context is checked first.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, fmt.Errorf("run %s: %w", name, ctxErr)
	}

	var exitErr *exec.ExitError
	if err == nil || errors.As(err, &exitErr) {
		return result, nil
	}

	return result, fmt.Errorf("run %s: %w", name, err)
}
