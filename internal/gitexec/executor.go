// Package gitexec delegates every interaction with the host git binary to
// os/exec rather than reimplementing index population, tree writing, or
// config resolution in-process. All higher layers (snapshot, gitconfig,
// ignore) build on the CommandExecutor interface here so they can be tested
// against a fake without shelling out for real.
package gitexec

import (
	"bytes"
	"fmt"
	"os/exec"

	"github.com/bashhack/git-autosnap/internal/errors"
)

// CommandExecutor defines an interface for executing commands
type CommandExecutor interface {
	// Execute runs a command and returns an error if it fails or exits non-zero
	Execute(cmd *exec.Cmd) error

	// ExecuteWithOutput runs a command, returning captured stdout, and an error
	// if it fails or exits non-zero
	ExecuteWithOutput(cmd *exec.Cmd) (string, error)
}

// ExecExecutor is the default implementation of CommandExecutor
// that delegates to the os/exec package
type ExecExecutor struct{}

// NewExecExecutor creates a new ExecExecutor
func NewExecExecutor() *ExecExecutor {
	return &ExecExecutor{}
}

// Execute implements CommandExecutor.Execute
func (e *ExecExecutor) Execute(cmd *exec.Cmd) error {
	var stderr bytes.Buffer
	if cmd.Stderr == nil {
		cmd.Stderr = &stderr
	}

	err := cmd.Run()
	if err != nil {
		return toGitError(cmd, err, stderr.String())
	}
	return nil
}

// ExecuteWithOutput implements CommandExecutor.ExecuteWithOutput
func (e *ExecExecutor) ExecuteWithOutput(cmd *exec.Cmd) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		return "", toGitError(cmd, err, stderr.String())
	}

	return stdout.String(), nil
}

func toGitError(cmd *exec.Cmd, err error, stderrOutput string) error {
	operation := ""
	if len(cmd.Args) > 0 {
		operation = cmd.Args[0]
	}

	var args []string
	if len(cmd.Args) > 1 {
		args = cmd.Args[1:]
	}

	// Wrap both the sentinel and the raw *exec.ExitError so callers can use
	// errors.Is(err, errors.ErrGitOperationFailed) for classification while
	// still being able to errors.As(err, &exitErr) to inspect the exit code.
	wrappedErr := fmt.Errorf("%w: %w", errors.ErrGitOperationFailed, err)
	gitErr := errors.NewGitError(operation, args, wrappedErr, stderrOutput)

	// Lock contention on the sidecar's index/ref is the one git failure mode
	// worth retrying; it surfaces as "Unable to create ... File exists" from
	// index.lock, or "cannot lock ref" from a concurrent update-ref.
	if containsAny(stderrOutput, "index.lock", "cannot lock ref", "unable to create") {
		gitErr.Transient = true
	}
	return gitErr
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if bytesContainsFold(s, sub) {
			return true
		}
	}
	return false
}

func bytesContainsFold(s, sub string) bool {
	return bytes.Contains(bytes.ToLower([]byte(s)), bytes.ToLower([]byte(sub)))
}
