package gitexec

import (
	"os/exec"
	"testing"

	"github.com/bashhack/git-autosnap/internal/errors"
)

func TestExecuteWithOutputSuccess(t *testing.T) {
	e := NewExecExecutor()
	out, err := e.ExecuteWithOutput(exec.Command("echo", "-n", "hello"))
	if err != nil {
		t.Fatalf("ExecuteWithOutput() failed: %v", err)
	}
	if out != "hello" {
		t.Errorf("output = %q, want %q", out, "hello")
	}
}

func TestExecuteWithOutputFailureWrapsGitError(t *testing.T) {
	e := NewExecExecutor()
	_, err := e.ExecuteWithOutput(exec.Command("false"))
	if err == nil {
		t.Fatal("expected an error from a command that exits non-zero")
	}

	var gitErr *errors.GitError
	if !errors.As(err, &gitErr) {
		t.Fatalf("expected a *errors.GitError, got %T", err)
	}
	if !errors.Is(err, errors.ErrGitOperationFailed) {
		t.Error("expected the sentinel ErrGitOperationFailed to remain in the chain")
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Error("expected the raw *exec.ExitError to remain recoverable via errors.As")
	}
}

func TestToGitErrorMarksLockContentionTransient(t *testing.T) {
	cmd := exec.Command("false")
	err := toGitError(cmd, exec.ErrNotFound, "fatal: Unable to create '/r/.autosnap/index.lock': File exists.")

	var gitErr *errors.GitError
	if !errors.As(err, &gitErr) {
		t.Fatalf("expected a *errors.GitError, got %T", err)
	}
	if !gitErr.Transient {
		t.Error("expected index.lock contention to be classified as transient")
	}
}

func TestToGitErrorFatalByDefault(t *testing.T) {
	cmd := exec.Command("false")
	err := toGitError(cmd, exec.ErrNotFound, "git: command not found")

	var gitErr *errors.GitError
	if !errors.As(err, &gitErr) {
		t.Fatalf("expected a *errors.GitError, got %T", err)
	}
	if gitErr.Transient {
		t.Error("a missing-tool failure should not be classified as transient")
	}
}
