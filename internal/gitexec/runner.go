package gitexec

import (
	"context"
	"os/exec"
)

// Runner builds and executes git invocations against a specific sidecar
// git-dir and (optionally) a work-tree, so callers never hand-assemble
// --git-dir/--work-tree flags themselves.
type Runner struct {
	Executor CommandExecutor
	GitDir   string
	WorkTree string // empty for git-dir-only operations (write-tree, commit-tree, log, gc...)
}

// New returns a Runner bound to gitDir with no work-tree.
func New(executor CommandExecutor, gitDir string) *Runner {
	return &Runner{Executor: executor, GitDir: gitDir}
}

// WithWorkTree returns a copy of the runner bound to the given work-tree.
func (r *Runner) WithWorkTree(workTree string) *Runner {
	return &Runner{Executor: r.Executor, GitDir: r.GitDir, WorkTree: workTree}
}

func (r *Runner) baseArgs() []string {
	args := []string{"--git-dir=" + r.GitDir}
	if r.WorkTree != "" {
		args = append(args, "--work-tree="+r.WorkTree)
	}
	return args
}

// Cmd builds an *exec.Cmd for "git <baseArgs> <args...>" bound to ctx.
func (r *Runner) Cmd(ctx context.Context, args ...string) *exec.Cmd {
	fullArgs := append(r.baseArgs(), args...)
	return exec.CommandContext(ctx, "git", fullArgs...)
}

// Run executes a git subcommand, discarding stdout.
func (r *Runner) Run(ctx context.Context, args ...string) error {
	return r.Executor.Execute(r.Cmd(ctx, args...))
}

// Output executes a git subcommand and returns its captured stdout.
func (r *Runner) Output(ctx context.Context, args ...string) (string, error) {
	return r.Executor.ExecuteWithOutput(r.Cmd(ctx, args...))
}
