package gitexec

import (
	"context"
	"strings"
	"testing"
)

func TestRunnerBaseArgsGitDirOnly(t *testing.T) {
	fake := &fakeExecutor{}
	r := New(fake, "/r/.autosnap")

	if err := r.Run(context.Background(), "gc"); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	got := strings.Join(fake.lastCmd.Args, " ")
	want := "git --git-dir=/r/.autosnap gc"
	if got != want {
		t.Errorf("command = %q, want %q", got, want)
	}
}

func TestRunnerWithWorkTreeAddsFlag(t *testing.T) {
	fake := &fakeExecutor{}
	r := New(fake, "/r/.autosnap").WithWorkTree("/r")

	if _, err := r.Output(context.Background(), "status"); err != nil {
		t.Fatalf("Output() failed: %v", err)
	}

	got := strings.Join(fake.lastCmd.Args, " ")
	want := "git --git-dir=/r/.autosnap --work-tree=/r status"
	if got != want {
		t.Errorf("command = %q, want %q", got, want)
	}
}

func TestRunnerWithWorkTreeDoesNotMutateOriginal(t *testing.T) {
	fake := &fakeExecutor{}
	base := New(fake, "/r/.autosnap")
	_ = base.WithWorkTree("/r")

	if base.WorkTree != "" {
		t.Errorf("WithWorkTree should return a copy, but mutated the original runner's WorkTree to %q", base.WorkTree)
	}
}

func TestRunnerOutputReturnsExecutorOutput(t *testing.T) {
	fake := &fakeExecutor{output: "deadbeef\n"}
	r := New(fake, "/r/.autosnap")

	out, err := r.Output(context.Background(), "rev-parse", "HEAD")
	if err != nil {
		t.Fatalf("Output() failed: %v", err)
	}
	if out != "deadbeef\n" {
		t.Errorf("Output() = %q, want %q", out, "deadbeef\n")
	}
}
