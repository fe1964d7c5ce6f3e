package gitexec

import "os/exec"

// fakeExecutor is a simple hand-rolled CommandExecutor that records the
// commands it was asked to run and returns canned output/errors, so callers
// can be tested without shelling out to a real git binary.
type fakeExecutor struct {
	output   string
	err      error
	lastCmd  *exec.Cmd
	commands []*exec.Cmd
}

func (f *fakeExecutor) Execute(cmd *exec.Cmd) error {
	f.lastCmd = cmd
	f.commands = append(f.commands, cmd)
	return f.err
}

func (f *fakeExecutor) ExecuteWithOutput(cmd *exec.Cmd) (string, error) {
	f.lastCmd = cmd
	f.commands = append(f.commands, cmd)
	return f.output, f.err
}
