// Package supervisor implements the Process Supervisor: starting the
// Watcher either in the foreground or as a detached background process,
// stopping it by PID and signal, and reporting its status - all against
// the single PID lock file at R/.autosnap/autosnap.pid.
package supervisor

import (
	"context"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/bashhack/git-autosnap/internal/errors"
	"github.com/bashhack/git-autosnap/internal/lock"
	"github.com/bashhack/git-autosnap/internal/logger"
	"github.com/bashhack/git-autosnap/internal/reposcope"
)

// Supervisor manages the lifecycle of the watcher process for one repository.
type Supervisor struct {
	RepoRoot string
	Log      logger.Logger
}

// New returns a Supervisor for repoRoot.
func New(repoRoot string, log logger.Logger) *Supervisor {
	return &Supervisor{RepoRoot: repoRoot, Log: log}
}

// Status reports whether a watcher is currently running for this
// repository, and its PID if so.
func (s *Supervisor) Status() (running bool, pid int, err error) {
	pidFile := reposcope.PIDFile(s.RepoRoot)
	if _, statErr := os.Stat(pidFile); statErr != nil {
		return false, 0, nil
	}
	pid, err = lock.ReadPID(pidFile)
	if err != nil {
		return false, 0, err
	}
	return lock.IsProcessRunning(pid), pid, nil
}

// StartForeground acquires the PID lock and runs fn (the watcher's Run
// loop) in the current process, releasing the lock when fn returns.
func (s *Supervisor) StartForeground(fn func() error) error {
	locker, err := lock.New(reposcope.PIDFile(s.RepoRoot))
	if err != nil {
		return err
	}
	if err := locker.Acquire(); err != nil {
		return err
	}
	if locker.RecoveredFromPID != 0 {
		s.Log.Warning("%v", errors.Wrapf(errors.ErrStaleLock, "removed lock held by dead PID %d", locker.RecoveredFromPID))
	}
	defer func() {
		if releaseErr := locker.Release(); releaseErr != nil {
			s.Log.Warning("failed to release watcher lock: %v", releaseErr)
		}
	}()

	return fn()
}

// StartDaemon spawns a detached copy of the current executable running
// `start` in the background, redirecting its stdio to /dev/null and
// detaching it into a new session so it survives the launching shell
// exiting. It waits briefly for the child to acquire the PID lock before
// returning, so callers can report a reliable "started" or "failed to
// start".
func (s *Supervisor) StartDaemon(ctx context.Context, args []string) (pid int, err error) {
	if running, existingPID, _ := s.Status(); running {
		return existingPID, errors.ErrAlreadyRunning
	}

	exe, err := os.Executable()
	if err != nil {
		return 0, errors.Wrap(err, "failed to resolve current executable")
	}

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return 0, errors.Wrap(err, "failed to open /dev/null")
	}
	defer devNull.Close()

	cmd := exec.Command(exe, args...)
	cmd.Dir = s.RepoRoot
	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, errors.Wrap(err, "failed to spawn daemon process")
	}
	// The child now owns its own lifecycle; release it from this process's
	// child-reaping responsibilities.
	if err := cmd.Process.Release(); err != nil {
		s.Log.Warning("failed to release daemon child process handle: %v", err)
	}

	pid = cmd.Process.Pid
	if err := s.awaitLockAcquired(ctx, pid); err != nil {
		return pid, err
	}
	return pid, nil
}

func (s *Supervisor) awaitLockAcquired(ctx context.Context, spawnedPID int) error {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if running, pid, _ := s.Status(); running && pid != 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	return errors.Errorf("daemon process %d did not acquire its lock within the startup deadline", spawnedPID)
}

// Stop sends SIGTERM to the running watcher and waits for the PID file to
// disappear, up to a bounded timeout.
func (s *Supervisor) Stop(ctx context.Context) error {
	running, pid, err := s.Status()
	if err != nil {
		return err
	}
	if !running {
		return nil
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return errors.Wrapf(err, "failed to find process %d", pid)
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return errors.Wrapf(err, "failed to signal process %d", pid)
	}

	pidFile := reposcope.PIDFile(s.RepoRoot)
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if _, statErr := os.Stat(pidFile); os.IsNotExist(statErr) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	return errors.Errorf("watcher process %d did not stop within the shutdown deadline", pid)
}

// Uninstall stops the watcher if running and removes the entire sidecar
// store, discarding all recorded snapshot history.
func (s *Supervisor) Uninstall(ctx context.Context) error {
	if running, _, _ := s.Status(); running {
		if err := s.Stop(ctx); err != nil {
			return err
		}
	}

	dir := reposcope.SidecarDir(s.RepoRoot)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	return os.RemoveAll(dir)
}
