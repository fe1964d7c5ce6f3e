// Package lock implements the single-instance PID lock that the Process
// Supervisor acquires at R/.autosnap/autosnap.pid before starting a
// watcher, using an advisory flock plus a liveness-checked PID so a crashed
// watcher's stale lock can be detected and recovered.
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	autosnapErrors "github.com/bashhack/git-autosnap/internal/errors"
)

// Locker prevents concurrent watcher instances for one repository using an
// advisory file lock at a fixed, caller-supplied path (R/.autosnap/autosnap.pid).
type Locker struct {
	lockFile string
	lockFd   *os.File
	pid      int
	acquired bool

	// RecoveredFromPID is set if Acquire had to remove and replace a lock
	// file left behind by a process that no longer exists. Zero means no
	// stale lock was encountered.
	RecoveredFromPID int
}

// New creates a Locker bound to the given lock file path.
func New(lockFile string) (*Locker, error) {
	if runtime.GOOS == "windows" {
		return nil, autosnapErrors.NewLockError("", 0,
			autosnapErrors.Wrap(autosnapErrors.ErrLockAcquisitionFailure,
				"git-autosnap currently only supports Unix-like operating systems (Linux, macOS, BSD). "+
					"Windows support is not available at this time."))
	}

	if err := os.MkdirAll(filepath.Dir(lockFile), 0o755); err != nil {
		return nil, autosnapErrors.NewLockError(lockFile, 0,
			autosnapErrors.Wrap(err, "failed to create directory for lock file"))
	}

	return &Locker{
		lockFile: lockFile,
		pid:      os.Getpid(),
		acquired: false,
	}, nil
}

// Path returns the lock file's path.
func (l *Locker) Path() string {
	return l.lockFile
}

// Acquire tries to acquire the lock.
func (l *Locker) Acquire() error {
	err := l.tryCreateLock()
	if err == nil {
		return nil
	} else if os.IsExist(err) {
		return l.tryAcquireExistingLock()
	}
	return err
}

// tryCreateLock attempts to create and lock a new lock file.
func (l *Locker) tryCreateLock() error {
	var err error

	l.lockFd, err = os.OpenFile(l.lockFile, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return err
		}
		return autosnapErrors.NewLockError(l.lockFile, 0,
			autosnapErrors.Wrap(err, "failed to create lock file"))
	}

	if err = l.acquireFlock(); err != nil {
		l.closeFileDescriptor()
		return autosnapErrors.NewLockError(l.lockFile, 0,
			autosnapErrors.Wrap(err, "failed to acquire lock on newly created lock file"))
	}

	if err = l.writePidToLockFile(); err != nil {
		if releaseErr := l.Release(); releaseErr != nil {
			return autosnapErrors.Wrap(err, fmt.Sprintf("failed to write PID and failed to release lock: %v", releaseErr))
		}
		return err
	}

	l.acquired = true
	return nil
}

// tryAcquireExistingLock acquires a lock on an existing lock file.
func (l *Locker) tryAcquireExistingLock() error {
	var err error
	l.lockFd, err = os.OpenFile(l.lockFile, os.O_RDWR, 0o600)
	if err != nil {
		return autosnapErrors.NewLockError(l.lockFile, 0,
			autosnapErrors.Wrap(err, "failed to open existing lock file"))
	}

	if err = l.acquireFlock(); err != nil {
		l.closeFileDescriptor()

		// EWOULDBLOCK and EAGAIN are the same condition on most systems but
		// are not guaranteed to be the same constant everywhere.
		if autosnapErrors.Is(err, syscall.EWOULDBLOCK) || autosnapErrors.Is(err, syscall.EAGAIN) {
			return l.handleBlockedLock()
		}

		return autosnapErrors.NewLockError(l.lockFile, 0,
			autosnapErrors.Wrap(err, "failed to acquire lock"))
	}

	if err = l.resetAndWritePid(); err != nil {
		if releaseErr := l.Release(); releaseErr != nil {
			return autosnapErrors.Wrap(err, fmt.Sprintf("failed to reset/write PID and failed to release lock: %v", releaseErr))
		}
		return err
	}

	l.acquired = true
	return nil
}

// handleBlockedLock handles locks held by another process and attempts to
// recover from stale locks left behind by a process that no longer exists.
func (l *Locker) handleBlockedLock() error {
	otherPid, pidErr := l.readLockFilePid()
	if pidErr != nil {
		return autosnapErrors.NewLockError(l.lockFile, 0,
			autosnapErrors.Wrap(pidErr, "another git-autosnap watcher is running, but couldn't identify its PID"))
	}

	if IsProcessRunning(otherPid) {
		return autosnapErrors.NewLockError(l.lockFile, otherPid, autosnapErrors.ErrAlreadyRunning)
	}

	return l.handleStaleLock(otherPid)
}

// acquireFlock gets an exclusive non-blocking lock.
func (l *Locker) acquireFlock() error {
	return syscall.Flock(int(l.lockFd.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
}

// resetAndWritePid clears the file and writes the current PID.
func (l *Locker) resetAndWritePid() error {
	if err := l.lockFd.Truncate(0); err != nil {
		return autosnapErrors.NewLockError(l.lockFile, l.pid,
			autosnapErrors.Wrap(err, "failed to truncate lock file"))
	}
	return l.writePidToLockFile()
}

// writePidToLockFile writes PID followed by a newline to the lock file.
func (l *Locker) writePidToLockFile() error {
	_, err := l.lockFd.WriteAt([]byte(strconv.Itoa(l.pid)+"\n"), 0)
	if err != nil {
		return autosnapErrors.NewLockError(l.lockFile, l.pid,
			autosnapErrors.Wrap(err, "failed to write PID to lock file"))
	}
	return nil
}

func (l *Locker) closeFileDescriptor() {
	if l.lockFd != nil {
		_ = l.lockFd.Close()
		l.lockFd = nil
	}
}

// IsProcessRunning checks if a process exists using signal 0.
func IsProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

// handleStaleLock removes and recreates a lock file abandoned by a dead process.
func (l *Locker) handleStaleLock(otherPid int) error {
	l.closeFileDescriptor()
	l.RecoveredFromPID = otherPid

	if err := os.Remove(l.lockFile); err != nil {
		return autosnapErrors.NewLockError(l.lockFile, otherPid,
			autosnapErrors.Wrap(err, fmt.Sprintf("found stale lock file from PID %d, but failed to remove it", otherPid)))
	}

	var err error
	l.lockFd, err = os.OpenFile(l.lockFile, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return autosnapErrors.NewLockError(l.lockFile, 0,
				autosnapErrors.Wrap(err, "another watcher took the lock immediately after we removed the stale one"))
		}
		return autosnapErrors.NewLockError(l.lockFile, 0,
			autosnapErrors.Wrap(err, "failed to open lock file after removing stale lock"))
	}

	if err = l.acquireFlock(); err != nil {
		l.closeFileDescriptor()
		return autosnapErrors.NewLockError(l.lockFile, 0,
			autosnapErrors.Wrap(err, "failed to acquire lock even after removing stale lock"))
	}

	if err = l.writePidToLockFile(); err != nil {
		if releaseErr := l.Release(); releaseErr != nil {
			return autosnapErrors.Wrap(err, fmt.Sprintf("failed to write PID and failed to release lock: %v", releaseErr))
		}
		return err
	}

	l.acquired = true
	return nil
}

func (l *Locker) readLockFilePid() (int, error) {
	data, err := os.ReadFile(l.lockFile)
	if err != nil {
		return 0, autosnapErrors.Wrap(err, "failed to read lock file")
	}

	pidStr := strings.TrimSpace(string(data))
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return 0, autosnapErrors.Wrap(err, "invalid PID in lock file")
	}

	return pid, nil
}

// ReadPID reads the PID recorded in lockFile without acquiring the lock,
// for use by `status`/`stop` against a lock held by another process.
func ReadPID(lockFile string) (int, error) {
	data, err := os.ReadFile(lockFile)
	if err != nil {
		return 0, autosnapErrors.Wrap(err, "failed to read lock file")
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, autosnapErrors.Wrap(err, "invalid PID in lock file")
	}
	return pid, nil
}

// Release releases the lock if it was acquired.
func (l *Locker) Release() error {
	if l.lockFd == nil {
		return nil
	}

	var err error

	fd := l.lockFd.Fd()
	var stat syscall.Stat_t
	if statErr := syscall.Fstat(int(fd), &stat); statErr != nil {
		err = autosnapErrors.NewLockError(l.lockFile, l.pid,
			autosnapErrors.Wrap(statErr, "failed to stat lock file - file descriptor is invalid"))
	} else {
		if _, writeErr := l.lockFd.WriteAt([]byte{}, 0); writeErr != nil {
			err = autosnapErrors.NewLockError(l.lockFile, l.pid,
				autosnapErrors.Wrap(writeErr, "failed to write to lock file - file descriptor is invalid"))
		} else if flockErr := syscall.Flock(int(fd), syscall.LOCK_UN); flockErr != nil {
			err = autosnapErrors.NewLockError(l.lockFile, l.pid,
				autosnapErrors.Wrap(flockErr, "failed to release lock"))
		}
	}

	if closeErr := l.lockFd.Close(); closeErr != nil && err == nil {
		err = autosnapErrors.NewLockError(l.lockFile, l.pid,
			autosnapErrors.Wrap(closeErr, "failed to close lock file"))
	}

	l.lockFd = nil
	l.acquired = false

	if removeErr := os.Remove(l.lockFile); removeErr != nil && !os.IsNotExist(removeErr) && err == nil {
		err = autosnapErrors.NewLockError(l.lockFile, l.pid,
			autosnapErrors.Wrap(removeErr, "failed to remove lock file"))
	}

	return err
}
