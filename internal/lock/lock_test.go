package lock

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/bashhack/git-autosnap/internal/errors"
)

func lockPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), ".autosnap", "autosnap.pid")
}

func TestNew(t *testing.T) {
	path := lockPath(t)
	locker, err := New(path)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if locker.Path() != path {
		t.Errorf("Path() = %q, want %q", locker.Path(), path)
	}
	if locker.pid != os.Getpid() {
		t.Errorf("pid = %d, want %d", locker.pid, os.Getpid())
	}
	if locker.acquired {
		t.Error("acquired should be false before Acquire")
	}
}

func TestNewCreatesParentDirectory(t *testing.T) {
	path := lockPath(t)
	if _, err := New(path); err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Fatalf("expected parent directory to exist: %v", err)
	}
}

func TestAcquireAndRelease(t *testing.T) {
	path := lockPath(t)
	locker, err := New(path)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if err := locker.Acquire(); err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read lock file: %v", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		t.Fatalf("lock file did not contain a PID: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("lock file PID = %d, want %d", pid, os.Getpid())
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("failed to stat lock file: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("lock file mode = %o, want 0600", info.Mode().Perm())
	}

	if err := locker.Release(); err != nil {
		t.Fatalf("Release() failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected lock file to be removed after Release, stat err = %v", err)
	}
}

func TestSecondAcquireFailsWithAlreadyRunning(t *testing.T) {
	path := lockPath(t)

	first, err := New(path)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := first.Acquire(); err != nil {
		t.Fatalf("first Acquire() failed: %v", err)
	}
	defer first.Release()

	second, err := New(path)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	err = second.Acquire()
	if err == nil {
		t.Fatal("expected second Acquire() to fail while first holds the lock")
	}
	if !errors.Is(err, errors.ErrAlreadyRunning) {
		t.Errorf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestReleaseWithoutAcquireIsNoop(t *testing.T) {
	locker, err := New(lockPath(t))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := locker.Release(); err != nil {
		t.Errorf("Release() on un-acquired locker should be a no-op, got %v", err)
	}
}

func TestStaleLockIsRecovered(t *testing.T) {
	path := lockPath(t)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create parent dir: %v", err)
	}

	// A PID that is vanishingly unlikely to be alive, written without
	// holding the flock - simulating a lock file orphaned by a crash.
	deadPID := 1 << 30
	if err := os.WriteFile(path, []byte(strconv.Itoa(deadPID)), 0o600); err != nil {
		t.Fatalf("failed to seed stale lock file: %v", err)
	}

	locker, err := New(path)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := locker.Acquire(); err != nil {
		t.Fatalf("expected stale lock to be recovered, got %v", err)
	}
	defer locker.Release()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read lock file: %v", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid != os.Getpid() {
		t.Errorf("expected recovered lock file to contain our own PID, got %q", data)
	}
}

func TestReadPID(t *testing.T) {
	path := lockPath(t)
	locker, err := New(path)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := locker.Acquire(); err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}
	defer locker.Release()

	pid, err := ReadPID(path)
	if err != nil {
		t.Fatalf("ReadPID() failed: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("ReadPID() = %d, want %d", pid, os.Getpid())
	}
}

func TestIsProcessRunning(t *testing.T) {
	if !IsProcessRunning(os.Getpid()) {
		t.Error("expected the current process to be reported as running")
	}
	if IsProcessRunning(1 << 30) {
		t.Error("expected an implausible PID to be reported as not running")
	}
}
