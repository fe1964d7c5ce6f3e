package reposcope

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bashhack/git-autosnap/internal/errors"
	"github.com/bashhack/git-autosnap/internal/gitexec"
)

func TestDiscoverFindsRepoRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	found, err := Discover(nested)
	if err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}
	if found != root {
		t.Errorf("Discover() = %q, want %q", found, root)
	}
}

func TestDiscoverReturnsErrNotInRepository(t *testing.T) {
	root := t.TempDir()
	if _, err := Discover(root); !errors.Is(err, errors.ErrNotInRepository) {
		t.Errorf("expected ErrNotInRepository, got %v", err)
	}
}

func TestSidecarPaths(t *testing.T) {
	root := "/r"
	if got := SidecarDir(root); got != "/r/.autosnap" {
		t.Errorf("SidecarDir() = %q", got)
	}
	if got := PIDFile(root); got != "/r/.autosnap/autosnap.pid" {
		t.Errorf("PIDFile() = %q", got)
	}
	if got := LogFile(root); got != "/r/.autosnap/autosnap.log" {
		t.Errorf("LogFile() = %q", got)
	}
}

func TestInitSidecarIsIdempotent(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	executor := gitexec.NewExecExecutor()

	if err := InitSidecar(ctx, root, executor); err != nil {
		t.Fatalf("first InitSidecar() failed: %v", err)
	}
	if !SidecarExists(root) {
		t.Fatal("expected sidecar directory to exist after InitSidecar")
	}

	if err := InitSidecar(ctx, root, executor); err != nil {
		t.Fatalf("second InitSidecar() failed: %v", err)
	}

	excludePath := filepath.Join(root, ".git", "info", "exclude")
	data, err := os.ReadFile(excludePath)
	if err != nil {
		t.Fatalf("failed to read exclude file: %v", err)
	}
	if n := strings.Count(string(data), SidecarDirName); n != 1 {
		t.Errorf("expected exactly one %q entry in exclude file, found %d in %q", SidecarDirName, n, data)
	}
}

func TestAddToGitExcludePreservesExistingContent(t *testing.T) {
	root := t.TempDir()
	infoDir := filepath.Join(root, ".git", "info")
	if err := os.MkdirAll(infoDir, 0o755); err != nil {
		t.Fatal(err)
	}
	excludePath := filepath.Join(infoDir, "exclude")
	if err := os.WriteFile(excludePath, []byte("*.log"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := addToGitExclude(root); err != nil {
		t.Fatalf("addToGitExclude() failed: %v", err)
	}

	data, err := os.ReadFile(excludePath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "*.log") {
		t.Error("expected prior exclude content to be preserved")
	}
	if !strings.HasSuffix(string(data), SidecarDirName+"\n") {
		t.Errorf("expected exclude file to end with the sidecar entry, got %q", data)
	}
}
