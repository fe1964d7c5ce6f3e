// Package reposcope discovers the primary VCS repository root R that
// git-autosnap operates on, and resolves the paths that hang off it: the
// sidecar store, its PID lock, and its log file.
package reposcope

import (
	"bufio"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/bashhack/git-autosnap/internal/errors"
	"github.com/bashhack/git-autosnap/internal/gitexec"
)

// SidecarDirName is the directory name of the sidecar bare repository,
// relative to the repository root.
const SidecarDirName = ".autosnap"

// Discover walks upward from startDir looking for a ".git" entry, returning
// the first directory that has one. It mirrors the host git binary's own
// upward-search behavior without shelling out, so it works before the
// sidecar exists and does not depend on cwd.
func Discover(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve starting directory")
	}

	for {
		gitPath := filepath.Join(dir, ".git")
		if info, statErr := os.Stat(gitPath); statErr == nil {
			// A ".git" file (not dir) means a worktree/submodule gitlink;
			// either way this directory is the repository root we want.
			_ = info
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.ErrNotInRepository
		}
		dir = parent
	}
}

// SidecarDir returns the sidecar bare repository path under repoRoot.
func SidecarDir(repoRoot string) string {
	return filepath.Join(repoRoot, SidecarDirName)
}

// PIDFile returns the PID lock file path under the sidecar directory.
func PIDFile(repoRoot string) string {
	return filepath.Join(SidecarDir(repoRoot), "autosnap.pid")
}

// LogFile returns the log file path under the sidecar directory.
func LogFile(repoRoot string) string {
	return filepath.Join(SidecarDir(repoRoot), "autosnap.log")
}

// SidecarExists reports whether the sidecar store has been initialized.
func SidecarExists(repoRoot string) bool {
	info, err := os.Stat(SidecarDir(repoRoot))
	return err == nil && info.IsDir()
}

// InitSidecar creates the bare sidecar repository if absent and registers it
// in .git/info/exclude so it never appears in the primary repository's own
// status output.
func InitSidecar(ctx context.Context, repoRoot string, executor gitexec.CommandExecutor) error {
	sidecar := SidecarDir(repoRoot)
	if !SidecarExists(repoRoot) {
		// git init --bare has no notion of an existing --git-dir yet, so
		// this is the one call that addresses the sidecar path directly
		// rather than through Runner's --git-dir flag.
		cmd := exec.CommandContext(ctx, "git", "init", "--bare", sidecar)
		if err := executor.Execute(cmd); err != nil {
			return errors.Wrap(err, "failed to initialize sidecar store")
		}
	}
	return addToGitExclude(repoRoot)
}

func addToGitExclude(repoRoot string) error {
	gitDir := filepath.Join(repoRoot, ".git")
	if info, err := os.Stat(gitDir); err != nil || !info.IsDir() {
		// Worktrees/submodules use a ".git" file; in either case, or when
		// there is no primary VCS at all, there's no info/exclude to manage.
		return nil
	}

	infoDir := filepath.Join(gitDir, "info")
	if err := os.MkdirAll(infoDir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create .git/info directory")
	}

	excludePath := filepath.Join(infoDir, "exclude")

	present, endsWithNewline, empty, err := scanExclude(excludePath)
	if err != nil {
		return err
	}
	if present {
		return nil
	}

	f, err := os.OpenFile(excludePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "failed to open .git/info/exclude for writing")
	}
	defer f.Close()

	var sb strings.Builder
	if !empty && !endsWithNewline {
		sb.WriteByte('\n')
	}
	sb.WriteString(SidecarDirName + "\n")

	if _, err := f.WriteString(sb.String()); err != nil {
		return errors.Wrap(err, "failed to append to .git/info/exclude")
	}
	return nil
}

func scanExclude(path string) (present, endsWithNewline, empty bool, err error) {
	f, openErr := os.Open(path)
	if openErr != nil {
		if os.IsNotExist(openErr) {
			return false, false, true, nil
		}
		return false, false, false, errors.Wrap(openErr, "failed to open .git/info/exclude")
	}
	defer f.Close()

	var lastByte byte
	var sawAny bool
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		sawAny = true
		line := strings.TrimSpace(scanner.Text())
		if line == SidecarDirName || line == "/"+SidecarDirName {
			present = true
		}
	}
	if err := scanner.Err(); err != nil {
		return false, false, false, errors.Wrap(err, "failed to read .git/info/exclude")
	}

	if info, statErr := f.Stat(); statErr == nil && info.Size() > 0 {
		buf := make([]byte, 1)
		if _, err := f.ReadAt(buf, info.Size()-1); err == nil {
			lastByte = buf[0]
		}
	}

	return present, lastByte == '\n', !sawAny, nil
}
