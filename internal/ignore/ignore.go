// Package ignore decides whether a filesystem path changed inside a
// repository should be treated as significant by the Watcher, by asking
// the host git binary rather than re-implementing .gitignore matching.
package ignore

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/bashhack/git-autosnap/internal/gitexec"
)

// Filter answers "is this path ignored" for one repository, and separately
// tracks the set of ignore files (.gitignore, .git/info/exclude, the global
// excludesfile) whose own modification should trigger a reload rather than
// a snapshot.
type Filter struct {
	repoRoot string
	executor gitexec.CommandExecutor
}

// New returns a Filter bound to repoRoot.
func New(repoRoot string, executor gitexec.CommandExecutor) *Filter {
	return &Filter{repoRoot: repoRoot, executor: executor}
}

// IsIgnored reports whether path (absolute, or relative to repoRoot) is
// ignored by .gitignore/.git/info/exclude/the global excludesfile, as git
// itself would interpret them. The sidecar directory and .git are always
// ignored regardless of what `git check-ignore` says, since they must never
// drive a snapshot or be snapshotted.
func (f *Filter) IsIgnored(ctx context.Context, path string) bool {
	rel, err := filepath.Rel(f.repoRoot, path)
	if err != nil {
		return true
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if part == ".git" || part == ".autosnap" {
			return true
		}
	}

	cmd := exec.CommandContext(ctx, "git", "-C", f.repoRoot, "check-ignore", "-q", rel)
	err = f.executor.Execute(cmd)
	// check-ignore exits 0 if the path IS ignored, 1 if it is not, and >1 on
	// a real error; treat anything but a clean "not ignored" as ignored so
	// a misconfigured repository fails closed rather than flooding snapshots.
	return err == nil || !isCleanNotIgnored(err)
}

func isCleanNotIgnored(err error) bool {
	// `git check-ignore -q` exits 1 specifically to mean "not ignored";
	// anything else (missing git, repo errors, exit >1) is treated
	// conservatively as ignored.
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode() == 1
	}
	return false
}

// IgnoreFiles enumerates the ignore files currently in effect for the
// repository: every .gitignore found by walking the tree, .git/info/exclude,
// and the configured global excludesfile (if any). The Watcher treats a
// write to any of these as a reload trigger rather than a plain change.
func (f *Filter) IgnoreFiles(ctx context.Context) []string {
	var files []string

	_ = filepath.WalkDir(f.repoRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			name := d.Name()
			if name == ".git" || name == ".autosnap" {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == ".gitignore" {
			files = append(files, path)
		}
		return nil
	})

	exclude := filepath.Join(f.repoRoot, ".git", "info", "exclude")
	if _, err := os.Stat(exclude); err == nil {
		files = append(files, exclude)
	}

	if global := f.globalExcludesFile(ctx); global != "" {
		files = append(files, global)
	}

	return files
}

func (f *Filter) globalExcludesFile(ctx context.Context) string {
	cmd := exec.CommandContext(ctx, "git", "-C", f.repoRoot, "config", "--get", "core.excludesfile")
	out, err := f.executor.ExecuteWithOutput(cmd)
	if err != nil {
		return ""
	}
	path := strings.TrimSpace(out)
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "~/") {
		if home, herr := os.UserHomeDir(); herr == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
