package snapshot

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bashhack/git-autosnap/internal/errors"
)

// RestoreMode selects how Restore reconciles the working tree with a
// snapshot. Overlay only writes files present in the snapshot; Full also
// deletes files that exist on disk but are absent from the snapshot, so the
// working tree ends up identical to it.
type RestoreMode int

const (
	// RestoreOverlay writes snapshot contents over the working tree without
	// deleting anything absent from the snapshot.
	RestoreOverlay RestoreMode = iota
	// RestoreFull reconciles the working tree to exactly match the snapshot,
	// deleting files/directories (outside .git and .autosnap) that the
	// snapshot does not contain.
	RestoreFull
)

// RestorePlan describes what Restore would do (dry-run) or did do.
type RestorePlan struct {
	Checkout []string
	Deleted  []string
}

// Restore checks out commit's tree into the primary working tree. Unless
// force is set, it first refuses if the primary working tree has any
// uncommitted change, untracked files included, whether or not the checkout
// would touch it. When dryRun is set,
// no filesystem mutation happens; the plan describes what would happen.
func (e *Engine) Restore(ctx context.Context, commit string, paths []string, mode RestoreMode, dryRun, force bool) (RestorePlan, error) {
	e.opsLock.Lock()
	defer e.opsLock.Unlock()

	if commit == "" {
		commit = "HEAD"
	}

	if !force {
		dirty, err := e.primaryWorkingTreeDirty(ctx)
		if err != nil {
			return RestorePlan{}, err
		}
		if dirty {
			return RestorePlan{}, errors.ErrUncommittedChanges
		}
	}

	treeFiles, err := e.treeFiles(ctx, commit, nil)
	if err != nil {
		return RestorePlan{}, err
	}
	selected, err := e.treeFiles(ctx, commit, paths)
	if err != nil {
		return RestorePlan{}, err
	}

	var toDelete []string
	if mode == RestoreFull {
		toDelete, err = e.filesToDelete(treeFiles, paths)
		if err != nil {
			return RestorePlan{}, err
		}
	}

	plan := RestorePlan{Checkout: selected, Deleted: toDelete}
	if dryRun {
		return plan, nil
	}

	if err := e.checkoutPaths(ctx, commit, paths); err != nil {
		return plan, err
	}

	for _, rel := range toDelete {
		full := filepath.Join(e.RepoRoot, rel)
		if err := os.RemoveAll(full); err != nil {
			return plan, errors.Wrapf(err, "failed to delete %s", rel)
		}
	}
	pruneEmptyDirs(e.RepoRoot, toDelete)

	if err := e.refreshPrimaryIndex(ctx); err != nil {
		e.Log.Warning("failed to refresh primary index after restore: %v", err)
	}

	return plan, nil
}

func (e *Engine) checkoutPaths(ctx context.Context, commit string, paths []string) error {
	args := []string{"checkout", commit, "--"}
	if len(paths) == 0 {
		args = append(args, ".")
	} else {
		args = append(args, paths...)
	}
	if err := e.runner(true).Run(ctx, args...); err != nil {
		return errors.Wrapf(err, "failed to check out %s", commit)
	}
	return nil
}

// treeFiles lists the files commit's tree contains, optionally restricted
// to the given pathspecs.
func (e *Engine) treeFiles(ctx context.Context, commit string, paths []string) ([]string, error) {
	args := []string{"ls-tree", "-r", "--name-only", commit}
	if len(paths) > 0 {
		args = append(args, "--")
		args = append(args, paths...)
	}
	out, err := e.runner(false).Output(ctx, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list tree for %s", commit)
	}
	var files []string
	for _, line := range strings.Split(out, "\n") {
		if line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

// filesToDelete walks the primary working tree (skipping .git and
// .autosnap anywhere in the path, not just at the top level) and returns
// every file present on disk, within the pathspec scope, that is absent
// from treeFiles.
func (e *Engine) filesToDelete(treeFiles []string, scope []string) ([]string, error) {
	present := make(map[string]struct{}, len(treeFiles))
	for _, f := range treeFiles {
		present[f] = struct{}{}
	}

	var toDelete []string
	err := filepath.WalkDir(e.RepoRoot, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, relErr := filepath.Rel(e.RepoRoot, path)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return nil
		}
		if isSkippedComponent(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !inScope(rel, scope) {
			return nil
		}
		if _, ok := present[rel]; !ok {
			toDelete = append(toDelete, rel)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to walk working tree for full restore")
	}
	sort.Strings(toDelete)
	return toDelete, nil
}

func isSkippedComponent(rel string) bool {
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if part == ".git" || part == ".autosnap" {
			return true
		}
	}
	return false
}

func inScope(rel string, scope []string) bool {
	if len(scope) == 0 {
		return true
	}
	for _, s := range scope {
		s = filepath.Clean(s)
		if rel == s || strings.HasPrefix(rel, s+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// pruneEmptyDirs removes directories left empty by a full-mode deletion, so
// a restore doesn't leave behind a trail of empty directories.
func pruneEmptyDirs(repoRoot string, deleted []string) {
	dirs := make(map[string]struct{})
	for _, rel := range deleted {
		dirs[filepath.Dir(rel)] = struct{}{}
	}
	for dir := range dirs {
		for dir != "." && dir != string(filepath.Separator) {
			full := filepath.Join(repoRoot, dir)
			entries, err := os.ReadDir(full)
			if err != nil || len(entries) > 0 {
				break
			}
			if err := os.Remove(full); err != nil {
				break
			}
			dir = filepath.Dir(dir)
		}
	}
}

// primaryWorkingTreeDirty reports whether the primary repository's working
// tree has uncommitted modifications.
func (e *Engine) primaryWorkingTreeDirty(ctx context.Context) (bool, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", e.RepoRoot, "status", "--porcelain")
	out, err := e.Executor.ExecuteWithOutput(cmd)
	if err != nil {
		return false, errors.Wrap(err, "failed to check primary working tree status")
	}
	return strings.TrimSpace(out) != "", nil
}

// refreshPrimaryIndex refreshes the primary repository's index stat cache
// so `git status` reflects the disk state Restore just wrote.
func (e *Engine) refreshPrimaryIndex(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "git", "-C", e.RepoRoot, "update-index", "-q", "--refresh")
	return e.Executor.Execute(cmd)
}
