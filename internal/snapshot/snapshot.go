package snapshot

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/bashhack/git-autosnap/internal/errors"
)

// commitMessage formats the AUTOSNAP[branch] ts[: tail] grammar.
func commitMessage(branch, tail string) string {
	ts := time.Now().Format(time.RFC3339)
	if tail != "" {
		return fmt.Sprintf("AUTOSNAP[%s] %s: %s", branch, ts, tail)
	}
	return fmt.Sprintf("AUTOSNAP[%s] %s", branch, ts)
}

// SnapshotOnce populates the sidecar index from the current working tree,
// writes a tree, and commits it onto the sidecar's HEAD if (and only if)
// the tree differs from HEAD's current tree. It returns the new commit's
// short hash, or returns errors.ErrUnchangedTree if nothing changed - that is
// not treated as a failure by callers.
func (e *Engine) SnapshotOnce(ctx context.Context, tail string) (string, error) {
	e.opsLock.Lock()
	defer e.opsLock.Unlock()

	treeID, err := e.populateAndWriteTreeWithRetry(ctx)
	if err != nil {
		return "", err
	}

	prevTree, hasHead := e.headTree(ctx)
	if hasHead && prevTree == treeID {
		return "", errors.ErrUnchangedTree
	}

	branch := e.currentBranch(ctx)
	msg := commitMessage(branch, tail)

	args := []string{"commit-tree", treeID}
	var parent string
	if hasHead {
		parent, _ = e.runner(false).Output(ctx, "rev-parse", "--verify", "-q", "HEAD")
		parent = strings.TrimSpace(parent)
		if parent != "" {
			args = append(args, "-p", parent)
		}
	}
	args = append(args, "-m", msg)

	name, email := e.authorIdentity(ctx)
	cmd := e.commitTreeCmd(ctx, args, name, email)

	out, err := e.Executor.ExecuteWithOutput(cmd)
	if err != nil {
		return "", errors.Wrap(err, "failed to create snapshot commit")
	}
	oid := strings.TrimSpace(out)

	if err := e.runner(false).Run(ctx, "update-ref", "HEAD", oid); err != nil {
		return "", errors.Wrap(err, "failed to move sidecar HEAD to new commit")
	}

	short, err := e.runner(false).Output(ctx, "rev-parse", "--short", oid)
	if err != nil {
		return oid, nil
	}
	return strings.TrimSpace(short), nil
}

func (e *Engine) commitTreeCmd(ctx context.Context, args []string, name, email string) *exec.Cmd {
	cmd := e.runner(false).Cmd(ctx, args...)
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME="+name, "GIT_AUTHOR_EMAIL="+email,
		"GIT_COMMITTER_NAME="+name, "GIT_COMMITTER_EMAIL="+email,
	)
	return cmd
}

// populateAndWriteTreeWithRetry populates the sidecar index from the
// working tree and writes it as a git tree object, retrying with bounded
// exponential backoff on transient failures (index lock contention from a
// concurrently-running `git` invocation in the primary repository).
func (e *Engine) populateAndWriteTreeWithRetry(ctx context.Context) (string, error) {
	var treeID string

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)

	op := func() error {
		id, err := e.populateAndWriteTree(ctx)
		if err != nil {
			var gitErr *errors.GitError
			if errors.As(err, &gitErr) && gitErr.Transient {
				e.Log.Warning("transient error populating sidecar index, retrying: %v", err)
				return err
			}
			return backoff.Permanent(err)
		}
		treeID = id
		return nil
	}

	if err := backoff.Retry(op, policy); err != nil {
		return "", errors.Wrap(err, "failed to build tree from working directory")
	}
	return treeID, nil
}

func (e *Engine) populateAndWriteTree(ctx context.Context) (string, error) {
	wt := e.runner(true)

	// Delegate index population entirely to the host git binary: it already
	// knows how to walk the tree, respect .gitignore/.git/info/exclude, and
	// stat only what changed. --ignore-errors lets a transient unreadable
	// file skip rather than aborting the whole snapshot.
	if err := wt.Run(ctx, "add", "-A", "--ignore-errors"); err != nil {
		return "", err
	}

	// Defensively strip the sidecar's own directory and the primary .git
	// metadata from the index, in case either was ever added before being
	// excluded.
	_ = wt.Run(ctx, "rm", "-r", "--cached", "--ignore-unmatch", ".autosnap", ".git")

	out, err := e.runner(false).Output(ctx, "write-tree")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// headTree returns the sidecar's current HEAD tree id, and false if HEAD
// does not exist yet (the sidecar has never been snapshotted).
func (e *Engine) headTree(ctx context.Context) (string, bool) {
	out, err := e.runner(false).Output(ctx, "rev-parse", "--verify", "-q", "HEAD^{tree}")
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(out), true
}

// currentBranch returns the primary repository's current branch shorthand,
// or "DETACHED" when HEAD does not point at a branch.
func (e *Engine) currentBranch(ctx context.Context) string {
	cmd := exec.CommandContext(ctx, "git", "-C", e.RepoRoot, "symbolic-ref", "--short", "-q", "HEAD")
	out, err := e.Executor.ExecuteWithOutput(cmd)
	if err != nil {
		return "DETACHED"
	}
	branch := strings.TrimSpace(out)
	if branch == "" {
		return "DETACHED"
	}
	return branch
}

// authorIdentity reads user.name/user.email from the primary repository's
// config, falling back to a fixed git-autosnap identity when unset.
func (e *Engine) authorIdentity(ctx context.Context) (name, email string) {
	name = gitConfigGet(ctx, e.Executor, e.RepoRoot, "user.name", "git-autosnap")
	email = gitConfigGet(ctx, e.Executor, e.RepoRoot, "user.email", "git-autosnap@local")
	return name, email
}
