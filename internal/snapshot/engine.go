// Package snapshot implements the Snapshot Engine: the component that owns
// the sidecar bare repository under R/.autosnap and every operation that
// reads or writes it (init, snapshot_once, gc, restore, diff,
// list_snapshots, and the shared tree-extraction primitive). All git
// plumbing is delegated to the host git binary through gitexec.Runner; the
// Engine never links a git library in-process.
package snapshot

import (
	"sync"

	"github.com/bashhack/git-autosnap/internal/gitexec"
	"github.com/bashhack/git-autosnap/internal/logger"
)

// Engine is the Snapshot Engine bound to one repository root.
type Engine struct {
	RepoRoot string
	GitDir   string // R/.autosnap
	Executor gitexec.CommandExecutor
	Log      logger.Logger

	// opsLock serializes snapshot_once and gc within this process. The PID
	// lock already keeps other processes from running a second watcher
	// against the same repository, so a plain in-process mutex is enough -
	// there is no need for a second cross-process lock file here.
	opsLock sync.Mutex
}

// New returns an Engine for repoRoot, rooted at gitDir (R/.autosnap).
func New(repoRoot, gitDir string, executor gitexec.CommandExecutor, log logger.Logger) *Engine {
	return &Engine{
		RepoRoot: repoRoot,
		GitDir:   gitDir,
		Executor: executor,
		Log:      log,
	}
}

// runner returns a gitexec.Runner bound to the sidecar, optionally attached
// to the primary repository's work-tree.
func (e *Engine) runner(withWorkTree bool) *gitexec.Runner {
	r := gitexec.New(e.Executor, e.GitDir)
	if withWorkTree {
		return r.WithWorkTree(e.RepoRoot)
	}
	return r
}
