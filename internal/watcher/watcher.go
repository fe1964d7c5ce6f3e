// Package watcher implements the Watcher: it observes the repository's
// working tree with fsnotify, debounces bursts of changes into a single
// snapshot_once call, and owns the precedence ladder of actions
// (snapshot/reload/binary-update) that may need to happen once it stops.
package watcher

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bashhack/git-autosnap/internal/errors"
	"github.com/bashhack/git-autosnap/internal/gitexec"
	"github.com/bashhack/git-autosnap/internal/ignore"
	"github.com/bashhack/git-autosnap/internal/logger"
	"github.com/bashhack/git-autosnap/internal/snapshot"
)

// Watcher observes one repository's working tree and drives the Snapshot
// Engine from filesystem activity.
type Watcher struct {
	repoRoot string
	engine   *snapshot.Engine
	log      logger.Logger
	debounce time.Duration
	filter   *ignore.Filter

	fsw *fsnotify.Watcher

	exitAction         exitActionState
	snapshotInProgress atomic.Bool
	binaryUpdateArmed  atomic.Bool

	binaryPath    string
	binaryModTime time.Time
	binarySize    int64

	trackedIgnoreFiles map[string]struct{}
}

// New creates a Watcher for repoRoot, bound to engine for snapshotting and
// executor for ignore-checking. debounce is the window of quiet time the
// watcher waits for after the last qualifying filesystem event before it
// takes a snapshot.
func New(repoRoot string, engine *snapshot.Engine, log logger.Logger, debounce time.Duration, executor gitexec.CommandExecutor) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create filesystem watcher")
	}

	w := &Watcher{
		repoRoot: repoRoot,
		engine:   engine,
		log:      log,
		debounce: debounce,
		filter:   ignore.New(repoRoot, executor),
		fsw:      fsw,
	}

	if exe, err := os.Executable(); err == nil {
		w.binaryPath = exe
		if info, err := os.Stat(exe); err == nil {
			w.binaryModTime = info.ModTime()
			w.binarySize = info.Size()
		}
	}

	if err := w.watchTreeRecursively(); err != nil {
		fsw.Close()
		return nil, err
	}

	ignoreFiles := w.filter.IgnoreFiles(context.Background())
	w.trackedIgnoreFiles = toSet(ignoreFiles)
	w.watchIgnoreFileDirs(ignoreFiles)

	return w, nil
}

// watchIgnoreFileDirs adds an explicit fsnotify watch on the directory of
// every tracked ignore file that watchTreeRecursively would not otherwise
// reach: .git/info/exclude (its parent, .git, is skipped by the recursive
// walk) and the global core.excludesfile (which typically lives outside
// repoRoot entirely). In-tree .gitignore files are already covered by the
// recursive walk, so adding their directory again here is a harmless no-op.
func (w *Watcher) watchIgnoreFileDirs(files []string) {
	for _, f := range files {
		dir := filepath.Dir(f)
		if err := w.fsw.Add(dir); err != nil {
			w.log.Warning("failed to watch ignore file directory %s: %v", dir, err)
		}
	}
}

func toSet(items []string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, it := range items {
		m[it] = struct{}{}
	}
	return m
}

// watchTreeRecursively adds an fsnotify watch on repoRoot and every
// subdirectory, skipping .git and .autosnap (fsnotify has no native
// recursive mode, so the directory tree is added one Add() call at a time -
// the same approach jj-beads takes for its fixed watch set, generalized
// here to the whole repository).
func (w *Watcher) watchTreeRecursively() error {
	return filepath.WalkDir(w.repoRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if name := d.Name(); name == ".git" || name == ".autosnap" {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.log.Warning("failed to watch directory %s: %v", path, err)
		}
		return nil
	})
}

// Close releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run is the Watcher's main loop. It blocks until ctx is cancelled or a
// signal elevates the exit action past what ctx.Done() alone would cause,
// performs the final action (snapshot and/or re-exec), and returns which
// action it took.
func (w *Watcher) Run(ctx context.Context) (ExitAction, error) {
	sigCh := make(chan os.Signal, 8)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGUSR1, syscall.SIGUSR2)
	defer signal.Stop(sigCh)

	debounceTimer := time.NewTimer(time.Hour)
	debounceTimer.Stop()
	defer debounceTimer.Stop()

	binaryPoll := time.NewTicker(2 * time.Second)
	defer binaryPoll.Stop()

	snapshotDone := make(chan error, 1)
	pendingAfterCurrent := false

	for {
		select {
		case <-ctx.Done():
			w.exitAction.elevate(ExitSnapshot)
			return w.finish(), nil

		case sig := <-sigCh:
			switch sig {
			case syscall.SIGINT, syscall.SIGTERM:
				w.exitAction.elevate(ExitSnapshot)
				return w.finish(), nil
			case syscall.SIGHUP, syscall.SIGUSR1:
				debounceTimer.Stop()
				if !w.startSnapshot(ctx, snapshotDone) {
					pendingAfterCurrent = true
				}
			case syscall.SIGUSR2:
				w.binaryUpdateArmed.Store(true)
				w.log.Info("armed binary-update watch")
			}

		case ev, ok := <-w.fsw.Events:
			if !ok {
				continue
			}
			w.handleEvent(ctx, ev, debounceTimer)

		case err, ok := <-w.fsw.Errors:
			if ok {
				w.log.Warning("filesystem watch error: %v", err)
			}

		case <-debounceTimer.C:
			if !w.startSnapshot(ctx, snapshotDone) {
				pendingAfterCurrent = true
			}

		case err := <-snapshotDone:
			w.snapshotInProgress.Store(false)
			if err != nil && !errors.Is(err, errors.ErrUnchangedTree) {
				w.log.Warning("snapshot failed: %v", err)
			}
			if pendingAfterCurrent {
				pendingAfterCurrent = false
				if !w.startSnapshot(ctx, snapshotDone) {
					pendingAfterCurrent = true
				}
			}
			if w.exitAction.load() >= ExitReloadExec {
				return w.finish(), nil
			}

		case <-binaryPoll.C:
			if w.binaryUpdateArmed.Load() && w.binaryChanged() {
				w.exitAction.elevate(ExitBinaryUpdateExec)
				return w.finish(), nil
			}
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, ev fsnotify.Event, debounceTimer *time.Timer) {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.fsw.Add(ev.Name); err != nil {
				w.log.Warning("failed to watch new directory %s: %v", ev.Name, err)
			}
		}
	}

	// Checked before IsIgnored: .git/info/exclude and a global excludesfile
	// outside repoRoot are themselves reported as ignored.
	if _, tracked := w.trackedIgnoreFiles[ev.Name]; tracked && ev.Has(fsnotify.Write) {
		w.log.Info("tracked ignore file changed: %s", ev.Name)
		w.exitAction.elevate(ExitReloadExec)
		w.requestSnapshot(debounceTimer)
		return
	}

	if w.filter.IsIgnored(ctx, ev.Name) {
		return
	}

	w.requestSnapshot(debounceTimer)
}

// requestSnapshot (re)arms the debounce timer; repeated calls within the
// debounce window collapse into a single eventual snapshot.
func (w *Watcher) requestSnapshot(debounceTimer *time.Timer) {
	debounceTimer.Stop()
	debounceTimer.Reset(w.debounce)
}

// startSnapshot runs snapshot_once in a goroutine so the event loop keeps
// draining fsnotify while it's in flight, returning false without starting
// anything if one is already running - the caller coalesces that into a
// single follow-up run via pendingAfterCurrent.
func (w *Watcher) startSnapshot(ctx context.Context, done chan<- error) bool {
	if !w.snapshotInProgress.CompareAndSwap(false, true) {
		return false
	}
	go func() {
		_, err := w.engine.SnapshotOnce(ctx, "")
		done <- err
	}()
	return true
}

func (w *Watcher) binaryChanged() bool {
	if w.binaryPath == "" {
		return false
	}
	info, err := os.Stat(w.binaryPath)
	if err != nil {
		return false
	}
	return !info.ModTime().Equal(w.binaryModTime) || info.Size() != w.binarySize
}

// finish performs the terminal snapshot/re-exec implied by the current
// exit action and returns it. A reload or binary-update exec replaces the
// process image in place (same PID) and never returns on success.
func (w *Watcher) finish() ExitAction {
	action := w.exitAction.load()
	if action == ExitNone {
		return action
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := w.engine.SnapshotOnce(ctx, ""); err != nil && !errors.Is(err, errors.ErrUnchangedTree) {
		w.log.Warning("final snapshot before exit failed: %v", err)
	}

	if action == ExitReloadExec || action == ExitBinaryUpdateExec {
		w.selfExec()
	}

	return action
}

// selfExec replaces the current process image with a fresh invocation of
// the same binary and arguments, preserving the PID (and therefore the PID
// lock file's validity) across the reload.
func (w *Watcher) selfExec() {
	exe := w.binaryPath
	if exe == "" {
		var err error
		exe, err = os.Executable()
		if err != nil {
			w.log.Error("failed to resolve own executable for reload: %v", err)
			return
		}
	}

	path, err := exec.LookPath(exe)
	if err != nil {
		path = exe
	}

	w.log.Info("re-executing %s %v", path, os.Args[1:])
	if err := syscall.Exec(path, os.Args, os.Environ()); err != nil {
		w.log.Error("re-exec failed, exiting without reload: %v", fmt.Errorf("%w: exec %s: %w", errors.ErrExternalToolFailure, path, err))
	}
}
