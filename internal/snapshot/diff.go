package snapshot

import (
	"context"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/bashhack/git-autosnap/internal/errors"
)

// DiffFormat selects how Diff renders changes between two snapshots.
type DiffFormat int

const (
	// DiffUnified renders a unified text patch, one hunk set per changed file.
	DiffUnified DiffFormat = iota
	// DiffStat renders a per-file +/- summary, like `git diff --stat`.
	DiffStat
	// DiffNameOnly lists changed paths only.
	DiffNameOnly
	// DiffNameStatus lists changed paths with a single-letter status.
	DiffNameStatus
)

// Diff compares two sides of sidecar history and renders the result in the
// requested format. An empty ref on either side means "the working tree as
// it stands right now" (built the same way SnapshotOnce builds a tree, but
// without committing it) - mirroring spec.md's "diff with no arguments
// means working tree vs HEAD" default.
func (e *Engine) Diff(ctx context.Context, ref1, ref2 string, paths []string, format DiffFormat) (string, error) {
	var treeA, treeB string
	var err error

	switch {
	case ref1 == "" && ref2 == "":
		treeB, err = e.resolveTree(ctx, "HEAD")
		if err != nil {
			return "", err
		}
		treeA, err = e.workingTree(ctx)
	case ref1 != "" && ref2 == "":
		treeA, err = e.resolveTree(ctx, ref1)
		if err == nil {
			treeB, err = e.workingTree(ctx)
		}
	case ref1 == "" && ref2 != "":
		treeA, err = e.workingTree(ctx)
		if err == nil {
			treeB, err = e.resolveTree(ctx, ref2)
		}
	default:
		treeA, err = e.resolveTree(ctx, ref1)
		if err == nil {
			treeB, err = e.resolveTree(ctx, ref2)
		}
	}
	if err != nil {
		return "", err
	}

	switch format {
	case DiffStat:
		return e.diffShell(ctx, "--stat", treeA, treeB, paths)
	case DiffNameOnly:
		return e.diffShell(ctx, "--name-only", treeA, treeB, paths)
	case DiffNameStatus:
		return e.diffShell(ctx, "--name-status", treeA, treeB, paths)
	default:
		return e.diffUnified(ctx, treeA, treeB, paths)
	}
}

func (e *Engine) resolveTree(ctx context.Context, ref string) (string, error) {
	out, err := e.runner(false).Output(ctx, "rev-parse", "--verify", ref+"^{tree}")
	if err != nil {
		return "", errors.Wrapf(err, "failed to resolve %s", ref)
	}
	return strings.TrimSpace(out), nil
}

// workingTree builds a tree object from the current working directory
// without committing it, the same primitive SnapshotOnce uses, shared here
// so "diff with no ref" sees exactly what the next snapshot_once would
// record.
func (e *Engine) workingTree(ctx context.Context) (string, error) {
	e.opsLock.Lock()
	defer e.opsLock.Unlock()
	return e.populateAndWriteTree(ctx)
}

func (e *Engine) diffShell(ctx context.Context, mode, treeA, treeB string, paths []string) (string, error) {
	args := []string{"diff", mode, treeA, treeB}
	if len(paths) > 0 {
		args = append(args, "--")
		args = append(args, paths...)
	}
	out, err := e.runner(false).Output(ctx, args...)
	if err != nil {
		return "", errors.Wrap(err, "failed to diff trees")
	}
	return out, nil
}

func (e *Engine) diffUnified(ctx context.Context, treeA, treeB string, paths []string) (string, error) {
	nameStatus, err := e.diffShell(ctx, "--name-status", treeA, treeB, paths)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	for _, line := range strings.Split(nameStatus, "\n") {
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 2)
		if len(fields) != 2 {
			continue
		}
		status, path := fields[0], fields[1]

		var oldLines, newLines []string
		if status != "A" {
			oldLines = splitLinesKeepNL(e.blob(ctx, treeA, path))
		}
		if status != "D" {
			newLines = splitLinesKeepNL(e.blob(ctx, treeB, path))
		}

		diff := difflib.UnifiedDiff{
			A:        oldLines,
			B:        newLines,
			FromFile: "a/" + path,
			ToFile:   "b/" + path,
			Context:  3,
		}
		text, err := difflib.GetUnifiedDiffString(diff)
		if err != nil {
			return "", errors.Wrapf(err, "failed to render diff for %s", path)
		}
		out.WriteString(text)
		if !strings.HasSuffix(text, "\n") {
			out.WriteByte('\n')
		}
	}
	return out.String(), nil
}

func (e *Engine) blob(ctx context.Context, tree, path string) string {
	out, err := e.runner(false).Output(ctx, "cat-file", "blob", fmt.Sprintf("%s:%s", tree, path))
	if err != nil {
		return ""
	}
	return out
}

func splitLinesKeepNL(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
