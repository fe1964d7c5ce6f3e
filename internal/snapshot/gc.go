package snapshot

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bashhack/git-autosnap/internal/errors"
)

// baselineMessage marks the synthetic, parent-less commit compact creates
// to stand in for every snapshot older than the retention cutoff.
const baselineMessage = "AUTOSNAP_COMPACT_BASELINE"

// GC compresses the sidecar's object store. When prune is true, commits
// older than pruneDays are first collapsed by compact into a single
// baseline commit with the kept commits replayed on top - the snapshot
// chain is otherwise always reachable from HEAD, so expiring the reflog
// alone leaves every old commit just as reachable as before and `git gc
// --prune` has nothing to remove. The always-keep-history default
// (prune=false) just repacks without removing anything.
func (e *Engine) GC(ctx context.Context, prune bool, pruneDays int) error {
	e.opsLock.Lock()
	defer e.opsLock.Unlock()

	if _, hasHead := e.headTree(ctx); !hasHead {
		// Nothing has ever been committed; gc on an empty sidecar is a no-op.
		return nil
	}

	r := e.runner(false)

	if !prune {
		if err := r.Run(ctx, "gc"); err != nil {
			return errors.Wrap(err, "git gc failed")
		}
		return nil
	}

	if err := e.compact(ctx, pruneDays); err != nil {
		return errors.Wrap(err, "failed to compact sidecar history")
	}

	if err := r.Run(ctx, "reflog", "expire", "--expire=now", "--all"); err != nil {
		return errors.Wrap(err, "git reflog expire failed")
	}
	if err := r.Run(ctx, "gc", "--prune=now"); err != nil {
		return errors.Wrap(err, "git gc --prune failed")
	}
	return nil
}

// compact collapses every sidecar commit older than pruneDays into one
// parent-less baseline commit (taking the tree of the newest commit being
// collapsed, so no file content is lost), replays the commits younger than
// the cutoff on top of it unchanged, and moves the sidecar branch to the
// new tip. It is a no-op if history is shorter than the retention window.
func (e *Engine) compact(ctx context.Context, pruneDays int) error {
	r := e.runner(false)

	out, err := r.Output(ctx, "log", "--reverse", "--pretty=format:%H %ct")
	if err != nil {
		return errors.Wrap(err, "failed to list sidecar history")
	}

	type commitAt struct {
		oid string
		ts  int64
	}
	var commits []commitAt
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, " ", 2)
		if len(fields) != 2 {
			continue
		}
		ts, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			continue
		}
		commits = append(commits, commitAt{oid: fields[0], ts: ts})
	}
	if len(commits) == 0 {
		return nil
	}

	cutoff := time.Now().AddDate(0, 0, -pruneDays).Unix()

	var oldOids, keepOids []string
	for _, c := range commits {
		if c.ts < cutoff {
			oldOids = append(oldOids, c.oid)
		} else {
			keepOids = append(keepOids, c.oid)
		}
	}
	if len(oldOids) == 0 {
		return nil
	}

	tip, err := e.commitBaseline(ctx, oldOids[len(oldOids)-1])
	if err != nil {
		return err
	}

	for _, oid := range keepOids {
		tip, err = e.replayCommit(ctx, oid, tip)
		if err != nil {
			return err
		}
	}

	if err := r.Run(ctx, "update-ref", "HEAD", tip); err != nil {
		return errors.Wrap(err, "failed to move sidecar HEAD to compacted tip")
	}
	return nil
}

// commitFields holds the identity, tree, and message of one sidecar commit,
// read back out so compact can replay it verbatim onto a rewritten parent.
type commitFields struct {
	tree           string
	authorName     string
	authorEmail    string
	authorDate     string
	committerName  string
	committerEmail string
	committerDate  string
	message        string
}

func (f commitFields) env() []string {
	return append(os.Environ(),
		"GIT_AUTHOR_NAME="+f.authorName,
		"GIT_AUTHOR_EMAIL="+f.authorEmail,
		"GIT_AUTHOR_DATE="+f.authorDate,
		"GIT_COMMITTER_NAME="+f.committerName,
		"GIT_COMMITTER_EMAIL="+f.committerEmail,
		"GIT_COMMITTER_DATE="+f.committerDate,
	)
}

// commitFieldsOf reads oid's tree, identity, and message. --date=raw
// reports "<unix-seconds> <tz-offset>", the exact form git accepts back via
// GIT_AUTHOR_DATE/GIT_COMMITTER_DATE, so replaying a commit preserves its
// original timestamp instead of stamping it with the compaction time.
func (e *Engine) commitFieldsOf(ctx context.Context, oid string) (commitFields, error) {
	format := "%T" + logFieldSep + "%an" + logFieldSep + "%ae" + logFieldSep + "%ad" + logFieldSep +
		"%cn" + logFieldSep + "%ce" + logFieldSep + "%cd" + logFieldSep + "%B"
	out, err := e.runner(false).Output(ctx, "show", "-s", "--date=raw", "--pretty=format:"+format, oid)
	if err != nil {
		return commitFields{}, errors.Wrapf(err, "failed to read commit %s", oid)
	}
	parts := strings.SplitN(out, logFieldSep, 8)
	if len(parts) != 8 {
		return commitFields{}, errors.Errorf("malformed commit metadata for %s", oid)
	}
	return commitFields{
		tree: parts[0], authorName: parts[1], authorEmail: parts[2], authorDate: parts[3],
		committerName: parts[4], committerEmail: parts[5], committerDate: parts[6],
		message: strings.TrimSuffix(parts[7], "\n"),
	}, nil
}

func (e *Engine) commitBaseline(ctx context.Context, sourceOid string) (string, error) {
	fields, err := e.commitFieldsOf(ctx, sourceOid)
	if err != nil {
		return "", err
	}
	cmd := e.runner(false).Cmd(ctx, "commit-tree", fields.tree, "-m", baselineMessage)
	cmd.Env = fields.env()
	out, err := e.Executor.ExecuteWithOutput(cmd)
	if err != nil {
		return "", errors.Wrapf(err, "failed to create baseline commit from %s", sourceOid)
	}
	return strings.TrimSpace(out), nil
}

func (e *Engine) replayCommit(ctx context.Context, oid, parent string) (string, error) {
	fields, err := e.commitFieldsOf(ctx, oid)
	if err != nil {
		return "", err
	}
	cmd := e.runner(false).Cmd(ctx, "commit-tree", fields.tree, "-p", parent, "-m", fields.message)
	cmd.Env = fields.env()
	out, err := e.Executor.ExecuteWithOutput(cmd)
	if err != nil {
		return "", errors.Wrapf(err, "failed to replay commit %s", oid)
	}
	return strings.TrimSpace(out), nil
}
