package snapshot

import (
	"context"
	"iter"
	"regexp"
	"strings"
	"time"

	"github.com/bashhack/git-autosnap/internal/errors"
)

// Snapshot describes one commit recorded in the sidecar history.
type Snapshot struct {
	Hash      string
	ShortHash string
	Timestamp time.Time
	Branch    string
	Tail      string
	Subject   string
}

const logFieldSep = "\x1f"

// ListSnapshots returns the sidecar's commit history, most recent first, as
// a Go 1.23 iterator so callers can break out early (e.g. "just the last
// one") without materializing the whole history. The underlying `git log`
// invocation itself runs to completion up front, since gitexec.CommandExecutor
// is a buffered request/response interface, not a pipe - the laziness this
// offers is at the consuming-loop level, not the OS-process level.
func (e *Engine) ListSnapshots(ctx context.Context) iter.Seq2[Snapshot, error] {
	return func(yield func(Snapshot, error) bool) {
		if _, hasHead := e.headTree(ctx); !hasHead {
			return
		}

		format := "%H" + logFieldSep + "%h" + logFieldSep + "%aI" + logFieldSep + "%s"
		out, err := e.runner(false).Output(ctx, "log", "--date=iso-strict", "--pretty=format:"+format)
		if err != nil {
			yield(Snapshot{}, errors.Wrap(err, "failed to read sidecar history"))
			return
		}

		for _, line := range strings.Split(out, "\n") {
			if line == "" {
				continue
			}
			snap, parseErr := parseLogLine(line)
			if parseErr != nil {
				if !yield(Snapshot{}, parseErr) {
					return
				}
				continue
			}
			if !yield(snap, nil) {
				return
			}
		}
	}
}

// subjectPattern extracts the branch and optional tail commitMessage encodes
// into a commit subject of the form "AUTOSNAP[branch] <rfc3339>[: tail]".
var subjectPattern = regexp.MustCompile(`^AUTOSNAP\[(.*)\] \S+(?:: (.*))?$`)

func parseSubject(subject string) (branch, tail string) {
	m := subjectPattern.FindStringSubmatch(subject)
	if m == nil {
		return "", ""
	}
	return m[1], m[2]
}

func parseLogLine(line string) (Snapshot, error) {
	parts := strings.SplitN(line, logFieldSep, 4)
	if len(parts) != 4 {
		return Snapshot{}, errors.Errorf("malformed sidecar log line: %q", line)
	}
	ts, err := time.Parse(time.RFC3339, parts[2])
	if err != nil {
		return Snapshot{}, errors.Wrapf(err, "malformed commit timestamp %q", parts[2])
	}
	branch, tail := parseSubject(parts[3])
	return Snapshot{
		Hash:      parts[0],
		ShortHash: parts[1],
		Timestamp: ts,
		Branch:    branch,
		Tail:      tail,
		Subject:   parts[3],
	}, nil
}
