package watcher

import "sync/atomic"

// ExitAction is what the Watcher's run loop performs once it stops,
// coalescing everything that happened while it was running into a single
// decision. Values are ordered by precedence: a later signal or event can
// only raise the action, never lower it, so (for example) a graceful-terminate
// signal received after a reload was already requested doesn't downgrade
// the pending reload back to a plain snapshot.
type ExitAction uint32

const (
	// ExitNone means the watcher stopped with nothing left to do.
	ExitNone ExitAction = iota
	// ExitSnapshot means take one final snapshot before the process exits.
	ExitSnapshot
	// ExitReloadExec means snapshot, then re-exec the current binary in
	// place (same PID) because a tracked ignore file changed.
	ExitReloadExec
	// ExitBinaryUpdateExec means snapshot, then re-exec because the
	// watcher's own binary changed on disk.
	ExitBinaryUpdateExec
)

func (a ExitAction) String() string {
	switch a {
	case ExitNone:
		return "none"
	case ExitSnapshot:
		return "snapshot"
	case ExitReloadExec:
		return "reload-exec"
	case ExitBinaryUpdateExec:
		return "binary-update-exec"
	default:
		return "unknown"
	}
}

// exitActionState holds the monotonically-elevating exit action as an
// atomic so the signal handler, the ignore-file watch, and the
// binary-update poller can all raise it concurrently with the main loop
// reading it, without a mutex.
type exitActionState struct {
	v atomic.Uint32
}

// elevate raises the stored action to new if new outranks the current
// value; it never lowers it. Safe for concurrent use.
func (s *exitActionState) elevate(newAction ExitAction) {
	for {
		cur := ExitAction(s.v.Load())
		if cur >= newAction {
			return
		}
		if s.v.CompareAndSwap(uint32(cur), uint32(newAction)) {
			return
		}
	}
}

func (s *exitActionState) load() ExitAction {
	return ExitAction(s.v.Load())
}
