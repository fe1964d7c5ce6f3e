// Package lock provides the advisory file lock backing git-autosnap's
// single-instance guarantee.
//
// A Locker wraps a non-blocking exclusive flock on a caller-supplied path
// (R/.autosnap/autosnap.pid), writes the holding process's PID into the
// file, and detects locks left behind by a process that has since died so
// a crashed watcher doesn't permanently block the next `start`.
//
// Basic usage:
//
//	locker, err := lock.New(reposcope.PIDFile(repoRoot))
//	if err != nil {
//	    // Handle error
//	}
//	if err := locker.Acquire(); err != nil {
//	    // Another watcher is already running for this repository
//	}
//	defer locker.Release()
package lock
