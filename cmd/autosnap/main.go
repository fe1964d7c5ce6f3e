// Command autosnap is the command dispatcher for git-autosnap: it maps the
// verbs in the external interface (init, start, stop, status, once, gc,
// uninstall, restore, diff) onto the Snapshot Engine, Watcher, and Process
// Supervisor.
package main

func main() {
	Execute()
}
