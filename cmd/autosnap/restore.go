package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/bashhack/git-autosnap/internal/snapshot"
)

var (
	restoreForce   bool
	restoreDryRun  bool
	restoreFull    bool
)

var restoreCmd = &cobra.Command{
	Use:   "restore [commit] [paths...]",
	Short: "Check out a past snapshot into the working tree",
	Long: `restore checks out commit's tree (HEAD of the sidecar by default)
into R. Overlay mode (the default) only writes the given paths (or the
entire tree if none are given); --full additionally deletes files present
on disk but absent from the snapshot, anywhere outside .git and .autosnap.
Refuses to run against an R with uncommitted changes unless --force is given.`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSidecar(); err != nil {
			return err
		}
		commit := "HEAD"
		var paths []string
		if len(args) > 0 {
			commit = args[0]
			paths = args[1:]
		}

		mode := snapshot.RestoreOverlay
		if restoreFull {
			mode = snapshot.RestoreFull
		}

		engine := newEngine()
		plan, err := engine.Restore(cmd.Context(), commit, paths, mode, restoreDryRun, restoreForce)
		if err != nil {
			return err
		}

		if restoreDryRun {
			log.StatusMessage("would check out: %s", strings.Join(plan.Checkout, ", "))
			if len(plan.Deleted) > 0 {
				log.StatusMessage("would delete: %s", strings.Join(plan.Deleted, ", "))
			}
			return nil
		}

		log.InfoToUser("restored %d path(s) from %s", len(plan.Checkout), commit)
		if len(plan.Deleted) > 0 {
			log.InfoToUser("deleted %d path(s) absent from the snapshot", len(plan.Deleted))
		}
		return nil
	},
}

func init() {
	restoreCmd.Flags().BoolVar(&restoreForce, "force", false, "restore even if R has uncommitted changes")
	restoreCmd.Flags().BoolVar(&restoreDryRun, "dry-run", false, "report what would change without writing or deleting anything")
	restoreCmd.Flags().BoolVar(&restoreFull, "full", false, "also delete files absent from the snapshot (outside .git/.autosnap)")
}
