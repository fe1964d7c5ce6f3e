package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bashhack/git-autosnap/internal/snapshot"
)

var (
	diffFrom       string
	diffTo         string
	diffStat       bool
	diffNameOnly   bool
	diffNameStatus bool
)

var diffCmd = &cobra.Command{
	Use:   "diff [paths...]",
	Short: "Compare two snapshots, or a snapshot against the working tree",
	Long: `diff compares --from and --to, each either a sidecar commit id or
omitted to mean WORKING (the tree that the next "once" would record). With
neither flag given, it compares WORKING against the sidecar's HEAD, matching
spec.md's no-argument default. Paths restrict the comparison to a subset of
the tree.`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSidecar(); err != nil {
			return err
		}
		format := snapshot.DiffUnified
		switch {
		case diffStat:
			format = snapshot.DiffStat
		case diffNameOnly:
			format = snapshot.DiffNameOnly
		case diffNameStatus:
			format = snapshot.DiffNameStatus
		}

		from, to := diffFrom, diffTo
		if from == "" && to == "" {
			to = "HEAD"
		}

		engine := newEngine()
		out, err := engine.Diff(cmd.Context(), from, to, args, format)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	diffCmd.Flags().StringVar(&diffFrom, "from", "", "commit id, or omitted for WORKING")
	diffCmd.Flags().StringVar(&diffTo, "to", "", "commit id, or omitted for WORKING")
	diffCmd.Flags().BoolVar(&diffStat, "stat", false, "show a per-file +/- summary instead of a unified patch")
	diffCmd.Flags().BoolVar(&diffNameOnly, "name-only", false, "list changed paths only")
	diffCmd.Flags().BoolVar(&diffNameStatus, "name-status", false, "list changed paths with a status letter")
}
