package main

import (
	"github.com/spf13/cobra"

	"github.com/bashhack/git-autosnap/internal/errors"
	"github.com/bashhack/git-autosnap/internal/gitconfig"
	"github.com/bashhack/git-autosnap/internal/gitexec"
)

var (
	gcPrune     bool
	gcPruneDays int
)

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Compact the sidecar's object store",
	Long: `gc runs a standard git maintenance pass on the sidecar store. With
--prune, every snapshot older than the retention horizon is first collapsed
into a single baseline commit (the snapshot chain is otherwise always
reachable from HEAD, so a plain object prune would remove nothing); the
reflog is then expired and the object store pruned, which actually drops
the collapsed history. The horizon defaults to autosnap.gc.prune-days (60
if unset).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSidecar(); err != nil {
			return err
		}
		if gcPruneDays < 0 {
			return errors.NewConfigError("--prune-days", gcPruneDays, errors.New("must not be negative"))
		}

		engine := newEngine()

		days := gcPruneDays
		if days == 0 {
			days = gitconfig.Read(cmd.Context(), cfg.RepoRoot, gitexec.NewExecExecutor()).PruneDays
		}

		if err := engine.GC(cmd.Context(), gcPrune, days); err != nil {
			return err
		}
		log.InfoToUser("gc complete")
		return nil
	},
}

func init() {
	gcCmd.Flags().BoolVar(&gcPrune, "prune", false, "also expire reflogs and prune unreachable objects")
	gcCmd.Flags().IntVar(&gcPruneDays, "prune-days", 0, "prune horizon in days (default: autosnap.gc.prune-days, or 60)")
}
