package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bashhack/git-autosnap/internal/appconfig"
	"github.com/bashhack/git-autosnap/internal/errors"
	"github.com/bashhack/git-autosnap/internal/gitexec"
	"github.com/bashhack/git-autosnap/internal/logger"
	"github.com/bashhack/git-autosnap/internal/reposcope"
	"github.com/bashhack/git-autosnap/internal/snapshot"
	"github.com/bashhack/git-autosnap/internal/supervisor"
)

var (
	cfg = appconfig.New()
	log logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "autosnap",
	Short: "A continuous, sidecar snapshot history for any git repository",
	Long: `git-autosnap watches a repository's working tree and records
timestamped snapshots into a sidecar bare repository at R/.autosnap,
independent of the project's own branch and index state.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg.LoadFromEnvironment()
		if err := cfg.Finalize(); err != nil {
			return err
		}
		log = logger.New(cfg.Debug, cfg.LogFile, cfg.Verbose)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if l, ok := log.(*logger.DefaultLogger); ok && l != nil {
			return l.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&cfg.Debug, "debug", false, "write a debug log to R/.autosnap/autosnap.log")
	rootCmd.PersistentFlags().BoolVar(&cfg.Verbose, "verbose", false, "echo warnings to stdout in addition to the log")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(onceCmd)
	rootCmd.AddCommand(gcCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(shellCmd)
}

// Execute runs the command tree, reporting errors and exit codes the way
// §6's "non-zero on error" contract requires.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newEngine builds a Snapshot Engine bound to the discovered repository root.
func newEngine() *snapshot.Engine {
	return snapshot.New(cfg.RepoRoot, reposcope.SidecarDir(cfg.RepoRoot), gitexec.NewExecExecutor(), log)
}

// newSupervisor builds a Process Supervisor for the discovered repository root.
func newSupervisor() *supervisor.Supervisor {
	return supervisor.New(cfg.RepoRoot, log)
}

// requireSidecar returns errors.ErrSidecarMissing if R has no .autosnap
// store yet, for commands that read or mutate sidecar history rather than
// creating it (unlike init/start, which call Engine.Init themselves).
func requireSidecar() error {
	if !reposcope.SidecarExists(cfg.RepoRoot) {
		return errors.ErrSidecarMissing
	}
	return nil
}
