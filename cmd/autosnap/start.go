package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/bashhack/git-autosnap/internal/gitconfig"
	"github.com/bashhack/git-autosnap/internal/gitexec"
	"github.com/bashhack/git-autosnap/internal/watcher"
)

var startDaemon bool

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the watcher for this repository",
	Long: `start runs the Watcher, which observes R's working tree and
debounces bursts of filesystem activity into at most one in-flight
snapshot. Use --daemon to detach it into the background.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sup := newSupervisor()

		if startDaemon {
			daemonArgs := []string{"start"}
			if cfg.Debug {
				daemonArgs = append(daemonArgs, "--debug")
			}
			if cfg.Verbose {
				daemonArgs = append(daemonArgs, "--verbose")
			}
			pid, err := sup.StartDaemon(ctx, daemonArgs)
			if err != nil {
				return err
			}
			log.InfoToUser("watcher started in background (pid %d)", pid)
			return nil
		}

		executor := gitexec.NewExecExecutor()
		engine := newEngine()
		if err := engine.Init(ctx); err != nil {
			return err
		}

		gitCfg := gitconfig.Read(ctx, cfg.RepoRoot, executor)
		debounce := time.Duration(gitCfg.DebounceMS) * time.Millisecond

		return sup.StartForeground(func() error {
			w, err := watcher.New(cfg.RepoRoot, engine, log, debounce, executor)
			if err != nil {
				return err
			}
			defer w.Close()

			action, err := w.Run(ctx)
			if err != nil {
				return err
			}
			log.Info("watcher stopped, exit action: %s", action)
			return nil
		})
	},
}

func init() {
	startCmd.Flags().BoolVar(&startDaemon, "daemon", false, "detach into the background")
}
