package main

import (
	"os"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether a watcher is running for this repository",
	Long:  `status exits 0 if a watcher is running for this repository, and non-zero otherwise, per the command surface's exit-code contract.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sup := newSupervisor()
		running, pid, err := sup.Status()
		if err != nil {
			return err
		}
		if running {
			log.StatusMessage("running (pid %d)", pid)
			os.Exit(0)
		}
		log.StatusMessage("stopped")
		os.Exit(1)
		return nil
	},
}
