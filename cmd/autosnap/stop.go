package main

import (
	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running watcher",
	Long:  `stop sends the graceful-terminate signal to the running watcher, then waits for it to take a final snapshot and exit. Idempotent when no watcher is running.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sup := newSupervisor()
		if err := sup.Stop(cmd.Context()); err != nil {
			return err
		}
		log.InfoToUser("watcher stopped")
		return nil
	},
}
