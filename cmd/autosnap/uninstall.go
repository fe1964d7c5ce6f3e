package main

import (
	"github.com/spf13/cobra"
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Stop the watcher if running and delete the sidecar store",
	Long:  `uninstall stops any running watcher for this repository, then removes R/.autosnap entirely, discarding all recorded snapshot history.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sup := newSupervisor()
		if err := sup.Uninstall(cmd.Context()); err != nil {
			return err
		}
		log.InfoToUser("sidecar store removed")
		return nil
	},
}
