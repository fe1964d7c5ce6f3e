package main

import (
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the sidecar store and register it in .git/info/exclude",
	Long: `init creates R/.autosnap as a bare repository if it does not already
exist, and ensures ".autosnap" appears exactly once in R/.git/info/exclude.
Running init again on an existing sidecar is a no-op.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine := newEngine()
		if err := engine.Init(cmd.Context()); err != nil {
			return err
		}
		log.InfoToUser("sidecar store ready at %s", engine.GitDir)
		return nil
	},
}
