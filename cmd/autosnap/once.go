package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/bashhack/git-autosnap/internal/errors"
)

var onceCmd = &cobra.Command{
	Use:   "once [tail]",
	Short: "Take a single snapshot now",
	Long: `once populates the sidecar index from R via the host git binary,
writes a tree, and commits it if the tree differs from the sidecar's HEAD.
An optional free-form tail is appended to the commit message.`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSidecar(); err != nil {
			return err
		}
		engine := newEngine()
		tail := strings.Join(args, " ")

		id, err := engine.SnapshotOnce(cmd.Context(), tail)
		if err != nil {
			if errors.Is(err, errors.ErrUnchangedTree) {
				log.StatusMessage("no change since last snapshot")
				return nil
			}
			return err
		}
		log.StatusMessage("%s", id)
		return nil
	},
}
