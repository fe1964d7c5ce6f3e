package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/bashhack/git-autosnap/internal/errors"
)

var shellCmd = &cobra.Command{
	Use:   "shell [commit]",
	Short: "Open a snapshot's tree in a subshell for inspection",
	Long: `shell extracts commit's tree (HEAD of the sidecar by default) into a
scratch directory and launches $SHELL (or /bin/sh) there. R itself is never
touched. Exit the subshell to return; the scratch directory is removed
automatically.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSidecar(); err != nil {
			return err
		}
		commit := "HEAD"
		if len(args) > 0 {
			commit = args[0]
		}

		scratch, err := os.MkdirTemp("", "autosnap-shell-")
		if err != nil {
			return err
		}
		defer os.RemoveAll(scratch)

		engine := newEngine()
		if err := engine.ExtractTree(cmd.Context(), commit, scratch); err != nil {
			return err
		}

		log.InfoToUser("extracted %s into %s", commit, scratch)
		log.StatusMessage("type 'exit' to return")

		shell := os.Getenv("SHELL")
		if shell == "" {
			shell = "/bin/sh"
		}

		sub := exec.CommandContext(cmd.Context(), shell)
		sub.Dir = scratch
		sub.Env = append(os.Environ(), "PS1=[autosnap:"+commit+"] $ ")
		sub.Stdin = os.Stdin
		sub.Stdout = os.Stdout
		sub.Stderr = os.Stderr
		if err := sub.Run(); err != nil {
			return fmt.Errorf("%w: %s: %w", errors.ErrExternalToolFailure, shell, err)
		}
		return nil
	},
}
