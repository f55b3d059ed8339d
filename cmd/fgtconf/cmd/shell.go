package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/psaab/fgtconf/pkg/cli"
	"github.com/psaab/fgtconf/pkg/configstore"
)

var shellExec []string

var shellCmd = &cobra.Command{
	Use:   "shell FILE",
	Short: "Browse and edit a configuration interactively",
	Long: `Shell opens FILE in a FortiOS-style command shell.

"configure" enters configuration mode, where config/edit/next/end move
through the tree, set/unset/delete change the candidate, and commit saves
it back to FILE. "?" and Tab list the possible completions.

With --exec the given commands run in order and the shell exits.`,
	Args: cobra.ExactArgs(1),
	RunE: runShell,
}

func init() {
	shellCmd.Flags().StringArrayVarP(&shellExec, "exec", "e", nil, "run this command instead of prompting (repeatable)")
	rootCmd.AddCommand(shellCmd)
}

func runShell(cmd *cobra.Command, args []string) error {
	if args[0] == "-" {
		return fmt.Errorf("shell needs a file it can save to")
	}
	store := configstore.New(args[0], opts.History)
	if err := store.Load(); err != nil {
		return err
	}

	c := cli.New(store, logs)
	c.SetOutput(cmd.OutOrStdout())
	if len(shellExec) == 0 {
		return c.Run()
	}
	for _, line := range shellExec {
		if err := c.Execute(line); err != nil {
			if cli.Exited(err) {
				return nil
			}
			return fmt.Errorf("%s: %w", line, err)
		}
	}
	return nil
}
