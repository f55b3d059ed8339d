package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/psaab/fgtconf/pkg/diff"
)

// errDiffer is returned with --exit-code when the configurations differ.
var errDiffer = errors.New("configurations differ")

var diffFlags struct {
	tree     bool
	exitCode bool
}

var diffCmd = &cobra.Command{
	Use:   "diff A B",
	Short: "Compare two configurations",
	Long: `Diff compares two configuration files.

By default it prints a unified diff of the canonical texts, so formatting
and header comments do not show up as changes. With --tree it lists the
added, removed and changed items by path instead, ignoring their order.`,
	Args: cobra.ExactArgs(2),
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().BoolVar(&diffFlags.tree, "tree", false, "list changes by path")
	diffCmd.Flags().BoolVar(&diffFlags.exitCode, "exit-code", false, "fail when the configurations differ")
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	if args[0] == "-" && args[1] == "-" {
		return fmt.Errorf("only one side may be read from standard input")
	}
	a, err := readConfig(cmd, args[0])
	if err != nil {
		return err
	}
	b, err := readConfig(cmd, args[1])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	differ := false
	if diffFlags.tree {
		changes := diff.Tree(a, b)
		differ = len(changes) > 0
		if err := diff.Write(out, changes); err != nil {
			return err
		}
	} else {
		text, err := diff.Unified(a, b, args[0], args[1])
		if err != nil {
			return err
		}
		differ = text != ""
		fmt.Fprint(out, diff.Colorize(text))
	}

	if differ && diffFlags.exitCode {
		return errDiffer
	}
	return nil
}
