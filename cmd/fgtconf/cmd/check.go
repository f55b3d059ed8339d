package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/psaab/fgtconf/pkg/config"
)

var checkCmd = &cobra.Command{
	Use:   "check FILE...",
	Short: "Check that configuration files parse",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	failed := 0
	for _, path := range args {
		var cfg *config.Config
		text, err := readText(cmd, path)
		if err == nil {
			cfg, err = config.Parse(text)
		}
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", path, err)
			failed++
			continue
		}
		counts := config.Count(cfg.Root)
		for _, o := range cfg.VDOMs.All() {
			c := config.Count(o)
			counts.Sets += c.Sets
			counts.Unsets += c.Unsets
			counts.Objects += c.Objects
			counts.Tables += c.Tables
		}
		fmt.Fprintf(out, "%s: ok (%d sections, %d nodes, %d vdoms)\n",
			path, cfg.Root.Len(), counts.Total(), cfg.VDOMs.Len())
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to parse", failed, len(args))
	}
	return nil
}
