package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/psaab/fgtconf/pkg/config"
	"github.com/psaab/fgtconf/pkg/export"
)

var exportFlags struct {
	format string
	redact bool
}

var exportCmd = &cobra.Command{
	Use:   "export FILE",
	Short: "Export a configuration as JSON or YAML",
	Long: `Export converts FILE into a JSON or YAML document with the keys
"comments", "root" and, for multi-vdom files, "vdoms".

YAML keeps the configuration order; JSON does not.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFlags.format, "format", "f", "json", "output format: json or yaml")
	exportCmd.Flags().BoolVar(&exportFlags.redact, "redact", false, "hide secrets")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	var render func(*config.Config) ([]byte, error)
	switch exportFlags.format {
	case "json":
		render = export.JSON
	case "yaml", "yml":
		render = export.YAML
	default:
		return fmt.Errorf("unsupported format %q (want json or yaml)", exportFlags.format)
	}

	cfg, err := readConfig(cmd, args[0])
	if err != nil {
		return err
	}
	redactConfig(cfg, exportFlags.redact)

	data, err := render(cfg)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if _, err := out.Write(data); err != nil {
		return err
	}
	if len(data) > 0 && data[len(data)-1] != '\n' {
		fmt.Fprintln(out)
	}
	return nil
}
