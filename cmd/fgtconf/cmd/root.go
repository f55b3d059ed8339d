package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/psaab/fgtconf/pkg/config"
	"github.com/psaab/fgtconf/pkg/logging"
	"github.com/psaab/fgtconf/pkg/settings"
)

var (
	optionsFile string
	debug       bool

	// opts holds the loaded options once the root pre-run has completed.
	opts = settings.Default()
	logs = logging.NewBuffer(logging.DefaultBufferSize)
)

var rootCmd = &cobra.Command{
	Use:   "fgtconf",
	Short: "FortiGate configuration toolkit",
	Long: `fgtconf reads FortiGate configuration files ("show full-configuration"
output or backups) and shows, filters, exports or compares them.

A FILE argument of "-" reads standard input.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fgtconf: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.PersistentFlags().StringVar(&optionsFile, "options", "", "options file (.yaml, .yml or .hcl)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func setup(cmd *cobra.Command, _ []string) error {
	logging.Setup(cmd.ErrOrStderr(), debug, logs)

	opts = settings.Default()
	if optionsFile != "" {
		loaded, err := settings.Load(optionsFile)
		if err != nil {
			return err
		}
		opts = loaded
	}
	setupColor(opts.Color)
	return nil
}

// setupColor enables colored output for "always", disables it for
// "never", and for "auto" enables it only when stdout is a terminal.
func setupColor(mode string) {
	switch mode {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	default:
		fd := os.Stdout.Fd()
		color.NoColor = !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd)
	}
}

// readConfig parses the file at path, or standard input for "-".
func readConfig(cmd *cobra.Command, path string) (*config.Config, error) {
	if path == "-" {
		return config.ParseReader(cmd.InOrStdin())
	}
	return config.ParseFile(path)
}
