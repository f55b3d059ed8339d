package cmd

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/psaab/fgtconf/pkg/config"
	"github.com/psaab/fgtconf/pkg/filter"
	"github.com/psaab/fgtconf/pkg/redact"
)

var showFlags struct {
	filter     string
	exclude    []string
	section    string
	vdom       string
	redact     bool
	noComments bool
}

var showCmd = &cobra.Command{
	Use:   "show FILE",
	Short: "Show a configuration, optionally filtered",
	Long: `Show parses FILE and writes it back in canonical form.

--filter keeps the items matching an expression together with their
ancestors and descendants; --exclude drops matching items and their
subtrees. Expressions see key, kind, values, value, path and depth, e.g.

  fgtconf show --filter 'key == "hostname"' fw.conf
  fgtconf show --exclude 'kind == "table" && len(path) == 0' fw.conf`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	f := showCmd.Flags()
	f.StringVar(&showFlags.filter, "filter", "", "keep items matching this expression")
	f.StringArrayVar(&showFlags.exclude, "exclude", nil, "drop items matching this expression (repeatable)")
	f.StringVar(&showFlags.section, "section", "", "keep top-level sections matching this regexp")
	f.StringVar(&showFlags.vdom, "vdom", "", `show only this vdom ("global" for the global section)`)
	f.BoolVar(&showFlags.redact, "redact", false, "hide secrets")
	f.BoolVar(&showFlags.noComments, "no-comments", false, "omit the header comments")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, err := readConfig(cmd, args[0])
	if err != nil {
		return err
	}

	wf, err := showFilter()
	if err != nil {
		return err
	}
	if n := redactConfig(cfg, showFlags.redact); n > 0 {
		slog.Debug("redacted values", "count", n)
	}

	enc := config.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(opts.Indent)

	switch showFlags.vdom {
	case "":
		return enc.EncodeConfig(cfg, opts.Comments && !showFlags.noComments, wf, nil)
	case "global":
		return enc.EncodeObject(cfg.Root, wf, nil)
	}
	if !cfg.MultiVDOM {
		return fmt.Errorf("--vdom %s: %s has no vdoms", showFlags.vdom, args[0])
	}
	v, err := cfg.VDOM(showFlags.vdom)
	if err != nil {
		return err
	}
	return enc.EncodeObject(v, wf, nil)
}

// showFilter combines --filter, --section and the exclusions from both the
// flags and the options file.
func showFilter() (config.Filter, error) {
	var filters []config.Filter
	if showFlags.filter != "" {
		f, err := filter.Compile(showFlags.filter)
		if err != nil {
			return nil, fmt.Errorf("--filter: %w", err)
		}
		filters = append(filters, f.Select())
	}
	if showFlags.section != "" {
		f, err := filter.Section(showFlags.section)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	exclude, err := filter.Exclude(slices.Concat(opts.Exclude, showFlags.exclude)...)
	if err != nil {
		return nil, fmt.Errorf("--exclude: %w", err)
	}
	return filter.All(append(filters, exclude)...), nil
}

// redactConfig hides secrets when requested by flag or by the options
// file and returns the number of values replaced.
func redactConfig(cfg *config.Config, flag bool) int {
	r := opts.Redactor()
	if r == nil {
		if !flag {
			return 0
		}
		r = redact.New(redact.Options{})
	}
	return r.Config(cfg)
}
