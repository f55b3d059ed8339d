// Package settings loads the options shared by the fgtconf tools from a YAML
// or HCL file.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"gopkg.in/yaml.v3"

	"github.com/psaab/fgtconf/pkg/config"
	"github.com/psaab/fgtconf/pkg/filter"
	"github.com/psaab/fgtconf/pkg/redact"
)

// Default values applied when fields are absent from the options file.
const (
	DefaultIndent = config.DefaultIndent
	DefaultColor  = "auto"
	maxIndent     = 16
)

// Options controls how configurations are shown and exported.
type Options struct {
	// Comments writes the header comments before the configuration.
	Comments bool `yaml:"comments" hcl:"comments,optional"`

	// Indent is the number of spaces per nesting level.
	Indent int `yaml:"indent" hcl:"indent,optional"`

	// Color is one of: auto | always | never.
	Color string `yaml:"color" hcl:"color,optional"`

	// Exclude lists filter expressions; matching items are not written.
	Exclude []string `yaml:"exclude" hcl:"exclude,optional"`

	// History is the number of commits kept for rollback.
	History int `yaml:"history" hcl:"history,optional"`

	Redact *Redact `yaml:"redact" hcl:"redact,block"`
}

// Redact configures secret redaction.
type Redact struct {
	Enabled     bool     `yaml:"enabled" hcl:"enabled,optional"`
	Keys        []string `yaml:"keys" hcl:"keys,optional"`
	Marker      string   `yaml:"marker" hcl:"marker,optional"`
	Replacement string   `yaml:"replacement" hcl:"replacement,optional"`
}

// Default returns the options used when no file is given.
func Default() *Options {
	return &Options{
		Comments: true,
		Indent:   DefaultIndent,
		Color:    DefaultColor,
		History:  50,
		Redact: &Redact{
			Marker:      redact.DefaultMarker,
			Replacement: redact.DefaultReplacement,
		},
	}
}

// Load reads the options file at path. The format is chosen by extension:
// .yaml/.yml or .hcl. Missing fields keep their defaults.
func Load(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("settings: read file: %w", err)
	}

	opts := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, opts); err != nil {
			return nil, fmt.Errorf("settings: parse yaml: %w", err)
		}
	case ".hcl":
		if err := hclsimple.Decode(filepath.Base(path), data, nil, opts); err != nil {
			return nil, fmt.Errorf("settings: parse hcl: %w", err)
		}
	default:
		return nil, fmt.Errorf("settings: unsupported file type %q", filepath.Ext(path))
	}

	fill(opts)
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	return opts, nil
}

// fill restores defaults inside blocks that a decoder allocated afresh.
func fill(o *Options) {
	if o.Redact == nil {
		o.Redact = &Redact{}
	}
	if o.Redact.Marker == "" {
		o.Redact.Marker = redact.DefaultMarker
	}
	if o.Redact.Replacement == "" {
		o.Redact.Replacement = redact.DefaultReplacement
	}
}

// Validate checks value ranges and compiles the exclude expressions.
func (o *Options) Validate() error {
	if o.Indent < 0 || o.Indent > maxIndent {
		return fmt.Errorf("indent must be between 0 and %d", maxIndent)
	}
	switch o.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("color must be one of auto, always, never (got %q)", o.Color)
	}
	if o.History <= 0 {
		return fmt.Errorf("history must be positive")
	}
	for i, src := range o.Exclude {
		if _, err := filter.Compile(src); err != nil {
			return fmt.Errorf("exclude[%d]: %w", i, err)
		}
	}
	if o.Redact != nil {
		for i, k := range o.Redact.Keys {
			if strings.TrimSpace(k) == "" {
				return fmt.Errorf("redact.keys[%d] is empty", i)
			}
		}
	}
	return nil
}

// Filter returns the writer filter built from Exclude, or nil.
func (o *Options) Filter() (config.Filter, error) {
	return filter.Exclude(o.Exclude...)
}

// Redactor returns a redactor for the configured options, or nil when
// redaction is disabled.
func (o *Options) Redactor() *redact.Redactor {
	if o.Redact == nil || !o.Redact.Enabled {
		return nil
	}
	return redact.New(redact.Options{
		Keys:        o.Redact.Keys,
		Marker:      o.Redact.Marker,
		Replacement: o.Redact.Replacement,
	})
}
