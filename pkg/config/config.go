package config

import (
	"fmt"
	"io"
	"slices"
	"strings"
)

// Config is a parsed FortiGate configuration.
type Config struct {
	// MultiVDOM is true when the file is partitioned into vdoms. Root is
	// then the global section and VDOMs holds one root per vdom.
	MultiVDOM bool

	// Root is the global section of a multi-vdom file, or the whole file.
	Root *Object

	// VDOMs maps vdom names to their top scope, in declaration order.
	// It is empty unless MultiVDOM is true.
	VDOMs *Table

	// Comments is the header metadata preceding the first command.
	Comments *Comments
}

// VDOM returns the top scope of the named vdom.
func (c *Config) VDOM(name string) (*Object, error) {
	return c.VDOMs.Entry(name)
}

// Scopes returns every root of the configuration: the global root followed
// by each vdom root, keyed by scope name ("" for the global root).
func (c *Config) Scopes() []Item {
	scopes := []Item{{Key: "", Node: c.Root}}
	for name, o := range c.VDOMs.All() {
		scopes = append(scopes, Item{Key: name, Node: o})
	}
	return scopes
}

// Write serializes the configuration to w. Header comments are written
// when comments is true; filter selects the written items (nil writes
// everything) and receives data unchanged.
func (c *Config) Write(w io.Writer, comments bool, filter Filter, data any) error {
	return NewEncoder(w).EncodeConfig(c, comments, filter, data)
}

// String returns the configuration text without header comments.
func (c *Config) String() string {
	var b strings.Builder
	_ = c.Write(&b, false, nil, nil)
	return b.String()
}

// Clone returns an independent copy, obtained by writing the configuration
// and parsing the result.
func (c *Config) Clone() (*Config, error) {
	var b strings.Builder
	if err := c.Write(&b, true, nil, nil); err != nil {
		return nil, err
	}
	clone, err := Parse(b.String())
	if err != nil {
		return nil, fmt.Errorf("clone: %w", err)
	}
	return clone, nil
}

// Equal reports whether two configurations have the same header, the same
// vdom layout and structurally equal trees.
func (c *Config) Equal(other *Config) bool {
	if c.MultiVDOM != other.MultiVDOM {
		return false
	}
	if !slices.Equal(c.Comments.Lines(), other.Comments.Lines()) {
		return false
	}
	return Equal(c.Root, other.Root) && Equal(c.VDOMs, other.VDOMs)
}
