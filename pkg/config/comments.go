package config

import (
	"slices"
	"strings"
)

const versionKey = "config-version"

// Comments is the ordered header metadata found before the first command.
// A "#key=value" line is stored as key/value; any other comment is stored
// with its text as key and no value.
type Comments struct {
	keys     []string
	values   map[string]string
	hasValue map[string]bool
}

// NewComments returns an empty header.
func NewComments() *Comments {
	return &Comments{
		values:   make(map[string]string),
		hasValue: make(map[string]bool),
	}
}

// add records a comment line body (text after '#'). A repeated key keeps its
// first position and takes the latest value.
func (c *Comments) add(text string) {
	key, value, ok := strings.Cut(text, "=")
	if !ok {
		key, value = text, ""
	}
	if _, seen := c.values[key]; !seen {
		c.keys = append(c.keys, key)
	}
	c.values[key] = value
	c.hasValue[key] = ok
}

// Len returns the number of header entries.
func (c *Comments) Len() int { return len(c.keys) }

// Keys returns the header keys in source order.
func (c *Comments) Keys() []string { return slices.Clone(c.keys) }

// Get returns the value stored for key.
func (c *Comments) Get(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// HasValue reports whether key was written as "#key=value".
func (c *Comments) HasValue(key string) bool { return c.hasValue[key] }

// Lines renders the header back to comment lines.
func (c *Comments) Lines() []string {
	lines := make([]string, 0, len(c.keys))
	for _, k := range c.keys {
		if c.hasValue[k] {
			lines = append(lines, "#"+k+"="+c.values[k])
		} else {
			lines = append(lines, "#"+k)
		}
	}
	return lines
}

// configVersion returns the leading field of the config-version header,
// e.g. "FGT60E-5.04-FW-build1111-161216".
func (c *Comments) configVersion() string {
	v, ok := c.values[versionKey]
	if !ok {
		return ""
	}
	field, _, _ := strings.Cut(v, ":")
	return field
}

// Model returns the firewall model from the config-version header, or "?".
func (c *Comments) Model() string {
	model, _, ok := strings.Cut(c.configVersion(), "-")
	if !ok || model == "" {
		return "?"
	}
	return model
}

// Version returns the firmware version from the config-version header, or
// "?".
func (c *Comments) Version() string {
	_, version, ok := strings.Cut(c.configVersion(), "-")
	if !ok || version == "" {
		return "?"
	}
	return version
}

// Field returns a colon-separated attribute of the config-version header,
// such as "vdom" or "user".
func (c *Comments) Field(name string) (string, bool) {
	v, ok := c.values[versionKey]
	if !ok {
		return "", false
	}
	for _, f := range strings.Split(v, ":")[1:] {
		k, val, _ := strings.Cut(f, "=")
		if k == name {
			return val, true
		}
	}
	return "", false
}
