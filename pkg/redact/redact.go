// Package redact hides secrets in a parsed configuration before it is shown
// or exported.
package redact

import (
	"slices"

	"github.com/psaab/fgtconf/pkg/config"
)

// Defaults used when Options leaves a field empty.
const (
	DefaultMarker      = "ENC"
	DefaultReplacement = "*"
)

// DefaultKeys are parameters whose values are secrets even when stored in
// clear text.
var DefaultKeys = []string{"psksecret", "passphrase", "private-key", "secret"}

// Options controls what a Redactor hides.
type Options struct {
	// Keys lists parameter names whose values are always replaced.
	Keys []string
	// Marker is the leading token of encrypted values ("ENC <ciphertext>").
	Marker string
	// Replacement is the token written in place of each hidden value.
	Replacement string
}

// Redactor replaces secret values in place. It is a config.Visitor and can
// be passed to Traverse directly.
type Redactor struct {
	keys   map[string]bool
	marker string
	repl   string

	// Count is the number of values replaced so far.
	Count int
}

// New returns a Redactor for opts.
func New(opts Options) *Redactor {
	if opts.Marker == "" {
		opts.Marker = DefaultMarker
	}
	if opts.Replacement == "" {
		opts.Replacement = DefaultReplacement
	}
	if opts.Keys == nil {
		opts.Keys = DefaultKeys
	}
	r := &Redactor{
		keys:   make(map[string]bool, len(opts.Keys)),
		marker: opts.Marker,
		repl:   config.Token(opts.Replacement),
	}
	for _, k := range opts.Keys {
		r.keys[k] = true
	}
	return r
}

// Visit redacts a Set on its enter call. Encrypted values keep the marker
// and lose everything after it; values of listed keys are replaced whole.
// Running it twice over the same tree replaces nothing the second time.
func (r *Redactor) Visit(enter bool, item config.Item, _ config.Stack, _ any) config.Action {
	if !enter {
		return config.Continue
	}
	s, ok := item.Node.(*config.Set)
	if !ok {
		return config.Continue
	}

	from := -1
	switch {
	case s.First() == r.marker && s.Len() > 1:
		from = 1
	case r.keys[item.Key]:
		from = 0
	}
	if from < 0 {
		return config.Continue
	}
	for i := from; i < s.Len(); i++ {
		if s.Value(i) == r.repl {
			continue
		}
		_ = s.SetValue(i, r.repl)
		r.Count++
	}
	return config.Continue
}

// Config redacts every scope of c and returns the number of values
// replaced by this call.
func (r *Redactor) Config(c *config.Config) int {
	before := r.Count
	for _, scope := range c.Scopes() {
		scope.Node.(*config.Object).Traverse("", r.Visit, nil, nil)
	}
	return r.Count - before
}

// Keys returns the always-redacted parameter names, sorted.
func (r *Redactor) Keys() []string {
	keys := make([]string, 0, len(r.keys))
	for k := range r.keys {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Config redacts c with default options and returns the number of values
// replaced.
func Config(c *config.Config) int {
	return New(Options{}).Config(c)
}
