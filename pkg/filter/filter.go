// Package filter compiles boolean expressions over configuration items
// into writer filters.
//
// An expression sees one item at a time through Env:
//
//	key == "hostname"
//	kind == "set" && "https" in values
//	under("system interface") && value matches "^10\\."
//	depth == 0 && key startsWith "firewall"
package filter

import (
	"fmt"
	"log/slog"
	"regexp"
	"slices"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/psaab/fgtconf/pkg/config"
)

// Env is the evaluation environment of an expression. Keys and values are
// unquoted.
type Env struct {
	Key    string   `expr:"key"`
	Kind   string   `expr:"kind"`
	Path   []string `expr:"path"`
	Parent string   `expr:"parent"`
	Depth  int      `expr:"depth"`
	Values []string `expr:"values"`
	Value  string   `expr:"value"`

	Under func(name string) bool `expr:"under"`
}

// NewEnv builds the environment for item below parents.
func NewEnv(item config.Item, parents config.Stack) Env {
	path := make([]string, 0, len(parents)+1)
	for _, p := range parents {
		path = append(path, config.Unquote(p.Key))
	}
	env := Env{
		Key:   config.Unquote(item.Key),
		Kind:  item.Node.Kind().String(),
		Depth: len(parents),
	}
	if len(path) > 0 {
		env.Parent = path[len(path)-1]
	}
	ancestors := slices.Clone(path)
	env.Under = func(name string) bool { return slices.Contains(ancestors, name) }
	env.Path = append(path, env.Key)

	if s, ok := item.Node.(*config.Set); ok {
		env.Values = make([]string, s.Len())
		for i, v := range s.Values() {
			env.Values[i] = config.Unquote(v)
		}
		env.Value = env.Values[0]
	}
	return env
}

// Filter is a compiled expression.
type Filter struct {
	source  string
	program *vm.Program
}

// Compile parses and type-checks source. The expression must yield a bool.
func Compile(source string) (*Filter, error) {
	program, err := expr.Compile(source, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("filter %q: %w", source, err)
	}
	return &Filter{source: source, program: program}, nil
}

// String returns the expression source.
func (f *Filter) String() string { return f.source }

// Match evaluates the expression for one item.
func (f *Filter) Match(item config.Item, parents config.Stack) (bool, error) {
	out, err := expr.Run(f.program, NewEnv(item, parents))
	if err != nil {
		return false, fmt.Errorf("filter %q: %w", f.source, err)
	}
	return out.(bool), nil
}

func (f *Filter) match(item config.Item, parents config.Stack) bool {
	ok, err := f.Match(item, parents)
	if err != nil {
		slog.Debug("filter evaluation failed", "key", item.Key, "err", err)
		return false
	}
	return ok
}

// Select returns a writer filter keeping the items that match, everything
// below a matching container, and the containers leading to a match.
func (f *Filter) Select() config.Filter {
	return func(item config.Item, parents config.Stack, _ any) bool {
		for i := range parents {
			if f.match(parents[i], parents[:i]) {
				return true
			}
		}
		if f.match(item, parents) {
			return true
		}
		return f.below(item, parents)
	}
}

// below reports whether a descendant of item matches.
func (f *Filter) below(item config.Item, parents config.Stack) bool {
	found := false
	visit := func(enter bool, it config.Item, ps config.Stack, _ any) config.Action {
		if found {
			return config.SkipChildren
		}
		if enter && f.match(it, ps) {
			found = true
		}
		return config.Continue
	}
	switch n := item.Node.(type) {
	case *config.Object:
		n.Traverse(item.Key, visit, parents, nil)
	case *config.Table:
		n.Traverse(item.Key, visit, parents, nil)
	}
	return found
}

// Reject returns a writer filter dropping every item that matches, with
// its subtree.
func (f *Filter) Reject() config.Filter {
	return func(item config.Item, parents config.Stack, _ any) bool {
		return !f.match(item, parents)
	}
}

// Exclude compiles each expression and returns a writer filter dropping
// items matching any of them.
func Exclude(sources ...string) (config.Filter, error) {
	var filters []config.Filter
	for _, src := range sources {
		f, err := Compile(src)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f.Reject())
	}
	return All(filters...), nil
}

// All combines writer filters; an item is kept when every filter keeps it.
// Nil filters are ignored and All of nothing is nil.
func All(filters ...config.Filter) config.Filter {
	filters = slices.DeleteFunc(slices.Clone(filters), func(f config.Filter) bool { return f == nil })
	switch len(filters) {
	case 0:
		return nil
	case 1:
		return filters[0]
	}
	return func(item config.Item, parents config.Stack, data any) bool {
		for _, f := range filters {
			if !f(item, parents, data) {
				return false
			}
		}
		return true
	}
}

// Section returns a writer filter keeping only the top-level sections
// whose key matches pattern, anchored at the start as in Object.Sections.
func Section(pattern string) (config.Filter, error) {
	re, err := regexp.Compile("^(?:" + pattern + ")")
	if err != nil {
		return nil, fmt.Errorf("section pattern: %w", err)
	}
	return func(item config.Item, parents config.Stack, _ any) bool {
		if len(parents) == 0 {
			return re.MatchString(item.Key)
		}
		return true
	}, nil
}
