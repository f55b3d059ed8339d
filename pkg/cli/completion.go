package cli

import (
	"fmt"
	"strings"

	"github.com/psaab/fgtconf/pkg/cmdtree"
	"github.com/psaab/fgtconf/pkg/config"
)

// env exposes the candidate (or active) configuration at the current
// location for dynamic completion.
type env struct {
	cli *CLI
}

func (e env) names(fn func(config.Node) []string) []string {
	var names []string
	_ = e.cli.store.View(func(cfg *config.Config) error {
		n, err := e.cli.location(cfg)
		if err != nil {
			return err
		}
		names = fn(n)
		return nil
	})
	return names
}

func (e env) Containers() []string {
	return e.names(func(n config.Node) []string {
		switch cur := n.(type) {
		case *config.Table:
			return cur.Keys()
		case *config.Object:
			var keys []string
			for k, child := range cur.All() {
				if child.Kind() == config.KindObject || child.Kind() == config.KindTable {
					keys = append(keys, k)
				}
			}
			return keys
		}
		return nil
	})
}

func (e env) Params() []string {
	return e.names(func(n config.Node) []string {
		o, ok := n.(*config.Object)
		if !ok {
			return nil
		}
		var keys []string
		for k, child := range o.All() {
			if child.Kind() == config.KindSet || child.Kind() == config.KindUnset {
				keys = append(keys, k)
			}
		}
		return keys
	})
}

func (e env) VDOMs() []string {
	var names []string
	_ = e.cli.store.View(func(cfg *config.Config) error {
		if cfg.MultiVDOM {
			names = append([]string{"global"}, cfg.VDOMs.Keys()...)
		}
		return nil
	})
	return names
}

// complete returns the candidates for the word being typed at the end of
// text, and that partial word.
func (c *CLI) complete(text string) ([]cmdtree.Candidate, string) {
	if idx := strings.LastIndex(text, "|"); idx >= 0 {
		after := strings.TrimLeft(text[idx+1:], " ")
		if strings.Contains(after, " ") {
			// filter arguments are free text
			return nil, ""
		}
		return cmdtree.CompleteFromTree(cmdtree.PipeFilters, nil, after, nil), after
	}

	tree := cmdtree.OperationalTree
	var e cmdtree.Env
	if c.store.InConfigMode() {
		tree = cmdtree.ConfigTopLevel
		e = env{cli: c}
	}

	words := strings.Fields(text)
	trailing := strings.HasSuffix(text, " ")
	if tree == cmdtree.ConfigTopLevel && len(words) > 0 && words[0] == "run" && (len(words) > 1 || trailing) {
		tree, e = cmdtree.OperationalTree, nil
		words = words[1:]
		_, text, _ = strings.Cut(strings.TrimLeft(text, " "), " ")
	}

	if len(words) > 0 && (len(words) > 1 || trailing) {
		if node := tree[words[0]]; node != nil && node.Rest {
			_, rest, _ := strings.Cut(strings.TrimLeft(text, " "), " ")
			rest = strings.TrimLeft(rest, " ")
			return cmdtree.CompleteFromTree(tree, words[:1], rest, e), rest
		}
	}

	partial := ""
	if !trailing && len(words) > 0 {
		partial = words[len(words)-1]
		words = words[:len(words)-1]
	}
	// commands with a dynamic argument complete only their first one
	if len(words) > 1 {
		if node := tree[words[0]]; node != nil && node.Children == nil {
			return nil, ""
		}
	}
	return cmdtree.CompleteFromTree(tree, words, partial, e), partial
}

// completer implements readline.AutoCompleter.
type completer struct {
	cli *CLI
}

func (cp *completer) Do(line []rune, pos int) ([][]rune, int) {
	candidates, partial := cp.cli.complete(string(line[:pos]))
	if len(candidates) == 0 {
		return nil, 0
	}
	names := cmdtree.Names(candidates)
	if len(names) == 1 {
		suffix := names[0][len(partial):]
		return [][]rune{[]rune(suffix + " ")}, len(partial)
	}

	// Multiple matches: show descriptions above prompt.
	cmdtree.WriteHelp(cp.cli.rl.Stdout(), candidates)

	prefix := cmdtree.CommonPrefix(names)
	suffix := prefix[len(partial):]
	if suffix == "" {
		return nil, 0
	}
	return [][]rune{[]rune(suffix)}, len(partial)
}

// help is the readline listener printing the candidates on '?'.
func (c *CLI) help(line []rune, pos int, key rune) ([]rune, int, bool) {
	if key != '?' || pos < 1 {
		return line, pos, false
	}
	// Strip the '?' that readline already inserted.
	clean := make([]rune, 0, len(line)-1)
	clean = append(clean, line[:pos-1]...)
	clean = append(clean, line[pos:]...)

	candidates, _ := c.complete(string(clean[:pos-1]))
	if len(candidates) == 0 {
		fmt.Fprintln(c.rl.Stdout(), "  (no help available)")
		return clean, pos - 1, true
	}
	cmdtree.WriteHelp(c.rl.Stdout(), candidates)
	return clean, pos - 1, true
}
