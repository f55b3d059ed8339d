// Package cmdtree defines the command trees of the fgtconf shell.
//
// Tab completion and ? help are both generated from these trees, so a
// command added here shows up in both.
package cmdtree

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Env supplies the dynamic completion values at the shell's current
// location.
type Env interface {
	// Containers returns the keys of config sections, or the edit ids of a
	// table.
	Containers() []string
	// Params returns the keys of set and unset commands.
	Params() []string
	// VDOMs returns the vdom names, including "global" when the
	// configuration has vdoms.
	VDOMs() []string
}

// Node defines a completion tree node with description, children, and optional dynamic values.
type Node struct {
	Desc      string
	Children  map[string]*Node
	DynamicFn func(env Env) []string
	// Rest marks a node whose dynamic value is the remainder of the line,
	// which may contain spaces ("config system interface").
	Rest bool
}

// Candidate holds a command name and its description for display.
type Candidate struct {
	Name string
	Desc string
}

func containers(env Env) []string { return env.Containers() }
func params(env Env) []string     { return env.Params() }
func vdoms(env Env) []string      { return env.VDOMs() }

func entries(env Env) []string {
	return append(env.Containers(), env.Params()...)
}

// PipeFilters are the output filters accepted after "|".
var PipeFilters = map[string]*Node{
	"count":  {Desc: "Count occurrences"},
	"except": {Desc: "Show only text that does not match a pattern"},
	"grep":   {Desc: "Show only text that matches a pattern"},
	"last":   {Desc: "Display end of output only"},
	"match":  {Desc: "Show only text that matches a pattern"},
}

// OperationalTree defines tab completion for operational mode.
var OperationalTree = map[string]*Node{
	"configure": {Desc: "Enter configuration mode"},
	"show": {Desc: "Show information", Children: map[string]*Node{
		"configuration": {Desc: "Show active configuration"},
		"history":       {Desc: "Show committed configurations available for rollback"},
		"log":           {Desc: "Show recent log messages"},
		"vdom":          {Desc: "Show virtual domains"},
	}},
	"help": {Desc: "Show available commands"},
	"quit": {Desc: "Exit CLI"},
	"exit": {Desc: "Exit CLI"},
}

// ConfigTopLevel defines tab completion for config mode top-level commands.
var ConfigTopLevel = map[string]*Node{
	"config":   {Desc: "Enter a configuration section", DynamicFn: containers, Rest: true},
	"edit":     {Desc: "Edit a table entry, creating it if absent", DynamicFn: containers},
	"next":     {Desc: "Leave the current table entry"},
	"end":      {Desc: "Leave the current configuration section"},
	"set":      {Desc: "Set a configuration value", DynamicFn: params},
	"unset":    {Desc: "Reset a configuration value", DynamicFn: params},
	"delete":   {Desc: "Delete a section, entry or value", DynamicFn: entries, Rest: true},
	"get":      {Desc: "Show values at the current level", DynamicFn: params},
	"show":     {Desc: "Show candidate configuration at the current level"},
	"compare":  {Desc: "Show changes against the active configuration"},
	"commit":   {Desc: "Commit configuration [comment]"},
	"rollback": {Desc: "Revert to previous configuration [n]"},
	"vdom":     {Desc: "Switch virtual domain", DynamicFn: vdoms},
	"top":      {Desc: "Exit to top of configuration hierarchy"},
	"run":      {Desc: "Run operational command"},
	"help":     {Desc: "Show available commands"},
	"exit":     {Desc: "Exit configuration mode"},
	"quit":     {Desc: "Exit configuration mode"},
}

// --- Helper functions ---

// KeysFromTree returns a sorted list of keys from a Node map.
func KeysFromTree(tree map[string]*Node) []string {
	keys := make([]string, 0, len(tree))
	for k := range tree {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// HelpCandidates returns Candidates from a tree's children for help display.
func HelpCandidates(tree map[string]*Node) []Candidate {
	candidates := make([]Candidate, 0, len(tree))
	for name, node := range tree {
		candidates = append(candidates, Candidate{Name: name, Desc: node.Desc})
	}
	return candidates
}

// CompleteFromTree walks the tree to find completion candidates for the
// given words and partial. env may be nil, which disables dynamic values.
func CompleteFromTree(tree map[string]*Node, words []string, partial string, env Env) []Candidate {
	current := tree
	var currentNode *Node
	dynamicConsumed := false
	for _, w := range words {
		dynamicConsumed = false
		node, ok := current[w]
		if !ok {
			// Word not in static children; if the parent has a DynamicFn,
			// treat as a dynamic value and stay at same children level.
			if currentNode != nil && currentNode.DynamicFn != nil {
				dynamicConsumed = true
				continue
			}
			return nil
		}
		currentNode = node
		if node.Children == nil {
			if node.DynamicFn != nil && env != nil {
				return dynamic(node, env, partial)
			}
			return nil
		}
		current = node.Children
	}

	var candidates []Candidate
	for name, node := range current {
		if strings.HasPrefix(name, partial) {
			candidates = append(candidates, Candidate{Name: name, Desc: node.Desc})
		}
	}
	if !dynamicConsumed && currentNode != nil && currentNode.DynamicFn != nil && env != nil {
		candidates = append(candidates, dynamic(currentNode, env, partial)...)
	}
	return candidates
}

func dynamic(node *Node, env Env, partial string) []Candidate {
	var candidates []Candidate
	for _, name := range node.DynamicFn(env) {
		if strings.HasPrefix(name, partial) {
			candidates = append(candidates, Candidate{Name: name, Desc: "(configured)"})
		}
	}
	return candidates
}

// Lookup returns the node reached by words, or nil.
func Lookup(tree map[string]*Node, words ...string) *Node {
	var node *Node
	current := tree
	for _, w := range words {
		next, ok := current[w]
		if !ok {
			return nil
		}
		node = next
		current = next.Children
	}
	return node
}

// WriteHelp prints aligned completion candidates to w.
// The entire output is built as a single string and written in one call
// so that readline's wrapWriter triggers only one Refresh cycle.
func WriteHelp(w io.Writer, candidates []Candidate) {
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Name < candidates[j].Name })
	maxWidth := 20
	for _, c := range candidates {
		if len(c.Name)+2 > maxWidth {
			maxWidth = len(c.Name) + 2
		}
	}
	var sb strings.Builder
	sb.WriteString("Possible completions:\n")
	for _, c := range candidates {
		if c.Desc != "" {
			fmt.Fprintf(&sb, "  %-*s %s\n", maxWidth, c.Name, c.Desc)
		} else {
			fmt.Fprintf(&sb, "  %s\n", c.Name)
		}
	}
	io.WriteString(w, sb.String())
}

// Names returns the candidate names, sorted.
func Names(candidates []Candidate) []string {
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Name
	}
	sort.Strings(names)
	return names
}

// CommonPrefix returns the longest shared prefix among the given strings.
func CommonPrefix(items []string) string {
	if len(items) == 0 {
		return ""
	}
	prefix := items[0]
	for _, s := range items[1:] {
		for !strings.HasPrefix(s, prefix) {
			prefix = prefix[:len(prefix)-1]
			if prefix == "" {
				return ""
			}
		}
	}
	return prefix
}
