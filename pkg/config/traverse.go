package config

import "slices"

// Item is a (key, node) pair as seen by a visitor.
type Item struct {
	Key  string
	Node Node
}

// Stack is the chain of ancestors of the node being visited, outermost
// first.
type Stack []Item

// Top returns the direct parent.
func (s Stack) Top() (Item, bool) {
	if len(s) == 0 {
		return Item{}, false
	}
	return s[len(s)-1], true
}

// Keys returns the ancestor keys, outermost first.
func (s Stack) Keys() []string {
	keys := make([]string, len(s))
	for i, it := range s {
		keys[i] = it.Key
	}
	return keys
}

// Contains reports whether an ancestor is stored under key.
func (s Stack) Contains(key string) bool {
	return slices.ContainsFunc(s, func(it Item) bool { return it.Key == key })
}

// Action is returned by a Visitor on entry to steer the walk.
type Action int

const (
	Continue     Action = iota // descend into the node's children
	SkipChildren               // do not descend; the exit call still happens
)

// Visitor is invoked on entry to and exit from every node. The value
// returned on exit is ignored.
type Visitor func(enter bool, item Item, parents Stack, data any) Action

// Traverse walks the children of o depth-first. When prefix is non-empty,
// o itself is pushed as the outermost ancestor under that key. Set values
// may be edited during the walk; adding or removing keys of the container
// being iterated is not supported.
func (o *Object) Traverse(prefix string, visit Visitor, parents Stack, data any) {
	if prefix != "" {
		parents = push(parents, Item{Key: prefix, Node: o})
	}
	for k, n := range o.All() {
		walk(Item{Key: k, Node: n}, visit, parents, data)
	}
}

// Traverse walks the edit-blocks of t depth-first; see Object.Traverse.
func (t *Table) Traverse(prefix string, visit Visitor, parents Stack, data any) {
	if prefix != "" {
		parents = push(parents, Item{Key: prefix, Node: t})
	}
	for k, e := range t.All() {
		walk(Item{Key: k, Node: e}, visit, parents, data)
	}
}

func walk(item Item, visit Visitor, parents Stack, data any) {
	if visit(true, item, parents, data) != SkipChildren {
		switch n := item.Node.(type) {
		case *Object:
			inner := push(parents, item)
			for k, c := range n.All() {
				walk(Item{Key: k, Node: c}, visit, inner, data)
			}
		case *Table:
			inner := push(parents, item)
			for k, e := range n.All() {
				walk(Item{Key: k, Node: e}, visit, inner, data)
			}
		}
	}
	visit(false, item, parents, data)
}

// push appends without sharing the backing array with other branches, so a
// visitor may keep the Stack it was given.
func push(s Stack, it Item) Stack {
	return append(slices.Clip(s), it)
}

// PathNode is a node with its delimiter-joined path, as returned by Walk.
type PathNode struct {
	Path string
	Node Node
}

// Walk lists o and all its descendants breadth-first. Paths are built by
// joining keys with delim, starting from prefix.
func (o *Object) Walk(prefix, delim string) []PathNode {
	out := []PathNode{{Path: prefix, Node: o}}
	for i := 0; i < len(out); i++ {
		cur := out[i]
		switch n := cur.Node.(type) {
		case *Object:
			for k, c := range n.All() {
				out = append(out, PathNode{Path: cur.Path + delim + k, Node: c})
			}
		case *Table:
			for k, e := range n.All() {
				out = append(out, PathNode{Path: cur.Path + delim + k, Node: e})
			}
		}
	}
	return out
}
