package config

import (
	"errors"
	"fmt"
	"iter"
	"regexp"
	"slices"
	"strconv"
)

// Kind identifies the variant of a Node.
type Kind int

const (
	KindNone Kind = iota
	KindSet
	KindUnset
	KindObject
	KindTable
)

func (k Kind) String() string {
	switch k {
	case KindSet:
		return "set"
	case KindUnset:
		return "unset"
	case KindObject:
		return "object"
	case KindTable:
		return "table"
	default:
		return "none"
	}
}

// Node is an element of the configuration tree: *Set, *Unset, *Object or
// *Table. The key of a node is held by its parent container.
type Node interface {
	Kind() Kind
	node()
}

// Set is a "set <key> <values...>" command. It always holds at least one
// value; tokens keep their source quoting.
type Set struct {
	values []string
}

func newSet(values []string) *Set {
	return &Set{values: slices.Clone(values)}
}

func (*Set) Kind() Kind { return KindSet }
func (*Set) node()      {}

// Values returns the value tokens. Elements may be modified in place.
func (s *Set) Values() []string { return s.values }

// Len returns the number of value tokens.
func (s *Set) Len() int { return len(s.values) }

// Value returns the i-th value token, or "" when out of range.
func (s *Set) Value(i int) string {
	if i < 0 || i >= len(s.values) {
		return ""
	}
	return s.values[i]
}

// First returns the first value token.
func (s *Set) First() string { return s.values[0] }

// SetValue replaces the i-th value token.
func (s *Set) SetValue(i int, v string) error {
	if i < 0 || i >= len(s.values) {
		return fmt.Errorf("set value %d: index out of range [0,%d)", i, len(s.values))
	}
	s.values[i] = v
	return nil
}

// Update replaces all value tokens. A Set cannot become empty.
func (s *Set) Update(values ...string) error {
	if len(values) == 0 {
		return errors.New("set: at least one value is required")
	}
	s.values = slices.Clone(values)
	return nil
}

// Unset is an "unset <key>" command.
type Unset struct{}

func (*Unset) Kind() Kind { return KindUnset }
func (*Unset) node()      {}

// Scope tags an Object that is the top of a configuration scope.
type Scope int

const (
	ScopeNone   Scope = iota // ordinary object
	ScopeConfig              // the whole file
	ScopeGlobal              // "config global" of a multi-vdom file
	ScopeVDOM                // top scope of one vdom
)

func (s Scope) String() string {
	switch s {
	case ScopeConfig:
		return "config"
	case ScopeGlobal:
		return "global"
	case ScopeVDOM:
		return "vdom"
	default:
		return "none"
	}
}

// children is an insertion-ordered map with unique keys.
type children[V any] struct {
	keys []string
	m    map[string]V
}

// put inserts v under key, or replaces the existing value in place.
func (c *children[V]) put(key string, v V) {
	if c.m == nil {
		c.m = make(map[string]V)
	}
	if _, ok := c.m[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.m[key] = v
}

func (c *children[V]) get(key string) (V, bool) {
	v, ok := c.m[key]
	return v, ok
}

func (c *children[V]) remove(key string) bool {
	if _, ok := c.m[key]; !ok {
		return false
	}
	delete(c.m, key)
	c.keys = slices.DeleteFunc(c.keys, func(k string) bool { return k == key })
	return true
}

// snapshot returns a copy of the key order, safe to range over while the
// container is being modified.
func (c *children[V]) snapshot() []string { return slices.Clone(c.keys) }

func (c *children[V]) all() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		for _, k := range c.snapshot() {
			v, ok := c.m[k]
			if !ok {
				continue
			}
			if !yield(k, v) {
				return
			}
		}
	}
}

// Object is a "config" block (or an edit-block body): an ordered mapping
// from key to child node.
type Object struct {
	scope Scope
	items children[Node]
}

func newObject(scope Scope) *Object { return &Object{scope: scope} }

func (*Object) Kind() Kind { return KindObject }
func (*Object) node()      {}

// Scope returns the scope tag; ScopeNone for ordinary objects.
func (o *Object) Scope() Scope { return o.scope }

// IsRoot reports whether the object is the top of a configuration scope.
func (o *Object) IsRoot() bool { return o.scope != ScopeNone }

// Len returns the number of direct children.
func (o *Object) Len() int { return len(o.items.keys) }

// Keys returns the child keys in source order.
func (o *Object) Keys() []string { return o.items.snapshot() }

// All iterates over the children in source order.
func (o *Object) All() iter.Seq2[string, Node] { return o.items.all() }

// Get returns the child stored under key.
func (o *Object) Get(key string) (Node, bool) { return o.items.get(key) }

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.items.get(key)
	return ok
}

// Remove deletes key and its subtree. It reports whether key was present.
func (o *Object) Remove(key string) bool { return o.items.remove(key) }

func (o *Object) put(key string, n Node) { o.items.put(key, n) }

// Assign stores "set key values..." under key. An existing node of any kind
// is replaced in place, keeping its position.
func (o *Object) Assign(key string, values ...string) (*Set, error) {
	if len(values) == 0 {
		return nil, errors.New("set: at least one value is required")
	}
	s := newSet(slices.Clone(values))
	o.put(key, s)
	return s, nil
}

// Clear stores "unset key" under key, replacing any existing node in place.
func (o *Object) Clear(key string) { o.put(key, &Unset{}) }

func (o *Object) lookup(key string, want Kind) (Node, error) {
	n, ok := o.items.get(key)
	if !ok {
		return nil, notFound(key, want)
	}
	if n.Kind() != want {
		return nil, mismatch(key, want, n.Kind())
	}
	return n, nil
}

// Object returns the child object stored under key.
func (o *Object) Object(key string) (*Object, error) {
	n, err := o.lookup(key, KindObject)
	if err != nil {
		return nil, err
	}
	return n.(*Object), nil
}

// Table returns the child table stored under key.
func (o *Object) Table(key string) (*Table, error) {
	n, err := o.lookup(key, KindTable)
	if err != nil {
		return nil, err
	}
	return n.(*Table), nil
}

// MakeTable returns the child table stored under key. An empty Object stored
// there is replaced by an empty Table in the same position, which is how an
// emptied table reads back from text.
func (o *Object) MakeTable(key string) (*Table, error) {
	n, err := o.lookup(key, KindTable)
	if err == nil {
		return n.(*Table), nil
	}
	if n, ok := o.items.get(key); ok && IsEmptyContainer(n) {
		t := newTable()
		o.put(key, t)
		return t, nil
	}
	return nil, err
}

// Set returns the set command stored under key.
func (o *Object) Set(key string) (*Set, error) {
	n, err := o.lookup(key, KindSet)
	if err != nil {
		return nil, err
	}
	return n.(*Set), nil
}

// Param returns the first value of the set command stored under key.
func (o *Object) Param(key string) (string, error) {
	s, err := o.Set(key)
	if err != nil {
		return "", err
	}
	return s.First(), nil
}

// ParamOr is like Param but returns def when key is absent. A key holding
// another node kind still yields def.
func (o *Object) ParamOr(key, def string) string {
	v, err := o.Param(key)
	if err != nil {
		return def
	}
	return v
}

// Same reports whether Param(key) equals value. An absent key is not an
// error and yields false.
func (o *Object) Same(key, value string) bool {
	v, err := o.Param(key)
	return err == nil && v == value
}

// Attr is the attribute-style accessor: a single-value set yields its
// value as a string, a multi-value set yields []string and any other node
// is returned as is.
func (o *Object) Attr(key string) (any, error) {
	n, ok := o.Get(key)
	if !ok {
		return nil, notFound(key, KindNone)
	}
	if n.Kind() != KindSet {
		return n, nil
	}
	s, err := o.Set(key)
	if err != nil {
		return nil, err
	}
	if s.Len() == 1 {
		return s.First(), nil
	}
	return slices.Clone(s.Values()), nil
}

// Section is a top-level container returned by Sections.
type Section struct {
	Key  string
	Node Node
}

// Sections returns the child containers whose key matches pattern. The
// pattern is anchored at the start of the key; an empty pattern matches
// every container.
func (o *Object) Sections(pattern string) ([]Section, error) {
	var re *regexp.Regexp
	if pattern != "" {
		var err error
		re, err = regexp.Compile(`^(?:` + pattern + `)`)
		if err != nil {
			return nil, fmt.Errorf("section pattern: %w", err)
		}
	}
	var out []Section
	for k, n := range o.All() {
		if !isContainer(n) {
			continue
		}
		if re != nil && !re.MatchString(k) {
			continue
		}
		out = append(out, Section{Key: k, Node: n})
	}
	return out, nil
}

// Table is a "config" block made of edit-blocks: an ordered mapping from
// edit identifier to the edit-block body.
type Table struct {
	entries children[*Object]
}

func newTable() *Table { return &Table{} }

func (*Table) Kind() Kind { return KindTable }
func (*Table) node()      {}

// Len returns the number of edit-blocks.
func (t *Table) Len() int { return len(t.entries.keys) }

// Keys returns the edit identifiers in source order, with source quoting.
func (t *Table) Keys() []string { return t.entries.snapshot() }

// All iterates over the edit-blocks in source order.
func (t *Table) All() iter.Seq2[string, *Object] { return t.entries.all() }

// Get returns the edit-block stored under the literal identifier id.
func (t *Table) Get(id string) (*Object, bool) { return t.entries.get(id) }

// Remove deletes an edit-block. It reports whether id was present.
func (t *Table) Remove(id string) bool { return t.entries.remove(id) }

func (t *Table) put(id string, o *Object) { t.entries.put(id, o) }

// Add returns the edit-block stored under id, appending an empty one when
// it is absent. id is used as given; quote it to get `edit "name"`.
func (t *Table) Add(id string) *Object {
	if o, ok := t.entries.get(id); ok {
		return o
	}
	o := newObject(ScopeNone)
	t.put(id, o)
	return o
}

// Entry resolves an edit-block by identifier. The literal identifier is
// tried first, then its quoted form, so Entry("port1") finds
// `edit "port1"`.
func (t *Table) Entry(id string) (*Object, error) {
	if o, ok := t.entries.get(id); ok {
		return o, nil
	}
	if o, ok := t.entries.get(Quote(id)); ok {
		return o, nil
	}
	return nil, notFound(id, KindObject)
}

// EntryAt returns the i-th edit-block in insertion order (0-based).
func (t *Table) EntryAt(i int) (*Object, error) {
	if i < 0 || i >= len(t.entries.keys) {
		return nil, notFound(strconv.Itoa(i), KindObject)
	}
	o, _ := t.entries.get(t.entries.keys[i])
	return o, nil
}

func isContainer(n Node) bool {
	k := n.Kind()
	return k == KindObject || k == KindTable
}

// IsEmptyContainer reports whether n is an Object or Table without children.
// The text format cannot tell the two apart: an emptied Table is written as
// `config X` / `end` and reads back as an Object.
func IsEmptyContainer(n Node) bool {
	switch x := n.(type) {
	case *Object:
		return x.Len() == 0
	case *Table:
		return x.Len() == 0
	}
	return false
}

// Equal reports whether two nodes are structurally equal: same kinds, same
// keys in the same order and same values. Object scopes are ignored, and an
// empty Table equals an empty Object.
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return IsEmptyContainer(a) && IsEmptyContainer(b)
	}
	switch x := a.(type) {
	case *Set:
		return slices.Equal(x.values, b.(*Set).values)
	case *Unset:
		return true
	case *Object:
		y := b.(*Object)
		if !slices.Equal(x.items.keys, y.items.keys) {
			return false
		}
		for _, k := range x.items.keys {
			if !Equal(x.items.m[k], y.items.m[k]) {
				return false
			}
		}
		return true
	case *Table:
		y := b.(*Table)
		if !slices.Equal(x.entries.keys, y.entries.keys) {
			return false
		}
		for _, k := range x.entries.keys {
			if !Equal(x.entries.m[k], y.entries.m[k]) {
				return false
			}
		}
		return true
	}
	return false
}

// Counts holds per-kind node totals.
type Counts struct {
	Sets    int
	Unsets  int
	Objects int
	Tables  int
}

// Total returns the number of counted nodes.
func (c Counts) Total() int { return c.Sets + c.Unsets + c.Objects + c.Tables }

// Count returns per-kind totals for every node below o.
func Count(o *Object) Counts {
	var c Counts
	o.Traverse("", func(enter bool, item Item, _ Stack, _ any) Action {
		if !enter {
			return Continue
		}
		switch item.Node.Kind() {
		case KindSet:
			c.Sets++
		case KindUnset:
			c.Unsets++
		case KindObject:
			c.Objects++
		case KindTable:
			c.Tables++
		}
		return Continue
	}, nil, nil)
	return c
}
