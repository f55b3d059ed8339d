package config

import (
	"bufio"
	"io"
	"strings"
)

// DefaultIndent is the number of spaces per nesting level in written
// configurations.
const DefaultIndent = 4

// Filter decides whether an item is written. Excluding a container
// excludes its whole subtree.
type Filter func(item Item, parents Stack, data any) bool

// Encoder writes configuration trees as FortiGate configuration text.
type Encoder struct {
	w      *bufio.Writer
	indent string
	err    error
}

// NewEncoder returns an encoder writing to w with DefaultIndent.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		w:      bufio.NewWriter(w),
		indent: strings.Repeat(" ", DefaultIndent),
	}
}

// SetIndent sets the number of spaces per nesting level.
func (e *Encoder) SetIndent(n int) {
	if n < 0 {
		n = 0
	}
	e.indent = strings.Repeat(" ", n)
}

// EncodeConfig writes a whole configuration. When comments is true the
// header lines are written first. A multi-vdom configuration is written as
// the vdom declaration, the global section and one block per vdom.
func (e *Encoder) EncodeConfig(c *Config, comments bool, filter Filter, data any) error {
	if comments {
		for _, ln := range c.Comments.Lines() {
			e.line(0, ln)
		}
	}
	if !c.MultiVDOM {
		e.children(c.Root, 0, filter, data)
		return e.flush()
	}

	e.line(0, "config "+vdomSection)
	for _, name := range c.VDOMs.Keys() {
		e.line(0, "edit "+name)
		e.line(0, "next")
	}
	e.line(0, "end")

	e.line(0, "config "+globalSection)
	e.children(c.Root, 0, filter, data)
	e.line(0, "end")

	for name, root := range c.VDOMs.All() {
		e.line(0, "config "+vdomSection)
		e.line(0, "edit "+name)
		e.children(root, 0, filter, data)
		e.line(0, "end")
	}
	return e.flush()
}

// EncodeObject writes the children of o, outermost level unindented.
func (e *Encoder) EncodeObject(o *Object, filter Filter, data any) error {
	e.children(o, 0, filter, data)
	return e.flush()
}

// EncodeTable writes the edit-blocks of t, outermost level unindented.
func (e *Encoder) EncodeTable(t *Table, filter Filter, data any) error {
	e.children(t, 0, filter, data)
	return e.flush()
}

type traversable interface {
	Node
	Traverse(prefix string, visit Visitor, parents Stack, data any)
}

func (e *Encoder) children(root traversable, base int, filter Filter, data any) {
	// one entry per open container: whether its closer must be written
	var open []bool

	parentKind := func(parents Stack) Kind {
		if top, ok := parents.Top(); ok {
			return top.Node.Kind()
		}
		return root.Kind()
	}

	root.Traverse("", func(enter bool, item Item, parents Stack, data any) Action {
		depth := base + len(parents)
		container := isContainer(item.Node)

		if !enter {
			if container {
				if open[len(open)-1] {
					if parentKind(parents) == KindTable {
						e.line(depth, "next")
					} else {
						e.line(depth, "end")
					}
				}
				open = open[:len(open)-1]
			}
			return Continue
		}

		if filter != nil && !filter(item, parents, data) {
			if container {
				open = append(open, false)
			}
			return SkipChildren
		}

		switch n := item.Node.(type) {
		case *Set:
			e.line(depth, "set "+item.Key+" "+strings.Join(n.Values(), " "))
		case *Unset:
			e.line(depth, "unset "+item.Key)
		default:
			open = append(open, true)
			if parentKind(parents) == KindTable {
				e.line(depth, "edit "+item.Key)
			} else {
				e.line(depth, "config "+item.Key)
			}
		}
		return Continue
	}, nil, data)
}

func (e *Encoder) line(depth int, s string) {
	if e.err != nil {
		return
	}
	for range depth {
		if _, e.err = e.w.WriteString(e.indent); e.err != nil {
			return
		}
	}
	if _, e.err = e.w.WriteString(s); e.err != nil {
		return
	}
	e.err = e.w.WriteByte('\n')
}

func (e *Encoder) flush() error {
	if e.err != nil {
		return e.err
	}
	return e.w.Flush()
}

// Write serializes the children of o to w.
func (o *Object) Write(w io.Writer, filter Filter, data any) error {
	return NewEncoder(w).EncodeObject(o, filter, data)
}

// Write serializes the edit-blocks of t to w.
func (t *Table) Write(w io.Writer, filter Filter, data any) error {
	return NewEncoder(w).EncodeTable(t, filter, data)
}
