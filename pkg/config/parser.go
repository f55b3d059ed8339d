package config

import (
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	vdomSection   = "vdom"
	globalSection = "global"
)

type frameKind int

const (
	frameObject    frameKind = iota // config block holding set/unset/config
	frameTable                      // config block holding edit blocks
	frameEntry                      // edit block inside a table
	frameVDOMs                      // top-level "config vdom"
	frameVDOMEntry                  // edit block inside "config vdom"
)

type frame struct {
	kind frameKind
	obj  *Object
	tbl  *Table
	line Line
}

// Parser builds a Config from FortiGate configuration text. The parse is a
// single pass over classified lines with an explicit stack of open blocks.
type Parser struct {
	lex      *Lexer
	stack    []frame
	top      *Object
	topLines map[string]Line
	vdoms    *Table
	comments *Comments
	last     Line
}

// NewParser creates a new Parser for the given input string.
func NewParser(input string) *Parser {
	return &Parser{
		lex:      NewLexer(input),
		top:      newObject(ScopeConfig),
		topLines: make(map[string]Line),
		vdoms:    newTable(),
		comments: NewComments(),
	}
}

// Parse parses a configuration. Any structural error aborts the parse and
// is returned as a *ParseError; no partial tree is returned.
func Parse(input string) (*Config, error) {
	return NewParser(input).Parse()
}

// ParseReader reads r to the end and parses its content.
func ParseReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(string(data))
}

// ParseFile reads and parses the configuration file at path.
func ParseFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse consumes the whole input.
func (p *Parser) Parse() (*Config, error) {
	header := true
	for !p.lex.Done() {
		ln, err := p.lex.Next()
		if err != nil {
			return nil, err
		}
		switch ln.Kind {
		case LineBlank:
			continue
		case LineComment:
			if header {
				p.comments.add(ln.Keyword)
			}
			continue
		}
		header = false
		p.last = ln
		if err := p.step(ln); err != nil {
			return nil, err
		}
	}

	if n := len(p.stack); n > 0 {
		open := p.stack[n-1].line
		return nil, &ParseError{Line: open.Num, Text: open.Text, Err: ErrUnexpectedEOF}
	}
	return p.finish()
}

func (p *Parser) current() *frame {
	if len(p.stack) == 0 {
		return nil
	}
	return &p.stack[len(p.stack)-1]
}

func (p *Parser) push(f frame) { p.stack = append(p.stack, f) }

func (p *Parser) pop() { p.stack = p.stack[:len(p.stack)-1] }

func fail(ln Line, err error) error {
	return &ParseError{Line: ln.Num, Text: ln.Text, Err: err}
}

func (p *Parser) step(ln Line) error {
	cur := p.current()

	switch ln.Kind {
	case LineConfig:
		return p.openConfig(cur, ln)

	case LineEdit:
		if len(ln.Args) != 1 {
			return fail(ln, ErrMissingArgument)
		}
		if cur == nil || (cur.kind != frameTable && cur.kind != frameVDOMs) {
			return fail(ln, ErrEditOutsideTable)
		}
		id := ln.Args[0]
		if cur.kind == frameVDOMs {
			o := newObject(ScopeVDOM)
			p.vdoms.put(id, o)
			p.push(frame{kind: frameVDOMEntry, obj: o, line: ln})
			return nil
		}
		o := newObject(ScopeNone)
		cur.tbl.put(id, o)
		p.push(frame{kind: frameEntry, obj: o, line: ln})
		return nil

	case LineNext:
		if cur == nil || (cur.kind != frameEntry && cur.kind != frameVDOMEntry) {
			return fail(ln, ErrUnmatched)
		}
		p.pop()
		return nil

	case LineEnd:
		if cur == nil || cur.kind == frameEntry {
			return fail(ln, ErrUnmatched)
		}
		if cur.kind == frameVDOMEntry {
			// vdom edit blocks are closed by the end of "config vdom"
			p.pop()
		}
		p.pop()
		return nil

	case LineSet:
		if len(ln.Args) < 2 {
			return fail(ln, ErrMissingArgument)
		}
		obj, err := p.body(cur, ln)
		if err != nil {
			return err
		}
		obj.put(ln.Args[0], newSet(ln.Args[1:]))
		return nil

	case LineUnset:
		if len(ln.Args) != 1 {
			return fail(ln, ErrMissingArgument)
		}
		obj, err := p.body(cur, ln)
		if err != nil {
			return err
		}
		obj.put(ln.Args[0], &Unset{})
		return nil
	}

	return fail(ln, ErrUnexpectedKeyword)
}

// body returns the object that receives set/unset commands in the current
// frame.
func (p *Parser) body(cur *frame, ln Line) (*Object, error) {
	if cur == nil {
		return nil, fail(ln, ErrUnexpectedKeyword)
	}
	switch cur.kind {
	case frameObject, frameEntry, frameVDOMEntry:
		return cur.obj, nil
	}
	return nil, fail(ln, ErrUnexpectedKeyword)
}

func (p *Parser) openConfig(cur *frame, ln Line) error {
	if len(ln.Args) == 0 {
		return fail(ln, ErrMissingArgument)
	}
	name := strings.Join(ln.Args, " ")

	var parent *Object
	if cur == nil {
		if name == vdomSection {
			p.push(frame{kind: frameVDOMs, tbl: p.vdoms, line: ln})
			return nil
		}
		parent = p.top
		p.topLines[name] = ln
	} else {
		var err error
		if parent, err = p.body(cur, ln); err != nil {
			return err
		}
	}

	next, ok, err := p.lex.PeekStructural()
	if err != nil {
		return err
	}
	if ok && next.Kind == LineEdit {
		t := newTable()
		parent.put(name, t)
		p.push(frame{kind: frameTable, tbl: t, line: ln})
		return nil
	}
	o := newObject(ScopeNone)
	parent.put(name, o)
	p.push(frame{kind: frameObject, obj: o, line: ln})
	return nil
}

func (p *Parser) finish() (*Config, error) {
	cfg := &Config{
		Root:     p.top,
		VDOMs:    p.vdoms,
		Comments: p.comments,
	}
	if p.vdoms.Len() == 0 {
		return cfg, nil
	}

	for _, k := range p.top.Keys() {
		if k != globalSection {
			return nil, fail(p.topLines[k], ErrUnexpectedKeyword)
		}
	}
	global, err := p.top.Object(globalSection)
	if err != nil {
		return nil, fail(p.last, ErrNoGlobalSection)
	}
	global.scope = ScopeGlobal
	cfg.MultiVDOM = true
	cfg.Root = global
	return cfg, nil
}
