// Package config implements the FortiGate configuration parser, data model,
// traversal engine and writer.
package config

import (
	"fmt"
	"strings"
)

// LineKind classifies a logical configuration line.
type LineKind int

const (
	LineBlank   LineKind = iota // empty or whitespace-only
	LineComment                 // # ...
	LineConfig                  // config <name...>
	LineEdit                    // edit <id>
	LineNext                    // next
	LineEnd                     // end
	LineSet                     // set <key> <values...>
	LineUnset                   // unset <key>
	LineUnknown                 // any other leading word
)

func (k LineKind) String() string {
	switch k {
	case LineBlank:
		return "blank"
	case LineComment:
		return "comment"
	case LineConfig:
		return "config"
	case LineEdit:
		return "edit"
	case LineNext:
		return "next"
	case LineEnd:
		return "end"
	case LineSet:
		return "set"
	case LineUnset:
		return "unset"
	default:
		return "unknown"
	}
}

// structural reports whether the line is a command rather than a comment
// or blank line.
func (k LineKind) structural() bool {
	return k != LineBlank && k != LineComment
}

var keywords = map[string]LineKind{
	"config": LineConfig,
	"edit":   LineEdit,
	"next":   LineNext,
	"end":    LineEnd,
	"set":    LineSet,
	"unset":  LineUnset,
}

// Line is a single classified logical line.
type Line struct {
	Kind    LineKind
	Keyword string   // first token, or the comment text without '#'
	Args    []string // remaining tokens, quoted strings keep their quotes
	Num     int      // 1-based line number where the logical line starts
	Text    string   // raw text, trimmed
}

func (l Line) String() string {
	if len(l.Args) == 0 {
		return fmt.Sprintf("%s(%q)", l.Kind, l.Keyword)
	}
	return fmt.Sprintf("%s(%q %q)", l.Kind, l.Keyword, l.Args)
}

// Lexer splits FortiGate configuration text into classified lines.
type Lexer struct {
	input  string
	pos    int
	line   int
	peeked *Line
}

// NewLexer creates a new Lexer for the given input string.
func NewLexer(input string) *Lexer {
	return &Lexer{
		input: input,
		line:  1,
	}
}

// Done reports whether the input is exhausted.
func (l *Lexer) Done() bool {
	return l.peeked == nil && l.pos >= len(l.input)
}

// Next returns the next logical line, advancing the position.
// A quoted string without a closing quote yields a *ParseError wrapping
// ErrUnterminatedQuote.
func (l *Lexer) Next() (Line, error) {
	if l.peeked != nil {
		ln := *l.peeked
		l.peeked = nil
		return ln, nil
	}
	return l.scanLine()
}

// Peek returns the next logical line without advancing.
func (l *Lexer) Peek() (Line, error) {
	if l.peeked != nil {
		return *l.peeked, nil
	}
	ln, err := l.scanLine()
	if err != nil {
		return ln, err
	}
	l.peeked = &ln
	return ln, nil
}

// PeekStructural returns the next line that is neither blank nor a comment,
// without consuming anything. ok is false at end of input.
func (l *Lexer) PeekStructural() (Line, bool, error) {
	saved := *l
	if l.peeked != nil {
		p := *l.peeked
		saved.peeked = &p
	}
	defer func() { *l = saved }()

	for !l.Done() {
		ln, err := l.Next()
		if err != nil {
			return ln, false, err
		}
		if ln.Kind.structural() {
			return ln, true, nil
		}
	}
	return Line{}, false, nil
}

func (l *Lexer) scanLine() (Line, error) {
	start := l.pos
	ln := Line{Num: l.line}
	var tokens []string

	for {
		l.skipBlanks()
		if l.pos >= len(l.input) {
			break
		}
		ch := l.input[l.pos]
		if ch == '\n' {
			l.advance()
			break
		}
		if ch == '#' && len(tokens) == 0 {
			l.skipToEOL()
			text := strings.TrimRight(l.input[start:l.pos], "\r\n")
			ln.Kind = LineComment
			ln.Text = strings.TrimSpace(text)
			ln.Keyword = strings.TrimPrefix(ln.Text, "#")
			if l.pos < len(l.input) {
				l.advance()
			}
			return ln, nil
		}
		if ch == '"' {
			tok, err := l.readString()
			if err != nil {
				return ln, &ParseError{Line: ln.Num, Text: firstLine(l.input[start:]), Err: err}
			}
			tokens = append(tokens, tok)
			continue
		}
		tokens = append(tokens, l.readWord())
	}

	ln.Text = strings.TrimSpace(l.input[start:l.pos])
	if len(tokens) == 0 {
		ln.Kind = LineBlank
		return ln, nil
	}
	ln.Keyword = tokens[0]
	ln.Args = tokens[1:]
	if kind, ok := keywords[ln.Keyword]; ok {
		ln.Kind = kind
	} else {
		ln.Kind = LineUnknown
	}
	return ln, nil
}

// Tokenize classifies every line of input.
func Tokenize(input string) ([]Line, error) {
	lex := NewLexer(input)
	var lines []Line
	for !lex.Done() {
		ln, err := lex.Next()
		if err != nil {
			return nil, err
		}
		lines = append(lines, ln)
	}
	return lines, nil
}

func (l *Lexer) advance() {
	if l.pos < len(l.input) {
		if l.input[l.pos] == '\n' {
			l.line++
		}
		l.pos++
	}
}

func (l *Lexer) skipBlanks() {
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == ' ' || ch == '\t' || ch == '\r' || ch == '\f' || ch == '\v' {
			l.pos++
			continue
		}
		break
	}
}

func (l *Lexer) skipToEOL() {
	for l.pos < len(l.input) && l.input[l.pos] != '\n' {
		l.pos++
	}
}

// readString reads a double-quoted string, keeping the quotes and any
// backslash escapes verbatim. The string may span lines.
func (l *Lexer) readString() (string, error) {
	start := l.pos
	l.advance() // opening quote
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == '\\' {
			l.advance()
			if l.pos >= len(l.input) {
				break
			}
			l.advance()
			continue
		}
		l.advance()
		if ch == '"' {
			return l.input[start:l.pos], nil
		}
	}
	return "", ErrUnterminatedQuote
}

func (l *Lexer) readWord() string {
	start := l.pos
	for l.pos < len(l.input) && !isSpace(l.input[l.pos]) {
		l.pos++
	}
	return l.input[start:l.pos]
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f' || ch == '\v'
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
