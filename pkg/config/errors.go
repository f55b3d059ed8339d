package config

import (
	"errors"
	"fmt"
)

// Structural parse errors. A *ParseError wraps exactly one of these.
var (
	ErrUnmatched         = errors.New("unmatched closer")
	ErrEditOutsideTable  = errors.New("edit outside of a table")
	ErrUnterminatedQuote = errors.New("unterminated quoted string")
	ErrUnexpectedKeyword = errors.New("unexpected keyword")
	ErrMissingArgument   = errors.New("wrong number of arguments")
	ErrUnexpectedEOF     = errors.New("unexpected end of input")
	ErrNoGlobalSection   = errors.New("vdom configuration without config global")
)

// Lookup errors returned by the typed accessors.
var (
	ErrNotFound     = errors.New("not found")
	ErrTypeMismatch = errors.New("type mismatch")
)

// ParseError reports a grammar violation at a given line.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Text == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Text)
}

func (e *ParseError) Unwrap() error { return e.Err }

// LookupError is returned when a key is absent or holds another node kind.
type LookupError struct {
	Key  string
	Want Kind
	Got  Kind // zero when the key is absent
	Err  error
}

func (e *LookupError) Error() string {
	if errors.Is(e.Err, ErrTypeMismatch) {
		return fmt.Sprintf("%q: %v: want %s, got %s", e.Key, e.Err, e.Want, e.Got)
	}
	return fmt.Sprintf("%q: %v", e.Key, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

func notFound(key string, want Kind) error {
	return &LookupError{Key: key, Want: want, Err: ErrNotFound}
}

func mismatch(key string, want, got Kind) error {
	return &LookupError{Key: key, Want: want, Got: got, Err: ErrTypeMismatch}
}
