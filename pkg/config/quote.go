package config

import "strings"

// Quote wraps s in double quotes, escaping embedded quotes and backslashes.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('"')
	return b.String()
}

// Unquote removes surrounding double quotes and resolves backslash escapes.
// Tokens that are not quoted are returned unchanged.
func Unquote(s string) string {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}
	inner := s[1 : len(s)-1]
	if !strings.Contains(inner, `\`) {
		return inner
	}
	var b strings.Builder
	b.Grow(len(inner))
	for i := 0; i < len(inner); i++ {
		if inner[i] == '\\' && i+1 < len(inner) {
			i++
		}
		b.WriteByte(inner[i])
	}
	return b.String()
}

// IsQuoted reports whether tok is a double-quoted string token.
func IsQuoted(tok string) bool {
	return len(tok) >= 2 && tok[0] == '"' && tok[len(tok)-1] == '"'
}

// NeedsQuote reports whether s must be quoted to survive tokenization as a
// single token: it is empty, contains whitespace, a quote or a backslash, or
// starts with the comment marker.
func NeedsQuote(s string) bool {
	if s == "" || s[0] == '#' {
		return true
	}
	return strings.ContainsAny(s, " \t\r\n\"\\")
}

// Token returns s as a configuration token, quoting it only when needed.
func Token(s string) string {
	if NeedsQuote(s) {
		return Quote(s)
	}
	return s
}
