package config

import (
	"errors"
	"slices"
	"testing"
)

func TestLexer(t *testing.T) {
	input := `#config-version=FGT60E-6.4.5-FW-build1828-210217:opmode=0:vdom=0:user=admin

config system interface
    edit "port1"
        set ip 10.0.0.1 255.255.255.0
        unset alias
    next
end
bogus word
`
	expected := []struct {
		kind    LineKind
		keyword string
		args    []string
		num     int
	}{
		{LineComment, "config-version=FGT60E-6.4.5-FW-build1828-210217:opmode=0:vdom=0:user=admin", nil, 1},
		{LineBlank, "", nil, 2},
		{LineConfig, "config", []string{"system", "interface"}, 3},
		{LineEdit, "edit", []string{`"port1"`}, 4},
		{LineSet, "set", []string{"ip", "10.0.0.1", "255.255.255.0"}, 5},
		{LineUnset, "unset", []string{"alias"}, 6},
		{LineNext, "next", nil, 7},
		{LineEnd, "end", nil, 8},
		{LineUnknown, "bogus", []string{"word"}, 9},
	}

	lines, err := Tokenize(input)
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	if len(lines) != len(expected) {
		t.Fatalf("expected %d lines, got %d: %v", len(expected), len(lines), lines)
	}
	for i, exp := range expected {
		ln := lines[i]
		if ln.Kind != exp.kind {
			t.Errorf("line %d: expected kind %s, got %s", i, exp.kind, ln.Kind)
		}
		if ln.Keyword != exp.keyword {
			t.Errorf("line %d: expected keyword %q, got %q", i, exp.keyword, ln.Keyword)
		}
		if !slices.Equal(ln.Args, exp.args) {
			t.Errorf("line %d: expected args %q, got %q", i, exp.args, ln.Args)
		}
		if ln.Num != exp.num {
			t.Errorf("line %d: expected number %d, got %d", i, exp.num, ln.Num)
		}
	}
}

func TestLexerQuotedStrings(t *testing.T) {
	tests := []struct {
		name  string
		input string
		args  []string
	}{
		{"spaces", `set comments "two words"`, []string{"comments", `"two words"`}},
		{"escaped quote", `set comments "say \"hi\""`, []string{"comments", `"say \"hi\""`}},
		{"escaped backslash", `set path "c:\\temp"`, []string{"path", `"c:\\temp"`}},
		{"multiple", `set member "a" "b c"`, []string{"member", `"a"`, `"b c"`}},
		{"unicode", `set a "é ù"`, []string{"a", `"é ù"`}},
		{"hash inside word", `set psk abc#def`, []string{"psk", "abc#def"}},
		{"multiline", "set buffer \"line1\nline2\"", []string{"buffer", "\"line1\nline2\""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lex := NewLexer(tt.input)
			ln, err := lex.Next()
			if err != nil {
				t.Fatalf("next: %v", err)
			}
			if ln.Kind != LineSet {
				t.Fatalf("expected set line, got %s", ln.Kind)
			}
			if !slices.Equal(ln.Args, tt.args) {
				t.Errorf("expected %q, got %q", tt.args, ln.Args)
			}
			if !lex.Done() {
				t.Error("expected input to be exhausted")
			}
		})
	}
}

func TestLexerMultilineNumbering(t *testing.T) {
	input := "set buffer \"a\nb\nc\"\nend\n"
	lines, err := Tokenize(input)
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[1].Kind != LineEnd || lines[1].Num != 4 {
		t.Errorf("expected end at line 4, got %s at %d", lines[1].Kind, lines[1].Num)
	}
}

func TestLexerUnterminatedQuote(t *testing.T) {
	_, err := Tokenize("set a \"abc\n")
	if !errors.Is(err, ErrUnterminatedQuote) {
		t.Fatalf("expected ErrUnterminatedQuote, got %v", err)
	}
	var perr *ParseError
	if !errors.As(err, &perr) || perr.Line != 1 {
		t.Errorf("expected ParseError at line 1, got %v", err)
	}
}

func TestLexerPeek(t *testing.T) {
	lex := NewLexer("# c\n\nconfig a\nend\n")
	ln, ok, err := lex.PeekStructural()
	if err != nil || !ok {
		t.Fatalf("peek structural: ok=%v err=%v", ok, err)
	}
	if ln.Kind != LineConfig {
		t.Errorf("expected config, got %s", ln.Kind)
	}
	first, _ := lex.Peek()
	if first.Kind != LineComment {
		t.Errorf("peek must not consume: expected comment, got %s", first.Kind)
	}
	next, _ := lex.Next()
	if next.Kind != LineComment {
		t.Errorf("expected comment from next, got %s", next.Kind)
	}
}

func TestParseLiteralObject(t *testing.T) {
	input := `config system global
    set admin-server-cert "my-cert"
    set admintimeout 30
    set alias "FGT60EXX123456"
    set gui-certificates enable
end
`
	cfg, err := Parse(input)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	global, err := cfg.Root.Object("system global")
	if err != nil {
		t.Fatalf("system global: %v", err)
	}

	want := []struct {
		key    string
		values []string
	}{
		{"admin-server-cert", []string{`"my-cert"`}},
		{"admintimeout", []string{"30"}},
		{"alias", []string{`"FGT60EXX123456"`}},
		{"gui-certificates", []string{"enable"}},
	}
	keys := global.Keys()
	if len(keys) != len(want) {
		t.Fatalf("expected %d keys, got %v", len(want), keys)
	}
	for i, w := range want {
		if keys[i] != w.key {
			t.Errorf("key %d: expected %q, got %q", i, w.key, keys[i])
		}
		s, err := global.Set(w.key)
		if err != nil {
			t.Fatalf("set %q: %v", w.key, err)
		}
		if !slices.Equal(s.Values(), w.values) {
			t.Errorf("%s: expected %q, got %q", w.key, w.values, s.Values())
		}
	}
	if cfg.MultiVDOM {
		t.Error("expected single vdom config")
	}
	if cfg.VDOMs.Len() != 0 {
		t.Errorf("expected no vdoms, got %v", cfg.VDOMs.Keys())
	}
	if cfg.Root.Scope() != ScopeConfig {
		t.Errorf("expected root scope config, got %s", cfg.Root.Scope())
	}
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse("")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Root.Len() != 0 {
		t.Errorf("expected empty root, got %v", cfg.Root.Keys())
	}
	if cfg.Comments.Version() != "?" || cfg.Comments.Model() != "?" {
		t.Errorf("expected unknown version/model, got %q/%q", cfg.Comments.Version(), cfg.Comments.Model())
	}
}

func TestParseTables(t *testing.T) {
	input := `
config test
    edit "opt1"
        set parameter1 value1 "value2" value3
        config subconfig1
            edit 1
                set parameter2 value2
            next
        end
        config subconfig2
            edit "ABC"
                set parameter3 value3
            next
        end
    next
    edit "opt2"
    next
end
`
	cfg, err := Parse(input)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	table, err := cfg.Root.Table("test")
	if err != nil {
		t.Fatalf("test table: %v", err)
	}
	if !slices.Equal(table.Keys(), []string{`"opt1"`, `"opt2"`}) {
		t.Fatalf("unexpected table keys %q", table.Keys())
	}

	opt1, err := table.Entry("opt1")
	if err != nil {
		t.Fatalf("entry opt1: %v", err)
	}
	if opt1.Len() != 3 {
		t.Errorf("expected 3 children in opt1, got %d", opt1.Len())
	}
	s, _ := opt1.Set("parameter1")
	if !slices.Equal(s.Values(), []string{"value1", `"value2"`, "value3"}) {
		t.Errorf("unexpected parameter1 %q", s.Values())
	}
	sub1, err := opt1.Table("subconfig1")
	if err != nil {
		t.Fatalf("subconfig1: %v", err)
	}
	e1, err := sub1.Entry("1")
	if err != nil {
		t.Fatalf("entry 1: %v", err)
	}
	if v, _ := e1.Param("parameter2"); v != "value2" {
		t.Errorf("expected value2, got %q", v)
	}
	sub2, _ := opt1.Table("subconfig2")
	abc, err := sub2.Entry("ABC")
	if err != nil {
		t.Fatalf("entry ABC: %v", err)
	}
	if !abc.Same("parameter3", "value3") {
		t.Error("expected parameter3 == value3")
	}

	opt2, _ := table.Entry(`"opt2"`)
	if opt2 == nil || opt2.Len() != 0 {
		t.Errorf("expected empty opt2, got %v", opt2)
	}
}

func TestParseEmptyObject(t *testing.T) {
	cfg, err := Parse("config test\nend")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	o, err := cfg.Root.Object("test")
	if err != nil {
		t.Fatalf("test object: %v", err)
	}
	if o.Len() != 0 {
		t.Errorf("expected empty object, got %v", o.Keys())
	}
}

func TestParseComments(t *testing.T) {
	input := `
#config-version=FGT60E-5.04-FW-build1111-161216:opmode=0:vdom=0:user=admin
#conf_file_ver=42

# free text "quoted"
config test
    edit "opt1"
    next
end
# trailing comment is ignored
`
	cfg, err := Parse(input)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	c := cfg.Comments
	if c.Len() != 3 {
		t.Fatalf("expected 3 header entries, got %v", c.Keys())
	}
	if c.Model() != "FGT60E" {
		t.Errorf("expected model FGT60E, got %q", c.Model())
	}
	if c.Version() != "5.04-FW-build1111-161216" {
		t.Errorf("unexpected version %q", c.Version())
	}
	if v, ok := c.Field("user"); !ok || v != "admin" {
		t.Errorf("expected user=admin, got %q (%v)", v, ok)
	}
	if v, ok := c.Get("conf_file_ver"); !ok || v != "42" {
		t.Errorf("expected conf_file_ver=42, got %q", v)
	}
	if _, ok := c.Get(` free text "quoted"`); !ok {
		t.Errorf("expected free text comment key, got %q", c.Keys())
	}
	want := []string{
		"#config-version=FGT60E-5.04-FW-build1111-161216:opmode=0:vdom=0:user=admin",
		"#conf_file_ver=42",
		`# free text "quoted"`,
	}
	if !slices.Equal(c.Lines(), want) {
		t.Errorf("expected lines %q, got %q", want, c.Lines())
	}
}

func TestParseRepeatedSetKeepsPosition(t *testing.T) {
	input := `config system global
    set a 1
    set b 2
    set a 3
    unset c
    set c 4
end
`
	cfg, err := Parse(input)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	g, _ := cfg.Root.Object("system global")
	if !slices.Equal(g.Keys(), []string{"a", "b", "c"}) {
		t.Fatalf("unexpected keys %q", g.Keys())
	}
	if v, _ := g.Param("a"); v != "3" {
		t.Errorf("expected a=3, got %q", v)
	}
	if v, _ := g.Param("c"); v != "4" {
		t.Errorf("expected c=4, got %q", v)
	}
}

func TestParseDuplicateEditReplaces(t *testing.T) {
	input := `config firewall address
    edit "a"
        set subnet 10.0.0.0 255.0.0.0
    next
    edit "b"
    next
    edit "a"
        set fqdn "example.com"
    next
end
`
	cfg, err := Parse(input)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	tbl, _ := cfg.Root.Table("firewall address")
	if !slices.Equal(tbl.Keys(), []string{`"a"`, `"b"`}) {
		t.Fatalf("unexpected keys %q", tbl.Keys())
	}
	a, _ := tbl.Entry("a")
	if a.Has("subnet") {
		t.Error("later edit block must replace the earlier one")
	}
	if !a.Same("fqdn", `"example.com"`) {
		t.Errorf("expected fqdn from the later block, got %v", a.Keys())
	}
}

const vdomConfig = `#config-version=FGT60E-6.4.5-FW-build1828-210217:opmode=0:vdom=1:user=admin
#conf_file_ver=1234
#buildno=1828
#global_vdom=1
config vdom
edit root
next
edit dmz
next
end
config global
config system global
    set hostname "fw1"
end
end
config vdom
edit root
config system settings
    set opmode nat
end
config firewall address
    edit "all"
    next
end
end
config vdom
edit dmz
config system settings
    set opmode transparent
end
end
`

func TestParseVDOM(t *testing.T) {
	cfg, err := Parse(vdomConfig)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !cfg.MultiVDOM {
		t.Fatal("expected multi vdom config")
	}
	if !slices.Equal(cfg.VDOMs.Keys(), []string{"root", "dmz"}) {
		t.Fatalf("unexpected vdoms %q", cfg.VDOMs.Keys())
	}
	if cfg.Root.Scope() != ScopeGlobal {
		t.Errorf("expected global scope, got %s", cfg.Root.Scope())
	}
	if !slices.Equal(cfg.Root.Keys(), []string{"system global"}) {
		t.Errorf("root must only hold the global section, got %q", cfg.Root.Keys())
	}
	if cfg.Root.Has("system settings") {
		t.Error("vdom sections leaked into the global root")
	}

	root, err := cfg.VDOM("root")
	if err != nil {
		t.Fatalf("vdom root: %v", err)
	}
	if root.Scope() != ScopeVDOM {
		t.Errorf("expected vdom scope, got %s", root.Scope())
	}
	settings, err := root.Object("system settings")
	if err != nil {
		t.Fatalf("root system settings: %v", err)
	}
	if !settings.Same("opmode", "nat") {
		t.Error("expected opmode nat in root vdom")
	}
	if _, err := root.Table("firewall address"); err != nil {
		t.Errorf("root firewall address: %v", err)
	}

	dmz, _ := cfg.VDOM("dmz")
	ds, _ := dmz.Object("system settings")
	if !ds.Same("opmode", "transparent") {
		t.Error("expected opmode transparent in dmz vdom")
	}
	if v, _ := cfg.Comments.Field("vdom"); v != "1" {
		t.Errorf("expected vdom=1 header field, got %q", v)
	}
	if len(cfg.Scopes()) != 3 {
		t.Errorf("expected 3 scopes, got %d", len(cfg.Scopes()))
	}
}

func TestParseVDOMWithNext(t *testing.T) {
	input := `config vdom
    edit root
    next
end
config global
end
config vdom
    edit root
        config system settings
        end
    next
end
`
	cfg, err := Parse(input)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	root, err := cfg.VDOM("root")
	if err != nil {
		t.Fatalf("vdom root: %v", err)
	}
	if !root.Has("system settings") {
		t.Error("expected system settings in vdom root")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		err   error
		line  int
	}{
		{"config on one line", "config test end", ErrUnexpectedEOF, 1},
		{"unknown top-level keyword", "abc", ErrUnexpectedKeyword, 1},
		{"set at top level", "set a b", ErrUnexpectedKeyword, 1},
		{"edit at top level", "edit 1", ErrEditOutsideTable, 1},
		{"next at top level", "next", ErrUnmatched, 1},
		{"end at top level", "config a\nend\nend", ErrUnmatched, 3},
		{"nested edit", "config test\n    edit \"opt1\"\n    edit \"opt2\"\n    next\nend", ErrEditOutsideTable, 3},
		{"edit in object", "config test\n    set a b\n    edit 1\nend", ErrEditOutsideTable, 3},
		{"end inside edit", "config test\n    edit 1\n    end", ErrUnmatched, 3},
		{"next in object", "config test\n    next\nend", ErrUnmatched, 2},
		{"set without value", "config a\nset x\nend", ErrMissingArgument, 2},
		{"unset with value", "config a\nunset x y\nend", ErrMissingArgument, 2},
		{"config without name", "config\nend", ErrMissingArgument, 1},
		{"edit without id", "config a\nedit\nnext\nend", ErrMissingArgument, 2},
		{"set in table", "config a\n    edit 1\n    next\n    set x y\nend", ErrUnexpectedKeyword, 4},
		{"unterminated quote", "config a\n    set b \"abc\nend\n", ErrUnterminatedQuote, 2},
		{"unclosed block", "config a\n    config b\n    end\n", ErrUnexpectedEOF, 1},
		{"vdom without global", "config vdom\nedit root\nend\n", ErrNoGlobalSection, 3},
		{"extra section with vdoms", "config vdom\nedit root\nend\nconfig global\nend\nconfig system dns\nend\n", ErrUnexpectedKeyword, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse(tt.input)
			if err == nil {
				t.Fatalf("expected error, got config %v", cfg)
			}
			if cfg != nil {
				t.Error("no partial tree may be returned")
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("expected %v, got %v", tt.err, err)
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *ParseError, got %T", err)
			}
			if perr.Line != tt.line {
				t.Errorf("expected line %d, got %d (%v)", tt.line, perr.Line, err)
			}
		})
	}
}

func TestParseErrorMismatchedQuoteSpan(t *testing.T) {
	// the quote opened on the edit line swallows lines up to the next quote
	input := `config test
    edit "opt1
    next
    edit "opt2"
    next
end
`
	if _, err := Parse(input); err == nil {
		t.Fatal("expected parse error")
	}
}
