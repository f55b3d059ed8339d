package cmdtree

import (
	"bytes"
	"slices"
	"strings"
	"testing"
)

type fakeEnv struct{}

func (fakeEnv) Containers() []string { return []string{"system global", "system interface"} }
func (fakeEnv) Params() []string     { return []string{"hostname", "timezone"} }
func (fakeEnv) VDOMs() []string      { return []string{"global", "root", "dmz"} }

func TestCompleteStatic(t *testing.T) {
	got := Names(CompleteFromTree(OperationalTree, nil, "c", nil))
	if !slices.Equal(got, []string{"configure"}) {
		t.Errorf("unexpected candidates %q", got)
	}
	got = Names(CompleteFromTree(OperationalTree, []string{"show"}, "", nil))
	if !slices.Equal(got, []string{"configuration", "history", "log", "vdom"}) {
		t.Errorf("unexpected candidates %q", got)
	}
	if got := CompleteFromTree(OperationalTree, []string{"bogus"}, "", nil); got != nil {
		t.Errorf("expected no candidates, got %v", got)
	}
}

func TestCompleteDynamic(t *testing.T) {
	got := Names(CompleteFromTree(ConfigTopLevel, []string{"set"}, "h", fakeEnv{}))
	if !slices.Equal(got, []string{"hostname"}) {
		t.Errorf("unexpected candidates %q", got)
	}
	got = Names(CompleteFromTree(ConfigTopLevel, []string{"config"}, "system ", fakeEnv{}))
	if !slices.Equal(got, []string{"system global", "system interface"}) {
		t.Errorf("unexpected candidates %q", got)
	}
	got = Names(CompleteFromTree(ConfigTopLevel, []string{"delete"}, "", fakeEnv{}))
	if len(got) != 4 {
		t.Errorf("expected sections and params, got %q", got)
	}
	// no env, no dynamic values
	if got := CompleteFromTree(ConfigTopLevel, []string{"vdom"}, "", nil); got != nil {
		t.Errorf("expected nil without env, got %v", got)
	}
}

func TestLookup(t *testing.T) {
	if n := Lookup(OperationalTree, "show", "log"); n == nil || n.Desc != "Show recent log messages" {
		t.Errorf("unexpected node %+v", n)
	}
	if n := Lookup(ConfigTopLevel, "config"); n == nil || !n.Rest {
		t.Error("config must consume the rest of the line")
	}
	if Lookup(OperationalTree, "show", "nothing") != nil {
		t.Error("expected nil for unknown path")
	}
}

func TestWriteHelp(t *testing.T) {
	var b bytes.Buffer
	WriteHelp(&b, HelpCandidates(PipeFilters))
	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	if lines[0] != "Possible completions:" || len(lines) != len(PipeFilters)+1 {
		t.Fatalf("unexpected help:\n%s", b.String())
	}
	if !strings.HasPrefix(strings.TrimSpace(lines[1]), "count") {
		t.Errorf("expected sorted output, got %q", lines[1])
	}
}

func TestCommonPrefix(t *testing.T) {
	tests := []struct {
		items []string
		want  string
	}{
		{nil, ""},
		{[]string{"system global"}, "system global"},
		{[]string{"system global", "system interface"}, "system "},
		{[]string{"abc", "xyz"}, ""},
	}
	for _, tt := range tests {
		if got := CommonPrefix(tt.items); got != tt.want {
			t.Errorf("CommonPrefix(%q) = %q, want %q", tt.items, got, tt.want)
		}
	}
	if got := KeysFromTree(PipeFilters); !slices.IsSorted(got) {
		t.Errorf("keys not sorted: %q", got)
	}
}
