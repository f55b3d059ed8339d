package cli

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/psaab/fgtconf/pkg/cmdtree"
	"github.com/psaab/fgtconf/pkg/config"
	"github.com/psaab/fgtconf/pkg/configstore"
	"github.com/psaab/fgtconf/pkg/logging"
)

const testConfig = `config system global
    set hostname "fw1"
    set timezone 04
end
config system interface
    edit "port1"
        set ip 10.0.0.1 255.255.255.0
        set allowaccess ping https
    next
    edit "port2"
        set ip 10.0.1.1 255.255.255.0
    next
end
`

const vdomConfig = `config vdom
edit root
next
edit dmz
next
end
config global
config system global
    set hostname "fw2"
end
end
config vdom
edit root
config system settings
    set opmode nat
end
end
config vdom
edit dmz
config system settings
    set opmode transparent
end
end
`

func newTestCLI(t *testing.T, content string) (*CLI, *bytes.Buffer) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fw.conf")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	store := configstore.New(path, 0)
	if err := store.Load(); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	c := New(store, nil)
	c.SetOutput(&out)
	return c, &out
}

// run executes lines, failing the test on the first error.
func run(t *testing.T, c *CLI, lines ...string) {
	t.Helper()
	for _, ln := range lines {
		if err := c.Execute(ln); err != nil {
			t.Fatalf("%q: %v", ln, err)
		}
	}
}

func TestShowConfiguration(t *testing.T) {
	c, out := newTestCLI(t, testConfig)
	run(t, c, "show configuration")
	if out.String() != testConfig {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestPipes(t *testing.T) {
	c, out := newTestCLI(t, testConfig)

	run(t, c, "show | grep ip")
	if out.String() != "        set ip 10.0.0.1 255.255.255.0\n        set ip 10.0.1.1 255.255.255.0\n" {
		t.Errorf("unexpected grep output:\n%s", out.String())
	}

	out.Reset()
	run(t, c, `show | except "set|next" | count`)
	if out.String() != "Count: 6 lines\n" {
		t.Errorf("unexpected count output %q", out.String())
	}

	out.Reset()
	run(t, c, "show | last 2")
	if out.String() != "    next\nend\n" {
		t.Errorf("unexpected last output %q", out.String())
	}

	for _, bad := range []string{"show | bogus", "show | grep", "show | grep (", "show | last x"} {
		if err := c.Execute(bad); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}

func TestNavigation(t *testing.T) {
	c, out := newTestCLI(t, testConfig)
	run(t, c, "configure")
	if got := c.prompt(); got != "fw1 # " {
		t.Errorf("unexpected prompt %q", got)
	}

	run(t, c, "config system interface")
	if got := c.prompt(); got != "fw1 (interface) # " {
		t.Errorf("unexpected prompt %q", got)
	}
	run(t, c, "edit port1")
	if got := c.prompt(); got != "fw1 (port1) # " {
		t.Errorf("unexpected prompt %q", got)
	}

	out.Reset()
	run(t, c, "get")
	want := "ip          : 10.0.0.1 255.255.255.0\nallowaccess : ping https\n"
	if out.String() != want {
		t.Errorf("unexpected get output:\n%q\nwant:\n%q", out.String(), want)
	}

	run(t, c, "next")
	if err := c.Execute("next"); err == nil {
		t.Error("expected error for next outside an edit block")
	}
	run(t, c, "end")
	if err := c.Execute("end"); err == nil {
		t.Error("expected error for end at top level")
	}

	if err := c.Execute("config system dns"); !errors.Is(err, config.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := c.Execute("edit port1"); err == nil {
		t.Error("expected error for edit outside a table")
	}
	if c.store.IsDirty() {
		t.Error("navigation must not modify the candidate")
	}
}

func TestEditCommit(t *testing.T) {
	color.NoColor = true
	c, out := newTestCLI(t, testConfig)
	run(t, c,
		"configure",
		"config system global",
		`set hostname "fw9"`,
		"unset timezone",
		"end",
		"config system interface",
		"edit port3",
		"set ip 10.0.3.1 255.255.255.0",
		"next",
		"delete port2",
		"end",
	)

	out.Reset()
	run(t, c, "compare")
	for _, want := range []string{
		"~ system global/hostname: ",
		"~ system global/timezone: 04 -> (unset)",
		`- system interface/"port2"`,
		`+ system interface/"port3"`,
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected %q in:\n%s", want, out.String())
		}
	}

	run(t, c, `commit "rename and renumber"`)
	active := c.store.ShowActive()
	for _, want := range []string{`set hostname "fw9"`, "unset timezone", `edit "port3"`} {
		if !strings.Contains(active, want) {
			t.Errorf("expected %q in:\n%s", want, active)
		}
	}
	if strings.Contains(active, "port2") {
		t.Error("port2 not deleted")
	}
	if got := c.store.History()[0].Comment; got != "rename and renumber" {
		t.Errorf("unexpected commit comment %q", got)
	}
	if got := c.prompt(); got != "fw9 # " {
		t.Errorf("prompt must follow the committed hostname, got %q", got)
	}

	run(t, c, "rollback 1", "commit")
	if !strings.Contains(c.store.ShowActive(), `"fw1"`) {
		t.Error("rollback not committed")
	}

	out.Reset()
	run(t, c, "run show history")
	if lines := strings.Split(strings.TrimSpace(out.String()), "\n"); len(lines) != 2 {
		t.Errorf("expected 2 history entries, got:\n%s", out.String())
	}
}

func TestDeleteLastEntry(t *testing.T) {
	c, _ := newTestCLI(t, testConfig)
	run(t, c,
		"configure",
		"config system interface",
		"delete port1",
		"delete port2",
		"end",
		"commit",
		"config system interface",
		"edit port7",
		"set ip 10.0.7.1 255.255.255.0",
		"next",
		"end",
		"commit",
	)
	active := c.store.Active()
	ifaces, err := active.Root.Table("system interface")
	if err != nil {
		t.Fatalf("system interface: %v", err)
	}
	if !slices.Equal(ifaces.Keys(), []string{`"port7"`}) {
		t.Errorf("unexpected entries %q", ifaces.Keys())
	}

	c2, _ := newTestCLI(t, testConfig)
	run(t, c2, "configure", "config system global")
	if err := c2.Execute("edit x"); err == nil {
		t.Error("expected error for edit outside a table")
	}
}

func TestEditErrors(t *testing.T) {
	c, _ := newTestCLI(t, testConfig)
	if err := c.Execute("set hostname x"); err == nil {
		t.Error("set must fail outside configuration mode")
	}
	run(t, c, "configure", "config system interface")
	for _, bad := range []string{"set ip 1.1.1.1", "set hostname", "unset", "delete port7", "rollback x", "bogus"} {
		if err := c.Execute(bad); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
	if c.store.IsDirty() {
		t.Error("failed commands must not modify the candidate")
	}
}

func TestExit(t *testing.T) {
	c, out := newTestCLI(t, testConfig)
	run(t, c, "configure", "config system global", "set hostname fw3", "exit")
	if !strings.Contains(out.String(), "uncommitted changes will be discarded") {
		t.Errorf("expected discard warning:\n%s", out.String())
	}
	if c.store.InConfigMode() || len(c.path) != 0 {
		t.Error("exit must leave configuration mode at the top")
	}
	if !Exited(c.Execute("exit")) {
		t.Error("exit in operational mode must end the shell")
	}
}

func TestVDOM(t *testing.T) {
	c, out := newTestCLI(t, vdomConfig)

	run(t, c, "show vdom")
	if out.String() != "root\ndmz\n" {
		t.Errorf("unexpected vdom list %q", out.String())
	}

	run(t, c, "configure", "vdom dmz")
	if got := c.prompt(); got != "fw2 (dmz) # " {
		t.Errorf("unexpected prompt %q", got)
	}
	out.Reset()
	run(t, c, "config system settings", "get opmode")
	if out.String() != "opmode : transparent\n" {
		t.Errorf("unexpected get output %q", out.String())
	}

	run(t, c, "vdom global")
	out.Reset()
	run(t, c, "show")
	if out.String() != "config system global\n    set hostname \"fw2\"\nend\n" {
		t.Errorf("expected the global section:\n%s", out.String())
	}
	if err := c.Execute("vdom lab"); err == nil {
		t.Error("expected error for unknown vdom")
	}

	single, _ := newTestCLI(t, testConfig)
	run(t, single, "configure")
	if err := single.Execute("vdom root"); err == nil {
		t.Error("expected error without vdoms")
	}
}

func TestShowLog(t *testing.T) {
	c, out := newTestCLI(t, testConfig)
	run(t, c, "show log")
	if out.String() != "log buffer not available\n" {
		t.Errorf("unexpected output %q", out.String())
	}

	c.logs = logging.NewBuffer(8)
	c.logs.Add(logging.Record{Level: slog.LevelInfo, Message: "first"})
	c.logs.Add(logging.Record{Level: slog.LevelWarn, Message: "second"})
	out.Reset()
	run(t, c, "show log 1")
	if !strings.HasSuffix(out.String(), "WARN second\n") || strings.Contains(out.String(), "first") {
		t.Errorf("unexpected log output %q", out.String())
	}
}

func TestComplete(t *testing.T) {
	c, _ := newTestCLI(t, testConfig)

	tests := []struct {
		config  bool
		text    string
		want    []string
		partial string
	}{
		{false, "sh", []string{"show"}, "sh"},
		{false, "show ", []string{"configuration", "history", "log", "vdom"}, ""},
		{false, "show | c", []string{"count"}, "c"},
		{true, "config sys", []string{"system global", "system interface"}, "sys"},
		{true, "config system i", []string{"system interface"}, "system i"},
		{true, "run sh", []string{"show"}, "sh"},
		{true, "set ", nil, ""},
		{true, "set hostname fw", nil, ""},
	}
	for _, tt := range tests {
		if tt.config != c.store.InConfigMode() {
			run(t, c, "configure")
		}
		candidates, partial := c.complete(tt.text)
		got := cmdtree.Names(candidates)
		if len(got) == 0 {
			got = nil
		}
		if !slices.Equal(got, tt.want) || partial != tt.partial {
			t.Errorf("complete(%q) = %q, %q; want %q, %q", tt.text, got, partial, tt.want, tt.partial)
		}
	}

	run(t, c, "config system global")
	got := cmdtree.Names(mustComplete(c, "set "))
	if !slices.Equal(got, []string{"hostname", "timezone"}) {
		t.Errorf("unexpected set candidates %q", got)
	}
	run(t, c, "end", "config system interface")
	got = cmdtree.Names(mustComplete(c, "edit "))
	if !slices.Equal(got, []string{`"port1"`, `"port2"`}) {
		t.Errorf("unexpected edit candidates %q", got)
	}
}

func mustComplete(c *CLI, text string) []cmdtree.Candidate {
	candidates, _ := c.complete(text)
	return candidates
}
