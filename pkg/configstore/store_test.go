package configstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/psaab/fgtconf/pkg/config"
)

const baseConfig = `#config-version=FGT60E-6.4.5-FW-build1828-210217:opmode=0:vdom=0:user=admin
config system global
    set hostname "fw1"
end
config system interface
    edit "port1"
        set ip 10.0.0.1 255.255.255.0
    next
end
`

// newTestStore creates a Store backed by a temp file holding content.
func newTestStore(t *testing.T, content string) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fw.conf")
	if content != "" {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	s := New(path, 0)
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s
}

func setHostname(name string) func(*config.Config) error {
	return func(c *config.Config) error {
		global, err := c.Root.Object("system global")
		if err != nil {
			return err
		}
		s, err := global.Set("hostname")
		if err != nil {
			return err
		}
		return s.Update(config.Quote(name))
	}
}

func TestLoadMissingFile(t *testing.T) {
	s := newTestStore(t, "")
	if s.Active().Root.Len() != 0 {
		t.Error("expected empty configuration")
	}
	if !s.LoadedAt().IsZero() {
		t.Error("nothing was loaded")
	}
}

func TestLoadParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.conf")
	if err := os.WriteFile(path, []byte("config system global\n"), 0644); err != nil {
		t.Fatal(err)
	}
	err := New(path, 0).Load()
	if !errors.Is(err, config.ErrUnexpectedEOF) {
		t.Errorf("expected ErrUnexpectedEOF, got %v", err)
	}
}

func TestEnterExitConfigure(t *testing.T) {
	s := newTestStore(t, baseConfig)

	if s.InConfigMode() {
		t.Error("should not be in config mode initially")
	}
	if err := s.EnterConfigure(); err != nil {
		t.Fatalf("EnterConfigure: %v", err)
	}
	if !s.InConfigMode() {
		t.Error("should be in config mode after enter")
	}

	// Double enter should fail
	if err := s.EnterConfigure(); err == nil {
		t.Error("expected error on double EnterConfigure")
	}

	s.ExitConfigure()
	if s.InConfigMode() {
		t.Error("should not be in config mode after exit")
	}
	if s.ShowCandidate() != "" {
		t.Error("candidate must be discarded")
	}
}

func TestEditOutsideConfigMode(t *testing.T) {
	s := newTestStore(t, baseConfig)
	if err := s.Edit(setHostname("fw2")); !errors.Is(err, ErrNotConfiguring) {
		t.Errorf("expected ErrNotConfiguring, got %v", err)
	}
	if err := s.Commit(""); !errors.Is(err, ErrNotConfiguring) {
		t.Errorf("expected ErrNotConfiguring, got %v", err)
	}
	if err := s.Rollback(0); !errors.Is(err, ErrNotConfiguring) {
		t.Errorf("expected ErrNotConfiguring, got %v", err)
	}
}

func TestEditAndCommit(t *testing.T) {
	s := newTestStore(t, baseConfig)
	if err := s.EnterConfigure(); err != nil {
		t.Fatal(err)
	}

	if err := s.Edit(setHostname("fw2")); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if !s.IsDirty() {
		t.Error("should be dirty after edit")
	}
	if strings.Contains(s.ShowActive(), "fw2") {
		t.Error("active changed before commit")
	}
	if !strings.Contains(s.ShowCandidate(), `set hostname "fw2"`) {
		t.Errorf("candidate missing edit:\n%s", s.ShowCandidate())
	}

	if err := s.Commit("rename"); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if s.IsDirty() {
		t.Error("should not be dirty after commit")
	}
	if !strings.Contains(s.ShowActive(), `set hostname "fw2"`) {
		t.Errorf("active missing commit:\n%s", s.ShowActive())
	}

	// persisted with the header
	data, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "#config-version=FGT60E") || !strings.Contains(string(data), "fw2") {
		t.Errorf("unexpected file content:\n%s", data)
	}

	hist := s.History()
	if len(hist) != 1 || hist[0].Comment != "rename" || !strings.Contains(hist[0].Text, `"fw1"`) {
		t.Errorf("unexpected history %+v", hist)
	}
}

func TestEditErrorKeepsClean(t *testing.T) {
	s := newTestStore(t, baseConfig)
	if err := s.EnterConfigure(); err != nil {
		t.Fatal(err)
	}
	err := s.Edit(func(c *config.Config) error {
		_, err := c.Root.Object("system dns")
		return err
	})
	if !errors.Is(err, config.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if s.IsDirty() {
		t.Error("failed edit must not mark the candidate dirty")
	}
}

func TestEditErrorDiscardsChanges(t *testing.T) {
	s := newTestStore(t, baseConfig)
	if err := s.EnterConfigure(); err != nil {
		t.Fatal(err)
	}
	err := s.Edit(func(c *config.Config) error {
		if err := setHostname("half")(c); err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil || err.Error() != "boom" {
		t.Fatalf("expected fn error, got %v", err)
	}
	if strings.Contains(s.ShowCandidate(), "half") {
		t.Error("failed edit left changes on the candidate")
	}
	if err := s.Edit(setHostname("fw2")); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(s.ShowCandidate(), `"fw2"`) {
		t.Error("edit after a failed edit was not applied")
	}
}

func TestShowCompare(t *testing.T) {
	color.NoColor = true
	s := newTestStore(t, baseConfig)
	if err := s.EnterConfigure(); err != nil {
		t.Fatal(err)
	}
	if got := s.ShowCompare(); got != "[no changes]\n" {
		t.Errorf("expected no changes, got %q", got)
	}

	s.Edit(setHostname("fw2"))
	s.Edit(func(c *config.Config) error {
		ifaces, err := c.Root.Table("system interface")
		if err != nil {
			return err
		}
		ifaces.Remove(`"port1"`)
		return nil
	})

	diff := s.ShowCompare()
	if !strings.Contains(diff, "~ system global/hostname") {
		t.Errorf("expected hostname change:\n%s", diff)
	}
	if !strings.Contains(diff, `- system interface/"port1"`) {
		t.Errorf("expected port1 removal:\n%s", diff)
	}
}

func TestRollback(t *testing.T) {
	s := newTestStore(t, baseConfig)
	if err := s.EnterConfigure(); err != nil {
		t.Fatal(err)
	}

	// two commits: fw1 -> fw2 -> fw3
	for _, name := range []string{"fw2", "fw3"} {
		if err := s.Edit(setHostname(name)); err != nil {
			t.Fatal(err)
		}
		if err := s.Commit(name); err != nil {
			t.Fatal(err)
		}
	}
	if s.HistoryLen() != 2 {
		t.Fatalf("expected 2 history entries, got %d", s.HistoryLen())
	}

	// rollback 1 = before the last commit
	if err := s.Rollback(1); err != nil {
		t.Fatalf("Rollback(1): %v", err)
	}
	if !strings.Contains(s.ShowCandidate(), `"fw2"`) {
		t.Errorf("rollback 1 should restore fw2:\n%s", s.ShowCandidate())
	}
	if !s.IsDirty() {
		t.Error("rolled back candidate must be dirty")
	}

	if err := s.Rollback(2); err != nil {
		t.Fatalf("Rollback(2): %v", err)
	}
	if !strings.Contains(s.ShowCandidate(), `"fw1"`) {
		t.Errorf("rollback 2 should restore fw1:\n%s", s.ShowCandidate())
	}

	if err := s.Rollback(0); err != nil {
		t.Fatalf("Rollback(0): %v", err)
	}
	if !strings.Contains(s.ShowCandidate(), `"fw3"`) || s.IsDirty() {
		t.Error("rollback 0 should restore the active configuration")
	}

	if err := s.Rollback(3); err == nil {
		t.Error("expected error for missing history entry")
	}

	// a rollback only becomes active on commit
	s.Rollback(2)
	if err := s.Commit("rollback"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(s.ShowActive(), `"fw1"`) {
		t.Error("committed rollback not active")
	}
}

func TestRollbackKeepsComments(t *testing.T) {
	s := newTestStore(t, baseConfig)
	s.EnterConfigure()
	s.Edit(setHostname("fw2"))
	s.Commit("")
	s.Rollback(1)
	s.Commit("")

	if v := s.Active().Comments.Version(); v != "6.4.5-FW-build1828-210217" {
		t.Errorf("header lost across rollback, version %q", v)
	}
}

func TestHistoryRing(t *testing.T) {
	h := NewHistory(3)
	for i := range 5 {
		h.Push(&HistoryEntry{Comment: string(rune('a' + i))})
	}
	if h.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", h.Len())
	}
	e, err := h.Get(0)
	if err != nil || e.Comment != "e" {
		t.Errorf("expected most recent entry e, got %+v %v", e, err)
	}
	list := h.List()
	if list[0].Comment != "e" || list[2].Comment != "c" {
		t.Errorf("unexpected order %q %q", list[0].Comment, list[2].Comment)
	}
	if _, err := h.Get(3); err == nil {
		t.Error("expected out of range error")
	}
}

func TestReplace(t *testing.T) {
	s := newTestStore(t, baseConfig)
	cfg, err := config.Parse("config system dns\n    set primary 1.1.1.1\nend\n")
	if err != nil {
		t.Fatal(err)
	}
	s.Replace(cfg, "external")
	if !strings.Contains(s.ShowActive(), "system dns") {
		t.Error("replace did not change the active configuration")
	}
	if s.HistoryLen() != 1 || s.History()[0].Comment != "external" {
		t.Errorf("unexpected history %+v", s.History())
	}
}

func TestWatch(t *testing.T) {
	s := newTestStore(t, baseConfig)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan *config.Config, 16)
	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, func(c *config.Config) {
			select {
			case changed <- c:
			default:
			}
		})
	}()

	// give the watcher time to register before writing
	time.Sleep(100 * time.Millisecond)

	updated := strings.Replace(baseConfig, `"fw1"`, `"fw9"`, 1)
	if err := os.WriteFile(s.Path(), []byte(updated), 0644); err != nil {
		t.Fatal(err)
	}

	// a write may be observed half-done first; wait for the final content
	timeout := time.After(5 * time.Second)
	for reloaded := false; !reloaded; {
		select {
		case c := <-changed:
			if global, err := c.Root.Object("system global"); err == nil {
				reloaded = global.Same("hostname", `"fw9"`)
			}
		case <-timeout:
			t.Fatal("timed out waiting for reload")
		}
	}
	if !strings.Contains(s.ShowActive(), "fw9") {
		t.Error("store not updated by reload")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not stop")
	}
}

// renameSave writes content next to path and renames it over path.
func renameSave(t *testing.T, path, content string) {
	t.Helper()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}
}

func TestWatchRenameSave(t *testing.T) {
	s := newTestStore(t, baseConfig)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan *config.Config, 16)
	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, func(c *config.Config) { changed <- c })
	}()
	time.Sleep(100 * time.Millisecond)

	for _, section := range []string{"firewall policy", "firewall address"} {
		renameSave(t, s.Path(), "config "+section+"\nend\n")
		select {
		case c := <-changed:
			if !c.Root.Has(section) {
				t.Fatalf("reloaded config lacks %q: %v", section, c.Root.Keys())
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for reload of %q", section)
		}
	}
	if keys := s.Active().Root.Keys(); len(keys) != 1 || keys[0] != "firewall address" {
		t.Errorf("unexpected active keys %q", keys)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not stop")
	}
}
