// Package configstore keeps an active and a candidate FortiGate
// configuration with commit, rollback and file persistence.
package configstore

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/psaab/fgtconf/pkg/config"
	"github.com/psaab/fgtconf/pkg/diff"
)

// ErrNotConfiguring is returned by candidate operations outside
// configuration mode.
var ErrNotConfiguring = errors.New("not in configuration mode")

// DefaultHistory is the number of commits kept for rollback.
const DefaultHistory = 50

// Store manages the candidate and active configuration.
type Store struct {
	mu        sync.RWMutex
	active    *config.Config
	candidate *config.Config
	history   *History
	dirty     bool
	configDir bool // true if in configuration mode
	filePath  string
	loadedAt  time.Time
}

// New creates a new config store backed by filePath. historySize <= 0
// selects DefaultHistory.
func New(filePath string, historySize int) *Store {
	if historySize <= 0 {
		historySize = DefaultHistory
	}
	empty, _ := config.Parse("")
	return &Store{
		active:   empty,
		history:  NewHistory(historySize),
		filePath: filePath,
	}
}

// Path returns the backing file.
func (s *Store) Path() string { return s.filePath }

// Load loads the configuration from disk. A missing file leaves the store
// empty.
func (s *Store) Load() error {
	cfg, err := config.ParseFile(s.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load config: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = cfg
	s.loadedAt = time.Now()
	return nil
}

// LoadedAt returns when the active configuration was last read from disk or
// committed.
func (s *Store) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// Save persists the active configuration to disk.
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.save()
}

func (s *Store) save() error {
	if s.filePath == "" {
		return nil
	}
	return os.WriteFile(s.filePath, []byte(text(s.active)), 0644)
}

// text renders c with its header comments.
func text(c *config.Config) string {
	var b strings.Builder
	_ = c.Write(&b, true, nil, nil)
	return b.String()
}

// EnterConfigure enters configuration mode with a copy of the active
// configuration as candidate.
func (s *Store) EnterConfigure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.configDir {
		return fmt.Errorf("already in configuration mode")
	}
	candidate, err := s.active.Clone()
	if err != nil {
		return err
	}
	s.candidate = candidate
	s.configDir = true
	s.dirty = false
	return nil
}

// ExitConfigure exits configuration mode, discarding the candidate.
func (s *Store) ExitConfigure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidate = nil
	s.configDir = false
	s.dirty = false
}

// InConfigMode returns true if currently in configuration mode.
func (s *Store) InConfigMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.configDir
}

// IsDirty returns true if the candidate was edited since it was created.
func (s *Store) IsDirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Edit runs fn on the candidate under the store lock and marks it dirty
// when fn succeeds. When fn fails, changes it made are discarded.
func (s *Store) Edit(fn func(*config.Config) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.candidate == nil {
		return ErrNotConfiguring
	}
	saved, err := s.candidate.Clone()
	if err != nil {
		return err
	}
	if err := fn(s.candidate); err != nil {
		s.candidate = saved
		return err
	}
	s.dirty = true
	return nil
}

// View runs fn on the candidate in configuration mode, otherwise on the
// active configuration. fn must not modify the tree.
func (s *Store) View(fn func(*config.Config) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.candidate != nil {
		return fn(s.candidate)
	}
	return fn(s.active)
}

// Commit promotes the candidate to active, records the previous active
// configuration in the history and persists the result.
func (s *Store) Commit(comment string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.candidate == nil {
		return ErrNotConfiguring
	}
	next, err := s.candidate.Clone()
	if err != nil {
		return fmt.Errorf("commit check failed: %w", err)
	}

	s.push(comment)
	s.active = s.candidate
	s.candidate = next
	s.dirty = false
	s.loadedAt = time.Now()

	if err := s.save(); err != nil {
		// the commit stands; only persistence failed
		slog.Warn("failed to save config", "path", s.filePath, "err", err)
	}
	slog.Info("configuration committed", "history", s.history.Len(), "comment", comment)
	return nil
}

func (s *Store) push(comment string) {
	s.history.Push(&HistoryEntry{
		Text:      text(s.active),
		Timestamp: time.Now(),
		Comment:   comment,
	})
}

// Replace makes cfg the active configuration, recording the previous one
// in the history. The candidate, if any, is left untouched.
func (s *Store) Replace(cfg *config.Config, comment string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.push(comment)
	s.active = cfg
	s.loadedAt = time.Now()
}

// Rollback reverts the candidate to a previous configuration.
// n=0 reverts to active; n>0 reverts to the nth previous commit.
func (s *Store) Rollback(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.candidate == nil {
		return ErrNotConfiguring
	}

	if n == 0 {
		candidate, err := s.active.Clone()
		if err != nil {
			return err
		}
		s.candidate = candidate
		s.dirty = false
		return nil
	}

	entry, err := s.history.Get(n - 1)
	if err != nil {
		return err
	}
	candidate, err := entry.Config()
	if err != nil {
		return fmt.Errorf("rollback %d: %w", n, err)
	}
	s.candidate = candidate
	s.dirty = true
	return nil
}

// Active returns the active configuration. Callers must not modify it.
func (s *Store) Active() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// ShowCandidate returns the candidate configuration as text.
func (s *Store) ShowCandidate() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.candidate != nil {
		return s.candidate.String()
	}
	return ""
}

// ShowActive returns the active configuration as text.
func (s *Store) ShowActive() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active.String()
}

// ShowCompare returns the changes between the active and candidate
// configurations, one per line.
func (s *Store) ShowCompare() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.candidate == nil {
		return ""
	}
	changes := diff.Tree(s.active, s.candidate)
	if len(changes) == 0 {
		return "[no changes]\n"
	}
	var b strings.Builder
	_ = diff.Write(&b, changes)
	return b.String()
}

// History returns the committed snapshots, most recent first.
func (s *Store) History() []*HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.List()
}

// HistoryLen returns the number of snapshots available for rollback.
func (s *Store) HistoryLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.Len()
}
