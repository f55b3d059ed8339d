package configstore

import (
	"fmt"
	"slices"
	"time"

	"github.com/psaab/fgtconf/pkg/config"
)

// HistoryEntry is a snapshot of a committed configuration, kept as text so
// later edits to the live tree cannot reach it.
type HistoryEntry struct {
	Text      string
	Timestamp time.Time
	Comment   string
}

// Config parses the snapshot.
func (e *HistoryEntry) Config() (*config.Config, error) {
	return config.Parse(e.Text)
}

// History holds the most recent snapshots, newest first, up to a fixed
// capacity.
type History struct {
	entries []*HistoryEntry
	maxSize int
}

// NewHistory creates a History keeping at most maxSize snapshots.
func NewHistory(maxSize int) *History {
	return &History{maxSize: maxSize}
}

// Push records a snapshot, dropping the oldest one when full.
func (h *History) Push(entry *HistoryEntry) {
	h.entries = slices.Insert(h.entries, 0, entry)
	if len(h.entries) > h.maxSize {
		h.entries = h.entries[:h.maxSize]
	}
}

// Get returns the nth most recent snapshot (0 = most recent).
func (h *History) Get(n int) (*HistoryEntry, error) {
	if n < 0 || n >= len(h.entries) {
		return nil, fmt.Errorf("rollback %d: no such configuration (have %d entries)",
			n+1, len(h.entries))
	}
	return h.entries[n], nil
}

// Len returns the number of snapshots.
func (h *History) Len() int { return len(h.entries) }

// List returns a copy of the snapshots, most recent first.
func (h *History) List() []*HistoryEntry { return slices.Clone(h.entries) }
