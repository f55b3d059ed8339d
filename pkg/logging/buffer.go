// Package logging sets up slog and keeps recent log records in memory.
package logging

import (
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultBufferSize is the number of records kept when no size is given.
const DefaultBufferSize = 256

// Record is a formatted log record stored in the buffer.
type Record struct {
	Time    time.Time
	Level   slog.Level
	Message string // message followed by key=value attributes
}

// String renders the record on one line.
func (r Record) String() string {
	return r.Time.Format("15:04:05.000") + " " + r.Level.String() + " " + r.Message
}

// Buffer is a thread-safe circular buffer for recent log records.
type Buffer struct {
	mu    sync.RWMutex
	buf   []Record
	size  int
	head  int // next write position
	count int // number of records stored

	subMu sync.RWMutex
	subs  map[*Subscription]struct{}
}

// Subscription receives new records from a Buffer.
type Subscription struct {
	C <-chan Record
	c chan Record
	b *Buffer
}

// Close unsubscribes. C is not closed.
func (s *Subscription) Close() {
	s.b.subMu.Lock()
	delete(s.b.subs, s)
	s.b.subMu.Unlock()
}

// NewBuffer creates a new buffer with the given capacity.
func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Buffer{
		buf:  make([]Record, size),
		size: size,
		subs: make(map[*Subscription]struct{}),
	}
}

// Add appends a record, overwriting the oldest if full. Subscribers are
// notified non-blocking.
func (b *Buffer) Add(rec Record) {
	b.mu.Lock()
	b.buf[b.head] = rec
	b.head = (b.head + 1) % b.size
	if b.count < b.size {
		b.count++
	}
	b.mu.Unlock()

	b.subMu.RLock()
	for sub := range b.subs {
		select {
		case sub.c <- rec:
		default: // drop if subscriber is slow
		}
	}
	b.subMu.RUnlock()
}

// Subscribe returns a Subscription that receives new records.
func (b *Buffer) Subscribe(bufSize int) *Subscription {
	if bufSize < 1 {
		bufSize = 64
	}
	c := make(chan Record, bufSize)
	sub := &Subscription{C: c, c: c, b: b}
	b.subMu.Lock()
	b.subs[sub] = struct{}{}
	b.subMu.Unlock()
	return sub
}

// Len returns the number of records stored.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Latest returns the most recent n records at or above level, oldest first.
func (b *Buffer) Latest(n int, level slog.Level) []Record {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n <= 0 {
		return nil
	}

	var result []Record
	for i := 0; i < b.count && len(result) < n; i++ {
		// Walk backwards from the most recent entry
		rec := b.buf[(b.head-1-i+b.size)%b.size]
		if rec.Level >= level {
			result = append(result, rec)
		}
	}
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result
}

// Grep returns the stored records whose text contains substr, oldest first.
func (b *Buffer) Grep(substr string) []Record {
	var result []Record
	for _, rec := range b.Latest(b.Len(), slog.LevelDebug) {
		if strings.Contains(rec.Message, substr) {
			result = append(result, rec)
		}
	}
	return result
}
