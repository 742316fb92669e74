package audit

import (
	"sync"
	"time"

	"github.com/leefowlercu/veriview-gateway/pkg/types"
)

// Default retention: once the log grows past DefaultMaxEntries, the oldest
// DefaultEvictBatch entries are dropped in one go.
const (
	DefaultMaxEntries = 500
	DefaultEvictBatch = 100
)

// Recorder accepts audit entries. Implementations must be safe for
// concurrent use and must not fail the caller.
type Recorder interface {
	Record(entry types.AuditEntry)
}

// Log is a bounded, append-only, in-memory audit log shared by all requests.
// Global order is append order.
type Log struct {
	mu         sync.RWMutex
	entries    []types.AuditEntry
	maxEntries int
	evictBatch int
	now        func() time.Time
}

// Force compile-time check for interface implementation
var _ Recorder = (*Log)(nil)

// NewLog creates a log that keeps at most maxEntries entries, evicting the
// oldest evictBatch entries whenever that bound is exceeded
func NewLog(maxEntries, evictBatch int) *Log {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if evictBatch <= 0 || evictBatch > maxEntries {
		evictBatch = DefaultEvictBatch
	}
	if evictBatch > maxEntries {
		evictBatch = maxEntries
	}

	return &Log{
		entries:    make([]types.AuditEntry, 0, maxEntries+1),
		maxEntries: maxEntries,
		evictBatch: evictBatch,
		now:        time.Now,
	}
}

// Record appends an entry, stamping it with the current time if unset
func (l *Log) Record(entry types.AuditEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, entry)
	if len(l.entries) > l.maxEntries {
		// Shift in place so the backing array is reused
		n := copy(l.entries, l.entries[l.evictBatch:])
		clear(l.entries[n:])
		l.entries = l.entries[:n]
	}
}

// Snapshot returns a copy of the current entries, oldest first
func (l *Log) Snapshot() []types.AuditEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]types.AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Tail returns a copy of the newest n entries, oldest first.
// n <= 0 returns every entry.
func (l *Log) Tail(n int) []types.AuditEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	start := 0
	if n > 0 && n < len(l.entries) {
		start = len(l.entries) - n
	}
	out := make([]types.AuditEntry, len(l.entries)-start)
	copy(out, l.entries[start:])
	return out
}

// Len returns the number of retained entries
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
