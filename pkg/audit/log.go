// Package audit implements the append-only, bounded-memory audit ring
// recording every sandboxed host-function attempt.
package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const paramsSummaryMaxLen = 80

// Entry is one immutable record of a host-function attempt.
type Entry struct {
	ID             string
	Function       string
	ParamsSummary  string
	Permitted      bool
	Error          string
	ElapsedMS      int64
	CreatedAt      time.Time
}

// Log is an append-only, bounded-capacity ring of audit entries
// guarded by a single exclusive lock. Oldest entries are dropped once
// capacity is exceeded.
type Log struct {
	mu       sync.Mutex
	entries  []Entry
	capacity int
	created  time.Time
}

// New creates a Log bounded to capacity entries. capacity <= 0 means
// unbounded.
func New(capacity int) *Log {
	return &Log{capacity: capacity, created: time.Now()}
}

// Record appends a new entry. params is truncated to 80 characters.
// ElapsedMS is measured from the Log's creation (New), and the time is
// taken under the lock, so timestamps across entries are monotonically
// non-decreasing in append order.
func (l *Log) Record(function, params string, permitted bool, errMsg string) Entry {
	if len(params) > paramsSummaryMaxLen {
		params = params[:paramsSummaryMaxLen]
	}

	entry := Entry{
		ID:            uuid.NewString(),
		Function:      function,
		ParamsSummary: params,
		Permitted:     permitted,
		Error:         errMsg,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	entry.CreatedAt = now
	entry.ElapsedMS = now.Sub(l.created).Milliseconds()

	l.entries = append(l.entries, entry)
	if l.capacity > 0 && len(l.entries) > l.capacity {
		l.entries = l.entries[len(l.entries)-l.capacity:]
	}
	return entry
}

// Entries returns a snapshot copy of all currently retained entries.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// CountByFunction returns the number of retained entries for function.
func (l *Log) CountByFunction(function string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.Function == function {
			n++
		}
	}
	return n
}

// DeniedCount returns the number of retained entries with
// Permitted == false.
func (l *Log) DeniedCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if !e.Permitted {
			n++
		}
	}
	return n
}

// Len returns the number of currently retained entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
