package detect

import (
	"sync"

	"mediwatch/internal/types"
)

// defaultTraceCapacity bounds the transition trace when no capacity is given.
const defaultTraceCapacity = 256

// Trace is a bounded ring buffer of detector state transitions, owned by one
// monitoring session and archived at session teardown. Once capacity is
// reached the oldest entries are overwritten.
//
// Safe for concurrent use: the analyze tick appends while API reads snapshot.
type Trace struct {
	mu      sync.Mutex
	entries []types.TraceEntry
	next    int
	full    bool
}

// NewTrace creates a trace buffer holding at most capacity entries.
func NewTrace(capacity int) *Trace {
	if capacity <= 0 {
		capacity = defaultTraceCapacity
	}
	return &Trace{
		entries: make([]types.TraceEntry, capacity),
	}
}

// Append records one transition, evicting the oldest entry when full.
func (t *Trace) Append(e types.TraceEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries[t.next] = e
	t.next++
	if t.next == len(t.entries) {
		t.next = 0
		t.full = true
	}
}

// Snapshot returns the recorded entries in chronological order.
func (t *Trace) Snapshot() []types.TraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.full {
		out := make([]types.TraceEntry, t.next)
		copy(out, t.entries[:t.next])
		return out
	}

	out := make([]types.TraceEntry, 0, len(t.entries))
	out = append(out, t.entries[t.next:]...)
	out = append(out, t.entries[:t.next]...)
	return out
}

// Len returns the number of recorded entries.
func (t *Trace) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.full {
		return len(t.entries)
	}
	return t.next
}
