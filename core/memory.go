package core

import (
	"fmt"
	"sync"
	"time"
)

// Memory is an append-only, ordered event log owned by a single agent.
// Appends assign monotonically increasing sequence numbers; an optional
// retention limit drops the oldest entries while sequence numbers keep
// growing, so ordering stays meaningful across trims.
//
// Memory is safe for concurrent use, though the round engine only ever
// touches it from a single goroutine.
type Memory struct {
	mu        sync.RWMutex
	events    []Event
	nextSeq   int
	retention int
}

// NewMemory creates an empty memory. retention caps the number of retained
// events; zero (or negative) means unbounded.
func NewMemory(retention int) *Memory {
	return &Memory{retention: retention}
}

// Append records the event, stamping its Sequence (and Timestamp/ID when the
// producer left them zero). Append never fails; it returns the stored event.
func (m *Memory) Append(ev Event) Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ev.ID == "" {
		ev.ID = NewID()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	ev.Sequence = m.nextSeq
	m.nextSeq++

	m.events = append(m.events, ev)
	if m.retention > 0 && len(m.events) > m.retention {
		// Copy instead of reslicing so trimmed entries can be collected.
		kept := make([]Event, m.retention)
		copy(kept, m.events[len(m.events)-m.retention:])
		m.events = kept
	}

	return ev
}

// Recent returns the most recent min(limit, Len) events in insertion order.
// A zero limit yields an empty slice; a negative limit is a contract
// violation and fails with ErrInvalidArgument, leaving memory untouched.
func (m *Memory) Recent(limit int) ([]Event, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: negative memory limit %d", ErrInvalidArgument, limit)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit > len(m.events) {
		limit = len(m.events)
	}
	out := make([]Event, limit)
	copy(out, m.events[len(m.events)-limit:])
	return out, nil
}

// All returns a defensive copy of every retained event in insertion order.
func (m *Memory) All() []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Len returns the number of retained events.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}
