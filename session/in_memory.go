package session

import (
	"sort"
	"sync"

	"github.com/hupe1980/storymesh/core"
)

// InMemoryStore is a volatile TranscriptStore keeping records in a process
// local map. It is safe for concurrent access and best suited for tests or
// ephemeral demo hosts. Records are cloned on both write and read to prevent
// external mutation of internal state.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string][]core.Record
}

// NewInMemoryStore constructs an empty in-memory transcript store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string][]core.Record)}
}

// Append adds rec to the session's transcript, preserving append order.
func (s *InMemoryStore) Append(sessionID string, rec core.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[sessionID] = append(s.records[sessionID], cloneRecord(rec))
	return nil
}

// List returns the session's records in append order. An unknown session
// yields an empty transcript, not an error.
func (s *InMemoryStore) List(sessionID string) ([]core.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.records[sessionID]
	out := make([]core.Record, len(stored))
	for i, rec := range stored {
		out[i] = cloneRecord(rec)
	}
	return out, nil
}

// Sessions returns the known session identifiers, sorted for stable output.
func (s *InMemoryStore) Sessions() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.records))
	for id := range s.records {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// cloneRecord deep-copies the record's pointer and map fields.
func cloneRecord(rec core.Record) core.Record {
	if rec.Action != nil {
		action := *rec.Action
		if action.Parameters != nil {
			params := make(map[string]string, len(action.Parameters))
			for k, v := range action.Parameters {
				params[k] = v
			}
			action.Parameters = params
		}
		rec.Action = &action
	}
	if rec.Result.StateDelta != nil {
		delta := make(map[string]any, len(rec.Result.StateDelta))
		for k, v := range rec.Result.StateDelta {
			delta[k] = v
		}
		rec.Result.StateDelta = delta
	}
	return rec
}
