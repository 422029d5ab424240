package crm

import "sync"

// Store maps chat session ids to correlation entries. Replace-on-write:
// a second lead for the same session overwrites the stale entry.
// Entries live until attachment clears them or the process restarts.
type Store struct {
	mu      sync.Mutex
	entries map[string]CorrelationEntry
}

func NewStore() *Store {
	return &Store{entries: make(map[string]CorrelationEntry)}
}

func (s *Store) Save(e CorrelationEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.SessionID] = e
}

func (s *Store) Get(sessionID string) (CorrelationEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[sessionID]
	return e, ok
}

func (s *Store) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
