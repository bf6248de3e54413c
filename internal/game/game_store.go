package game

import (
	"sort"
	"sync"
)

// SessionStore holds the running orchestrators, one per game code.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Orchestrator
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Orchestrator),
	}
}

// Add registers o. It reports false if a session for the code already runs.
func (s *SessionStore) Add(o *Orchestrator) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[o.Code()]; exists {
		return false
	}
	s.sessions[o.Code()] = o
	return true
}

func (s *SessionStore) Get(code string) (*Orchestrator, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, exists := s.sessions[code]
	return o, exists
}

func (s *SessionStore) Delete(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, code)
}

// List returns the sessions ordered by game code.
func (s *SessionStore) List() []*Orchestrator {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Orchestrator, 0, len(s.sessions))
	for _, o := range s.sessions {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code() < out[j].Code() })
	return out
}
