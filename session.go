package praxis

import (
	"fmt"
	"strings"
	"sync"
)

// Session tracks scenarios surfaced in one process so callers can refer
// to them by short reference (S1, S2, ...).
type Session struct {
	mu      sync.Mutex
	refs    map[string]string // session ref -> scenario ID
	reverse map[string]string // scenario ID -> session ref
	order   []string
}

// NewSession creates a new session tracker.
func NewSession() *Session {
	return &Session{
		refs:    make(map[string]string),
		reverse: make(map[string]string),
	}
}

// Track adds a scenario and returns its session reference. Tracking the
// same ID again returns the existing reference.
func (s *Session) Track(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ref, ok := s.reverse[id]; ok {
		return ref
	}

	ref := fmt.Sprintf("S%d", len(s.order)+1)
	s.refs[ref] = id
	s.reverse[id] = ref
	s.order = append(s.order, ref)
	return ref
}

// Resolve converts a session reference to a scenario ID.
func (s *Session) Resolve(ref string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.refs[strings.ToUpper(ref)]
	return id, ok
}

// RefFor returns the session reference of a scenario ID.
func (s *Session) RefFor(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, ok := s.reverse[id]
	return ref, ok
}

// Count returns the number of tracked scenarios.
func (s *Session) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Clear resets the session tracking.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refs = make(map[string]string)
	s.reverse = make(map[string]string)
	s.order = nil
}

// Match resolves ref as a session reference, a tracked scenario ID, or a
// case-insensitive title snippet. Snippets match the earliest tracked
// scenario whose title contains them.
func (s *Session) Match(ref string, titleLookup func(id string) string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.refs[strings.ToUpper(ref)]; ok {
		return id, true
	}
	if _, ok := s.reverse[ref]; ok {
		return ref, true
	}

	needle := strings.ToLower(strings.TrimSpace(ref))
	if needle == "" || titleLookup == nil {
		return "", false
	}
	for _, r := range s.order {
		id := s.refs[r]
		if strings.Contains(strings.ToLower(titleLookup(id)), needle) {
			return id, true
		}
	}
	return "", false
}
