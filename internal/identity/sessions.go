package identity

import (
	"sync"
)

// Sessions remembers the selected identity of each long-lived caller session, such as
// an MCP client connection. Each session owns its own entry; there is no shared
// "current profile".
type Sessions struct {
	mu       sync.RWMutex
	resolver *Resolver
	entries  map[string]Identity
}

// NewSessions creates an empty session store backed by resolver for defaults.
func NewSessions(resolver *Resolver) *Sessions {
	return &Sessions{
		resolver: resolver,
		entries:  make(map[string]Identity),
	}
}

// Get returns the identity selected by sessionID, or the default profile.
func (s *Sessions) Get(sessionID string) Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.entries[sessionID]; ok {
		return id
	}
	return Identity{Profile: s.resolver.Default(), SessionID: sessionID}
}

// Switch selects profileName for sessionID and returns the previous and new identity.
// An invalid name leaves the session unchanged.
func (s *Sessions) Switch(sessionID, profileName string) (previous, current Identity, err error) {
	name, err := ParseName(profileName)
	if err != nil {
		return Identity{}, Identity{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous, ok := s.entries[sessionID]
	if !ok {
		previous = Identity{Profile: s.resolver.Default(), SessionID: sessionID}
	}
	current = Identity{Profile: name, SessionID: sessionID}
	s.entries[sessionID] = current
	return previous, current, nil
}

// Forget drops the selection of sessionID, e.g. when the session ends.
func (s *Sessions) Forget(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
}

// Len returns the number of sessions with an explicit selection.
func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
