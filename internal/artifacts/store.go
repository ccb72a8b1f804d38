// Package artifacts holds ephemeral per-session captured resources,
// screenshots mostly. Contents live for the process lifetime at most;
// the session manager purges a session's artifacts on every teardown
// path, keyed by both the internal and the external session id.
package artifacts

import (
	"sync"
	"time"
)

// Artifact is one captured resource.
type Artifact struct {
	Name        string    `json:"name"`
	ContentType string    `json:"contentType"`
	Data        []byte    `json:"-"`
	Size        int       `json:"size"`
	CapturedAt  time.Time `json:"capturedAt"`
}

// Store is an in-memory artifact store keyed by session id.
type Store struct {
	mu        sync.RWMutex
	bySession map[string][]Artifact
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{bySession: make(map[string][]Artifact)}
}

// Add records an artifact under the given session id.
func (s *Store) Add(sessionID string, a Artifact) {
	if a.CapturedAt.IsZero() {
		a.CapturedAt = time.Now()
	}
	a.Size = len(a.Data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.bySession[sessionID] = append(s.bySession[sessionID], a)
}

// List returns the artifacts recorded under a session id, oldest first.
func (s *Store) List(sessionID string) []Artifact {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.bySession[sessionID]
	out := make([]Artifact, len(stored))
	copy(out, stored)
	return out
}

// Get returns a single artifact by name.
func (s *Store) Get(sessionID, name string) (Artifact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.bySession[sessionID] {
		if a.Name == name {
			return a, true
		}
	}
	return Artifact{}, false
}

// Purge drops everything recorded under a session id and returns how
// many artifacts were removed. Purging an unknown id is a no-op.
func (s *Store) Purge(sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.bySession[sessionID])
	delete(s.bySession, sessionID)
	return n
}
