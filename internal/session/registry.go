package session

import "sync"

// Registry is a process-wide, concurrency-safe map from correlation id to
// Session. No session outlives its registry entry.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Create stores a new Session under correlationID. A prior entry with the
// same id is closed and replaced.
func (r *Registry) Create(correlationID string) *Session {
	s := New(correlationID)

	r.mu.Lock()
	prior := r.sessions[correlationID]
	r.sessions[correlationID] = s
	r.mu.Unlock()

	if prior != nil {
		prior.Close()
	}
	return s
}

// Get returns the session for correlationID, if present.
func (r *Registry) Get(correlationID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[correlationID]
	return s, ok
}

// Close removes and closes the session for correlationID. Safe if absent.
func (r *Registry) Close(correlationID string) {
	r.mu.Lock()
	s, ok := r.sessions[correlationID]
	delete(r.sessions, correlationID)
	r.mu.Unlock()

	if ok {
		s.Close()
	}
}

// All returns a consistent snapshot of every live session, for shutdown
// iteration.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Shutdown closes every session and empties the registry.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
