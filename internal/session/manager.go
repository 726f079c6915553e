package session

import "sync"

// Manager holds the live sessions of this process, keyed by session id.
// Sessions are in-memory only; they are never persisted as their own records
// and vanish with the process.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// GetOrCreate returns the session with the given id, or a brand new session
// when id is blank or unknown. The second return reports whether a new
// session was created.
func (m *Manager) GetOrCreate(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id != "" {
		if s, ok := m.sessions[id]; ok {
			return s, false
		}
	}
	s := newSession()
	m.sessions[s.id] = s
	return s, true
}

// Get returns the session with the given id, if it exists.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}
