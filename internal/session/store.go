// internal/session/store.go
package session

import "sync"

// Store tracks the active session replicas of one process, keyed by room
// code. Sessions are ephemeral: they exist only while the room is alive and
// are never persisted.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore returns an in-memory session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
	}
}

// Add stores a session under its room code.
func (st *Store) Add(roomCode string, s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[roomCode] = s
}

// Get retrieves a session if it exists.
func (st *Store) Get(roomCode string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[roomCode]
	return s, ok
}

// Delete removes a session from the store.
func (st *Store) Delete(roomCode string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, roomCode)
}
