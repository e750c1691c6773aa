package net

// SessionStore holds the live sessions by ID.
// Accessed only from the game loop goroutine; no locks.
type SessionStore struct {
	sessions map[uint64]*Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[uint64]*Session)}
}

func (s *SessionStore) Add(sess *Session) {
	s.sessions[sess.ID] = sess
}

func (s *SessionStore) Remove(id uint64) {
	delete(s.sessions, id)
}

func (s *SessionStore) Get(id uint64) *Session {
	return s.sessions[id]
}

func (s *SessionStore) Count() int {
	return len(s.sessions)
}

// Raw exposes the map for iteration; callers may Remove while ranging.
func (s *SessionStore) Raw() map[uint64]*Session {
	return s.sessions
}

func (s *SessionStore) ForEach(fn func(*Session)) {
	for _, sess := range s.sessions {
		fn(sess)
	}
}
