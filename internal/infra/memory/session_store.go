package memory

import (
	"context"
	"sync"

	"github.com/Hrishi-524/Quiz-Burst/internal/domain"
)

// SessionStore is the in-process implementation of app.SessionStore. It
// keeps a connection index alongside the sessions so disconnects resolve
// without scanning every game.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
	byConn   map[string]string // connectionID -> code
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*domain.Session),
		byConn:   make(map[string]string),
	}
}

func (s *SessionStore) Get(_ context.Context, code string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[code]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return sess, nil
}

func (s *SessionStore) Save(_ context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.Code] = sess

	// Rebuild the connection index entries for this session.
	for conn, code := range s.byConn {
		if code == sess.Code {
			delete(s.byConn, conn)
		}
	}
	if sess.HostConnectionID != "" {
		s.byConn[sess.HostConnectionID] = sess.Code
	}
	for _, p := range sess.Players {
		if p.ConnectionID != "" {
			s.byConn[p.ConnectionID] = sess.Code
		}
	}
	return nil
}

// ExistsActive reports whether the code is taken by a non-finished session.
// Finished games release their codes for reuse.
func (s *SessionStore) ExistsActive(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[code]
	return ok && !sess.Finished(), nil
}

func (s *SessionStore) FindByConnection(_ context.Context, connectionID string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	code, ok := s.byConn[connectionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	sess, ok := s.sessions[code]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return sess, nil
}

func (s *SessionStore) Delete(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, code)
	for conn, c := range s.byConn {
		if c == code {
			delete(s.byConn, conn)
		}
	}
	return nil
}
