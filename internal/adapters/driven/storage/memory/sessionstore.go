package memory

import (
	"context"
	"sync"

	"github.com/tessera-labs/tessera/internal/core/domain"
	"github.com/tessera-labs/tessera/internal/core/ports/driven"
)

// Ensure SessionStore implements the interface.
var _ driven.SessionStore = (*SessionStore)(nil)

// SessionStore is an in-memory implementation of driven.SessionStore.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.ConversationSession
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]domain.ConversationSession),
	}
}

// Save stores or updates a session.
func (s *SessionStore) Save(_ context.Context, session *domain.ConversationSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *session
	stored.Turns = make([]domain.Turn, len(session.Turns))
	copy(stored.Turns, session.Turns)
	s.sessions[session.ID] = stored
	return nil
}

// Get retrieves a session by ID.
func (s *SessionStore) Get(_ context.Context, id string) (*domain.ConversationSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	result := session
	result.Turns = make([]domain.Turn, len(session.Turns))
	copy(result.Turns, session.Turns)
	return &result, nil
}
