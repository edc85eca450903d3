// Package memstore keeps survey sessions in process memory. It is used by tests
// and single-instance deployments that do not need durable sessions.
package memstore

import (
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/falanarofako/backend-conversational-survey/pkg/survey/types"
)

type Store struct {
	mu       sync.Mutex
	sessions map[primitive.ObjectID]types.SurveySession
	active   map[string]primitive.ObjectID // userID -> in progress session
}

func New() *Store {
	return &Store{
		sessions: map[primitive.ObjectID]types.SurveySession{},
		active:   map[string]primitive.ObjectID{},
	}
}

func (s *Store) StartSession(session types.SurveySession) (types.SurveySession, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.active[session.UserID]; ok {
		return copySession(s.sessions[id]), false, nil
	}

	if session.ID.IsZero() {
		session.ID = primitive.NewObjectID()
	}
	s.sessions[session.ID] = copySession(session)
	s.active[session.UserID] = session.ID
	return copySession(session), true, nil
}

func (s *Store) GetSession(sessionID string) (types.SurveySession, error) {
	id, err := primitive.ObjectIDFromHex(sessionID)
	if err != nil {
		return types.SurveySession{}, fmt.Errorf("%s: %w", sessionID, types.ErrSessionNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return types.SurveySession{}, fmt.Errorf("%s: %w", sessionID, types.ErrSessionNotFound)
	}
	return copySession(session), nil
}

func (s *Store) SaveSession(session types.SurveySession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.ID]; !ok {
		return fmt.Errorf("%s: %w", session.ID.Hex(), types.ErrSessionNotFound)
	}
	s.sessions[session.ID] = copySession(session)
	if session.IsCompleted() && s.active[session.UserID] == session.ID {
		delete(s.active, session.UserID)
	}
	return nil
}

// Sessions returns a snapshot of every stored session.
func (s *Store) Sessions() []types.SurveySession {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.SurveySession, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, copySession(session))
	}
	return out
}

func copySession(s types.SurveySession) types.SurveySession {
	s.Responses = append([]types.Response{}, s.Responses...)
	return s
}
