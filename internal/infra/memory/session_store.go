package memory

import (
	"context"
	"sync"
	"time"

	"quiz-campaign-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionStore.
// Abandoned sessions are reclaimed by Sweep rather than a TTL.
type SessionStore struct {
	mu       sync.RWMutex
	clock    func() time.Time
	sessions map[string]*domain.QuizSession
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		clock:    time.Now,
		sessions: make(map[string]*domain.QuizSession),
	}
}

// NewSessionStoreWithClock allows deterministic timestamps in tests.
func NewSessionStoreWithClock(clock func() time.Time) *SessionStore {
	s := NewSessionStore()
	s.clock = clock
	return s
}

func (s *SessionStore) Create(_ context.Context, session *domain.QuizSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *session
	if stored.Answers == nil {
		stored.Answers = domain.AnswerSet{}
	}
	s.sessions[session.ID] = &stored
	return nil
}

func (s *SessionStore) Get(_ context.Context, sessionID string) (domain.QuizSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return domain.QuizSession{}, domain.ErrSessionNotFound
	}
	copied := *session
	copied.Answers = make(domain.AnswerSet, len(session.Answers))
	for id, opts := range session.Answers {
		copied.Answers[id] = append([]int64(nil), opts...)
	}
	return copied, nil
}

// SaveAnswers upserts per question; the latest write for a question wins.
func (s *SessionStore) SaveAnswers(_ context.Context, sessionID string, answers domain.AnswerSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	for questionID, opts := range answers {
		session.Answers[questionID] = append([]int64(nil), opts...)
	}
	return nil
}

func (s *SessionStore) Complete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.Completed = true
	return nil
}

// Sweep deletes uncompleted sessions older than maxAge and returns how
// many were removed.
func (s *SessionStore) Sweep(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.clock().Add(-maxAge)
	removed := 0
	for id, session := range s.sessions {
		if !session.Completed && session.StartedAt.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
