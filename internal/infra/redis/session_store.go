// Package redis implements the session store and event bus on Redis,
// letting multiple service instances share in-progress quiz state.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-campaign-service/internal/domain"
)

// SessionStore keeps quiz sessions in Redis with a TTL. Layout per session:
//
//	SET  quiz:session:{id}          {JSON snapshot, answers excluded}
//	HSET quiz:session:{id}:answers  {questionID} {JSON option IDs}
//	SET  quiz:session:{id}:done     1
//
// Answers live in a hash so each auto-save is an independent idempotent
// per-question upsert; out-of-order or duplicate saves cannot corrupt the
// final answer set. Abandoned sessions are reclaimed by key expiry.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Create(ctx context.Context, session *domain.QuizSession) error {
	snapshot := *session
	snapshot.Answers = nil
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(session.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (domain.QuizSession, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err == redis.Nil {
		return domain.QuizSession{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.QuizSession{}, fmt.Errorf("load session: %w", err)
	}

	var session domain.QuizSession
	if err := json.Unmarshal(data, &session); err != nil {
		return domain.QuizSession{}, fmt.Errorf("unmarshal session: %w", err)
	}

	saved, err := s.client.HGetAll(ctx, s.answersKey(sessionID)).Result()
	if err != nil && err != redis.Nil {
		return domain.QuizSession{}, fmt.Errorf("load answers: %w", err)
	}
	session.Answers = make(domain.AnswerSet, len(saved))
	for field, raw := range saved {
		questionID, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			continue
		}
		var opts []int64
		if err := json.Unmarshal([]byte(raw), &opts); err != nil {
			continue
		}
		session.Answers[questionID] = opts
	}

	done, err := s.client.Exists(ctx, s.doneKey(sessionID)).Result()
	if err != nil {
		return domain.QuizSession{}, fmt.Errorf("load completion flag: %w", err)
	}
	session.Completed = done > 0
	return session, nil
}

func (s *SessionStore) SaveAnswers(ctx context.Context, sessionID string, answers domain.AnswerSet) error {
	exists, err := s.client.Exists(ctx, s.key(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if exists == 0 {
		return domain.ErrSessionNotFound
	}

	key := s.answersKey(sessionID)
	pipe := s.client.Pipeline()
	for questionID, opts := range answers {
		raw, err := json.Marshal(opts)
		if err != nil {
			return fmt.Errorf("marshal answer: %w", err)
		}
		pipe.HSet(ctx, key, strconv.FormatInt(questionID, 10), raw)
	}
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save answers: %w", err)
	}
	return nil
}

func (s *SessionStore) Complete(ctx context.Context, sessionID string) error {
	if err := s.client.Set(ctx, s.doneKey(sessionID), "1", s.ttl).Err(); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

func (s *SessionStore) key(sessionID string) string {
	return "quiz:session:" + sessionID
}

func (s *SessionStore) answersKey(sessionID string) string {
	return s.key(sessionID) + ":answers"
}

func (s *SessionStore) doneKey(sessionID string) string {
	return s.key(sessionID) + ":done"
}
