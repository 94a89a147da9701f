package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Hrishi-524/Quiz-Burst/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SessionStore keeps game sessions as JSON records in Redis. Layout:
//
//	game:session:{code}  JSON session record, expires after the retention TTL
//	game:active:{code}   liveness marker backing ExistsActive; removed the
//	                     moment a session finishes so codes become reusable
//	game:conn:{connID}   connectionID -> code index for disconnect cleanup
//
// Finished records stay until the TTL runs out, which is what lets late
// clients still fetch the final standings.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore builds a store with the given retention TTL (how long a
// finished session's record survives).
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Get(ctx context.Context, code string) (*domain.Session, error) {
	data, err := s.client.Get(ctx, s.sessionKey(code)).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", code, err)
	}
	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", code, err)
	}
	return &sess, nil
}

func (s *SessionStore) Save(ctx context.Context, sess *domain.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", sess.Code, err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.sessionKey(sess.Code), data, s.ttl)
	if sess.Finished() {
		pipe.Del(ctx, s.activeKey(sess.Code))
	} else {
		pipe.Set(ctx, s.activeKey(sess.Code), "1", s.ttl)
	}
	if sess.HostConnectionID != "" {
		pipe.Set(ctx, s.connKey(sess.HostConnectionID), sess.Code, s.ttl)
	}
	for _, p := range sess.Players {
		if p.ConnectionID != "" {
			pipe.Set(ctx, s.connKey(p.ConnectionID), sess.Code, s.ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save session %s: %w", sess.Code, err)
	}
	return nil
}

func (s *SessionStore) ExistsActive(ctx context.Context, code string) (bool, error) {
	n, err := s.client.Exists(ctx, s.activeKey(code)).Result()
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", code, err)
	}
	return n > 0, nil
}

// FindByConnection resolves a connection to its session. The index entry
// may outlive the binding (entries expire rather than being deleted), so
// membership is re-checked against the record itself.
func (s *SessionStore) FindByConnection(ctx context.Context, connectionID string) (*domain.Session, error) {
	code, err := s.client.Get(ctx, s.connKey(connectionID)).Result()
	if err == redis.Nil {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find connection %s: %w", connectionID, err)
	}
	sess, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if sess.HostConnectionID != connectionID && sess.PlayerByConnection(connectionID) == nil {
		return nil, domain.ErrSessionNotFound
	}
	return sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, code string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.sessionKey(code))
	pipe.Del(ctx, s.activeKey(code))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session %s: %w", code, err)
	}
	return nil
}

func (s *SessionStore) sessionKey(code string) string {
	return "game:session:" + code
}

func (s *SessionStore) activeKey(code string) string {
	return "game:active:" + code
}

func (s *SessionStore) connKey(connectionID string) string {
	return "game:conn:" + connectionID
}
