// internal/adapter/storage/session_store.go

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"livetrack/internal/domain/session"
)

// SessionStore keeps session watch-lists in Redis, one key per session id
type SessionStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	now       func() time.Time
}

// NewSessionStore creates a new session store. A zero ttl keeps sessions
// until they are overwritten.
func NewSessionStore(client *redis.Client, keyPrefix string, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		now:       time.Now,
	}
}

func (s *SessionStore) key(sessionID string) string {
	return s.keyPrefix + sessionID
}

// Get returns the stored session, or nil when none exists
func (s *SessionStore) Get(ctx context.Context, sessionID string) (*session.Session, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading session: %w", err)
	}

	var sess session.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("error unmarshaling session: %w", err)
	}

	return &sess, nil
}

// Create stores an empty session only when none exists yet. It reports
// false when another writer got there first; the stored session is left
// untouched in that case.
func (s *SessionStore) Create(ctx context.Context, sessionID string) (*session.Session, bool, error) {
	sess := &session.Session{
		SessionID:    sessionID,
		TrackedUsers: []session.TrackedUser{},
		LastUpdated:  s.now().UTC(),
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return nil, false, fmt.Errorf("error marshaling session: %w", err)
	}

	created, err := s.client.SetNX(ctx, s.key(sessionID), data, s.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("error creating session: %w", err)
	}
	if !created {
		return nil, false, nil
	}

	return sess, true, nil
}

// Upsert replaces the whole watch-list of a session. Entries without an
// addedAt are stamped with the write time.
func (s *SessionStore) Upsert(ctx context.Context, sessionID string, users []session.TrackedUser) (*session.Session, error) {
	now := s.now().UTC()

	tracked := make([]session.TrackedUser, len(users))
	for i, u := range users {
		if u.AddedAt.IsZero() {
			u.AddedAt = now
		}
		tracked[i] = u
	}

	sess := &session.Session{
		SessionID:    sessionID,
		TrackedUsers: tracked,
		LastUpdated:  now,
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("error marshaling session: %w", err)
	}

	if err := s.client.Set(ctx, s.key(sessionID), data, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("error writing session: %w", err)
	}

	return sess, nil
}

// Ping checks the Redis connection
func (s *SessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
