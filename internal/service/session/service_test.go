package session

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"livetrack/internal/adapter/storage"
	"livetrack/internal/domain/apperr"
	"livetrack/internal/domain/session"
)

func setupService(t *testing.T) (*miniredis.Miniredis, *Service) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := storage.NewSessionStore(client, "session:", 0)
	return mr, NewService(store, zap.NewNop())
}

func TestService_GetCreatesEmptySession(t *testing.T) {
	mr, svc := setupService(t)

	sess, err := svc.Get(context.Background(), "abc")

	require.NoError(t, err)
	assert.Equal(t, "abc", sess.SessionID)
	assert.Empty(t, sess.TrackedUsers)
	assert.False(t, sess.LastUpdated.IsZero())
	assert.True(t, mr.Exists("session:abc"))
}

// racingStore lets a concurrent Replace land between the miss and the create
type racingStore struct {
	*storage.SessionStore
	beforeCreate func()
}

func (r *racingStore) Create(ctx context.Context, sessionID string) (*session.Session, bool, error) {
	if r.beforeCreate != nil {
		r.beforeCreate()
		r.beforeCreate = nil
	}
	return r.SessionStore.Create(ctx, sessionID)
}

func TestService_GetDoesNotClobberConcurrentReplace(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := &racingStore{SessionStore: storage.NewSessionStore(client, "session:", 0)}
	svc := NewService(store, zap.NewNop())
	writer := NewService(store.SessionStore, zap.NewNop())
	ctx := context.Background()

	store.beforeCreate = func() {
		_, err := writer.Replace(ctx, "abc", []session.TrackedUser{
			{TrackID: "bus1", Color: "red", DisplayName: "Bus 1"},
		})
		require.NoError(t, err)
	}

	sess, err := svc.Get(ctx, "abc")
	require.NoError(t, err)
	require.Len(t, sess.TrackedUsers, 1)
	assert.Equal(t, "bus1", sess.TrackedUsers[0].TrackID)

	stored, err := svc.Get(ctx, "abc")
	require.NoError(t, err)
	require.Len(t, stored.TrackedUsers, 1)
	assert.Equal(t, "bus1", stored.TrackedUsers[0].TrackID)
}

func TestService_ReplaceWithEmptyClearsWatchList(t *testing.T) {
	_, svc := setupService(t)
	ctx := context.Background()

	_, err := svc.Replace(ctx, "abc", []session.TrackedUser{
		{TrackID: "bus1", Color: "red", DisplayName: "Bus 1"},
		{TrackID: "bus2", Color: "blue", DisplayName: "Bus 2"},
	})
	require.NoError(t, err)

	sess, err := svc.Replace(ctx, "abc", []session.TrackedUser{})
	require.NoError(t, err)
	assert.Empty(t, sess.TrackedUsers)

	sess, err = svc.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Empty(t, sess.TrackedUsers)
}

func TestService_ReplaceRejectsIncompleteEntry(t *testing.T) {
	mr, svc := setupService(t)

	_, err := svc.Replace(context.Background(), "abc", []session.TrackedUser{
		{TrackID: "bus1", Color: "red", DisplayName: "Bus 1"},
		{TrackID: "bus2", DisplayName: "Bus 2"},
	})

	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "trackedUsers[1].color", ve.Field)
	assert.False(t, mr.Exists("session:abc"))
}

func TestService_StorageFailure(t *testing.T) {
	mr, svc := setupService(t)
	mr.Close()

	_, err := svc.Get(context.Background(), "abc")

	assert.True(t, apperr.IsStorage(err))
	assert.Error(t, svc.Ping(context.Background()))
}
