package tracking

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"livetrack/internal/adapter/storage"
	"livetrack/internal/domain/apperr"
	"livetrack/internal/domain/location"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func setupQuery(t *testing.T) (*storage.MemoryLocationStore, *QueryService) {
	t.Helper()

	store := storage.NewMemoryLocationStore()
	q := NewQueryService(store, nil, zap.NewNop())
	q.now = func() time.Time { return testNow }
	return store, q
}

func insertFix(t *testing.T, store LocationStore, trackID string, age time.Duration, active bool) location.Fix {
	t.Helper()

	saved, err := store.Insert(context.Background(), location.Fix{
		TrackID:   trackID,
		Lat:       1,
		Lng:       2,
		IsActive:  active,
		Timestamp: testNow.Add(-age),
	})
	require.NoError(t, err)
	return saved
}

func TestQueryService_LatestNotFound(t *testing.T) {
	_, q := setupQuery(t)

	_, err := q.Latest(context.Background(), "ghost")

	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestQueryService_LatestStaleFix(t *testing.T) {
	store, q := setupQuery(t)
	insertFix(t, store, "bus1", 10*time.Minute, true)

	pos, err := q.Latest(context.Background(), "bus1")

	require.NoError(t, err)
	assert.False(t, pos.IsRecent)
}

func TestQueryService_LatestPicksNewestTimestamp(t *testing.T) {
	store, q := setupQuery(t)
	newest := insertFix(t, store, "bus1", time.Minute, true)
	insertFix(t, store, "bus1", 3*time.Minute, true)

	pos, err := q.Latest(context.Background(), "bus1")

	require.NoError(t, err)
	assert.Equal(t, newest.ID, pos.ID)
	assert.True(t, pos.IsRecent)
}

func TestQueryService_PathWindowAndOrder(t *testing.T) {
	store, q := setupQuery(t)
	insertFix(t, store, "bus1", 3*time.Hour, true)
	insertFix(t, store, "bus1", 30*time.Minute, true)
	insertFix(t, store, "bus1", 90*time.Minute, true)
	insertFix(t, store, "bus2", time.Minute, true)

	points, err := q.Path(context.Background(), "bus1", math.NaN())

	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, testNow.Add(-90*time.Minute), points[0].Timestamp)
	assert.Equal(t, testNow.Add(-30*time.Minute), points[1].Timestamp)

	points, err = q.Path(context.Background(), "bus1", 4)
	require.NoError(t, err)
	assert.Len(t, points, 3)
}

func TestQueryService_PathCapped(t *testing.T) {
	store, q := setupQuery(t)
	for i := 0; i < location.MaxPathPoints+5; i++ {
		insertFix(t, store, "bus1", time.Duration(i)*time.Second, true)
	}

	points, err := q.Path(context.Background(), "bus1", 1)

	require.NoError(t, err)
	assert.Len(t, points, location.MaxPathPoints)
	for i := 1; i < len(points); i++ {
		assert.False(t, points[i].Timestamp.Before(points[i-1].Timestamp))
	}
}

func TestQueryService_PathEmptyIsNotNil(t *testing.T) {
	_, q := setupQuery(t)

	points, err := q.Path(context.Background(), "nobody", 2)

	require.NoError(t, err)
	assert.NotNil(t, points)
	assert.Empty(t, points)
}

func TestQueryService_ActiveTracks(t *testing.T) {
	store, q := setupQuery(t)
	insertFix(t, store, "bus1", 4*time.Minute, true)
	insertFix(t, store, "bus1", time.Minute, true)
	insertFix(t, store, "parked", 3*time.Minute, true)
	insertFix(t, store, "parked", 2*time.Minute, false)
	insertFix(t, store, "gone", 10*time.Minute, true)

	tracks, err := q.ActiveTracks(context.Background())

	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, "bus1", tracks[0].TrackID)
	assert.Equal(t, testNow.Add(-time.Minute), tracks[0].Timestamp)
}

func TestQueryService_CleanupZeroHoursDeletesEverything(t *testing.T) {
	store, q := setupQuery(t)
	events := &recordingPublisher{}
	q.events = events
	insertFix(t, store, "bus1", time.Minute, true)
	insertFix(t, store, "bus2", time.Hour, true)

	deleted, err := q.Cleanup(context.Background(), 0)

	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.Equal(t, []int64{2}, events.cleanups)

	_, err = q.Latest(context.Background(), "bus1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestQueryService_CleanupDefaultsToRetention(t *testing.T) {
	store, q := setupQuery(t)
	insertFix(t, store, "bus1", 25*time.Hour, true)
	insertFix(t, store, "bus1", 23*time.Hour, true)

	deleted, err := q.Cleanup(context.Background(), math.Inf(1))

	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestQueryService_StorageErrors(t *testing.T) {
	_, q := setupQuery(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Latest(ctx, "bus1")
	assert.True(t, apperr.IsStorage(err))

	_, err = q.Path(ctx, "bus1", 2)
	assert.True(t, apperr.IsStorage(err))

	_, err = q.ActiveTracks(ctx)
	assert.True(t, apperr.IsStorage(err))

	_, err = q.Cleanup(ctx, 1)
	assert.True(t, apperr.IsStorage(err))
}
