package tracking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"livetrack/internal/adapter/storage"
	"livetrack/internal/domain/location"
)

func TestRetentionSweeper_Sweep(t *testing.T) {
	store := storage.NewMemoryLocationStore()
	insertFix(t, store, "bus1", 25*time.Hour, true)
	insertFix(t, store, "bus1", 23*time.Hour, true)

	s := NewRetentionSweeper(store, RetentionConfig{Retention: 24 * time.Hour, SweepInterval: time.Hour}, zap.NewNop())
	s.now = func() time.Time { return testNow }

	assert.Equal(t, int64(1), s.Sweep(context.Background()))
	assert.Equal(t, int64(0), s.Sweep(context.Background()))
}

func TestRetentionSweeper_StartSweepsImmediately(t *testing.T) {
	store := storage.NewMemoryLocationStore()
	_, err := store.Insert(context.Background(), location.Fix{
		TrackID:   "bus1",
		IsActive:  true,
		Timestamp: time.Now().Add(-48 * time.Hour),
	})
	require.NoError(t, err)

	s := NewRetentionSweeper(store, RetentionConfig{Retention: 24 * time.Hour, SweepInterval: time.Hour}, zap.NewNop())
	s.Start(context.Background())
	s.Start(context.Background())

	assert.Eventually(t, func() bool {
		fix, err := store.FindLatest(context.Background(), "bus1")
		return err == nil && fix == nil
	}, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}

func TestRetentionSweeper_StopWithoutStart(t *testing.T) {
	s := NewRetentionSweeper(storage.NewMemoryLocationStore(), RetentionConfig{Retention: time.Hour, SweepInterval: time.Hour}, zap.NewNop())

	assert.NoError(t, s.Stop(context.Background()))
}
