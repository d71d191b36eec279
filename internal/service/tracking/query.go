// internal/service/tracking/query.go

package tracking

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"livetrack/internal/domain/apperr"
	"livetrack/internal/domain/location"
)

// QueryService answers read queries and bulk cleanup over stored fixes
type QueryService struct {
	store  LocationStore
	events EventPublisher
	logger *zap.Logger
	now    func() time.Time
}

// NewQueryService creates a new query service. events may be nil.
func NewQueryService(store LocationStore, events EventPublisher, logger *zap.Logger) *QueryService {
	return &QueryService{
		store:  store,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// Latest returns the most recent fix of a track. A stale fix is returned
// with IsRecent false; ErrNotFound means the track has no fixes at all.
func (q *QueryService) Latest(ctx context.Context, trackID string) (location.Position, error) {
	fix, err := q.store.FindLatest(ctx, trackID)
	if err != nil {
		return location.Position{}, &apperr.StorageError{Op: "find latest", Err: err}
	}
	if fix == nil {
		return location.Position{}, apperr.ErrNotFound
	}

	return location.NewPosition(*fix, q.now()), nil
}

// Path returns the fixes of a track from the last windowHours, oldest first,
// capped at MaxPathPoints
func (q *QueryService) Path(ctx context.Context, trackID string, windowHours float64) ([]location.PathPoint, error) {
	if !isFinite(windowHours) {
		windowHours = location.DefaultPathHours
	}

	since := hoursBefore(q.now(), windowHours)
	fixes, err := q.store.FindRange(ctx, trackID, since, location.MaxPathPoints)
	if err != nil {
		return nil, &apperr.StorageError{Op: "find range", Err: err}
	}

	points := make([]location.PathPoint, 0, len(fixes))
	for _, f := range fixes {
		points = append(points, f.ToPathPoint())
	}

	return points, nil
}

// ActiveTracks returns one entry per track whose most recent fix within
// ActiveWindow is marked active
func (q *QueryService) ActiveTracks(ctx context.Context) ([]location.ActiveTrack, error) {
	cutoff := q.now().Add(-location.ActiveWindow)
	fixes, err := q.store.FindActiveSince(ctx, cutoff)
	if err != nil {
		return nil, &apperr.StorageError{Op: "find active", Err: err}
	}

	tracks := make([]location.ActiveTrack, 0, len(fixes))
	for _, f := range fixes {
		if !f.IsActive {
			continue
		}
		tracks = append(tracks, f.ToActiveTrack())
	}

	return tracks, nil
}

// Cleanup deletes every fix older than hoursAgo and returns how many were removed
func (q *QueryService) Cleanup(ctx context.Context, hoursAgo float64) (int64, error) {
	if !isFinite(hoursAgo) {
		hoursAgo = location.DefaultCleanupHours
	}

	cutoff := hoursBefore(q.now(), hoursAgo)
	deleted, err := q.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, &apperr.StorageError{Op: "delete", Err: err}
	}

	q.logger.Info("Cleaned up location fixes",
		zap.Time("cutoff", cutoff),
		zap.Int64("deleted", deleted),
	)

	if q.events != nil && deleted > 0 {
		if err := q.events.PublishCleanup(ctx, cutoff, deleted); err != nil {
			q.logger.Warn("Failed to publish cleanup event", zap.Error(err))
		}
	}

	return deleted, nil
}

// Ping checks the location store
func (q *QueryService) Ping(ctx context.Context) error {
	return q.store.Ping(ctx)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
