// internal/service/tracking/broadcaster.go

package tracking

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"livetrack/internal/domain/apperr"
	"livetrack/internal/domain/location"
)

// EventLocationUpdated is the push event type carrying a new fix
const EventLocationUpdated = "locationUpdated"

// PushEvent is the envelope written to subscriber connections
type PushEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Broadcaster persists incoming fixes and fans them out to subscribers
type Broadcaster struct {
	store    LocationStore
	registry *Registry
	events   EventPublisher
	logger   *zap.Logger
	locks    *keyedMutex
	now      func() time.Time
}

// NewBroadcaster creates a new broadcaster. events may be nil.
func NewBroadcaster(
	store LocationStore,
	registry *Registry,
	events EventPublisher,
	logger *zap.Logger,
) *Broadcaster {
	return &Broadcaster{
		store:    store,
		registry: registry,
		events:   events,
		logger:   logger,
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
}

// Ingest validates, persists and broadcasts a fix. Nothing is broadcast
// unless the fix was persisted. Fixes of the same track are broadcast in the
// order their persistence completed.
func (b *Broadcaster) Ingest(ctx context.Context, in location.FixInput) (location.Fix, error) {
	fix, err := in.Normalize(b.now())
	if err != nil {
		b.logger.Debug("Rejected fix", zap.String("track_id", in.TrackID), zap.Error(err))
		return location.Fix{}, err
	}

	unlock := b.locks.Lock(fix.TrackID)
	defer unlock()

	saved, err := b.store.Insert(ctx, fix)
	if err != nil {
		b.logger.Error("Failed to persist fix", zap.String("track_id", fix.TrackID), zap.Error(err))
		return location.Fix{}, &apperr.StorageError{Op: "insert", Err: err}
	}

	pos := location.Position{Fix: saved, IsRecent: true}
	b.fanOut(pos)

	if b.events != nil {
		if err := b.events.PublishLocation(ctx, pos); err != nil {
			// Log error but continue
			b.logger.Warn("Failed to publish location event", zap.String("track_id", saved.TrackID), zap.Error(err))
		}
	}

	return saved, nil
}

// fanOut offers the update to every current subscriber of the track.
// Delivery failures are dropped per connection.
func (b *Broadcaster) fanOut(pos location.Position) {
	subs := b.registry.SubscribersOf(pos.TrackID)
	if len(subs) == 0 {
		return
	}

	payload, err := json.Marshal(PushEvent{Type: EventLocationUpdated, Data: pos})
	if err != nil {
		b.logger.Error("Failed to marshal location update", zap.Error(err))
		return
	}

	dropped := 0
	for _, sub := range subs {
		if !sub.Send(payload) {
			dropped++
			b.logger.Debug("Dropped location update",
				zap.String("track_id", pos.TrackID),
				zap.String("connection_id", sub.ID()),
			)
		}
	}

	b.logger.Debug("Broadcast location update",
		zap.String("track_id", pos.TrackID),
		zap.Int("subscribers", len(subs)),
		zap.Int("dropped", dropped),
	)
}
