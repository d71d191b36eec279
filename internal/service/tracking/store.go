// internal/service/tracking/store.go

package tracking

import (
	"context"
	"time"

	"livetrack/internal/domain/location"
)

// LocationStore defines the storage interface for location fixes
type LocationStore interface {
	// Insert persists a fix and returns it with its assigned id
	Insert(ctx context.Context, fix location.Fix) (location.Fix, error)

	// FindLatest returns the most recent fix of a track, or nil when none exists
	FindLatest(ctx context.Context, trackID string) (*location.Fix, error)

	// FindRange returns up to limit fixes of a track at or after since, oldest first
	FindRange(ctx context.Context, trackID string, since time.Time, limit int) ([]location.Fix, error)

	// FindActiveSince returns the most recent fix of every track that has a
	// fix at or after cutoff
	FindActiveSince(ctx context.Context, cutoff time.Time) ([]location.Fix, error)

	// DeleteOlderThan removes fixes with a timestamp before cutoff
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// Ping checks connectivity
	Ping(ctx context.Context) error
}

// EventPublisher forwards tracking events to an external event bus
type EventPublisher interface {
	// PublishLocation announces a newly persisted fix
	PublishLocation(ctx context.Context, pos location.Position) error

	// PublishCleanup announces a bulk deletion
	PublishCleanup(ctx context.Context, cutoff time.Time, deleted int64) error
}

// hoursBefore returns now minus a fractional number of hours, clamped so the
// conversion to time.Duration cannot overflow
func hoursBefore(now time.Time, hours float64) time.Time {
	const maxHours = float64(100 * 365 * 24)
	if hours > maxHours {
		hours = maxHours
	}
	if hours < -maxHours {
		hours = -maxHours
	}
	return now.Add(-time.Duration(hours * float64(time.Hour)))
}
