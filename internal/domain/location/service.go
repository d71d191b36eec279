// internal/domain/location/service.go

package location

import (
	"context"
)

// Ingestor accepts new fixes and fans them out to live subscribers
type Ingestor interface {
	// Ingest validates, persists and broadcasts a fix
	Ingest(ctx context.Context, in FixInput) (Fix, error)
}

// Querier answers read queries over stored fixes
type Querier interface {
	// Latest returns the most recent fix of a track
	Latest(ctx context.Context, trackID string) (Position, error)

	// Path returns the fixes of a track within the last windowHours
	Path(ctx context.Context, trackID string, windowHours float64) ([]PathPoint, error)

	// ActiveTracks returns one entry per track active in the last ActiveWindow
	ActiveTracks(ctx context.Context) ([]ActiveTrack, error)

	// Cleanup deletes fixes older than hoursAgo and returns the count
	Cleanup(ctx context.Context, hoursAgo float64) (int64, error)
}
