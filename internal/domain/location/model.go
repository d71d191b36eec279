// internal/domain/location/model.go

package location

import (
	"time"

	"livetrack/internal/domain/apperr"
)

const (
	// RecentWindow is how old a fix may be and still count as recent
	RecentWindow = 5 * time.Minute

	// ActiveWindow bounds the fixes considered by the active tracks query
	ActiveWindow = 5 * time.Minute

	// Retention is how long fixes are kept before automatic expiry
	Retention = 24 * time.Hour

	// MaxPathPoints caps the number of points returned by a path query
	MaxPathPoints = 1000

	// DefaultPathHours is the path window used when none is given
	DefaultPathHours = 2.0

	// DefaultCleanupHours is the cleanup cutoff used when none is given
	DefaultCleanupHours = 24.0
)

// Fix is a single persisted GPS sample for a track
type Fix struct {
	ID        int64     `json:"id"`
	TrackID   string    `json:"trackId"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Speed     float64   `json:"speed"`
	Accuracy  float64   `json:"accuracy"`
	Heading   *float64  `json:"heading,omitempty"`
	IsActive  bool      `json:"isActive"`
	Timestamp time.Time `json:"timestamp"`
}

// Position is a fix together with its freshness at query time
type Position struct {
	Fix
	IsRecent bool `json:"isRecent"`
}

// NewPosition wraps a fix, computing IsRecent relative to now
func NewPosition(f Fix, now time.Time) Position {
	return Position{
		Fix:      f,
		IsRecent: now.Sub(f.Timestamp) < RecentWindow,
	}
}

// PathPoint is the projection of a fix returned by path queries
type PathPoint struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
	Speed     float64   `json:"speed"`
}

// ActiveTrack summarizes the latest qualifying fix of an active track
type ActiveTrack struct {
	TrackID   string    `json:"trackId"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Speed     float64   `json:"speed"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
}

// FixInput is a fix as submitted by a client. Pointer fields keep an absent
// value distinct from zero.
type FixInput struct {
	TrackID   string     `json:"trackId" validate:"required"`
	Lat       *float64   `json:"lat" validate:"required"`
	Lng       *float64   `json:"lng" validate:"required"`
	Speed     *float64   `json:"speed"`
	Accuracy  *float64   `json:"accuracy"`
	Heading   *float64   `json:"heading"`
	IsActive  *bool      `json:"isActive"`
	Timestamp *time.Time `json:"timestamp"`
}

// Normalize validates the input and returns a fix with defaults applied.
// A missing timestamp resolves to now; a client timestamp is kept as sent.
func (in FixInput) Normalize(now time.Time) (Fix, error) {
	if err := apperr.Validate(in); err != nil {
		return Fix{}, err
	}

	f := Fix{
		TrackID:   in.TrackID,
		Lat:       *in.Lat,
		Lng:       *in.Lng,
		Heading:   in.Heading,
		IsActive:  true,
		Timestamp: now,
	}

	if in.Speed != nil {
		f.Speed = *in.Speed
	}
	if in.Accuracy != nil {
		f.Accuracy = *in.Accuracy
	}
	if in.IsActive != nil {
		f.IsActive = *in.IsActive
	}
	if in.Timestamp != nil && !in.Timestamp.IsZero() {
		f.Timestamp = *in.Timestamp
	}

	return f, nil
}

// ToPathPoint projects a fix onto a path point
func (f Fix) ToPathPoint() PathPoint {
	return PathPoint{
		Lat:       f.Lat,
		Lng:       f.Lng,
		Timestamp: f.Timestamp,
		Speed:     f.Speed,
	}
}

// ToActiveTrack projects a fix onto an active track entry
func (f Fix) ToActiveTrack() ActiveTrack {
	return ActiveTrack{
		TrackID:   f.TrackID,
		Lat:       f.Lat,
		Lng:       f.Lng,
		Speed:     f.Speed,
		Accuracy:  f.Accuracy,
		Timestamp: f.Timestamp,
	}
}
