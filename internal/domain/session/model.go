// internal/domain/session/model.go

package session

import (
	"context"
	"time"
)

// TrackedUser is one entry of a session watch-list
type TrackedUser struct {
	TrackID     string    `json:"trackId" validate:"required"`
	Color       string    `json:"color" validate:"required"`
	DisplayName string    `json:"displayName" validate:"required"`
	AddedAt     time.Time `json:"addedAt"`
}

// Session is a persisted watch-list keyed by session id
type Session struct {
	SessionID    string        `json:"sessionId"`
	TrackedUsers []TrackedUser `json:"trackedUsers"`
	LastUpdated  time.Time     `json:"lastUpdated"`
}

// Service manages session watch-lists
type Service interface {
	// Get returns the session, creating an empty one when absent
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Replace overwrites the whole watch-list of a session
	Replace(ctx context.Context, sessionID string, users []TrackedUser) (*Session, error)

	// Ping checks the backing store
	Ping(ctx context.Context) error
}
