// internal/service/session/service.go

package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"livetrack/internal/domain/apperr"
	"livetrack/internal/domain/session"
)

// Store defines the storage interface for session watch-lists
type Store interface {
	// Get returns the session or nil when absent
	Get(ctx context.Context, sessionID string) (*session.Session, error)

	// Create stores an empty session unless one exists, reporting whether
	// it did
	Create(ctx context.Context, sessionID string) (*session.Session, bool, error)

	// Upsert replaces the whole watch-list of a session
	Upsert(ctx context.Context, sessionID string, users []session.TrackedUser) (*session.Session, error)

	// Ping checks connectivity
	Ping(ctx context.Context) error
}

var errSessionVanished = errors.New("session expired while being created")

// Service implements the session.Service interface
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService creates a new session service
func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

// Get returns a session, creating and storing an empty one when absent
func (s *Service) Get(ctx context.Context, sessionID string) (*session.Session, error) {
	if sessionID == "" {
		return nil, &apperr.ValidationError{Field: "sessionId", Reason: "is required"}
	}

	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, &apperr.StorageError{Op: "get session", Err: err}
	}
	if sess != nil {
		return sess, nil
	}

	sess, created, err := s.store.Create(ctx, sessionID)
	if err != nil {
		return nil, &apperr.StorageError{Op: "create session", Err: err}
	}
	if created {
		s.logger.Debug("Created session", zap.String("session_id", sessionID))
		return sess, nil
	}

	// A concurrent writer stored the session between the read and the
	// create; return what it wrote.
	sess, err = s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, &apperr.StorageError{Op: "get session", Err: err}
	}
	if sess == nil {
		return nil, &apperr.StorageError{Op: "get session", Err: errSessionVanished}
	}

	return sess, nil
}

// Replace validates and stores a new watch-list, discarding the previous one
func (s *Service) Replace(ctx context.Context, sessionID string, users []session.TrackedUser) (*session.Session, error) {
	if sessionID == "" {
		return nil, &apperr.ValidationError{Field: "sessionId", Reason: "is required"}
	}

	for i, u := range users {
		if err := apperr.Validate(u); err != nil {
			if ve, ok := err.(*apperr.ValidationError); ok {
				ve.Field = fmt.Sprintf("trackedUsers[%d].%s", i, ve.Field)
			}
			return nil, err
		}
	}

	sess, err := s.store.Upsert(ctx, sessionID, users)
	if err != nil {
		return nil, &apperr.StorageError{Op: "upsert session", Err: err}
	}

	s.logger.Debug("Replaced session watch-list",
		zap.String("session_id", sessionID),
		zap.Int("tracked_users", len(sess.TrackedUsers)),
	)

	return sess, nil
}

// Ping checks the session store
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
