// internal/adapter/storage/location_store.go

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"livetrack/internal/domain/location"
)

const locationSchema = `
	CREATE TABLE IF NOT EXISTS location_fixes (
		id         BIGSERIAL PRIMARY KEY,
		track_id   TEXT             NOT NULL,
		lat        DOUBLE PRECISION NOT NULL,
		lng        DOUBLE PRECISION NOT NULL,
		speed      DOUBLE PRECISION NOT NULL DEFAULT 0,
		accuracy   DOUBLE PRECISION NOT NULL DEFAULT 0,
		heading    DOUBLE PRECISION,
		is_active  BOOLEAN          NOT NULL DEFAULT TRUE,
		timestamp  TIMESTAMPTZ      NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS idx_location_fixes_track_time
		ON location_fixes (track_id, timestamp DESC, id DESC);
	CREATE INDEX IF NOT EXISTS idx_location_fixes_time
		ON location_fixes (timestamp);
`

const fixColumns = `id, track_id, lat, lng, speed, accuracy, heading, is_active, timestamp`

// LocationStore implements storage for location fixes on Postgres
type LocationStore struct {
	db *pgxpool.Pool
}

// NewLocationStore creates a new location store
func NewLocationStore(db *pgxpool.Pool) *LocationStore {
	return &LocationStore{
		db: db,
	}
}

// Migrate creates the fixes table and its indexes if they do not exist
func (s *LocationStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, locationSchema); err != nil {
		return fmt.Errorf("error creating location schema: %w", err)
	}
	return nil
}

// Insert saves a fix and returns it with its id
func (s *LocationStore) Insert(ctx context.Context, fix location.Fix) (location.Fix, error) {
	query := `
		INSERT INTO location_fixes (
			track_id, lat, lng, speed, accuracy, heading, is_active, timestamp
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
		RETURNING id
	`

	err := s.db.QueryRow(
		ctx,
		query,
		fix.TrackID,
		fix.Lat,
		fix.Lng,
		fix.Speed,
		fix.Accuracy,
		fix.Heading,
		fix.IsActive,
		fix.Timestamp,
	).Scan(&fix.ID)
	if err != nil {
		return location.Fix{}, fmt.Errorf("error inserting fix: %w", err)
	}

	return fix, nil
}

// FindLatest retrieves the most recent fix of a track
func (s *LocationStore) FindLatest(ctx context.Context, trackID string) (*location.Fix, error) {
	query := `
		SELECT ` + fixColumns + `
		FROM location_fixes
		WHERE track_id = $1
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`

	fix, err := scanFix(s.db.QueryRow(ctx, query, trackID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying latest fix: %w", err)
	}

	return &fix, nil
}

// FindRange returns up to limit fixes of a track at or after since, oldest first
func (s *LocationStore) FindRange(ctx context.Context, trackID string, since time.Time, limit int) ([]location.Fix, error) {
	query := `
		SELECT ` + fixColumns + `
		FROM location_fixes
		WHERE track_id = $1 AND timestamp >= $2
		ORDER BY timestamp ASC, id ASC
		LIMIT $3
	`

	rows, err := s.db.Query(ctx, query, trackID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}

	return collectFixes(rows)
}

// FindActiveSince returns the most recent fix of every track reported at or
// after cutoff
func (s *LocationStore) FindActiveSince(ctx context.Context, cutoff time.Time) ([]location.Fix, error) {
	query := `
		SELECT DISTINCT ON (track_id) ` + fixColumns + `
		FROM location_fixes
		WHERE timestamp >= $1
		ORDER BY track_id, timestamp DESC, id DESC
	`

	rows, err := s.db.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}

	return collectFixes(rows)
}

// DeleteOlderThan removes fixes with a timestamp before cutoff
func (s *LocationStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM location_fixes WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("error deleting fixes: %w", err)
	}

	return tag.RowsAffected(), nil
}

// Ping checks the database connection
func (s *LocationStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func scanFix(row pgx.Row) (location.Fix, error) {
	var f location.Fix
	err := row.Scan(
		&f.ID,
		&f.TrackID,
		&f.Lat,
		&f.Lng,
		&f.Speed,
		&f.Accuracy,
		&f.Heading,
		&f.IsActive,
		&f.Timestamp,
	)
	return f, err
}

func collectFixes(rows pgx.Rows) ([]location.Fix, error) {
	defer rows.Close()

	var fixes []location.Fix
	for rows.Next() {
		f, err := scanFix(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning fix: %w", err)
		}
		fixes = append(fixes, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fixes: %w", err)
	}

	return fixes, nil
}
