// internal/adapter/storage/memory_location_store.go

package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"livetrack/internal/domain/location"
)

// MemoryLocationStore keeps fixes in process memory. It honours the same
// ordering rules as LocationStore and is meant for local runs and tests.
type MemoryLocationStore struct {
	mu     sync.RWMutex
	fixes  []location.Fix
	nextID int64
}

// NewMemoryLocationStore creates an empty in-memory store
func NewMemoryLocationStore() *MemoryLocationStore {
	return &MemoryLocationStore{nextID: 1}
}

// Insert stores a fix and assigns it the next id
func (s *MemoryLocationStore) Insert(ctx context.Context, fix location.Fix) (location.Fix, error) {
	if err := ctx.Err(); err != nil {
		return location.Fix{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fix.ID = s.nextID
	s.nextID++
	s.fixes = append(s.fixes, fix)

	return fix, nil
}

// FindLatest returns the newest fix of a track or nil
func (s *MemoryLocationStore) FindLatest(ctx context.Context, trackID string) (*location.Fix, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *location.Fix
	for i := range s.fixes {
		f := s.fixes[i]
		if f.TrackID != trackID {
			continue
		}
		if latest == nil || newer(f, *latest) {
			latest = &f
		}
	}

	return latest, nil
}

// FindRange returns up to limit fixes at or after since, oldest first
func (s *MemoryLocationStore) FindRange(ctx context.Context, trackID string, since time.Time, limit int) ([]location.Fix, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	var out []location.Fix
	for _, f := range s.fixes {
		if f.TrackID == trackID && !f.Timestamp.Before(since) {
			out = append(out, f)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return newer(out[j], out[i]) })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

// FindActiveSince returns the newest fix of each track seen at or after cutoff
func (s *MemoryLocationStore) FindActiveSince(ctx context.Context, cutoff time.Time) ([]location.Fix, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := make(map[string]location.Fix)
	for _, f := range s.fixes {
		if f.Timestamp.Before(cutoff) {
			continue
		}
		if cur, ok := latest[f.TrackID]; !ok || newer(f, cur) {
			latest[f.TrackID] = f
		}
	}

	out := make([]location.Fix, 0, len(latest))
	for _, f := range latest {
		out = append(out, f)
	}

	return out, nil
}

// DeleteOlderThan removes fixes with a timestamp before cutoff
func (s *MemoryLocationStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.fixes[:0]
	var deleted int64
	for _, f := range s.fixes {
		if f.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, f)
	}
	s.fixes = kept

	return deleted, nil
}

// Ping always succeeds
func (s *MemoryLocationStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// newer orders fixes by timestamp, then insertion order
func newer(a, b location.Fix) bool {
	if a.Timestamp.Equal(b.Timestamp) {
		return a.ID > b.ID
	}
	return a.Timestamp.After(b.Timestamp)
}
