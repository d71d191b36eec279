// internal/service/tracking/registry.go

package tracking

import (
	"sync"
)

// Subscriber is a live connection that can receive pushed updates
type Subscriber interface {
	// ID returns the unique connection id
	ID() string

	// Send offers a payload without blocking; false means it was dropped
	Send(payload []byte) bool
}

// Registry maps track ids to their currently connected subscribers.
// A track id is present only while at least one connection is subscribed.
type Registry struct {
	mu     sync.RWMutex
	tracks map[string]map[string]Subscriber // trackID -> connID -> subscriber
	conns  map[string]map[string]struct{}   // connID -> trackIDs
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		tracks: make(map[string]map[string]Subscriber),
		conns:  make(map[string]map[string]struct{}),
	}
}

// Subscribe adds sub to the subscribers of trackID
func (r *Registry) Subscribe(sub Subscriber, trackID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs, ok := r.tracks[trackID]
	if !ok {
		subs = make(map[string]Subscriber)
		r.tracks[trackID] = subs
	}
	subs[sub.ID()] = sub

	owned, ok := r.conns[sub.ID()]
	if !ok {
		owned = make(map[string]struct{})
		r.conns[sub.ID()] = owned
	}
	owned[trackID] = struct{}{}
}

// Unsubscribe removes sub from trackID. It is a no-op when not subscribed.
func (r *Registry) Unsubscribe(sub Subscriber, trackID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeLocked(sub.ID(), trackID)

	if owned, ok := r.conns[sub.ID()]; ok && len(owned) == 0 {
		delete(r.conns, sub.ID())
	}
}

// Disconnect removes sub from every track it is subscribed to
func (r *Registry) Disconnect(sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for trackID := range r.conns[sub.ID()] {
		r.removeLocked(sub.ID(), trackID)
	}
	delete(r.conns, sub.ID())
}

// removeLocked drops one (conn, track) pair and prunes empty sets
func (r *Registry) removeLocked(connID, trackID string) {
	if subs, ok := r.tracks[trackID]; ok {
		delete(subs, connID)
		if len(subs) == 0 {
			delete(r.tracks, trackID)
		}
	}

	if owned, ok := r.conns[connID]; ok {
		delete(owned, trackID)
	}
}

// SubscribersOf returns a snapshot of the subscribers of trackID
func (r *Registry) SubscribersOf(trackID string) []Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := r.tracks[trackID]
	if len(subs) == 0 {
		return nil
	}

	snapshot := make([]Subscriber, 0, len(subs))
	for _, sub := range subs {
		snapshot = append(snapshot, sub)
	}
	return snapshot
}

// TracksOf returns the track ids a connection is subscribed to
func (r *Registry) TracksOf(sub Subscriber) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	owned := r.conns[sub.ID()]
	trackIDs := make([]string, 0, len(owned))
	for trackID := range owned {
		trackIDs = append(trackIDs, trackID)
	}
	return trackIDs
}

// ActiveTrackCount returns the number of tracks with at least one subscriber
func (r *Registry) ActiveTrackCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.tracks)
}

// ConnectionCount returns the number of connections holding a subscription
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}
