package tracking

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSubscriber records payloads and can simulate a full buffer
type fakeSubscriber struct {
	id       string
	mu       sync.Mutex
	received [][]byte
	full     bool
}

func newFakeSubscriber(id string) *fakeSubscriber {
	return &fakeSubscriber{id: id}
}

func (f *fakeSubscriber) ID() string { return f.id }

func (f *fakeSubscriber) Send(payload []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.full {
		return false
	}
	f.received = append(f.received, payload)
	return true
}

func (f *fakeSubscriber) messages() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([][]byte, len(f.received))
	copy(out, f.received)
	return out
}

func TestRegistry_SubscribeIsIdempotent(t *testing.T) {
	r := NewRegistry()
	a := newFakeSubscriber("a")

	r.Subscribe(a, "bus1")
	r.Subscribe(a, "bus1")

	assert.Len(t, r.SubscribersOf("bus1"), 1)
	assert.Equal(t, 1, r.ActiveTrackCount())
}

func TestRegistry_SubscribeThenUnsubscribePrunesTrack(t *testing.T) {
	r := NewRegistry()
	a := newFakeSubscriber("a")

	r.Subscribe(a, "bus1")
	r.Unsubscribe(a, "bus1")

	assert.Empty(t, r.SubscribersOf("bus1"))
	assert.Equal(t, 0, r.ActiveTrackCount())
	assert.Equal(t, 0, r.ConnectionCount())
	_, present := r.tracks["bus1"]
	assert.False(t, present)
}

func TestRegistry_UnsubscribeUnknownIsNoop(t *testing.T) {
	r := NewRegistry()
	a := newFakeSubscriber("a")
	b := newFakeSubscriber("b")
	r.Subscribe(b, "bus1")

	r.Unsubscribe(a, "bus1")
	r.Unsubscribe(a, "never")

	assert.Len(t, r.SubscribersOf("bus1"), 1)
	assert.Equal(t, 1, r.ActiveTrackCount())
}

func TestRegistry_DisconnectRemovesFromAllTracks(t *testing.T) {
	r := NewRegistry()
	a := newFakeSubscriber("a")
	b := newFakeSubscriber("b")

	for i := 0; i < 5; i++ {
		r.Subscribe(a, fmt.Sprintf("track-%d", i))
	}
	r.Subscribe(b, "track-0")
	require.Equal(t, 5, r.ActiveTrackCount())
	require.ElementsMatch(t, []string{"track-0", "track-1", "track-2", "track-3", "track-4"}, r.TracksOf(a))

	r.Disconnect(a)

	assert.Equal(t, 1, r.ActiveTrackCount())
	assert.Len(t, r.SubscribersOf("track-0"), 1)
	assert.Equal(t, "b", r.SubscribersOf("track-0")[0].ID())
	assert.Empty(t, r.TracksOf(a))
	for trackID, subs := range r.tracks {
		assert.NotEmpty(t, subs, "track %s left with empty set", trackID)
	}
}

func TestRegistry_SubscribersOfIsSnapshot(t *testing.T) {
	r := NewRegistry()
	a := newFakeSubscriber("a")
	r.Subscribe(a, "bus1")

	snapshot := r.SubscribersOf("bus1")
	r.Disconnect(a)

	assert.Len(t, snapshot, 1)
	assert.Empty(t, r.SubscribersOf("bus1"))
}

func TestRegistry_ConcurrentLifecycle(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sub := newFakeSubscriber(fmt.Sprintf("conn-%d", i))
			for j := 0; j < 20; j++ {
				trackID := fmt.Sprintf("track-%d", j%7)
				r.Subscribe(sub, trackID)
				_ = r.SubscribersOf(trackID)
				if j%3 == 0 {
					r.Unsubscribe(sub, trackID)
				}
			}
			r.Disconnect(sub)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, r.ActiveTrackCount())
	assert.Equal(t, 0, r.ConnectionCount())
}
