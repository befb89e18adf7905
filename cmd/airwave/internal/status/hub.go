package status

import (
	"sync"
	"time"

	"thirdcoast.systems/airwave/internal/channel"
)

// Snapshot is the relay occupancy shown to status subscribers.
type Snapshot struct {
	Broadcasting  bool      `json:"broadcasting"`
	BroadcasterID string    `json:"broadcaster_id,omitempty"`
	Listeners     int       `json:"listeners"`
	Frames        uint64    `json:"frames"`
	Bytes         uint64    `json:"bytes"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FromStats converts registry stats into a snapshot stamped with now.
func FromStats(s channel.Stats, now time.Time) Snapshot {
	return Snapshot{
		Broadcasting:  s.HasProducer,
		BroadcasterID: s.ProducerID,
		Listeners:     s.Consumers,
		Frames:        s.Frames,
		Bytes:         s.Bytes,
		UpdatedAt:     now,
	}
}

// Hub pushes relay snapshots to status stream subscribers.
type Hub struct {
	mu sync.Mutex

	subs map[chan Snapshot]struct{}

	streams    int
	maxStreams int
}

// NewHub creates a status hub allowing up to maxStreams concurrent streams.
func NewHub(maxStreams int) *Hub {
	return &Hub{
		subs:       make(map[chan Snapshot]struct{}),
		maxStreams: maxStreams,
	}
}

// AcquireStream attempts to reserve a status stream slot.
func (h *Hub) AcquireStream() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.streams >= h.maxStreams {
		return false
	}
	h.streams++
	return true
}

// ReleaseStream frees a status stream slot.
func (h *Hub) ReleaseStream() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.streams > 0 {
		h.streams--
	}
}

// Subscribe returns a channel that receives published snapshots, and an unsubscribe function.
func (h *Hub) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
	}

	return ch, unsubscribe
}

// Publish notifies subscribers of s. A subscriber that has not
// consumed the previous snapshot gets it replaced, so readers always see
// the latest state.
func (h *Hub) Publish(s Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs {
		select {
		case sub <- s:
			continue
		default:
		}
		select {
		case <-sub:
		default:
		}
		select {
		case sub <- s:
		default:
			// Drop rather than block the webserver.
		}
	}
}
