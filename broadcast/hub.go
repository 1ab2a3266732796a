package broadcast

import (
	"sync"

	"pianolight/debug"
	"pianolight/frame"
)

// ActiveNote is a currently sounding note in a snapshot.
type ActiveNote struct {
	Channel uint8 `json:"channel"`
	Note    uint8 `json:"note"`
}

// PredictedNote is an upcoming note in a snapshot.
type PredictedNote struct {
	Channel      uint8   `json:"channel"`
	Note         uint8   `json:"note"`
	Velocity     uint8   `json:"velocity"`
	DelaySeconds float64 `json:"delaySeconds"`
}

// Snapshot is one published view of playback state. The keyboard
// layout inside Frame is only populated when it changed since the
// previous snapshot.
type Snapshot struct {
	CursorSeconds   float64         `json:"cursorSeconds"`
	CursorIndex     int             `json:"cursorIndex"`
	DurationSeconds float64         `json:"durationSeconds,omitempty"`
	State           string          `json:"state"`
	ActiveNotes     []ActiveNote    `json:"activeNotes"`
	PredictedNotes  []PredictedNote `json:"predictedNotes"`
	Frame           *frame.Frame    `json:"frame,omitempty"`
	DroppedEvents   int             `json:"droppedEvents,omitempty"`
}

// Hub fans snapshots out to subscribers. Publishing never blocks; a
// subscriber that falls behind loses snapshots, not ordering.
type Hub struct {
	mu      sync.RWMutex
	clients map[chan Snapshot]struct{}
	latest  Snapshot
	hasAny  bool

	// layout is the last keyboard layout seen in any snapshot, replayed to
	// late subscribers since the publisher only sends it once.
	layout []frame.Key
}

func NewHub() *Hub {
	return &Hub{clients: make(map[chan Snapshot]struct{})}
}

// Subscribe registers a new subscriber. The returned channel is
// buffered; call Unsubscribe when done.
func (h *Hub) Subscribe() chan Snapshot {
	ch := make(chan Snapshot, 4)

	h.mu.Lock()
	h.clients[ch] = struct{}{}
	if h.hasAny {
		snap := h.latest
		if h.layout != nil && (snap.Frame == nil || snap.Frame.Keyboard == nil) {
			var fr frame.Frame
			if snap.Frame != nil {
				fr = *snap.Frame
			}
			fr.Keyboard = h.layout
			snap.Frame = &fr
		}
		ch <- snap
	}
	h.mu.Unlock()

	return ch
}

func (h *Hub) Unsubscribe(ch chan Snapshot) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

// Publish sends a snapshot to every subscriber, dropping it for any
// subscriber whose buffer is full.
func (h *Hub) Publish(s Snapshot) {
	h.mu.Lock()
	h.latest = s
	h.hasAny = true
	if s.Frame != nil && s.Frame.Keyboard != nil {
		h.layout = s.Frame.Keyboard
	}
	for ch := range h.clients {
		select {
		case ch <- s:
		default:
			debug.LogEvery(100, "broadcast", "subscriber behind, snapshot dropped")
		}
	}
	h.mu.Unlock()
}

// Latest returns the most recently published snapshot.
func (h *Hub) Latest() (Snapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest, h.hasAny
}
