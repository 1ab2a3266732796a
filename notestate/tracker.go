// Package notestate tracks which notes are currently sounding, per channel
// and hand, for prediction and for wrong-note comparison by the caller.
package notestate

import (
	"sort"
	"sync"

	"pianolight/timeline"
)

// Hand is the logical left/right grouping derived from a channel.
type Hand int

const (
	HandLeft Hand = iota
	HandRight
)

func (h Hand) String() string {
	if h == HandRight {
		return "right"
	}
	return "left"
}

// HandMapping derives a hand from a MIDI channel. The policy comes from
// configuration, not code: by convention channel 1 carries the right hand
// and everything else the left.
type HandMapping struct {
	RightChannel uint8
	LeftChannel  uint8
}

// Hand returns the hand for a channel.
func (m HandMapping) Hand(channel uint8) Hand {
	if channel == m.RightChannel {
		return HandRight
	}
	return HandLeft
}

// Source tells which queue an event came through.
type Source int

const (
	SourceFile Source = iota
	SourceLive
)

// Event is the normalized event model shared by both ingestion paths.
// Note-offs arrive as note-ons with velocity 0.
type Event struct {
	Source   Source
	Kind     timeline.Kind
	Channel  uint8
	Note     uint8
	Velocity uint8

	// Controller/Value for control change events.
	Controller uint8
	Value      uint8

	// Seconds is the event's position on the session clock: precomputed for
	// file events, stamped at arrival for live ones.
	Seconds float64
}

// Key identifies a sounding note.
type Key struct {
	Channel uint8
	Note    uint8
}

// Note is the tracked state of one sounding key.
type Note struct {
	Velocity  uint8
	OnSeconds float64
	Hand      Hand
	Source    Source
}

// Tracker holds the shared note state. Writes are serialized; reads copy a
// consistent snapshot and never observe a partially applied event.
type Tracker struct {
	mu      sync.RWMutex
	notes   map[Key]Note
	sustain map[uint8]bool
	hands   HandMapping
}

// NewTracker creates an empty tracker with the given hand policy.
func NewTracker(hands HandMapping) *Tracker {
	return &Tracker{
		notes:   make(map[Key]Note),
		sustain: make(map[uint8]bool),
		hands:   hands,
	}
}

// Apply folds one normalized event into the state. Velocity 0 releases the
// key; control change 64 toggles sustain for the channel.
func (t *Tracker) Apply(ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch ev.Kind {
	case timeline.KindNoteOn, timeline.KindNoteOff:
		key := Key{Channel: ev.Channel, Note: ev.Note}
		if ev.Velocity == 0 || ev.Kind == timeline.KindNoteOff {
			delete(t.notes, key)
			return
		}
		t.notes[key] = Note{
			Velocity:  ev.Velocity,
			OnSeconds: ev.Seconds,
			Hand:      t.hands.Hand(ev.Channel),
			Source:    ev.Source,
		}
	case timeline.KindControlChange:
		if ev.Controller == timeline.SustainController {
			t.sustain[ev.Channel] = ev.Value >= 64
		}
	}
}

// IsActive reports whether a key is currently sounding.
func (t *Tracker) IsActive(channel, note uint8) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.notes[Key{Channel: channel, Note: note}]
	return ok
}

// Sustain reports the sustain pedal state for a channel.
func (t *Tracker) Sustain(channel uint8) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sustain[channel]
}

// ActiveSet returns the sounding keys, sorted by channel then note.
func (t *Tracker) ActiveSet() []Key {
	t.mu.RLock()
	keys := make([]Key, 0, len(t.notes))
	for k := range t.notes {
		keys = append(keys, k)
	}
	t.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Channel != keys[j].Channel {
			return keys[i].Channel < keys[j].Channel
		}
		return keys[i].Note < keys[j].Note
	})
	return keys
}

// Snapshot returns a copy of the full note state.
func (t *Tracker) Snapshot() map[Key]Note {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[Key]Note, len(t.notes))
	for k, v := range t.notes {
		out[k] = v
	}
	return out
}

// LivePressed reports whether a note number is held by any live-sourced
// event on any channel. Live devices rarely share the file's channel
// numbering, so the comparison is by note alone.
func (t *Tracker) LivePressed(note uint8) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for k, v := range t.notes {
		if k.Note == note && v.Source == SourceLive {
			return true
		}
	}
	return false
}

// AllNotesOff clears every sounding note and sustain flag. Stop runs this so
// no key is left stuck on.
func (t *Tracker) AllNotesOff() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.notes)
	clear(t.sustain)
}
