package timeline

// Kind identifies a MIDI event. The set is closed: everything a song or a
// live device can hand us is one of these four.
type Kind int

const (
	KindNoteOn Kind = iota
	KindNoteOff
	KindControlChange
	KindMeta
)

func (k Kind) String() string {
	switch k {
	case KindNoteOn:
		return "note_on"
	case KindNoteOff:
		return "note_off"
	case KindControlChange:
		return "control_change"
	case KindMeta:
		return "meta"
	}
	return "unknown"
}

// IsNote reports whether the kind carries a note number.
func (k Kind) IsNote() bool {
	return k == KindNoteOn || k == KindNoteOff
}

// RawEvent is a single event as delivered by the file-parsing collaborator
// or a live device, before merging. Immutable once produced.
type RawEvent struct {
	Kind     Kind
	Channel  uint8
	Note     uint8
	Velocity uint8

	// Delta is the tick distance to the previous event on the same track.
	Delta int64

	// Tempo is microseconds per quarter note, set only on tempo meta events.
	Tempo int

	// Controller/Value are set for control change events (e.g. sustain, CC 64).
	Controller uint8
	Value      uint8
}

// Normalize rewrites a NoteOff as a NoteOn with velocity 0 so everything
// downstream handles a single note-event shape.
func (e RawEvent) Normalize() RawEvent {
	if e.Kind == KindNoteOff {
		e.Kind = KindNoteOn
		e.Velocity = 0
	}
	return e
}

// SustainController is the CC number for the sustain pedal.
const SustainController uint8 = 64
