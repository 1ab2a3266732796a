// Package frame maps notes to renderable positions: flying-note geometry
// and the 88-key piano layout. Everything here is pure; an external
// renderer consumes the output.
package frame

// Standard 88-key range, A0 to C8.
const (
	FirstKey = 21
	LastKey  = 108
	KeyCount = LastKey - FirstKey + 1
)

const (
	WhiteKeyWidth = 20
	BlackKeyWidth = 12
)

// blackKeyOffset shifts each black key off the white-key boundary it sits
// between. The spacing within an octave is irregular, so this is a fixed
// per-pitch-class table rather than a formula.
var blackKeyOffset = map[int]int{
	1:  -6, // C#
	3:  6,  // D#
	6:  -8, // F#
	8:  0,  // G#
	10: 8,  // A#
}

// Key is one key of the keyboard layout.
type Key struct {
	MidiNote int  `json:"midi_note"`
	X        int  `json:"x_position"`
	Width    int  `json:"width"`
	Black    bool `json:"is_black"`
}

// IsBlack reports whether a MIDI note lands on a black key.
func IsBlack(note int) bool {
	_, ok := blackKeyOffset[note%12]
	return ok
}

// LayoutKeyboard returns the static 88-key layout: white keys tile at
// uniform width left to right, black keys sit at their table offset from
// the preceding boundary. Deterministic, so callers may compute it once.
func LayoutKeyboard() []Key {
	keys := make([]Key, 0, KeyCount)
	whiteCount := 0
	for note := FirstKey; note <= LastKey; note++ {
		if off, black := blackKeyOffset[note%12]; black {
			x := (whiteCount-1)*WhiteKeyWidth + WhiteKeyWidth/2 + off
			keys = append(keys, Key{MidiNote: note, X: x, Width: BlackKeyWidth, Black: true})
		} else {
			keys = append(keys, Key{MidiNote: note, X: whiteCount * WhiteKeyWidth, Width: WhiteKeyWidth})
			whiteCount++
		}
	}
	return keys
}
