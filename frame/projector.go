package frame

// Settings controls flying-note geometry. Values mirror the configurable
// animation block: canvas height, keyboard band, note height and the fall
// distance notes travel before landing on a key.
type Settings struct {
	CanvasHeight   int     `json:"canvas_height"`
	KeyboardHeight int     `json:"keyboard_height"`
	NoteHeight     int     `json:"note_height"`
	FallDistance   int     `json:"fall_distance"`
	Speed          float64 `json:"speed"`
}

// DefaultSettings matches the stock animation geometry.
func DefaultSettings() Settings {
	return Settings{
		CanvasHeight:   600,
		KeyboardHeight: 80,
		NoteHeight:     20,
		FallDistance:   520,
		Speed:          1.0,
	}
}

// NoteSpan is a note-on scheduled at a point in song time, as handed over
// by the scheduler.
type NoteSpan struct {
	Note         uint8
	Channel      uint8
	Velocity     uint8
	StartSeconds float64
}

// VisibleNote is a note positioned on the canvas for the current frame.
type VisibleNote struct {
	MidiNote int     `json:"midi_note"`
	Channel  uint8   `json:"channel"`
	Velocity uint8   `json:"velocity"`
	X        int     `json:"x_position"`
	Y        float64 `json:"y_position"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Black    bool    `json:"is_black_key"`
}

// Frame is the per-tick renderable output. Keyboard is populated only when
// the layout changed since the last published frame (in practice: once).
type Frame struct {
	VisibleNotes []VisibleNote `json:"visibleNotes"`
	Keyboard     []Key         `json:"keyboardLayout,omitempty"`
}

// ProjectNotePosition maps a note's start time to a canvas position.
// Progress runs 0 (just entered the window) to 1 (landing now); the
// returned position is extent × progress. Visible only while 0 ≤ p ≤ 1.
func ProjectNotePosition(noteStartSeconds, cursorSeconds, lookaheadSeconds, canvasExtent float64) (position float64, visible bool) {
	if lookaheadSeconds <= 0 {
		return 0, false
	}
	progress := 1 - (noteStartSeconds-cursorSeconds)/lookaheadSeconds
	if progress < 0 || progress > 1 {
		return 0, false
	}
	return canvasExtent * progress, true
}

// BuildFrame projects the upcoming spans onto the canvas. The fall extent is
// the canvas minus the keyboard band, so a note at progress 1 sits exactly on
// its key.
func BuildFrame(spans []NoteSpan, cursorSeconds, lookaheadSeconds float64, layout []Key, s Settings) Frame {
	extent := float64(s.CanvasHeight - s.KeyboardHeight)

	byNote := make(map[int]Key, len(layout))
	for _, k := range layout {
		byNote[k.MidiNote] = k
	}

	var visible []VisibleNote
	for _, span := range spans {
		y, ok := ProjectNotePosition(span.StartSeconds, cursorSeconds, lookaheadSeconds, extent)
		if !ok {
			continue
		}
		key, ok := byNote[int(span.Note)]
		if !ok {
			continue // outside the 88-key range
		}
		visible = append(visible, VisibleNote{
			MidiNote: int(span.Note),
			Channel:  span.Channel,
			Velocity: span.Velocity,
			X:        key.X,
			Y:        y,
			Width:    key.Width,
			Height:   s.NoteHeight,
			Black:    key.Black,
		})
	}
	return Frame{VisibleNotes: visible}
}
