package mididevice

import (
	"testing"

	gomidi "gitlab.com/gomidi/midi/v2"

	"pianolight/timeline"
)

func TestTranslateNoteOn(t *testing.T) {
	ev, ok := translate(gomidi.NoteOn(3, 60, 90))
	if !ok {
		t.Fatal("note-on not translated")
	}
	if ev.Kind != timeline.KindNoteOn || ev.Channel != 3 || ev.Note != 60 || ev.Velocity != 90 {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestTranslateNoteOffNormalized(t *testing.T) {
	ev, ok := translate(gomidi.NoteOff(0, 64))
	if !ok {
		t.Fatal("note-off not translated")
	}
	if ev.Kind != timeline.KindNoteOn {
		t.Errorf("kind = %v, want note_on", ev.Kind)
	}
	if ev.Velocity != 0 {
		t.Errorf("velocity = %d, want 0", ev.Velocity)
	}
}

func TestTranslateSustainPedal(t *testing.T) {
	ev, ok := translate(gomidi.ControlChange(0, 64, 127))
	if !ok {
		t.Fatal("control change not translated")
	}
	if ev.Kind != timeline.KindControlChange || ev.Controller != 64 || ev.Value != 127 {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestTranslateIgnoresOtherMessages(t *testing.T) {
	if _, ok := translate(gomidi.ProgramChange(0, 5)); ok {
		t.Error("program change should be ignored")
	}
}

func TestPortFilter(t *testing.T) {
	cases := []struct {
		filter string
		name   string
		want   bool
	}{
		{"", "Any Device MIDI 1", true},
		{"casio", "CASIO USB-MIDI", true},
		{"casio", "Launchpad Mini", false},
		{"usb", "CASIO USB-MIDI", true},
	}
	for _, c := range cases {
		dm := NewDeviceManager(nil, c.filter)
		if got := dm.matches(c.name); got != c.want {
			t.Errorf("matches(%q) with filter %q = %v, want %v", c.name, c.filter, got, c.want)
		}
	}
}
