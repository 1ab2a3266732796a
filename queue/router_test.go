package queue

import (
	"testing"

	"pianolight/notestate"
	"pianolight/timeline"
)

func noteEvent(note uint8) notestate.Event {
	return notestate.Event{Kind: timeline.KindNoteOn, Channel: 0, Note: note, Velocity: 80}
}

func TestLiveOverflowDropsOldest(t *testing.T) {
	r := NewRouter(32, func() float64 { return 0 })
	for i := 0; i < 40; i++ {
		r.PushLive(noteEvent(uint8(i)))
	}

	var got []uint8
	dropped := r.Drain(func(ev notestate.Event) { got = append(got, ev.Note) })

	if dropped != 8 {
		t.Errorf("dropped = %d, want 8", dropped)
	}
	if len(got) != 32 {
		t.Fatalf("drained %d events, want 32", len(got))
	}
	// Oldest 8 (notes 0-7) gone, FIFO order preserved for the rest.
	for i, note := range got {
		if note != uint8(i+8) {
			t.Fatalf("event %d: note %d, want %d", i, note, i+8)
		}
	}
}

func TestDrainResetsOverflow(t *testing.T) {
	r := NewRouter(2, func() float64 { return 0 })
	for i := 0; i < 5; i++ {
		r.PushLive(noteEvent(uint8(i)))
	}
	if dropped := r.Drain(func(notestate.Event) {}); dropped != 3 {
		t.Errorf("first drain dropped = %d, want 3", dropped)
	}
	if dropped := r.Drain(func(notestate.Event) {}); dropped != 0 {
		t.Errorf("second drain dropped = %d, want 0", dropped)
	}
}

func TestDrainMergesByTimestamp(t *testing.T) {
	clock := 0.0
	r := NewRouter(8, func() float64 { return clock })

	fileEv := noteEvent(60)
	fileEv.Seconds = 1.0
	r.PushFile(fileEv)
	fileEv2 := noteEvent(62)
	fileEv2.Seconds = 3.0
	r.PushFile(fileEv2)

	clock = 2.0
	r.PushLive(noteEvent(70))

	var order []uint8
	r.Drain(func(ev notestate.Event) { order = append(order, ev.Note) })

	want := []uint8{60, 70, 62}
	if len(order) != len(want) {
		t.Fatalf("drained %d events, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %d, want %d", i, order[i], want[i])
		}
	}
}

func TestDrainStampsSource(t *testing.T) {
	r := NewRouter(8, func() float64 { return 0 })
	r.PushLive(noteEvent(70))
	r.PushFile(noteEvent(60))

	sources := map[uint8]notestate.Source{}
	r.Drain(func(ev notestate.Event) { sources[ev.Note] = ev.Source })

	if sources[70] != notestate.SourceLive {
		t.Error("live push lost its source tag")
	}
	if sources[60] != notestate.SourceFile {
		t.Error("file push lost its source tag")
	}
}

func TestPerQueueFIFOPreserved(t *testing.T) {
	r := NewRouter(8, func() float64 { return 5.0 })
	// All live events arrive at the same stamp; order must hold.
	for _, n := range []uint8{1, 2, 3} {
		r.PushLive(noteEvent(n))
	}
	var got []uint8
	r.Drain(func(ev notestate.Event) { got = append(got, ev.Note) })
	for i, n := range []uint8{1, 2, 3} {
		if got[i] != n {
			t.Fatalf("live FIFO broken: %v", got)
		}
	}
}
