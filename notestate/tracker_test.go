package notestate

import (
	"sync"
	"testing"

	"pianolight/timeline"
)

var hands = HandMapping{RightChannel: 1, LeftChannel: 2}

func TestNoteOnThenZeroVelocityOff(t *testing.T) {
	tr := NewTracker(hands)

	tr.Apply(Event{Kind: timeline.KindNoteOn, Channel: 1, Note: 60, Velocity: 80, Seconds: 0})
	if !tr.IsActive(1, 60) {
		t.Fatal("note 60 should be active after note on")
	}

	// Note off arrives normalized as a velocity-0 note on.
	tr.Apply(Event{Kind: timeline.KindNoteOn, Channel: 1, Note: 60, Velocity: 0, Seconds: 1.0})
	if tr.IsActive(1, 60) {
		t.Fatal("note 60 should be inactive after velocity-0 note on")
	}
}

func TestExplicitNoteOff(t *testing.T) {
	tr := NewTracker(hands)
	tr.Apply(Event{Kind: timeline.KindNoteOn, Channel: 2, Note: 40, Velocity: 70})
	tr.Apply(Event{Kind: timeline.KindNoteOff, Channel: 2, Note: 40, Velocity: 64})
	if tr.IsActive(2, 40) {
		t.Error("explicit note off must release the key like velocity 0 does")
	}
}

func TestHandDerivation(t *testing.T) {
	tr := NewTracker(hands)
	tr.Apply(Event{Kind: timeline.KindNoteOn, Channel: 1, Note: 60, Velocity: 80})
	tr.Apply(Event{Kind: timeline.KindNoteOn, Channel: 2, Note: 40, Velocity: 80})

	snap := tr.Snapshot()
	if got := snap[Key{1, 60}].Hand; got != HandRight {
		t.Errorf("channel 1 hand = %v, want right", got)
	}
	if got := snap[Key{2, 40}].Hand; got != HandLeft {
		t.Errorf("channel 2 hand = %v, want left", got)
	}
}

func TestActiveSetSorted(t *testing.T) {
	tr := NewTracker(hands)
	for _, n := range []uint8{64, 60, 67} {
		tr.Apply(Event{Kind: timeline.KindNoteOn, Channel: 1, Note: n, Velocity: 80})
	}
	tr.Apply(Event{Kind: timeline.KindNoteOn, Channel: 2, Note: 36, Velocity: 80})

	got := tr.ActiveSet()
	want := []Key{{1, 60}, {1, 64}, {1, 67}, {2, 36}}
	if len(got) != len(want) {
		t.Fatalf("ActiveSet len %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ActiveSet[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSustain(t *testing.T) {
	tr := NewTracker(hands)
	tr.Apply(Event{Kind: timeline.KindControlChange, Channel: 1, Controller: timeline.SustainController, Value: 127})
	if !tr.Sustain(1) {
		t.Error("sustain should be on after CC64 value 127")
	}
	tr.Apply(Event{Kind: timeline.KindControlChange, Channel: 1, Controller: timeline.SustainController, Value: 0})
	if tr.Sustain(1) {
		t.Error("sustain should be off after CC64 value 0")
	}
}

func TestLivePressedIgnoresChannel(t *testing.T) {
	tr := NewTracker(hands)
	tr.Apply(Event{Source: SourceFile, Kind: timeline.KindNoteOn, Channel: 1, Note: 60, Velocity: 80})
	if tr.LivePressed(60) {
		t.Error("file-sourced note must not count as live pressed")
	}
	tr.Apply(Event{Source: SourceLive, Kind: timeline.KindNoteOn, Channel: 0, Note: 60, Velocity: 90})
	if !tr.LivePressed(60) {
		t.Error("live note on channel 0 should count as pressed for note 60")
	}
}

func TestAllNotesOff(t *testing.T) {
	tr := NewTracker(hands)
	tr.Apply(Event{Kind: timeline.KindNoteOn, Channel: 1, Note: 60, Velocity: 80})
	tr.Apply(Event{Kind: timeline.KindControlChange, Channel: 1, Controller: timeline.SustainController, Value: 127})
	tr.AllNotesOff()
	if len(tr.ActiveSet()) != 0 {
		t.Error("ActiveSet should be empty after AllNotesOff")
	}
	if tr.Sustain(1) {
		t.Error("sustain should clear on AllNotesOff")
	}
}

func TestConcurrentReadsDuringWrites(t *testing.T) {
	tr := NewTracker(hands)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Apply(Event{Kind: timeline.KindNoteOn, Channel: 1, Note: uint8(i % 88), Velocity: 80})
			tr.Apply(Event{Kind: timeline.KindNoteOn, Channel: 1, Note: uint8(i % 88), Velocity: 0})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.ActiveSet()
			tr.IsActive(1, uint8(i%88))
		}
	}()
	wg.Wait()
}
