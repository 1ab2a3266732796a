package timeline

import (
	"errors"
	"math"
	"testing"
)

func noteOn(delta int64, note, vel uint8) RawEvent {
	return RawEvent{Kind: KindNoteOn, Channel: 1, Note: note, Velocity: vel, Delta: delta}
}

func noteOff(delta int64, note uint8) RawEvent {
	return RawEvent{Kind: KindNoteOff, Channel: 1, Note: note, Velocity: 64, Delta: delta}
}

func tempoMeta(delta int64, micros int) RawEvent {
	return RawEvent{Kind: KindMeta, Delta: delta, Tempo: micros}
}

func TestTicksToSeconds(t *testing.T) {
	// 480 ticks/beat at 120 BPM: one beat is 500000µs, half a second.
	tm := NewTempoMap(500000)
	got, err := TicksToSeconds(480, 480, tm)
	if err != nil {
		t.Fatalf("TicksToSeconds: %v", err)
	}
	if math.Abs(got-0.5) > 1e-9 {
		t.Errorf("TicksToSeconds(480, 480, 120bpm) = %v, want 0.5", got)
	}
}

func TestTicksToSecondsAcrossTempoChange(t *testing.T) {
	// Two beats at 120 BPM, then the tempo halves its beat length.
	tm := TempoMap{{0, 500000}, {960, 250000}}

	got, err := TicksToSeconds(960, 480, tm)
	if err != nil {
		t.Fatalf("TicksToSeconds(960): %v", err)
	}
	if math.Abs(got-1.0) > 1e-9 {
		t.Errorf("TicksToSeconds at the change = %v, want 1.0", got)
	}

	got, err = TicksToSeconds(1440, 480, tm)
	if err != nil {
		t.Fatalf("TicksToSeconds(1440): %v", err)
	}
	if math.Abs(got-1.25) > 1e-9 {
		t.Errorf("one beat past the change = %v, want 1.25", got)
	}
}

func TestTicksToSecondsNonDecreasing(t *testing.T) {
	tm := TempoMap{{0, 500000}, {960, 250000}}
	prev := -1.0
	for tick := int64(0); tick <= 2000; tick += 10 {
		s, err := TicksToSeconds(tick, 480, tm)
		if err != nil {
			t.Fatalf("tick %d: %v", tick, err)
		}
		if s < 0 {
			t.Fatalf("tick %d: negative seconds %v", tick, s)
		}
		if s < prev {
			t.Fatalf("tick %d: seconds decreased %v -> %v", tick, prev, s)
		}
		prev = s
	}
}

func TestTicksToSecondsBadResolution(t *testing.T) {
	if _, err := TicksToSeconds(480, 0, NewTempoMap(0)); !errors.Is(err, ErrMalformedTimeline) {
		t.Errorf("resolution 0: got %v, want ErrMalformedTimeline", err)
	}
	if _, err := TicksToSeconds(480, -1, NewTempoMap(0)); !errors.Is(err, ErrMalformedTimeline) {
		t.Errorf("resolution -1: got %v, want ErrMalformedTimeline", err)
	}
}

func TestTickSecondsRoundTrip(t *testing.T) {
	maps := []TempoMap{
		NewTempoMap(600000),
		{{0, 500000}, {960, 250000}, {1920, 750000}},
	}
	for _, tm := range maps {
		for _, tick := range []int64{0, 1, 480, 961, 12345} {
			s, err := TicksToSeconds(tick, 384, tm)
			if err != nil {
				t.Fatalf("TicksToSeconds(%d): %v", tick, err)
			}
			back, err := SecondsToTicks(s, 384, tm)
			if err != nil {
				t.Fatalf("SecondsToTicks(%v): %v", s, err)
			}
			if back != tick {
				t.Errorf("round trip tick %d -> %v -> %d", tick, s, back)
			}
		}
	}
}

func TestApplyTempoScale(t *testing.T) {
	got, err := ApplyTempoScale(2.0, 50)
	if err != nil {
		t.Fatalf("ApplyTempoScale: %v", err)
	}
	if math.Abs(got-4.0) > 1e-9 {
		t.Errorf("ApplyTempoScale(2.0, 50) = %v, want 4.0", got)
	}

	if _, err := ApplyTempoScale(2.0, 0); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("scale 0: got %v, want ErrInvalidConfiguration", err)
	}
	if _, err := ApplyTempoScale(2.0, -10); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("scale -10: got %v, want ErrInvalidConfiguration", err)
	}
}

func TestTempoMapAt(t *testing.T) {
	tm := NewTempoMap(500000)
	tm = tm.Add(960, 250000)

	tests := []struct {
		tick int64
		want int
	}{
		{0, 500000},
		{959, 500000},
		{960, 250000},
		{5000, 250000},
	}
	for _, tt := range tests {
		if got := tm.At(tt.tick); got != tt.want {
			t.Errorf("At(%d) = %d, want %d", tt.tick, got, tt.want)
		}
	}
}

func TestBuildEmpty(t *testing.T) {
	tl, err := Build(nil, 480, 0)
	if err != nil {
		t.Fatalf("Build(nil): %v", err)
	}
	if tl.Len() != 0 {
		t.Errorf("empty build: len %d, want 0", tl.Len())
	}
	if tl.Duration() != 0 {
		t.Errorf("empty build: duration %v, want 0", tl.Duration())
	}
}

func TestBuildNegativeDelta(t *testing.T) {
	tracks := [][]RawEvent{{noteOn(0, 60, 80), {Kind: KindNoteOn, Note: 62, Velocity: 80, Delta: -5}}}
	if _, err := Build(tracks, 480, 0); !errors.Is(err, ErrMalformedTimeline) {
		t.Errorf("negative delta: got %v, want ErrMalformedTimeline", err)
	}
}

func TestBuildNormalizesNoteOff(t *testing.T) {
	tracks := [][]RawEvent{{noteOn(0, 60, 80), noteOff(480, 60)}}
	tl, err := Build(tracks, 480, 500000)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	off := tl.Entries[1].Event
	if off.Kind != KindNoteOn || off.Velocity != 0 {
		t.Errorf("note off not normalized: kind=%v vel=%d", off.Kind, off.Velocity)
	}
}

func TestBuildSecondsHonorTempoChanges(t *testing.T) {
	// One beat at 120 BPM (0.5s), tempo doubles its beat length, one more
	// beat at 60 BPM (1.0s).
	tracks := [][]RawEvent{{
		noteOn(0, 60, 80),
		tempoMeta(480, 1000000),
		noteOn(480, 62, 80),
	}}
	tl, err := Build(tracks, 480, 500000)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := tl.Entries[1].Seconds; math.Abs(got-0.5) > 1e-9 {
		t.Errorf("tempo change at %v, want 0.5", got)
	}
	if got := tl.Entries[2].Seconds; math.Abs(got-1.5) > 1e-9 {
		t.Errorf("second note at %v, want 1.5 (one beat at 60 BPM after change)", got)
	}
	if got := tl.Tempo.At(480); got != 1000000 {
		t.Errorf("tempo map not updated: At(480) = %d", got)
	}
}

func TestBuildSecondsMonotonic(t *testing.T) {
	tracks := [][]RawEvent{
		{noteOn(0, 60, 80), tempoMeta(100, 250000), noteOn(500, 64, 70), noteOff(200, 60)},
		{noteOn(250, 40, 90), noteOff(600, 40)},
	}
	tl, err := Build(tracks, 480, 500000)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for i := 1; i < tl.Len(); i++ {
		if tl.Entries[i].Seconds < tl.Entries[i-1].Seconds {
			t.Fatalf("entry %d: seconds decreased", i)
		}
		if tl.Entries[i].Tick < tl.Entries[i-1].Tick {
			t.Fatalf("entry %d: ticks decreased", i)
		}
	}
}

func TestBuildMergeOrderInvariant(t *testing.T) {
	trackA := []RawEvent{noteOn(0, 60, 80), noteOn(480, 62, 80)}
	trackB := []RawEvent{noteOn(0, 40, 90), noteOn(480, 43, 90)}

	ab, err := Build([][]RawEvent{trackA, trackB}, 480, 500000)
	if err != nil {
		t.Fatalf("Build(A,B): %v", err)
	}
	ba, err := Build([][]RawEvent{trackB, trackA}, 480, 500000)
	if err != nil {
		t.Fatalf("Build(B,A): %v", err)
	}

	if ab.Len() != ba.Len() {
		t.Fatalf("length mismatch %d vs %d", ab.Len(), ba.Len())
	}
	for i := range ab.Entries {
		if ab.Entries[i].Tick != ba.Entries[i].Tick {
			t.Errorf("entry %d: tick %d vs %d", i, ab.Entries[i].Tick, ba.Entries[i].Tick)
		}
	}
}

func TestBuildOffBeforeOnSameKeySameTick(t *testing.T) {
	// Track 0 strikes the key again at the exact tick track 1 releases it.
	trackA := []RawEvent{noteOn(480, 60, 90)}
	trackB := []RawEvent{noteOn(0, 60, 80), noteOff(480, 60)}

	tl, err := Build([][]RawEvent{trackA, trackB}, 480, 500000)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	var atTick []RawEvent
	for _, e := range tl.Entries {
		if e.Tick == 480 {
			atTick = append(atTick, e.Event)
		}
	}
	if len(atTick) != 2 {
		t.Fatalf("expected 2 events at tick 480, got %d", len(atTick))
	}
	if atTick[0].Velocity != 0 || atTick[1].Velocity == 0 {
		t.Errorf("off did not sort before on: velocities %d, %d", atTick[0].Velocity, atTick[1].Velocity)
	}
}

func TestBuildOffBeforeOnAcrossIntervening(t *testing.T) {
	// An unrelated note-on from an earlier track sits between the release
	// and the re-strike at the same tick; the release must still sort first.
	trackA := []RawEvent{noteOn(480, 60, 90), noteOn(0, 61, 90)}
	trackB := []RawEvent{noteOn(0, 60, 80), noteOff(480, 60)}

	tl, err := Build([][]RawEvent{trackA, trackB}, 480, 500000)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	offIdx, onIdx := -1, -1
	for i, e := range tl.Entries {
		if e.Tick != 480 || e.Event.Note != 60 {
			continue
		}
		if e.Event.Velocity == 0 {
			offIdx = i
		} else {
			onIdx = i
		}
	}
	if offIdx < 0 || onIdx < 0 {
		t.Fatalf("missing events at tick 480: off=%d on=%d", offIdx, onIdx)
	}
	if offIdx > onIdx {
		t.Errorf("off for note 60 at index %d sorted after on at index %d", offIdx, onIdx)
	}
}

func TestIndexAtPercent(t *testing.T) {
	tracks := [][]RawEvent{{noteOn(0, 60, 80), noteOn(10, 61, 80), noteOn(10, 62, 80), noteOn(10, 63, 80)}}
	tl, err := Build(tracks, 480, 500000)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := tl.IndexAtPercent(0); got != 0 {
		t.Errorf("IndexAtPercent(0) = %d", got)
	}
	if got := tl.IndexAtPercent(50); got != 2 {
		t.Errorf("IndexAtPercent(50) = %d, want 2", got)
	}
	if got := tl.IndexAtPercent(100); got != 4 {
		t.Errorf("IndexAtPercent(100) = %d, want 4", got)
	}
	if got := tl.IndexAtPercent(150); got != 4 {
		t.Errorf("IndexAtPercent(150) = %d, want 4 (clamped)", got)
	}
}
