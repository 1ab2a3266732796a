package timeline

import (
	"fmt"
	"sort"
)

// Entry is one merged event with its resolved position in ticks and seconds.
type Entry struct {
	Tick    int64
	Seconds float64
	Track   int
	Event   RawEvent
}

// Timeline is the ordered, merged event sequence of a song. Entries are
// sorted by tick; seconds are non-decreasing. It is immutable after Build,
// so any goroutine may read it.
type Timeline struct {
	Entries    []Entry
	Resolution int
	Tempo      TempoMap
}

// Build merges per-track event lists into one timeline.
//
// Note-offs are normalized to zero-velocity note-ons, per-track deltas become
// absolute ticks, tracks are stable-merged by tick, and each entry's seconds
// are accumulated segment-wise so tempo changes apply to everything after
// them. Tie-break at equal ticks: zero-velocity (off) note events sort
// before everything else, then source track order holds. Ranking all offs
// first keeps the comparator a total order and guarantees a key's release
// lands before its re-strike at the same tick.
// offRank orders note releases ahead of every other event at the same tick.
func offRank(e RawEvent) int {
	if e.Kind == KindNoteOn && e.Velocity == 0 {
		return 0
	}
	return 1
}

func Build(tracks [][]RawEvent, resolution int, initialTempo int) (*Timeline, error) {
	if resolution <= 0 {
		return nil, fmt.Errorf("resolution %d: %w", resolution, ErrMalformedTimeline)
	}

	var entries []Entry
	for trackIdx, track := range tracks {
		var tick int64
		for _, ev := range track {
			if ev.Delta < 0 {
				return nil, fmt.Errorf("track %d: negative delta %d: %w", trackIdx, ev.Delta, ErrMalformedTimeline)
			}
			tick += ev.Delta
			entries = append(entries, Entry{
				Tick:  tick,
				Track: trackIdx,
				Event: ev.Normalize(),
			})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Tick != b.Tick {
			return a.Tick < b.Tick
		}
		if ar, br := offRank(a.Event), offRank(b.Event); ar != br {
			return ar < br
		}
		return a.Track < b.Track
	})

	tempo := NewTempoMap(initialTempo)
	current := tempo.At(0)
	var seconds float64
	var prevTick int64
	for i := range entries {
		e := &entries[i]
		seconds += float64(e.Tick-prevTick) * float64(current) / (float64(resolution) * microsPerSecond)
		prevTick = e.Tick
		e.Seconds = seconds
		if e.Event.Kind == KindMeta && e.Event.Tempo > 0 {
			tempo = tempo.Add(e.Tick, e.Event.Tempo)
			current = e.Event.Tempo
		}
	}

	return &Timeline{Entries: entries, Resolution: resolution, Tempo: tempo}, nil
}

// Len returns the number of merged entries.
func (t *Timeline) Len() int {
	return len(t.Entries)
}

// Duration returns the seconds position of the last entry, 0 when empty.
func (t *Timeline) Duration() float64 {
	if len(t.Entries) == 0 {
		return 0
	}
	return t.Entries[len(t.Entries)-1].Seconds
}

// IndexAtPercent maps a 0-100 position to an entry index, clamped. Used for
// the practice start and end points.
func (t *Timeline) IndexAtPercent(pct float64) int {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return int(pct * float64(len(t.Entries)) / 100)
}
