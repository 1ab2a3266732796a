package timeline

import "fmt"

// DefaultTempo is the MIDI default of 120 BPM, in microseconds per quarter
// note, used when a file carries no tempo meta event.
const DefaultTempo = 500000

const microsPerSecond = 1e6

// TempoEvent marks a tempo change taking effect at a tick position.
type TempoEvent struct {
	Tick          int64
	MicrosPerBeat int
}

// TempoMap is the ordered set of tempo changes over a timeline. It is
// monotonically non-decreasing in tick and always covers tick 0.
type TempoMap []TempoEvent

// NewTempoMap returns a map with a single tempo from tick 0. A non-positive
// tempo falls back to DefaultTempo.
func NewTempoMap(initial int) TempoMap {
	if initial <= 0 {
		initial = DefaultTempo
	}
	return TempoMap{{Tick: 0, MicrosPerBeat: initial}}
}

// Add appends a tempo change. Changes arriving at or before the current last
// entry's tick replace it rather than breaking monotonicity.
func (m TempoMap) Add(tick int64, microsPerBeat int) TempoMap {
	if microsPerBeat <= 0 {
		return m
	}
	if n := len(m); n > 0 && m[n-1].Tick >= tick {
		m[n-1] = TempoEvent{Tick: m[n-1].Tick, MicrosPerBeat: microsPerBeat}
		return m
	}
	return append(m, TempoEvent{Tick: tick, MicrosPerBeat: microsPerBeat})
}

// At returns the tempo in effect at tick: the last change at or before it.
func (m TempoMap) At(tick int64) int {
	tempo := DefaultTempo
	for _, ev := range m {
		if ev.Tick > tick {
			break
		}
		tempo = ev.MicrosPerBeat
	}
	return tempo
}

// TicksToSeconds converts a tick count to seconds, accumulating each
// tempo-map segment at its own rate. Segment accumulation keeps the result
// non-decreasing in tick even when a later tempo is faster.
func TicksToSeconds(tick int64, resolution int, tempo TempoMap) (float64, error) {
	if resolution <= 0 {
		return 0, fmt.Errorf("resolution %d: %w", resolution, ErrMalformedTimeline)
	}

	var micros float64
	prevTick := int64(0)
	cur := DefaultTempo
	for _, ev := range tempo {
		if ev.Tick >= tick {
			break
		}
		if ev.Tick > prevTick {
			micros += float64(ev.Tick-prevTick) * float64(cur)
			prevTick = ev.Tick
		}
		cur = ev.MicrosPerBeat
	}
	micros += float64(tick-prevTick) * float64(cur)

	return micros / (float64(resolution) * microsPerSecond), nil
}

// SecondsToTicks is the inverse of TicksToSeconds, walking the same
// segments and rounding to the nearest tick.
func SecondsToTicks(seconds float64, resolution int, tempo TempoMap) (int64, error) {
	if resolution <= 0 {
		return 0, fmt.Errorf("resolution %d: %w", resolution, ErrMalformedTimeline)
	}

	// Work in tick-weighted microseconds, the unit TicksToSeconds sums in.
	remaining := seconds * float64(resolution) * microsPerSecond
	prevTick := int64(0)
	cur := DefaultTempo
	for _, ev := range tempo {
		if ev.Tick <= prevTick {
			cur = ev.MicrosPerBeat
			continue
		}
		span := float64(ev.Tick-prevTick) * float64(cur)
		if remaining < span {
			break
		}
		remaining -= span
		prevTick = ev.Tick
		cur = ev.MicrosPerBeat
	}

	return prevTick + int64(remaining/float64(cur)+0.5), nil
}

// ApplyTempoScale stretches a duration by the user tempo scale: 50 percent
// plays at half speed, so a 2s gap becomes 4s.
func ApplyTempoScale(seconds float64, scalePercent int) (float64, error) {
	if scalePercent <= 0 {
		return 0, fmt.Errorf("tempo scale %d%%: %w", scalePercent, ErrInvalidConfiguration)
	}
	return seconds * 100 / float64(scalePercent), nil
}
