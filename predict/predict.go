// Package predict produces the next batch of upcoming notes relative to a
// playback cursor. All functions are pure: identical inputs give identical
// batches, which the renderer relies on for frame consistency.
package predict

import (
	"fmt"

	"pianolight/timeline"
)

// Epsilon absorbs float rounding from the tick-to-seconds conversion when
// deciding whether two notes are simultaneous.
const Epsilon = 0.001

// BaseWindowSeconds anchors the lookahead window before skill and
// difficulty scaling.
const BaseWindowSeconds = 2.0

// Note is one predicted upcoming note.
type Note struct {
	Index        int
	Channel      uint8
	Note         uint8
	Velocity     uint8
	Seconds      float64
	DelaySeconds float64
}

// Batch is an ordered group of notes that sound together (within Epsilon of
// the batch anchor). Recomputed every tick, never stored.
type Batch []Note

// ActiveFunc reports whether a (channel, note) pair is already sounding.
type ActiveFunc func(channel, note uint8) bool

// Predict scans the timeline from cursorIndex and collects the next group of
// simultaneous, not-yet-sounding note-ons.
//
// The first qualifying note anchors the batch; scanning stops at the first
// note event later than the anchor by more than Epsilon once the batch is
// non-empty, or once an entry falls outside the lookahead window from
// cursorSeconds. Chords therefore arrive as one batch rather than note by
// note.
func Predict(cursorIndex int, tl *timeline.Timeline, active ActiveFunc, cursorSeconds, windowSeconds float64) Batch {
	var batch Batch
	var anchor float64

	for i := cursorIndex; i < tl.Len(); i++ {
		e := tl.Entries[i]
		if e.Seconds-cursorSeconds > windowSeconds {
			break
		}
		if !e.Event.Kind.IsNote() {
			continue
		}
		if len(batch) > 0 && e.Seconds-anchor > Epsilon {
			break
		}
		if e.Event.Velocity == 0 {
			continue
		}
		if active != nil && active(e.Event.Channel, e.Event.Note) {
			continue
		}
		if len(batch) == 0 {
			anchor = e.Seconds
		}
		batch = append(batch, Note{
			Index:        i,
			Channel:      e.Event.Channel,
			Note:         e.Event.Note,
			Velocity:     e.Event.Velocity,
			Seconds:      e.Seconds,
			DelaySeconds: e.Seconds - cursorSeconds,
		})
	}
	return batch
}

// CalculateWindow sizes the lookahead window from the player's skill level
// and the song difficulty: base 2s × (1 + skill/10) × (1 + difficulty/5).
// There is no hard cap; callers clamp if their timeline is sparse.
func CalculateWindow(skillLevel, songDifficulty float64) (float64, error) {
	if skillLevel < 0 || songDifficulty < 0 {
		return 0, fmt.Errorf("lookahead skill %v, difficulty %v: %w",
			skillLevel, songDifficulty, timeline.ErrInvalidConfiguration)
	}
	return BaseWindowSeconds * (1 + skillLevel/10) * (1 + songDifficulty/5), nil
}
