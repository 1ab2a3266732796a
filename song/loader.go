package song

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2/smf"

	"pianolight/debug"
	"pianolight/timeline"
)

// Song is a parsed MIDI file ready for playback.
type Song struct {
	Path     string
	Timeline *timeline.Timeline
}

// Load parses a standard MIDI file into a Timeline, consulting the
// on-disk cache first. A cache miss falls back to parsing and stores
// the result best-effort.
func Load(path string) (*Song, error) {
	if tl, ok := cacheLoad(path); ok {
		debug.Log("song", "cache hit: %s", path)
		return &Song{Path: path, Timeline: tl}, nil
	}

	tl, err := Parse(path)
	if err != nil {
		return nil, err
	}

	if err := cacheStore(path, tl); err != nil {
		debug.Log("song", "cache store failed: %v", err)
	}

	return &Song{Path: path, Timeline: tl}, nil
}

// Parse reads and merges all tracks of a MIDI file into a Timeline,
// bypassing the cache.
func Parse(path string) (*timeline.Timeline, error) {
	rd, err := smf.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	ticks, ok := rd.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, fmt.Errorf("%s: SMPTE time format: %w", path, timeline.ErrMalformedTimeline)
	}
	resolution := int(ticks.Resolution())

	initialTempo := timeline.DefaultTempo
	tracks := make([][]timeline.RawEvent, 0, len(rd.Tracks))

	for trackIdx, track := range rd.Tracks {
		events := make([]timeline.RawEvent, 0, len(track))

		for _, ev := range track {
			raw, keep := convertMessage(ev.Message, trackIdx, len(rd.Tracks))
			raw.Delta = int64(ev.Delta)
			if !keep {
				// Deltas of skipped events still advance the clock.
				if raw.Delta > 0 {
					events = append(events, timeline.RawEvent{Kind: timeline.KindMeta, Delta: raw.Delta})
				}
				continue
			}
			if raw.Kind == timeline.KindMeta && raw.Tempo > 0 && trackIdx == 0 && len(events) == 0 {
				initialTempo = raw.Tempo
			}
			events = append(events, raw)
		}

		tracks = append(tracks, events)
	}

	tl, err := timeline.Build(tracks, resolution, initialTempo)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	debug.Log("song", "parsed %s: %d events, %d tracks, resolution %d",
		path, tl.Len(), len(rd.Tracks), resolution)
	return tl, nil
}

// convertMessage maps an SMF message to a RawEvent. For two-track
// files the track index maps to channel 1 (right hand) and channel 2
// (left hand), mirroring how split piano arrangements are authored.
func convertMessage(msg smf.Message, trackIdx, trackCount int) (timeline.RawEvent, bool) {
	var (
		ch, key, vel uint8
		cc, val      uint8
		bpm          float64
	)

	channel := func(ch uint8) uint8 {
		if trackCount == 2 {
			return uint8(trackIdx + 1)
		}
		return ch
	}

	switch {
	case msg.GetNoteOn(&ch, &key, &vel):
		return timeline.RawEvent{
			Kind:     timeline.KindNoteOn,
			Channel:  channel(ch),
			Note:     key,
			Velocity: vel,
		}, true
	case msg.GetNoteOff(&ch, &key, &vel):
		return timeline.RawEvent{
			Kind:    timeline.KindNoteOff,
			Channel: channel(ch),
			Note:    key,
		}, true
	case msg.GetControlChange(&ch, &cc, &val):
		return timeline.RawEvent{
			Kind:       timeline.KindControlChange,
			Channel:    channel(ch),
			Controller: cc,
			Value:      val,
		}, true
	case msg.GetMetaTempo(&bpm):
		if bpm <= 0 {
			return timeline.RawEvent{}, false
		}
		return timeline.RawEvent{
			Kind:  timeline.KindMeta,
			Tempo: int(60000000 / bpm),
		}, true
	}

	return timeline.RawEvent{}, false
}
