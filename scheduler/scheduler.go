// Package scheduler drives playback: a fixed-rate tick loop advances a
// drift-free cursor over the loaded timeline, feeds due file events and
// queued live events through the router into the tracker, and publishes a
// snapshot per tick.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"pianolight/broadcast"
	"pianolight/config"
	"pianolight/debug"
	"pianolight/frame"
	"pianolight/notestate"
	"pianolight/predict"
	"pianolight/queue"
	"pianolight/song"
	"pianolight/timeline"
)

// State is the playback state machine.
type State int

const (
	StateIdle State = iota
	StateLoading
	StatePlaying
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// tickInterval is the scheduler resolution. 16ms keeps the cursor well
// inside the prediction epsilon.
const tickInterval = 16 * time.Millisecond

// Tempo scale bounds, percent.
const (
	minTempoScale = 10
	maxTempoScale = 200
)

// session is one loaded song with its practice bounds resolved to indexes.
type session struct {
	song         *song.Song
	startIndex   int
	endIndex     int
	startSeconds float64
}

// Scheduler is the single writer of playback state. All mutation goes
// through its methods; the tick loop and callers share the one mutex.
type Scheduler struct {
	cfg     *config.Config
	tracker *notestate.Tracker
	router  *queue.Router
	hub     *broadcast.Hub
	layout  []frame.Key

	mu          sync.RWMutex
	state       State
	sess        *session
	cursorIndex int

	// Drift-free clock: song seconds are derived from the anchor pair, never
	// accumulated per tick. Rebased on tempo change, pause, and hold.
	anchorWall time.Time
	anchorSong float64
	tempoScale int

	holding    bool
	layoutSent bool

	now      func() time.Time
	stopChan chan struct{}
}

// New creates a scheduler. The router it owns stamps live events with the
// current cursor position.
func New(cfg *config.Config, tracker *notestate.Tracker, hub *broadcast.Hub) *Scheduler {
	s := &Scheduler{
		cfg:        cfg,
		tracker:    tracker,
		hub:        hub,
		layout:     frame.LayoutKeyboard(),
		state:      StateIdle,
		tempoScale: cfg.TempoScale,
		now:        time.Now,
	}
	s.router = queue.NewRouter(cfg.LiveQueueCapacity, s.CursorSeconds)
	return s
}

// Router exposes the event router so the MIDI input layer can push live
// events into it.
func (s *Scheduler) Router() *queue.Router {
	return s.router
}

// Start launches the tick loop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.stopChan != nil {
		s.mu.Unlock()
		return
	}
	s.stopChan = make(chan struct{})
	stop := s.stopChan
	s.mu.Unlock()

	go s.run(stop)
}

// Shutdown stops the tick loop and releases all notes.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	if s.stopChan != nil {
		close(s.stopChan)
		s.stopChan = nil
	}
	s.mu.Unlock()
	s.tracker.AllNotesOff()
}

func (s *Scheduler) run(stop chan struct{}) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.step(s.now())
		}
	}
}

// Load parses (or cache-loads) a song and resolves the practice bounds. A
// failed load leaves the previous session playable.
func (s *Scheduler) Load(path string) error {
	s.mu.Lock()
	prev := s.state
	s.state = StateLoading
	s.mu.Unlock()

	sng, err := song.Load(path)
	if err != nil {
		s.mu.Lock()
		s.state = prev
		s.mu.Unlock()
		return fmt.Errorf("loading song: %w", err)
	}

	tl := sng.Timeline
	sess := &session{
		song:       sng,
		startIndex: tl.IndexAtPercent(s.cfg.Practice.StartPercent),
		endIndex:   tl.Len(),
	}
	if s.cfg.Practice.EndPercent < 100 {
		sess.endIndex = tl.IndexAtPercent(s.cfg.Practice.EndPercent)
	}
	if sess.startIndex < tl.Len() {
		sess.startSeconds = tl.Entries[sess.startIndex].Seconds
	}

	s.mu.Lock()
	s.sess = sess
	s.cursorIndex = sess.startIndex
	s.anchorSong = sess.startSeconds
	s.anchorWall = s.now()
	s.holding = false
	s.state = StatePaused
	s.mu.Unlock()

	debug.Log("scheduler", "loaded %s: %d entries, window [%d, %d)",
		path, tl.Len(), sess.startIndex, sess.endIndex)
	return nil
}

// Play starts or resumes playback. From Stopped it rewinds to the start
// bound.
func (s *Scheduler) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess == nil {
		return
	}
	switch s.state {
	case StatePaused:
		s.anchorWall = s.now()
		s.state = StatePlaying
	case StateStopped:
		s.cursorIndex = s.sess.startIndex
		s.anchorSong = s.sess.startSeconds
		s.anchorWall = s.now()
		s.holding = false
		s.state = StatePlaying
	}
}

// Pause freezes the cursor in place.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePlaying {
		return
	}
	now := s.now()
	s.anchorSong = s.songSecondsLocked(now)
	s.anchorWall = now
	s.state = StatePaused
}

// TogglePlay flips between playing and paused.
func (s *Scheduler) TogglePlay() {
	s.mu.RLock()
	playing := s.state == StatePlaying
	s.mu.RUnlock()

	if playing {
		s.Pause()
	} else {
		s.Play()
	}
}

// Stop ends playback and releases every sounding note.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.sess == nil {
		s.mu.Unlock()
		return
	}
	s.state = StateStopped
	s.holding = false
	s.mu.Unlock()

	s.tracker.AllNotesOff()
	s.publish(s.snapshotNow())
}

// SetTempoScale changes the playback rate, clamped to the supported range.
// The clock is rebased first so the cursor position is unaffected.
func (s *Scheduler) SetTempoScale(pct int) {
	if pct < minTempoScale {
		pct = minTempoScale
	}
	if pct > maxTempoScale {
		pct = maxTempoScale
	}

	s.mu.Lock()
	now := s.now()
	s.anchorSong = s.songSecondsLocked(now)
	s.anchorWall = now
	s.tempoScale = pct
	s.mu.Unlock()

	debug.Log("scheduler", "tempo scale %d%%", pct)
}

// AdjustTempoScale nudges the rate by delta percentage points.
func (s *Scheduler) AdjustTempoScale(delta int) {
	s.mu.RLock()
	cur := s.tempoScale
	s.mu.RUnlock()
	s.SetTempoScale(cur + delta)
}

// TempoScale returns the current playback rate in percent.
func (s *Scheduler) TempoScale() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tempoScale
}

// State returns the current playback state.
func (s *Scheduler) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// CursorSeconds returns the cursor position in song seconds.
func (s *Scheduler) CursorSeconds() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.songSecondsLocked(s.now())
}

// songSecondsLocked derives song time from the anchor pair. Callers hold
// s.mu. While not playing the clock is pinned to the anchor.
func (s *Scheduler) songSecondsLocked(now time.Time) float64 {
	if s.state != StatePlaying || s.holding {
		return s.anchorSong
	}
	elapsed := now.Sub(s.anchorWall).Seconds()
	return s.anchorSong + elapsed*float64(s.tempoScale)/100
}

// step is one scheduler tick: advance the cursor, route events, predict,
// project, publish. A panic in one tick is logged and the loop continues.
func (s *Scheduler) step(now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			debug.Log("scheduler", "tick panic: %v", r)
		}
	}()

	tl, state, cursorIndex, songSec, ok := s.advance(now)
	if !ok {
		// Live input still flows so the tracker mirrors the keyboard.
		s.router.Drain(s.tracker.Apply)
		return
	}

	dropped := s.router.Drain(s.tracker.Apply)
	if dropped > 0 {
		debug.Log("scheduler", "live queue overflow: %d events dropped", dropped)
	}

	window := s.lookaheadWindow()
	batch := predict.Predict(cursorIndex, tl, s.tracker.IsActive, songSec, window)

	snap := s.buildSnapshot(tl, state, cursorIndex, songSec, window, batch, dropped)
	s.publish(snap)
}

// advance is the locked phase of a tick: move the cursor, push due file
// events, handle melody holds and the loop wrap. It returns a consistent
// view for the unlocked phase; ok is false when nothing is loaded.
func (s *Scheduler) advance(now time.Time) (tl *timeline.Timeline, state State, cursorIndex int, songSec float64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess == nil || s.state == StateLoading || s.state == StateIdle {
		return nil, s.state, 0, 0, false
	}

	songSec = s.songSecondsLocked(now)
	sess := s.sess
	tl = sess.song.Timeline
	melody := s.cfg.Practice.Mode == config.PracticeMelody

	if s.state == StatePlaying {
		for s.cursorIndex < sess.endIndex {
			e := tl.Entries[s.cursorIndex]
			if e.Seconds > songSec {
				break
			}
			if melody && e.Event.Kind == timeline.KindNoteOn && e.Event.Velocity > 0 {
				if !s.batchSatisfied(tl, s.cursorIndex, sess.endIndex) {
					// Pin the clock at the batch boundary until the learner
					// plays the notes.
					s.anchorSong = e.Seconds
					s.anchorWall = now
					s.holding = true
					songSec = e.Seconds
					break
				}
				if s.holding {
					s.holding = false
					s.anchorSong = e.Seconds
					s.anchorWall = now
				}
			}
			s.pushFileEvent(e)
			s.cursorIndex++
		}

		if s.cursorIndex >= sess.endIndex {
			if s.cfg.Practice.Loop {
				debug.Log("scheduler", "loop: rewinding to entry %d", sess.startIndex)
				s.tracker.AllNotesOff()
				s.cursorIndex = sess.startIndex
				s.anchorSong = sess.startSeconds
				s.anchorWall = now
				songSec = sess.startSeconds
			} else {
				s.state = StateStopped
				s.tracker.AllNotesOff()
			}
		}
	}

	return tl, s.state, s.cursorIndex, songSec, true
}

// batchSatisfied reports whether every note-on in the batch anchored at
// index i is currently held on the live device. Matching is by note number
// so the learner's channel does not matter.
func (s *Scheduler) batchSatisfied(tl *timeline.Timeline, i, end int) bool {
	anchor := tl.Entries[i].Seconds
	for j := i; j < end; j++ {
		e := tl.Entries[j]
		if e.Seconds-anchor > predict.Epsilon {
			break
		}
		if e.Event.Kind != timeline.KindNoteOn || e.Event.Velocity == 0 {
			continue
		}
		if !s.tracker.LivePressed(e.Event.Note) {
			return false
		}
	}
	return true
}

func (s *Scheduler) pushFileEvent(e timeline.Entry) {
	ev := notestate.Event{
		Kind:       e.Event.Kind,
		Channel:    e.Event.Channel,
		Note:       e.Event.Note,
		Velocity:   e.Event.Velocity,
		Controller: e.Event.Controller,
		Value:      e.Event.Value,
		Seconds:    e.Seconds,
	}
	s.router.PushFile(ev)
}

// lookaheadWindow scales the skill/difficulty window to the configured base
// and clamps it.
func (s *Scheduler) lookaheadWindow() float64 {
	lh := s.cfg.Lookahead
	w, err := predict.CalculateWindow(lh.SkillLevel, lh.SongDifficulty)
	if err != nil {
		return predict.BaseWindowSeconds
	}
	if lh.BaseSeconds > 0 {
		w *= lh.BaseSeconds / predict.BaseWindowSeconds
	}
	if lh.MaxSeconds > 0 && w > lh.MaxSeconds {
		w = lh.MaxSeconds
	}
	return w
}

func (s *Scheduler) buildSnapshot(tl *timeline.Timeline, state State, cursorIndex int, songSec, window float64, batch predict.Batch, dropped int) broadcast.Snapshot {
	snap := broadcast.Snapshot{
		CursorSeconds:   songSec,
		CursorIndex:     cursorIndex,
		DurationSeconds: tl.Duration(),
		State:           state.String(),
		DroppedEvents:   dropped,
	}

	for _, k := range s.tracker.ActiveSet() {
		snap.ActiveNotes = append(snap.ActiveNotes, broadcast.ActiveNote{
			Channel: k.Channel,
			Note:    k.Note,
		})
	}

	for _, n := range batch {
		snap.PredictedNotes = append(snap.PredictedNotes, broadcast.PredictedNote{
			Channel:      n.Channel,
			Note:         n.Note,
			Velocity:     n.Velocity,
			DelaySeconds: n.DelaySeconds,
		})
	}

	var spans []frame.NoteSpan
	for i := cursorIndex; i < tl.Len(); i++ {
		e := tl.Entries[i]
		if e.Seconds > songSec+window {
			break
		}
		if e.Event.Kind != timeline.KindNoteOn || e.Event.Velocity == 0 {
			continue
		}
		spans = append(spans, frame.NoteSpan{
			Note:         e.Event.Note,
			Channel:      e.Event.Channel,
			Velocity:     e.Event.Velocity,
			StartSeconds: e.Seconds,
		})
	}

	fr := frame.BuildFrame(spans, songSec, window, s.layout, s.cfg.FlyingNotes)

	s.mu.Lock()
	if !s.layoutSent {
		fr.Keyboard = s.layout
		s.layoutSent = true
	}
	s.mu.Unlock()

	snap.Frame = &fr
	return snap
}

// snapshotNow builds a minimal snapshot outside the tick loop (used after
// Stop so subscribers see the cleared state).
func (s *Scheduler) snapshotNow() broadcast.Snapshot {
	s.mu.RLock()
	snap := broadcast.Snapshot{
		CursorSeconds: s.anchorSong,
		CursorIndex:   s.cursorIndex,
		State:         s.state.String(),
	}
	s.mu.RUnlock()

	for _, k := range s.tracker.ActiveSet() {
		snap.ActiveNotes = append(snap.ActiveNotes, broadcast.ActiveNote{
			Channel: k.Channel,
			Note:    k.Note,
		})
	}
	return snap
}

func (s *Scheduler) publish(snap broadcast.Snapshot) {
	if s.hub != nil {
		s.hub.Publish(snap)
	}
}
