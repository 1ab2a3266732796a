// Package queue routes events from the live device and the file timeline
// into the note tracker through one serialization point per scheduler tick.
package queue

import (
	"sync"

	"pianolight/notestate"
)

// DefaultLiveCapacity bounds the live ring when the config gives none.
const DefaultLiveCapacity = 128

// Router owns two FIFO queues: a bounded ring for live input and an
// unbounded slice for file playback. Live pushes never block the device
// callback; when the ring is full the oldest unprocessed events are dropped
// and counted.
type Router struct {
	mu sync.Mutex

	live     []notestate.Event
	liveHead int
	liveLen  int

	file []notestate.Event

	overflow int

	// now stamps live arrivals with session seconds.
	now func() float64
}

// NewRouter creates a router with the given live-queue capacity.
func NewRouter(liveCapacity int, now func() float64) *Router {
	if liveCapacity <= 0 {
		liveCapacity = DefaultLiveCapacity
	}
	if now == nil {
		now = func() float64 { return 0 }
	}
	return &Router{
		live: make([]notestate.Event, liveCapacity),
		now:  now,
	}
}

// PushLive enqueues a live event, stamping it at arrival. If the ring is
// full the oldest event is dropped and the overflow counter incremented.
func (r *Router) PushLive(ev notestate.Event) {
	ev.Source = notestate.SourceLive
	ev.Seconds = r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.liveLen == len(r.live) {
		r.liveHead = (r.liveHead + 1) % len(r.live)
		r.liveLen--
		r.overflow++
	}
	r.live[(r.liveHead+r.liveLen)%len(r.live)] = ev
	r.liveLen++
}

// PushFile enqueues a file event carrying its precomputed seconds.
func (r *Router) PushFile(ev notestate.Event) {
	ev.Source = notestate.SourceFile

	r.mu.Lock()
	defer r.mu.Unlock()
	r.file = append(r.file, ev)
}

// Drain dequeues everything currently queued on both sides, interleaves by
// timestamp while preserving each queue's FIFO order, and hands the result
// to apply. It returns the number of live events dropped since the previous
// drain. Called once per scheduler tick.
func (r *Router) Drain(apply func(notestate.Event)) (dropped int) {
	r.mu.Lock()
	live := make([]notestate.Event, 0, r.liveLen)
	for i := 0; i < r.liveLen; i++ {
		live = append(live, r.live[(r.liveHead+i)%len(r.live)])
	}
	r.liveHead = 0
	r.liveLen = 0

	file := r.file
	r.file = nil

	dropped = r.overflow
	r.overflow = 0
	r.mu.Unlock()

	i, j := 0, 0
	for i < len(file) && j < len(live) {
		if file[i].Seconds <= live[j].Seconds {
			apply(file[i])
			i++
		} else {
			apply(live[j])
			j++
		}
	}
	for ; i < len(file); i++ {
		apply(file[i])
	}
	for ; j < len(live); j++ {
		apply(live[j])
	}
	return dropped
}

// Pending returns the queued counts, for monitoring.
func (r *Router) Pending() (live, file int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.liveLen, len(r.file)
}
