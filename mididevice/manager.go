// Package mididevice connects the live MIDI keyboard to the event router,
// with hot-plug detection so the learner can plug in mid-session.
package mididevice

import (
	"context"
	"strings"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver

	"pianolight/debug"
	"pianolight/notestate"
	"pianolight/queue"
	"pianolight/timeline"
)

// DeviceEvent is emitted when the keyboard connects or disconnects.
type DeviceEvent struct {
	Type DeviceEventType
	ID   string
}

type DeviceEventType int

const (
	DeviceConnected DeviceEventType = iota
	DeviceDisconnected
)

// keyboard is one open input port feeding the router.
type keyboard struct {
	id       string
	stopFunc func()
}

// DeviceManager polls for MIDI input ports and routes their events into the
// live queue. Playback is unaffected by disconnects; the session simply runs
// file-only until the device returns.
type DeviceManager struct {
	router     *queue.Router
	portFilter string

	mu        sync.RWMutex
	keyboards map[string]*keyboard

	events   chan DeviceEvent
	pollRate time.Duration
}

// NewDeviceManager creates a manager pushing into router. portFilter is a
// case-insensitive substring match on port names; empty accepts any port.
func NewDeviceManager(router *queue.Router, portFilter string) *DeviceManager {
	return &DeviceManager{
		router:     router,
		portFilter: portFilter,
		keyboards:  make(map[string]*keyboard),
		events:     make(chan DeviceEvent, 16),
		pollRate:   time.Second,
	}
}

// Events returns a channel of connect/disconnect events.
func (dm *DeviceManager) Events() <-chan DeviceEvent {
	return dm.events
}

// Connected reports whether any input device is open.
func (dm *DeviceManager) Connected() bool {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return len(dm.keyboards) > 0
}

// Run starts the polling loop. Blocking; run in a goroutine.
func (dm *DeviceManager) Run(ctx context.Context) {
	ticker := time.NewTicker(dm.pollRate)
	defer ticker.Stop()

	dm.scan()

	for {
		select {
		case <-ctx.Done():
			dm.closeAll()
			close(dm.events)
			return
		case <-ticker.C:
			dm.scan()
		}
	}
}

func (dm *DeviceManager) scan() {
	// Port enumeration with a timeout; some backends hang when the MIDI
	// service is wedged.
	ch := make(chan []drivers.In, 1)
	go func() {
		ch <- gomidi.GetInPorts()
	}()

	var inPorts []drivers.In
	select {
	case inPorts = <-ch:
	case <-time.After(3 * time.Second):
		debug.Log("mididevice", "port scan timed out, skipping")
		return
	}

	seen := make(map[string]bool)

	for i, inPort := range inPorts {
		id := inPort.String()
		if !dm.matches(id) {
			continue
		}
		seen[id] = true

		dm.mu.RLock()
		_, exists := dm.keyboards[id]
		dm.mu.RUnlock()
		if exists {
			continue
		}

		kb, err := dm.open(id, inPorts[i])
		if err != nil {
			debug.Log("mididevice", "open %s: %v", id, err)
			continue
		}

		dm.mu.Lock()
		dm.keyboards[id] = kb
		dm.mu.Unlock()

		debug.Log("mididevice", "connected: %s", id)
		dm.events <- DeviceEvent{Type: DeviceConnected, ID: id}
	}

	dm.mu.Lock()
	var gone []string
	for id := range dm.keyboards {
		if !seen[id] {
			gone = append(gone, id)
		}
	}
	for _, id := range gone {
		dm.keyboards[id].close()
		delete(dm.keyboards, id)
	}
	dm.mu.Unlock()

	for _, id := range gone {
		debug.Log("mididevice", "disconnected: %s", id)
		dm.events <- DeviceEvent{Type: DeviceDisconnected, ID: id}
	}
}

func (dm *DeviceManager) matches(name string) bool {
	if dm.portFilter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(dm.portFilter))
}

// open starts listening on a port. The callback runs on the driver thread
// and must never block, so it only translates and pushes; the router's ring
// absorbs bursts.
func (dm *DeviceManager) open(id string, inPort drivers.In) (*keyboard, error) {
	stop, err := gomidi.ListenTo(inPort, func(msg gomidi.Message, timestampms int32) {
		ev, ok := translate(msg)
		if !ok {
			return
		}
		dm.router.PushLive(ev)
	})
	if err != nil {
		return nil, err
	}
	return &keyboard{id: id, stopFunc: stop}, nil
}

// translate maps a wire message to the normalized event model. Note-offs
// become zero-velocity note-ons.
func translate(msg gomidi.Message) (notestate.Event, bool) {
	var channel, note, velocity uint8
	var controller, value uint8

	switch {
	case msg.GetNoteOn(&channel, &note, &velocity):
		return notestate.Event{
			Kind:     timeline.KindNoteOn,
			Channel:  channel,
			Note:     note,
			Velocity: velocity,
		}, true
	case msg.GetNoteOff(&channel, &note, &velocity):
		return notestate.Event{
			Kind:    timeline.KindNoteOn,
			Channel: channel,
			Note:    note,
		}, true
	case msg.GetControlChange(&channel, &controller, &value):
		return notestate.Event{
			Kind:       timeline.KindControlChange,
			Channel:    channel,
			Controller: controller,
			Value:      value,
		}, true
	}
	return notestate.Event{}, false
}

func (kb *keyboard) close() {
	if kb.stopFunc != nil {
		kb.stopFunc()
	}
}

func (dm *DeviceManager) closeAll() {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	for _, kb := range dm.keyboards {
		kb.close()
	}
	dm.keyboards = make(map[string]*keyboard)
}
