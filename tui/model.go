package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pianolight/broadcast"
	"pianolight/colors"
	"pianolight/config"
	"pianolight/frame"
	"pianolight/mididevice"
	"pianolight/notestate"
	"pianolight/scheduler"
)

type Model struct {
	Scheduler *scheduler.Scheduler
	DeviceMgr *mididevice.DeviceManager
	Colors    colors.LearnColors
	Palette   *colors.Palette
	Hands     notestate.HandMapping

	sub       chan broadcast.Snapshot
	snap      broadcast.Snapshot
	connected bool
	quitting  bool
}

type SnapshotMsg broadcast.Snapshot

type DeviceEventMsg mididevice.DeviceEvent

func NewModel(sched *scheduler.Scheduler, deviceMgr *mididevice.DeviceManager, hub *broadcast.Hub, cfg *config.Config, palette *colors.Palette) Model {
	return Model{
		Scheduler: sched,
		DeviceMgr: deviceMgr,
		Colors:    cfg.LearnColors,
		Palette:   palette,
		Hands:     cfg.Hands,
		sub:       hub.Subscribe(),
	}
}

func ListenForSnapshots(sub chan broadcast.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-sub
		if !ok {
			return nil
		}
		return SnapshotMsg(snap)
	}
}

func ListenForDevices(deviceMgr *mididevice.DeviceManager) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-deviceMgr.Events()
		if !ok {
			return nil
		}
		return DeviceEventMsg(event)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		ListenForSnapshots(m.sub),
		ListenForDevices(m.DeviceMgr),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			m.Scheduler.Shutdown()
			return m, tea.Quit

		case "p", " ":
			m.Scheduler.TogglePlay()

		case "s":
			m.Scheduler.Stop()

		case "+", "=":
			m.Scheduler.AdjustTempoScale(5)

		case "-", "_":
			m.Scheduler.AdjustTempoScale(-5)
		}

	case SnapshotMsg:
		m.snap = broadcast.Snapshot(msg)
		return m, ListenForSnapshots(m.sub)

	case DeviceEventMsg:
		m.connected = msg.Type == mididevice.DeviceConnected
		return m, ListenForDevices(m.DeviceMgr)
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Bold(true)
	dimStyle := lipgloss.NewStyle().Faint(true)

	deviceStatus := "no device"
	if m.connected {
		deviceStatus = "device ok"
	}

	header := headerStyle.Render(fmt.Sprintf("pianolight  %-8s  %3d%%  %6.1fs  [%s]",
		strings.ToUpper(m.snap.State), m.Scheduler.TempoScale(), m.snap.CursorSeconds, deviceStatus))

	keyboard := m.renderKeyboard()
	progress := m.renderProgress()

	var upcoming strings.Builder
	for _, n := range m.snap.PredictedNotes {
		hand := m.Hands.Hand(n.Channel)
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(m.Colors.Lookup(hand, n.Note, true).Hex()))
		upcoming.WriteString(style.Render(fmt.Sprintf("%s %s %.1fs  ", noteName(n.Note), hand, n.DelaySeconds)))
	}

	help := dimStyle.Render("space:play/pause  s:stop  +/-:tempo  q:quit")

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(keyboard)
	out.WriteString("\n")
	out.WriteString(progress)
	out.WriteString("\n\n")
	out.WriteString(upcoming.String())
	out.WriteString("\n\n")
	out.WriteString(help)
	return out.String()
}

// renderKeyboard draws one cell per key, colored for sounding and
// predicted notes.
func (m Model) renderKeyboard() string {
	active := make(map[uint8]uint8, len(m.snap.ActiveNotes))
	for _, n := range m.snap.ActiveNotes {
		active[n.Note] = n.Channel
	}
	predicted := make(map[uint8]uint8, len(m.snap.PredictedNotes))
	for _, n := range m.snap.PredictedNotes {
		predicted[n.Note] = n.Channel
	}

	var b strings.Builder
	for note := frame.FirstKey; note <= frame.LastKey; note++ {
		n := uint8(note)
		cell := "·"
		if frame.IsBlack(note) {
			cell = "'"
		}

		if ch, ok := active[n]; ok {
			c := m.Colors.Lookup(m.Hands.Hand(ch), n, false)
			cell = lipgloss.NewStyle().Foreground(lipgloss.Color(c.Hex())).Render("█")
		} else if ch, ok := predicted[n]; ok {
			c := m.Colors.Lookup(m.Hands.Hand(ch), n, true)
			cell = lipgloss.NewStyle().Foreground(lipgloss.Color(c.Hex())).Render("▒")
		}
		b.WriteString(cell)
	}
	return b.String()
}

// renderProgress draws the song position as a palette gradient, dimmed
// past the cursor.
func (m Model) renderProgress() string {
	const width = frame.KeyCount

	frac := 0.0
	if m.snap.DurationSeconds > 0 {
		frac = m.snap.CursorSeconds / m.snap.DurationSeconds
	}

	var b strings.Builder
	for i := 0; i < width; i++ {
		t := float64(i) / float64(width-1)
		c := m.Palette.Lookup(t)
		if t > frac {
			c = c.Scale(0.3)
		}
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(c.Hex())).Render("━"))
	}
	return b.String()
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

func noteName(note uint8) string {
	return fmt.Sprintf("%s%d", noteNames[note%12], int(note)/12-1)
}
