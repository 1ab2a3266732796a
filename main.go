package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"pianolight/broadcast"
	"pianolight/colors"
	"pianolight/config"
	"pianolight/debug"
	"pianolight/mididevice"
	"pianolight/notestate"
	"pianolight/scheduler"
	"pianolight/tui"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: pianolight <song.mid>")
		os.Exit(1)
	}
	songPath := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("config: %v\n", err)
		os.Exit(1)
	}

	if cfg.Debug {
		if err := debug.Enable(); err != nil {
			fmt.Printf("debug log: %v\n", err)
		}
		defer debug.Disable()
	}

	palette := colors.DefaultPalette()
	if cfg.PalettePath != "" {
		p, err := colors.LoadGPL(cfg.PalettePath)
		if err != nil {
			fmt.Printf("palette %s: %v, using builtin\n", cfg.PalettePath, err)
		} else {
			palette = p
		}
	}

	tracker := notestate.NewTracker(cfg.Hands)
	hub := broadcast.NewHub()
	sched := scheduler.New(cfg, tracker, hub)

	if err := sched.Load(songPath); err != nil {
		fmt.Printf("load: %v\n", err)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Shutdown()

	// Hot-plug MIDI input; playback runs file-only until a device appears.
	deviceMgr := mididevice.NewDeviceManager(sched.Router(), cfg.MIDI.InputPort)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go deviceMgr.Run(ctx)

	m := tui.NewModel(sched, deviceMgr, hub, cfg, palette)
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
