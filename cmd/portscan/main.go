// portscan lists MIDI input ports and optionally monitors one, for
// picking the inputPort config value.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "list":
		listPorts()
	case "monitor":
		if len(os.Args) < 3 {
			usage()
			return
		}
		monitor(os.Args[2])
	default:
		usage()
	}
}

func usage() {
	fmt.Println("pianolight port scanner")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list              - List all MIDI input ports")
	fmt.Println("  monitor <filter>  - Print incoming events from the first matching port")
}

func listPorts() {
	fmt.Println("=== MIDI Input Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")

	ch := make(chan []drivers.In, 1)
	go func() {
		ch <- midi.GetInPorts()
	}()

	select {
	case ins := <-ch:
		if len(ins) == 0 {
			fmt.Println("  (none)")
			return
		}
		for i, p := range ins {
			fmt.Printf("  %d: %s\n", i, p.String())
		}
	case <-time.After(3 * time.Second):
		fmt.Println("\nTIMEOUT! The MIDI service is hung.")
	}
}

func monitor(filter string) {
	var inPort drivers.In
	for _, p := range midi.GetInPorts() {
		if strings.Contains(strings.ToLower(p.String()), strings.ToLower(filter)) {
			inPort = p
			break
		}
	}
	if inPort == nil {
		fmt.Printf("No input port matching %q\n", filter)
		return
	}

	fmt.Printf("Monitoring %s (ctrl+c to stop)\n", inPort.String())

	stop, err := midi.ListenTo(inPort, func(msg midi.Message, timestampms int32) {
		var channel, note, velocity uint8
		var controller, value uint8
		switch {
		case msg.GetNoteOn(&channel, &note, &velocity):
			fmt.Printf("note on   ch=%d note=%d vel=%d\n", channel, note, velocity)
		case msg.GetNoteOff(&channel, &note, &velocity):
			fmt.Printf("note off  ch=%d note=%d\n", channel, note)
		case msg.GetControlChange(&channel, &controller, &value):
			fmt.Printf("cc        ch=%d cc=%d val=%d\n", channel, controller, value)
		}
	})
	if err != nil {
		fmt.Printf("Error opening port: %v\n", err)
		return
	}
	defer stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	<-sig
}
