// Package debug is the category-tagged trace log for the playback engine.
// Disabled it costs a mutex check; enabled it appends to debug.log in the
// app config directory.
package debug

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"pianolight/config"
)

var (
	mu       sync.Mutex
	file     *os.File
	enabled  bool
	counters map[string]int
)

// Enable opens the log file under the app config dir and starts logging.
func Enable() error {
	mu.Lock()
	defer mu.Unlock()

	if enabled {
		return nil
	}

	dir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(filepath.Join(dir, "debug.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}

	file = f
	enabled = true
	counters = make(map[string]int)

	writeLine("debug", "=== session started %s ===", time.Now().Format(time.RFC3339))
	return nil
}

// Disable closes the log file and stops logging.
func Disable() {
	mu.Lock()
	defer mu.Unlock()

	if file != nil {
		file.Close()
		file = nil
	}
	enabled = false
}

// Log writes one timestamped line under a category tag.
func Log(category, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	writeLine(category, format, args...)
}

// LogEvery writes only every nth call for the same category and format,
// for lines that would otherwise fire every scheduler tick.
func LogEvery(n int, category, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()

	if !enabled {
		return
	}

	key := category + "\x00" + format
	counters[key]++
	if count := counters[key]; count%n == 0 {
		writeLine(category, format+" (x%d)", append(args, count)...)
	}
}

// writeLine appends one line. Callers hold mu. Synced per line so the tail
// survives a crash.
func writeLine(category, format string, args ...any) {
	if !enabled || file == nil {
		return
	}
	ts := time.Now().Format("15:04:05.000")
	fmt.Fprintf(file, "[%s] %-10s %s\n", ts, category, fmt.Sprintf(format, args...))
	file.Sync()
}
