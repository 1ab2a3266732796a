package colors

import (
	"os"
	"path/filepath"
	"testing"

	"pianolight/notestate"
)

func TestLookupByHandClassAndTiming(t *testing.T) {
	lc := DefaultLearnColors()

	tests := []struct {
		hand     notestate.Hand
		note     uint8
		upcoming bool
		want     RGB
	}{
		{notestate.HandLeft, 60, false, RGB{0, 255, 0}},   // C, white
		{notestate.HandLeft, 61, false, RGB{0, 200, 0}},   // C#, black
		{notestate.HandLeft, 60, true, RGB{0, 128, 0}},    // upcoming dims
		{notestate.HandRight, 60, false, RGB{0, 0, 255}},  // right hand is blue
		{notestate.HandRight, 61, true, RGB{0, 0, 100}},   // black + upcoming
	}
	for _, tt := range tests {
		if got := lc.Lookup(tt.hand, tt.note, tt.upcoming); got != tt.want {
			t.Errorf("Lookup(%v, %d, %v) = %v, want %v", tt.hand, tt.note, tt.upcoming, got, tt.want)
		}
	}
}

func TestLoadGPL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.gpl")
	content := "GIMP Palette\nName: test\nColumns: 2\n# comment\n255 0 0 red\n0 255 0 green\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadGPL(path)
	if err != nil {
		t.Fatalf("LoadGPL: %v", err)
	}
	if p.Name != "test" {
		t.Errorf("name = %q, want test", p.Name)
	}
	if len(p.Colors) != 2 {
		t.Fatalf("colors %d, want 2", len(p.Colors))
	}
	if p.Colors[0] != (RGB{255, 0, 0}) {
		t.Errorf("first color %v", p.Colors[0])
	}
}

func TestLoadGPLEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.gpl")
	if err := os.WriteFile(path, []byte("GIMP Palette\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadGPL(path); err == nil {
		t.Error("expected error for palette with no colors")
	}
}

func TestPaletteLookupEndpoints(t *testing.T) {
	p := DefaultPalette()
	if p.Lookup(0) != p.Colors[0] {
		t.Error("Lookup(0) should be the first color")
	}
	if p.Lookup(1) != p.Colors[len(p.Colors)-1] {
		t.Error("Lookup(1) should be the last color")
	}
}

func TestScale(t *testing.T) {
	c := RGB{100, 200, 50}
	if got := c.Scale(0.5); got != (RGB{50, 100, 25}) {
		t.Errorf("Scale(0.5) = %v", got)
	}
	if got := c.Scale(0); got != (RGB{0, 0, 0}) {
		t.Errorf("Scale(0) = %v", got)
	}
	if got := c.Scale(2); got != c {
		t.Errorf("Scale clamps to 1, got %v", got)
	}
}
