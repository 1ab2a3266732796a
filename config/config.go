package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"pianolight/colors"
	"pianolight/frame"
	"pianolight/notestate"
	"pianolight/timeline"
)

// PracticeMode selects how the scheduler treats the player.
type PracticeMode string

const (
	// PracticeListen plays the song through without waiting.
	PracticeListen PracticeMode = "listen"
	// PracticeMelody holds the cursor until the player sounds the notes of
	// the current batch.
	PracticeMelody PracticeMode = "melody"
)

// LookaheadConfig parameterizes the prediction window.
type LookaheadConfig struct {
	BaseSeconds    float64 `json:"baseSeconds,omitempty"`
	SkillLevel     float64 `json:"skillLevel"`
	SongDifficulty float64 `json:"songDifficulty"`
	MaxSeconds     float64 `json:"maxSeconds,omitempty"` // clamp for sparse timelines
}

// PracticeConfig holds the learn-session knobs.
type PracticeConfig struct {
	Mode         PracticeMode `json:"mode"`
	Loop         bool         `json:"loop"`
	StartPercent float64      `json:"startPercent"`
	EndPercent   float64      `json:"endPercent"`
}

// MIDIConfig names the live input device.
type MIDIConfig struct {
	InputPort string `json:"inputPort,omitempty"` // substring match; empty takes the first port
}

// Config is the main configuration structure.
type Config struct {
	TempoScale        int                   `json:"tempoScale"` // percent, 100 = song tempo
	Hands             notestate.HandMapping `json:"hands"`
	LiveQueueCapacity int                   `json:"liveQueueCapacity"`
	Lookahead         LookaheadConfig       `json:"lookahead"`
	Practice          PracticeConfig        `json:"practice"`
	MIDI              MIDIConfig            `json:"midi,omitempty"`
	LearnColors       colors.LearnColors    `json:"learnColors"`
	FlyingNotes       frame.Settings        `json:"flyingNotes"`
	PalettePath       string                `json:"palettePath,omitempty"`
	SongsDir          string                `json:"songsDir,omitempty"`
	Debug             bool                  `json:"debug,omitempty"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		TempoScale:        100,
		Hands:             notestate.HandMapping{RightChannel: 1, LeftChannel: 2},
		LiveQueueCapacity: 128,
		Lookahead: LookaheadConfig{
			BaseSeconds: 2.0,
			MaxSeconds:  8.0,
		},
		Practice: PracticeConfig{
			Mode:         PracticeListen,
			StartPercent: 0,
			EndPercent:   100,
		},
		LearnColors: colors.DefaultLearnColors(),
		FlyingNotes: frame.DefaultSettings(),
	}
}

// Validate checks the contract the engine depends on. Errors wrap
// timeline.ErrInvalidConfiguration; callers keep the prior valid config.
func (c *Config) Validate() error {
	if c.TempoScale <= 0 {
		return fmt.Errorf("tempoScale %d must be > 0: %w", c.TempoScale, timeline.ErrInvalidConfiguration)
	}
	if c.LiveQueueCapacity <= 0 {
		return fmt.Errorf("liveQueueCapacity %d must be > 0: %w", c.LiveQueueCapacity, timeline.ErrInvalidConfiguration)
	}
	if c.Lookahead.SkillLevel < 0 || c.Lookahead.SongDifficulty < 0 {
		return fmt.Errorf("lookahead parameters must be non-negative: %w", timeline.ErrInvalidConfiguration)
	}
	if c.Practice.StartPercent < 0 || c.Practice.EndPercent > 100 ||
		c.Practice.StartPercent >= c.Practice.EndPercent {
		return fmt.Errorf("practice bounds %v-%v: %w",
			c.Practice.StartPercent, c.Practice.EndPercent, timeline.ErrInvalidConfiguration)
	}
	switch c.Practice.Mode {
	case PracticeListen, PracticeMelody:
	default:
		return fmt.Errorf("practice mode %q: %w", c.Practice.Mode, timeline.ErrInvalidConfiguration)
	}
	return nil
}

// ConfigDir returns the config directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "pianolight"), nil
}

// ConfigPath returns the full path to config.json.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
