// Package config loads the runtime configuration and the authored
// observation profile. Runtime settings come from a JSON file with
// environment overrides; the profile is JSON authored per game.
package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/sethvargo/go-envconfig"
)

// Config holds runtime behavior: pacing, scoring tuning and file
// locations. Fields load from JSON and may be overridden by environment
// variables.
type Config struct {
	Debug bool `json:"debug" env:"GAMEWATCH_DEBUG"`

	// TickRate is the target update frequency in Hz.
	TickRate float64 `json:"tick_rate" env:"GAMEWATCH_TICK_RATE"`

	// ProfilePath points at the authored observation profile.
	ProfilePath string `json:"profile" env:"GAMEWATCH_PROFILE"`

	// StillImage substitutes a reference screenshot for live capture.
	StillImage string `json:"still_image" env:"GAMEWATCH_STILL_IMAGE"`

	// JournalPath is the sqlite event journal location. Empty disables
	// journaling.
	JournalPath string `json:"journal" env:"GAMEWATCH_JOURNAL"`

	// StatusBaseURL is the optional third-party status API to poll.
	StatusBaseURL  string  `json:"status_base_url" env:"GAMEWATCH_STATUS_URL"`
	StatusInterval float64 `json:"status_interval" env:"GAMEWATCH_STATUS_INTERVAL"`

	// Scoring consumer tuning.
	DecayPerMinute float64 `json:"decay_per_minute"`
	ScoreCap       float64 `json:"score_cap"`
	EdgeTriggered  bool    `json:"edge_triggered"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		TickRate:       30,
		ProfilePath:    "profile.json",
		StatusInterval: 5,
	}
}

// DefaultPath returns the per-user config location.
func DefaultPath() string {
	path, err := xdg.ConfigFile(filepath.Join("gamewatch", "config.json"))
	if err != nil {
		return "config.json"
	}
	return path
}

// Validate clamps values to safe ranges.
func (c *Config) Validate() error {
	if c.TickRate <= 0 {
		c.TickRate = 30
	}
	if c.TickRate > 240 {
		c.TickRate = 240
	}
	if c.StatusInterval <= 0 {
		c.StatusInterval = 5
	}
	if c.DecayPerMinute < 0 {
		c.DecayPerMinute = 0
	}
	if c.ScoreCap < 0 {
		c.ScoreCap = 0
	}
	return nil
}

// Load reads configuration from the given JSON file, then applies
// environment overrides. A missing file yields defaults; a malformed one
// returns defaults with the error.
func Load(ctx context.Context, path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = DefaultPath()
	}
	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return cfg, err
		}
	} else {
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			return cfg, err
		}
	}
	if err := envconfig.Process(ctx, cfg); err != nil {
		return cfg, err
	}
	_ = cfg.Validate()
	return cfg, nil
}

// Save writes the configuration to the given path in JSON format.
func (c *Config) Save(path string) error {
	_ = c.Validate()
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}
