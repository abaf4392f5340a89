// Package config loads the idecord daemon's own settings.
//
// The daemon reads config.toml from its data directory: Discord connection
// tuning, poll intervals, logging, and where host events come from. Presence
// preferences are not part of this file; they live in the prefs documents.
package config

//go:generate go run ../../cmd/genconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"tools.zach/dev/idecord/internal/atomicfile"
	"tools.zach/dev/idecord/internal/identity"
	"tools.zach/dev/idecord/internal/migrate"
)

// ///////////////////////////////////////////////
// Configuration Types
// ///////////////////////////////////////////////

// Config represents the top-level daemon configuration.
type Config struct {
	// Version is the config schema version used for migrations.
	Version int `toml:"version"`
	// Discord holds Discord connection settings.
	Discord DiscordConfig `toml:"discord"`
	// Behavior holds daemon loop settings.
	Behavior BehaviorConfig `toml:"behavior"`
	// Events holds the host event source.
	Events EventsConfig `toml:"events"`
	// Log holds logging settings.
	Log LogConfig `toml:"log"`
	// Update holds release check settings.
	Update UpdateConfig `toml:"update"`
}

// DiscordConfig holds Discord connection settings.
type DiscordConfig struct {
	// AppID is the application identity used when no custom identity is set.
	AppID string `toml:"app_id"`
	// ShutdownGraceSeconds keeps the socket open after a disconnect so a quick
	// reconnect to the same identity reuses it. 0 closes at once.
	ShutdownGraceSeconds int `toml:"shutdown_grace_seconds"`
	// SmallImage is the asset key of the small badge image.
	SmallImage string `toml:"small_image"`
	// SmallText is the small badge tooltip.
	SmallText string `toml:"small_text"`
}

// BehaviorConfig holds daemon loop settings.
type BehaviorConfig struct {
	// PollIntervalSeconds is the fallback polling interval for preference
	// files when file watching is unavailable.
	PollIntervalSeconds int `toml:"poll_interval_seconds"`
	// ReconnectIntervalSeconds is how often a dropped Discord socket is
	// re-dialed.
	ReconnectIntervalSeconds int `toml:"reconnect_interval_seconds"`
}

// EventsConfig selects where host events are read from.
type EventsConfig struct {
	// Source is "stdin" or the path of a file or FIFO.
	Source string `toml:"source"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `toml:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation.
	MaxSizeMB int `toml:"max_size_mb"`
}

// UpdateConfig holds release check settings.
type UpdateConfig struct {
	// Check enables the background check for a newer release.
	Check bool `toml:"check"`
	// ManifestURL overrides the release manifest location.
	ManifestURL string `toml:"manifest_url,omitempty"`
}

// ///////////////////////////////////////////////
// Default Configuration
// ///////////////////////////////////////////////

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: Migrations.CurrentVersion,
		Discord: DiscordConfig{
			AppID:                identity.DefaultIdentity,
			ShutdownGraceSeconds: 5,
			SmallImage:           "idecord",
			SmallText:            "idecord",
		},
		Behavior: BehaviorConfig{
			PollIntervalSeconds:      5,
			ReconnectIntervalSeconds: 15,
		},
		Events: EventsConfig{
			Source: "stdin",
		},
		Log: LogConfig{
			Level:     "info",
			MaxSizeMB: 10,
		},
		Update: UpdateConfig{
			Check: true,
		},
	}
}

// ExampleConfig returns a Config suitable for generating config.default.toml.
func ExampleConfig() *Config {
	return DefaultConfig()
}

// ShutdownGrace returns the socket grace period as a duration.
func (c *Config) ShutdownGrace() time.Duration {
	return time.Duration(c.Discord.ShutdownGraceSeconds) * time.Second
}

// PollInterval returns the preference polling interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Behavior.PollIntervalSeconds) * time.Second
}

// ReconnectInterval returns the Discord reconnect interval.
func (c *Config) ReconnectInterval() time.Duration {
	return time.Duration(c.Behavior.ReconnectIntervalSeconds) * time.Second
}

// ///////////////////////////////////////////////
// Migrations
// ///////////////////////////////////////////////

// Migrations is the schema registry for config.toml.
var Migrations = &migrate.Registry{
	CurrentVersion: 2,
	Migrations: []migrate.Migration{
		{Version: 2, Description: "rename events.path to events.source", Upgrade: renameEventsPath},
	},
}

// renameEventsPath moves the v1 [events] path key to source.
func renameEventsPath(doc migrate.Document) error {
	events, ok := doc["events"].(map[string]any)
	if !ok {
		return nil
	}
	if p, ok := events["path"]; ok {
		if _, set := events["source"]; !set {
			events["source"] = p
		}
		delete(events, "path")
	}
	return nil
}

// ///////////////////////////////////////////////
// Loading and Saving
// ///////////////////////////////////////////////

// Load reads and parses the configuration file at path. A missing file yields
// DefaultConfig. A file behind the current schema is backed up to path.bak,
// migrated, and saved back.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	doc := migrate.Document{}
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	migrated, err := Migrations.Apply(doc)
	if err != nil {
		return nil, fmt.Errorf("migrate config: %w", err)
	}
	if migrated {
		if backupErr := os.WriteFile(path+".bak", data, 0o644); backupErr != nil {
			slog.Warn("failed to write config backup", "error", backupErr)
		}
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
			return nil, fmt.Errorf("encode migrated config: %w", err)
		}
		data = buf.Bytes()
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Version = Migrations.CurrentVersion

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if migrated {
		if err := cfg.Save(path); err != nil {
			slog.Warn("failed to save migrated config", "error", err)
		}
	}
	return cfg, nil
}

// Save writes the config to disk as TOML using atomic file write.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return atomicfile.Write(path, buf.Bytes(), 0o644)
}

// WriteDefault writes data to path unless a file is already there. It
// reports whether it wrote.
func WriteDefault(path string, data []byte) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := atomicfile.Write(path, data, 0o644); err != nil {
		return false, fmt.Errorf("write default config: %w", err)
	}
	return true, nil
}

// ///////////////////////////////////////////////
// Validation
// ///////////////////////////////////////////////

// validLogLevels is the set of accepted log level strings.
var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks that all configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Discord.AppID) == "" {
		return errors.New("discord.app_id must not be empty")
	}
	for _, r := range c.Discord.AppID {
		if r < '0' || r > '9' {
			return fmt.Errorf("invalid discord.app_id %q: must be numeric", c.Discord.AppID)
		}
	}

	if c.Discord.ShutdownGraceSeconds < 0 {
		return fmt.Errorf("shutdown_grace_seconds must be >= 0, got %d", c.Discord.ShutdownGraceSeconds)
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log.level %q: must be trace, debug, info, warn, or error", c.Log.Level)
	}

	if c.Log.MaxSizeMB <= 0 {
		return fmt.Errorf("max_size_mb must be > 0, got %d", c.Log.MaxSizeMB)
	}

	if c.Behavior.PollIntervalSeconds <= 0 {
		return fmt.Errorf("poll_interval_seconds must be > 0, got %d", c.Behavior.PollIntervalSeconds)
	}

	if c.Behavior.ReconnectIntervalSeconds <= 0 {
		return fmt.Errorf("reconnect_interval_seconds must be > 0, got %d", c.Behavior.ReconnectIntervalSeconds)
	}

	if strings.TrimSpace(c.Events.Source) == "" {
		return errors.New("events.source must not be empty")
	}

	return nil
}
