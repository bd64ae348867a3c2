// Package config loads the screentime TOML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultTrackerURL    = "http://localhost:5600/api/0"
	DefaultTimeout       = 30 * time.Second
	DefaultWindowPrefix  = "aw-watcher-window"
	DefaultWebPrefix     = "aw-watcher-web"
	DefaultBlockAddress  = "127.0.0.1"
	DefaultWatchInterval = time.Minute

	ResetWindow = "window"
	ResetDaily  = "daily"

	BackendFile      = "file"
	BackendEncrypted = "encrypted"
)

// Duration is a time.Duration written as a string ("30s", "1m") in TOML.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type TrackerConfig struct {
	BaseURL            string   `toml:"base_url"`
	Timeout            Duration `toml:"timeout"`
	WindowSourcePrefix string   `toml:"window_source_prefix"`
	WebSourcePrefix    string   `toml:"web_source_prefix"`
}

type HostsConfig struct {
	Path         string `toml:"path"`
	BackupPath   string `toml:"backup_path"`
	BlockAddress string `toml:"block_address"`
}

type ResetConfig struct {
	Mode string `toml:"mode"`
}

type StateConfig struct {
	Backend string `toml:"backend"`
	DataDir string `toml:"data_dir"`
}

type NotifyConfig struct {
	Enabled bool `toml:"enabled"`
}

type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

type WatchConfig struct {
	Interval Duration `toml:"interval"`
}

// Config holds all application configuration.
// Apps and Domains map a target to its daily limit in minutes.
type Config struct {
	Tracker   TrackerConfig     `toml:"tracker"`
	Hosts     HostsConfig       `toml:"hosts"`
	Reset     ResetConfig       `toml:"reset"`
	State     StateConfig       `toml:"state"`
	Notify    NotifyConfig      `toml:"notify"`
	Log       LogConfig         `toml:"log"`
	Watch     WatchConfig       `toml:"watch"`
	Apps      map[string]int    `toml:"apps"`
	Domains   map[string]int    `toml:"domains"`
	CloseApps map[string]string `toml:"close_apps"`
}

// Default returns the built-in configuration.
// Paths left empty here are filled from the platform by the caller.
func Default() *Config {
	return &Config{
		Tracker: TrackerConfig{
			BaseURL:            DefaultTrackerURL,
			Timeout:            Duration(DefaultTimeout),
			WindowSourcePrefix: DefaultWindowPrefix,
			WebSourcePrefix:    DefaultWebPrefix,
		},
		Hosts: HostsConfig{
			BlockAddress: DefaultBlockAddress,
		},
		Reset:  ResetConfig{Mode: ResetWindow},
		State:  StateConfig{Backend: BackendFile},
		Log:    LogConfig{Level: "info"},
		Watch:  WatchConfig{Interval: Duration(DefaultWatchInterval)},
		Apps: map[string]int{
			"roblox.exe":    30,
			"minecraft.exe": 60,
		},
		Domains: map[string]int{
			"youtube.com":   120,
			"roblox.com":    60,
			"minecraft.com": 60,
		},
		CloseApps: map[string]string{
			"youtube.com":   "chrome.exe",
			"roblox.com":    "chrome.exe",
			"minecraft.com": "chrome.exe",
		},
	}
}

// Load reads configuration from a TOML file.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes TOML data. Unset scalar fields keep their defaults;
// a limit table present in the file replaces the default table.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	// Decode limit tables separately so the file replaces rather than merges them.
	var tables struct {
		Apps      map[string]int    `toml:"apps"`
		Domains   map[string]int    `toml:"domains"`
		CloseApps map[string]string `toml:"close_apps"`
	}
	if err := toml.Unmarshal(data, &tables); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if tables.Apps != nil {
		cfg.Apps = tables.Apps
	}
	if tables.Domains != nil {
		cfg.Domains = tables.Domains
	}
	if tables.CloseApps != nil || tables.Domains != nil {
		cfg.CloseApps = tables.CloseApps
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values screentime cannot act on.
func (c *Config) Validate() error {
	if c.Tracker.BaseURL == "" {
		return fmt.Errorf("tracker.base_url must not be empty")
	}
	if c.Tracker.Timeout < 0 {
		return fmt.Errorf("tracker.timeout must not be negative")
	}
	if c.Tracker.WindowSourcePrefix == "" || c.Tracker.WebSourcePrefix == "" {
		return fmt.Errorf("tracker source prefixes must not be empty")
	}
	if c.Hosts.BlockAddress == "" {
		return fmt.Errorf("hosts.block_address must not be empty")
	}
	switch c.Reset.Mode {
	case ResetWindow, ResetDaily:
	default:
		return fmt.Errorf("unknown reset.mode %q (want %q or %q)", c.Reset.Mode, ResetWindow, ResetDaily)
	}
	switch c.State.Backend {
	case BackendFile, BackendEncrypted:
	default:
		return fmt.Errorf("unknown state.backend %q (want %q or %q)", c.State.Backend, BackendFile, BackendEncrypted)
	}
	if c.Watch.Interval <= 0 {
		return fmt.Errorf("watch.interval must be positive")
	}
	for target, limit := range c.Apps {
		if strings.TrimSpace(target) == "" {
			return fmt.Errorf("apps: empty application name")
		}
		if limit < 0 {
			return fmt.Errorf("apps.%q: negative limit %d", target, limit)
		}
	}
	for target, limit := range c.Domains {
		if strings.TrimSpace(target) == "" {
			return fmt.Errorf("domains: empty domain")
		}
		if limit < 0 {
			return fmt.Errorf("domains.%q: negative limit %d", target, limit)
		}
	}
	for domain, app := range c.CloseApps {
		if _, ok := c.Domains[domain]; !ok {
			return fmt.Errorf("close_apps.%q: no matching entry in domains", domain)
		}
		if strings.TrimSpace(app) == "" {
			return fmt.Errorf("close_apps.%q: empty application name", domain)
		}
	}
	return nil
}

// Save writes the configuration as TOML.
func Save(path string, cfg *Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
