package model

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// DefaultSourceRelPath is the Notification Center database location
// relative to the user's home directory.
const DefaultSourceRelPath = "Library/Group Containers/group.com.apple.usernoted/db2/db"

// SourceConfig holds settings for reading and watching the source database.
type SourceConfig struct {
	// Path is the primary database file. The write-ahead log is Path + "-wal".
	Path string `mapstructure:"path" yaml:"path"`

	// PollIntervalMs is the fallback fingerprint polling interval.
	PollIntervalMs int `mapstructure:"poll_interval_ms" yaml:"poll_interval_ms"`

	// CoalesceMs is how long filesystem events are coalesced before a check.
	CoalesceMs int `mapstructure:"coalesce_ms" yaml:"coalesce_ms"`

	// ReadTimeoutMs bounds a single check cycle against the database.
	ReadTimeoutMs int `mapstructure:"read_timeout_ms" yaml:"read_timeout_ms"`
}

// PollInterval returns PollIntervalMs as a duration.
func (c SourceConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// Coalesce returns CoalesceMs as a duration.
func (c SourceConfig) Coalesce() time.Duration {
	return time.Duration(c.CoalesceMs) * time.Millisecond
}

// ReadTimeout returns ReadTimeoutMs as a duration.
func (c SourceConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMs) * time.Millisecond
}

// DefaultsConfig applies to applications without a stored preference.
type DefaultsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Color   string `mapstructure:"color" yaml:"color"`
}

// StoreConfig locates the local preferences database.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// DisplayConfig holds terminal rendering preferences.
type DisplayConfig struct {
	Theme   string `mapstructure:"theme" yaml:"theme"`
	FrameMs int    `mapstructure:"frame_ms" yaml:"frame_ms"`
	History int    `mapstructure:"history" yaml:"history"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// Config is the top-level application configuration.
type Config struct {
	Source   SourceConfig   `mapstructure:"source" yaml:"source"`
	Defaults DefaultsConfig `mapstructure:"defaults" yaml:"defaults"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Display  DisplayConfig  `mapstructure:"display" yaml:"display"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

// configDir returns ~/.config/notiglow, or "." if the home directory is unknown.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "notiglow")
}

// DefaultConfigPath returns ~/.config/notiglow/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultLogPath returns the log file used while the terminal UI is running.
func DefaultLogPath() string {
	return filepath.Join(configDir(), "notiglow.log")
}

// DefaultSourcePath returns the Notification Center database path for the
// current user.
func DefaultSourcePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultSourceRelPath
	}
	return filepath.Join(home, DefaultSourceRelPath)
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Path:           DefaultSourcePath(),
			PollIntervalMs: 2000,
			CoalesceMs:     500,
			ReadTimeoutMs:  5000,
		},
		Defaults: DefaultsConfig{
			Enabled: true,
		},
		Store: StoreConfig{
			Path: filepath.Join(configDir(), "prefs.db"),
		},
		Display: DisplayConfig{
			Theme:   "default",
			FrameMs: 50,
			History: 20,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns the default configuration.
func LoadConfig(path string) (*Config, error) {
	def := DefaultConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("source.path", def.Source.Path)
	v.SetDefault("source.poll_interval_ms", def.Source.PollIntervalMs)
	v.SetDefault("source.coalesce_ms", def.Source.CoalesceMs)
	v.SetDefault("source.read_timeout_ms", def.Source.ReadTimeoutMs)
	v.SetDefault("defaults.enabled", def.Defaults.Enabled)
	v.SetDefault("defaults.color", def.Defaults.Color)
	v.SetDefault("store.path", def.Store.Path)
	v.SetDefault("display.theme", def.Display.Theme)
	v.SetDefault("display.frame_ms", def.Display.FrameMs)
	v.SetDefault("display.history", def.Display.History)
	v.SetDefault("log.level", def.Log.Level)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return def, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return def, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Defaults.Color != "" {
		if _, err := ParseRGB(cfg.Defaults.Color); err != nil {
			return nil, fmt.Errorf("parsing config %s: defaults.color: %w", path, err)
		}
	}
	if cfg.Source.PollIntervalMs <= 0 {
		cfg.Source.PollIntervalMs = def.Source.PollIntervalMs
	}
	if cfg.Source.CoalesceMs < 0 {
		cfg.Source.CoalesceMs = def.Source.CoalesceMs
	}
	if cfg.Source.ReadTimeoutMs <= 0 {
		cfg.Source.ReadTimeoutMs = def.Source.ReadTimeoutMs
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("source", cfg.Source)
	v.Set("defaults", cfg.Defaults)
	v.Set("store", cfg.Store)
	v.Set("display", cfg.Display)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
