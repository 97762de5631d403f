// Package config loads puzzlesync configuration from file, environment
// and flags via viper.
//
// Resolution order: explicit --config path, then
// ~/.puzzlesync/config.yaml, then PUZZLESYNC_* environment variables,
// then built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/playgrid/puzzlesync/internal/schema"
)

// Config is the resolved application configuration.
type Config struct {
	Remote RemoteConfig `mapstructure:"remote"`
	User   UserConfig   `mapstructure:"user"`
	Local  LocalConfig  `mapstructure:"local"`
	Daemon DaemonConfig `mapstructure:"daemon"`
	Window WindowConfig `mapstructure:"window"`
	Log    LogConfig    `mapstructure:"log"`
}

// RemoteConfig points at the authoritative store.
type RemoteConfig struct {
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// UserConfig is the identity and tier sync runs under. ID must be a
// stable identifier; the engines refuse to run without one.
type UserConfig struct {
	ID   string `mapstructure:"id"`
	Tier string `mapstructure:"tier"`
}

// LocalConfig locates the on-device cache.
type LocalConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// DaemonConfig tunes the background orchestrator.
type DaemonConfig struct {
	LightSyncInterval time.Duration `mapstructure:"light_sync_interval"`
	FullSyncInterval  time.Duration `mapstructure:"full_sync_interval"`
	Debounce          time.Duration `mapstructure:"debounce"`
}

// WindowConfig holds the probe-window widths per tier (product policy,
// so configurable rather than hard-coded).
type WindowConfig struct {
	FreeDays    int `mapstructure:"free_days"`
	PlusDays    int `mapstructure:"plus_days"`
	ProDays     int `mapstructure:"pro_days"`
	ForwardDays int `mapstructure:"forward_days"`
}

// LogConfig controls the daemon's rotated log file. An empty File
// means log to stderr only.
type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// Load reads configuration from the given path, or from the default
// locations when path is empty.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PUZZLESYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".puzzlesync"))
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing default config file is fine; defaults and env
		// apply. An explicitly named file must exist.
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Local.DBPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		cfg.Local.DBPath = filepath.Join(home, ".puzzlesync", "local.db")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("user.tier", string(schema.TierFree))
	v.SetDefault("daemon.light_sync_interval", 5*time.Minute)
	v.SetDefault("daemon.full_sync_interval", time.Hour)
	v.SetDefault("daemon.debounce", 2*time.Second)

	w := schema.DefaultWindowConfig()
	v.SetDefault("window.free_days", w.FreeDays)
	v.SetDefault("window.plus_days", w.PlusDays)
	v.SetDefault("window.pro_days", w.ProDays)
	v.SetDefault("window.forward_days", w.ForwardDays)

	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
}

// Tier parses the configured access tier.
func (c *Config) Tier() (schema.Tier, error) {
	return schema.ParseTier(c.User.Tier)
}

// Windows converts the configured widths into the schema's window
// config.
func (c *Config) Windows() schema.WindowConfig {
	return schema.WindowConfig{
		FreeDays:    c.Window.FreeDays,
		PlusDays:    c.Window.PlusDays,
		ProDays:     c.Window.ProDays,
		ForwardDays: c.Window.ForwardDays,
	}
}

// Validate checks that the config is usable for sync operations.
func (c *Config) Validate() error {
	if c.Remote.URL == "" {
		return fmt.Errorf("remote.url is required")
	}
	if c.User.ID == "" {
		return fmt.Errorf("user.id is required (a stable anonymous id is fine)")
	}
	if _, err := c.Tier(); err != nil {
		return err
	}
	return nil
}
