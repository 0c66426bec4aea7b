// Package config loads the bot configuration from YAML with sane defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/UndeadAbbi/Platform-Outage-Bot/pkg/sources"
)

// Storage backends.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// SlackConfig holds the operator notification channel settings.
type SlackConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	BotToken string `yaml:"bot_token" mapstructure:"bot_token"`
	Channel  string `yaml:"channel" mapstructure:"channel"`
}

// NATSConfig holds the event bus settings.
type NATSConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	URL     string `yaml:"url" mapstructure:"url"`
}

// ADOConfig holds the Azure DevOps ticketing settings.
type ADOConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	OrgURL    string `yaml:"org_url" mapstructure:"org_url"`
	Project   string `yaml:"project" mapstructure:"project"`
	PATBase64 string `yaml:"pat_base64" mapstructure:"pat_base64"`
}

// StorageConfig selects the event store backend.
type StorageConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"`
	DSN     string `yaml:"dsn" mapstructure:"dsn"`
}

// Config is the full bot configuration.
type Config struct {
	Interval        time.Duration  `yaml:"interval" mapstructure:"interval"`
	ListenAddr      string         `yaml:"listen_addr" mapstructure:"listen_addr"`
	LogLevel        string         `yaml:"log_level" mapstructure:"log_level"`
	DryRun          bool           `yaml:"dry_run" mapstructure:"dry_run"`
	RefreshOnRepeat bool           `yaml:"refresh_on_repeat" mapstructure:"refresh_on_repeat"`
	Storage         StorageConfig  `yaml:"storage" mapstructure:"storage"`
	Sources         sources.Config `yaml:"sources" mapstructure:"sources"`
	Slack           SlackConfig    `yaml:"slack" mapstructure:"slack"`
	NATS            NATSConfig     `yaml:"nats" mapstructure:"nats"`
	ADO             ADOConfig      `yaml:"ado" mapstructure:"ado"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Interval:   10 * time.Minute,
		ListenAddr: ":8080",
		LogLevel:   "info",
		Storage:    StorageConfig{Backend: StorageMemory},
		Sources:    sources.DefaultConfig(),
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", c.Interval)
	}
	switch c.Storage.Backend {
	case StorageMemory:
	case StoragePostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown storage backend: %s", c.Storage.Backend)
	}
	if c.Slack.Enabled {
		if c.Slack.BotToken == "" || c.Slack.Channel == "" {
			return fmt.Errorf("slack.bot_token and slack.channel are required when slack is enabled")
		}
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		return fmt.Errorf("nats.url is required when nats is enabled")
	}
	if c.ADO.Enabled {
		if c.ADO.OrgURL == "" || c.ADO.Project == "" || c.ADO.PATBase64 == "" {
			return fmt.Errorf("ado.org_url, ado.project and ado.pat_base64 are required when ado is enabled")
		}
	}
	return nil
}
