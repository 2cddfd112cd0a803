// Package config provides YAML-based configuration loading for Wrenchlog.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Wrenchlog configuration, loaded from wrenchlog.yaml.
type Config struct {
	Server    ServerConfig   `yaml:"server"`
	DB        DBConfig       `yaml:"db"`
	Garage    GarageConfig   `yaml:"garage"`
	Sweep     SweepConfig    `yaml:"sweep"`
	Notifiers NotifierConfig `yaml:"notifiers"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port      int    `yaml:"port"`
	JWTSecret string `yaml:"jwt_secret"` // overridable via WRENCHLOG_JWT_SECRET
}

// DBConfig holds database connection settings. Driver selects between an
// embedded sqlite file (default) and a MySQL server.
type DBConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// GarageConfig holds tunables for the mileage and completion flows.
type GarageConfig struct {
	// MileageDedupWindow is how close together two identical odometer
	// updates must be to reuse the same log entry.
	MileageDedupWindow time.Duration `yaml:"mileage_dedup_window"`
}

// SweepConfig holds tunables for the due-task notifier sweep.
type SweepConfig struct {
	// Window is the minimum gap between sweeps for the same user.
	Window time.Duration `yaml:"window"`
	// Cron is a 5-field cron expression driving the background sweep.
	Cron string `yaml:"cron"`
}

// NotifierConfig selects and configures outbound notification sinks.
type NotifierConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
}

// SlackConfig holds Slack delivery settings. Enabled when BotToken is set.
type SlackConfig struct {
	BotToken  string `yaml:"bot_token"` // overridable via WRENCHLOG_SLACK_TOKEN
	ChannelID string `yaml:"channel_id"`
}

// DiscordConfig holds Discord delivery settings. Enabled when BotToken is set.
type DiscordConfig struct {
	BotToken  string `yaml:"bot_token"` // overridable via WRENCHLOG_DISCORD_TOKEN
	ChannelID string `yaml:"channel_id"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.DB.Driver == "" {
		c.DB.Driver = "sqlite"
	}
	if c.DB.Driver == "sqlite" && c.DB.Path == "" {
		c.DB.Path = "wrenchlog.db"
	}
	if c.DB.Driver == "mysql" {
		if c.DB.Host == "" {
			c.DB.Host = "127.0.0.1"
		}
		if c.DB.Port == 0 {
			c.DB.Port = 3306
		}
		if c.DB.Database == "" {
			c.DB.Database = "wrenchlog"
		}
		if c.DB.User == "" {
			c.DB.User = "root"
		}
	}
	if c.Garage.MileageDedupWindow == 0 {
		c.Garage.MileageDedupWindow = 60 * time.Second
	}
	if c.Sweep.Window == 0 {
		c.Sweep.Window = time.Hour
	}
	if c.Sweep.Cron == "" {
		c.Sweep.Cron = "0 * * * *"
	}
}

// applyEnv overlays secret values from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv("WRENCHLOG_JWT_SECRET"); v != "" {
		c.Server.JWTSecret = v
	}
	if v := os.Getenv("WRENCHLOG_SLACK_TOKEN"); v != "" {
		c.Notifiers.Slack.BotToken = v
	}
	if v := os.Getenv("WRENCHLOG_DISCORD_TOKEN"); v != "" {
		c.Notifiers.Discord.BotToken = v
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.DB.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("db.driver %q is not supported (sqlite, mysql)", c.DB.Driver))
	}
	if c.Garage.MileageDedupWindow < 0 {
		errs = append(errs, "garage.mileage_dedup_window must not be negative")
	}
	if c.Sweep.Window < 0 {
		errs = append(errs, "sweep.window must not be negative")
	}
	if c.Notifiers.Slack.BotToken != "" && c.Notifiers.Slack.ChannelID == "" {
		errs = append(errs, "notifiers.slack.channel_id is required when a slack token is set")
	}
	if c.Notifiers.Discord.BotToken != "" && c.Notifiers.Discord.ChannelID == "" {
		errs = append(errs, "notifiers.discord.channel_id is required when a discord token is set")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
