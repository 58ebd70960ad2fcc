package app

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/soulbot/core/config"
	coredatabase "github.com/m3rciful/soulbot/core/database"
	"github.com/m3rciful/soulbot/internal/session"
)

// SessionsConfig controls idle eviction of conversations.
type SessionsConfig struct {
	SweepInterval time.Duration `yaml:"sweep_interval" envconfig:"SESSIONS_SWEEP_INTERVAL"`
	IdleTimeout   time.Duration `yaml:"idle_timeout" envconfig:"SESSIONS_IDLE_TIMEOUT"`
}

// BrowseConfig controls profile browsing.
type BrowseConfig struct {
	// CategoryFilter limits /find to profiles sharing an interest. Defaults to true.
	CategoryFilter *bool `yaml:"category_filter" envconfig:"BROWSE_CATEGORY_FILTER"`
}

// FilterByCategory reports the effective category filter setting.
func (b BrowseConfig) FilterByCategory() bool {
	return b.CategoryFilter == nil || *b.CategoryFilter
}

// Config is the bot configuration: the shared core sections plus the app's own.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database   coredatabase.Config `yaml:"database"`
	Sessions   SessionsConfig      `yaml:"sessions"`
	Browse     BrowseConfig        `yaml:"browse"`
	Categories []string            `yaml:"categories" envconfig:"CATEGORIES"`
}

var defaultCategories = []string{"it", "art", "music"}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Config
}

// Load reads the YAML file at path, overlays the environment and normalizes.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the app sections and fills defaults.
func (c *Config) Normalize() error {
	if err := c.Database.Normalize(); err != nil {
		return err
	}

	if c.Sessions.IdleTimeout == 0 {
		c.Sessions.IdleTimeout = session.DefaultIdleTimeout
	}
	if c.Sessions.SweepInterval == 0 {
		c.Sessions.SweepInterval = session.DefaultSweepInterval
	}
	if c.Sessions.IdleTimeout < 0 || c.Sessions.SweepInterval < 0 {
		return fmt.Errorf("sessions.idle_timeout and sessions.sweep_interval must be > 0")
	}

	seen := make(map[string]struct{}, len(c.Categories))
	titles := make([]string, 0, len(c.Categories))
	for _, t := range c.Categories {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		titles = append(titles, t)
	}
	if len(titles) == 0 {
		titles = append(titles, defaultCategories...)
	}
	c.Categories = titles
	return nil
}
