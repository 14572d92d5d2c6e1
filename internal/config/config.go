// Package config loads tank tooling settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/text/language"

	"multifluid/logging"
)

// Config holds the settings shared by every tankctl command.
type Config struct {
	StorePath       string `env:"TANK_STORE_PATH" envDefault:"tanks.db"`
	CapacityPerSlot int    `env:"TANK_CAPACITY_PER_SLOT" envDefault:"256000"`
	VoidExcess      bool   `env:"TANK_VOID_EXCESS" envDefault:"false"`
	Locale          string `env:"TANK_LOCALE" envDefault:"en"`
	Log             Log    `envPrefix:"TANK_LOG_"`
}

// Log configures the event router.
type Log struct {
	Sinks         []string      `env:"SINKS" envDefault:"console" envSeparator:","`
	Level         string        `env:"LEVEL" envDefault:"info"`
	JSONPath      string        `env:"JSON_PATH"`
	BufferSize    int           `env:"BUFFER_SIZE" envDefault:"512"`
	FlushInterval time.Duration `env:"FLUSH_INTERVAL" envDefault:"2s"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.StorePath) == "" {
		return fmt.Errorf("store path is required")
	}
	if c.CapacityPerSlot <= 0 {
		return fmt.Errorf("capacity per slot must be positive, got %d", c.CapacityPerSlot)
	}
	if _, err := c.Language(); err != nil {
		return err
	}
	if _, err := c.Logging(); err != nil {
		return err
	}
	return nil
}

// Language returns the locale used for fluid display names.
func (c Config) Language() (language.Tag, error) {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.Und, fmt.Errorf("parse locale %q: %w", c.Locale, err)
	}
	return tag, nil
}

// Logging converts the log settings into a router configuration.
func (c Config) Logging() (logging.Config, error) {
	cfg := logging.DefaultConfig()
	severity, err := logging.ParseSeverity(c.Log.Level)
	if err != nil {
		return cfg, err
	}
	cfg.MinimumSeverity = severity
	if c.Log.BufferSize > 0 {
		cfg.BufferSize = c.Log.BufferSize
	}
	cfg.JSON.FilePath = c.Log.JSONPath
	cfg.JSON.FlushInterval = c.Log.FlushInterval

	cfg.EnabledSinks = cfg.EnabledSinks[:0]
	for _, raw := range c.Log.Sinks {
		name := strings.ToLower(strings.TrimSpace(raw))
		switch name {
		case "":
			continue
		case logging.SinkConsole, logging.SinkZap:
		case logging.SinkJSON:
			if strings.TrimSpace(c.Log.JSONPath) == "" {
				return cfg, fmt.Errorf("json sink requires TANK_LOG_JSON_PATH")
			}
		default:
			return cfg, fmt.Errorf("unknown log sink %q", raw)
		}
		if !cfg.HasSink(name) {
			cfg.EnabledSinks = append(cfg.EnabledSinks, name)
		}
	}
	return cfg, nil
}
