package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/EduardaSRBastos/astro-alert/internal/geolocate"
	"github.com/EduardaSRBastos/astro-alert/internal/state"
	"github.com/EduardaSRBastos/astro-alert/pkg/logx"
)

// Config is the whole bot configuration. JSON and YAML files are both
// accepted; unknown keys are rejected so typos surface at load time.
type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Cycle     CycleConfig     `json:"cycle"`
	State     StateConfig     `json:"state"`
	Geolocate GeolocateConfig `json:"geolocate,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// Channel is the announcement target: @channelname or a numeric
	// chat ID.
	Channel string `json:"channel"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

// CycleConfig controls when the daily announcement cycle runs.
//
// DailyAt is a local-clock "HH:MM". Interval, when set, replaces the
// daily trigger with a fixed period (useful for testing).
type CycleConfig struct {
	Enabled  bool   `json:"enabled"`
	DailyAt  string `json:"daily_at,omitempty"`
	Interval string `json:"interval,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

type StateConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

type GeolocateConfig struct {
	Endpoint string `json:"endpoint,omitempty"`
	Timeout  string `json:"timeout,omitempty"` // Go duration string
}

// ApplyEnv lets the secrets live outside the config file. Set values
// win over file values.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv("ASTRO_TELEGRAM_TOKEN")); v != "" {
		c.Telegram.Token = v
	}
	if v := strings.TrimSpace(os.Getenv("ASTRO_TELEGRAM_CHANNEL")); v != "" {
		c.Telegram.Channel = v
	}
	if v := strings.TrimSpace(os.Getenv("ASTRO_LOG_LEVEL")); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks everything that would otherwise only fail deep in
// startup.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return errors.New("telegram.token is required (file or ASTRO_TELEGRAM_TOKEN)")
	}
	if strings.TrimSpace(c.Telegram.Channel) == "" {
		return errors.New("telegram.channel is required")
	}
	if _, err := ParseDurationField("telegram.poll_timeout", c.Telegram.PollTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("geolocate.timeout", c.Geolocate.Timeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("state.busy_timeout", c.State.BusyTimeout); err != nil {
		return err
	}
	if c.Cycle.Enabled {
		if c.Cycle.Interval != "" {
			if _, err := ParseDurationField("cycle.interval", c.Cycle.Interval); err != nil {
				return err
			}
		} else if c.Cycle.DailyAt != "" {
			if _, _, err := ParseHHMM(c.Cycle.DailyAt); err != nil {
				return fmt.Errorf("cycle.daily_at: %w", err)
			}
		}
		if tz := strings.TrimSpace(c.Cycle.Timezone); tz != "" {
			if _, err := time.LoadLocation(tz); err != nil {
				return fmt.Errorf("cycle.timezone: %w", err)
			}
		}
	}
	return nil
}

// ParseHHMM parses a wall-clock "HH:MM" trigger time.
func ParseHHMM(s string) (hour, minute int, err error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}

// LogxConfig converts the logging section for pkg/logx.
func (c *Config) LogxConfig() logx.Config {
	return logx.Config{
		Level:   c.Logging.Level,
		Console: c.Logging.Console,
		File: logx.FileConfig{
			Enabled: c.Logging.File.Enabled,
			Path:    c.Logging.File.Path,
		},
		Chat: logx.ChatConfig{
			Enabled:    c.Logging.Telegram.Enabled,
			MinLevel:   c.Logging.Telegram.MinLevel,
			RatePerSec: c.Logging.Telegram.RatePerSec,
		},
	}
}

// StateStoreConfig converts the state section for the persistence layer.
func (c *Config) StateStoreConfig() (state.Config, error) {
	busy, err := ParseDurationField("state.busy_timeout", c.State.BusyTimeout)
	if err != nil {
		return state.Config{}, err
	}
	return state.Config{
		Driver:      c.State.Driver,
		Path:        c.State.Path,
		BusyTimeout: busy,
	}, nil
}

// GeolocateClient builds the lookup client from the geolocate section.
func (c *Config) GeolocateClient() (*geolocate.Client, error) {
	timeout, err := ParseDurationField("geolocate.timeout", c.Geolocate.Timeout)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return geolocate.NewClient(strings.TrimSpace(c.Geolocate.Endpoint), timeout), nil
}
