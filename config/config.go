package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"slices"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// ErrInvalid wraps every validation failure
var ErrInvalid = errors.New("invalid configuration")

// Backends lists the supported player backends
var Backends = []string{"mpv", "beep"}

// Config represents the complete application configuration
type Config struct {
	Catalog CatalogConfig `mapstructure:"catalog"`
	Player  PlayerConfig  `mapstructure:"player"`
	UI      UIConfig      `mapstructure:"ui"`
	Logs    LogsConfig    `mapstructure:"logs"`
}

// CatalogConfig contains catalog service connection settings
type CatalogConfig struct {
	URL           string        `mapstructure:"url"`
	Token         string        `mapstructure:"token"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RateLimit     float64       `mapstructure:"rate_limit"` // requests per second
	Cache         bool          `mapstructure:"cache"`
	CacheLifetime time.Duration `mapstructure:"cache_lifetime"`
}

// PlayerConfig contains playback and HTTP client settings
type PlayerConfig struct {
	Backend     string        `mapstructure:"backend"`
	Volume      float64       `mapstructure:"volume"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	LoadTimeout time.Duration `mapstructure:"load_timeout"`

	// PauseOnDisconnect pauses when headphones or an external output go away
	PauseOnDisconnect bool `mapstructure:"pause_on_disconnect"`
}

// UIConfig contains user interface settings
type UIConfig struct {
	PageSize         int `mapstructure:"page_size"`
	ProgressBarWidth int `mapstructure:"progress_bar_width"`
	MaxColumnWidth   int `mapstructure:"max_column_width"`
	CompactWidth     int `mapstructure:"compact_width"`
}

// LogsConfig controls the log file
type LogsConfig struct {
	Write bool   `mapstructure:"write"`
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// Validate checks the values the player cannot run without
func (c *Config) Validate() error {
	var err error

	if c.Catalog.URL == "" {
		err = multierr.Append(err, fmt.Errorf("%w: catalog.url is required", ErrInvalid))
	} else if u, perr := url.Parse(c.Catalog.URL); perr != nil || !u.IsAbs() || u.Host == "" {
		err = multierr.Append(err, fmt.Errorf("%w: catalog.url %q is not an absolute URL", ErrInvalid, c.Catalog.URL))
	}
	if c.Catalog.RateLimit < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: catalog.rate_limit must not be negative", ErrInvalid))
	}
	if !slices.Contains(Backends, c.Player.Backend) {
		err = multierr.Append(err, fmt.Errorf("%w: player.backend %q is not one of %v", ErrInvalid, c.Player.Backend, Backends))
	}
	if math.IsNaN(c.Player.Volume) || c.Player.Volume < 0 || c.Player.Volume > 1 {
		err = multierr.Append(err, fmt.Errorf("%w: player.volume %.2f is outside [0,1]", ErrInvalid, c.Player.Volume))
	}
	if c.UI.PageSize <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: ui.page_size must be positive", ErrInvalid))
	}
	if _, perr := logrus.ParseLevel(c.Logs.Level); perr != nil {
		err = multierr.Append(err, fmt.Errorf("%w: logs.level: %w", ErrInvalid, perr))
	}
	return err
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			URL:           "http://localhost:8000",
			Timeout:       15 * time.Second,
			RateLimit:     5,
			Cache:         true,
			CacheLifetime: 7 * 24 * time.Hour,
		},
		Player: PlayerConfig{
			Backend:     "mpv",
			Volume:      1,
			HTTPTimeout: 30 * time.Second,
			LoadTimeout: 30 * time.Second,

			PauseOnDisconnect: true,
		},
		UI: UIConfig{
			PageSize:         500,
			ProgressBarWidth: 30,
			MaxColumnWidth:   40,
			CompactWidth:     100,
		},
		Logs: LogsConfig{
			Level: "info",
		},
	}
}
