package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/yhkl-dev/tunecli/filesystem"
)

// ErrExists is returned by WriteDefault when the file is already there
var ErrExists = errors.New("config file already exists")

// document is the on-disk shape; durations are written as strings
type document struct {
	Catalog struct {
		URL           string  `toml:"url" comment:"catalog service base URL"`
		Token         string  `toml:"token" comment:"bearer token; prefer 'tunecli auth login'"`
		Timeout       string  `toml:"timeout"`
		RateLimit     float64 `toml:"rate_limit" comment:"requests per second, 0 disables the limit"`
		Cache         bool    `toml:"cache" comment:"serve the last fetched tracks when offline"`
		CacheLifetime string  `toml:"cache_lifetime"`
	} `toml:"catalog"`
	Player struct {
		Backend     string  `toml:"backend" comment:"mpv or beep"`
		Volume      float64 `toml:"volume" comment:"0.0 to 1.0"`
		HTTPTimeout string  `toml:"http_timeout"`
		LoadTimeout string  `toml:"load_timeout"`

		PauseOnDisconnect bool `toml:"pause_on_disconnect" comment:"pause when headphones or an external output disconnect (macOS)"`
	} `toml:"player"`
	UI struct {
		PageSize         int `toml:"page_size"`
		ProgressBarWidth int `toml:"progress_bar_width"`
		MaxColumnWidth   int `toml:"max_column_width"`
		CompactWidth     int `toml:"compact_width" comment:"below this terminal width the compact player is used"`
	} `toml:"ui"`
	Logs struct {
		Write bool   `toml:"write"`
		Level string `toml:"level"`
		JSON  bool   `toml:"json"`
	} `toml:"logs"`
}

func toDocument(c *Config) document {
	var d document
	d.Catalog.URL = c.Catalog.URL
	d.Catalog.Token = c.Catalog.Token
	d.Catalog.Timeout = durationString(c.Catalog.Timeout)
	d.Catalog.RateLimit = c.Catalog.RateLimit
	d.Catalog.Cache = c.Catalog.Cache
	d.Catalog.CacheLifetime = durationString(c.Catalog.CacheLifetime)
	d.Player.Backend = c.Player.Backend
	d.Player.Volume = c.Player.Volume
	d.Player.HTTPTimeout = durationString(c.Player.HTTPTimeout)
	d.Player.LoadTimeout = durationString(c.Player.LoadTimeout)
	d.Player.PauseOnDisconnect = c.Player.PauseOnDisconnect
	d.UI.PageSize = c.UI.PageSize
	d.UI.ProgressBarWidth = c.UI.ProgressBarWidth
	d.UI.MaxColumnWidth = c.UI.MaxColumnWidth
	d.UI.CompactWidth = c.UI.CompactWidth
	d.Logs.Write = c.Logs.Write
	d.Logs.Level = c.Logs.Level
	d.Logs.JSON = c.Logs.JSON
	return d
}

func durationString(d time.Duration) string {
	return d.String()
}

// Marshal renders c as TOML
func Marshal(c *Config) ([]byte, error) {
	return toml.Marshal(toDocument(c))
}

// WriteDefault writes the default configuration to path unless it exists
func WriteDefault(path string, overwrite bool) error {
	afs := filesystem.API()
	if _, err := afs.Stat(path); err == nil && !overwrite {
		return fmt.Errorf("%w: %s", ErrExists, path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	data, err := Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("render defaults: %w", err)
	}
	if err := afs.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return afs.WriteFile(path, data, 0o600)
}
