// Package where resolves the directories tunecli reads and writes.
package where

import (
	"os"
	"path/filepath"

	"github.com/yhkl-dev/tunecli/filesystem"
)

// App is the directory and file stem used everywhere
const App = "tunecli"

// EnvConfigPath overrides the config directory
const EnvConfigPath = "TUNECLI_CONFIG_PATH"

func ensureDir(path string) string {
	_ = filesystem.API().MkdirAll(path, os.ModePerm)
	return path
}

// Config returns the config directory, honouring TUNECLI_CONFIG_PATH
func Config() string {
	if custom, ok := os.LookupEnv(EnvConfigPath); ok {
		return ensureDir(custom)
	}
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return ensureDir(filepath.Join(base, App))
}

// ConfigFile is the default config file path
func ConfigFile() string {
	return filepath.Join(Config(), App+".toml")
}

// Cache returns the cache directory
func Cache() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = filepath.Join(".", "cache")
	}
	return ensureDir(filepath.Join(base, App))
}

// Logs returns the log directory
func Logs() string {
	return ensureDir(filepath.Join(Config(), "logs"))
}

// CatalogCache is the file holding the last fetched catalog
func CatalogCache() string {
	return filepath.Join(Cache(), "catalog.json")
}
