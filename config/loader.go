package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/yhkl-dev/tunecli/filesystem"
	"github.com/yhkl-dev/tunecli/log"
	"github.com/yhkl-dev/tunecli/where"
)

// EnvPrefix prefixes every environment override, e.g. TUNECLI_CATALOG_URL
const EnvPrefix = "TUNECLI"

// Options tells the loader where to look
type Options struct {
	// File is an explicit config file; empty searches the usual places
	File string
	// SearchPaths override the default search directories
	SearchPaths []string
	// Flags are bound by their config key names, e.g. "player.backend"
	Flags *pflag.FlagSet
}

// Loader reads configuration from file, environment and flags
type Loader struct {
	v    *viper.Viper
	opts Options
}

// NewLoader prepares a viper instance with defaults and env bindings
func NewLoader(opts Options) *Loader {
	v := viper.New()
	v.SetFs(filesystem.API().Fs)
	v.SetConfigType("toml")
	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.SetConfigName(where.App)
		paths := opts.SearchPaths
		if len(paths) == 0 {
			paths = []string{where.Config(), "$HOME/.config/", "."}
		}
		for _, p := range paths {
			v.AddConfigPath(p)
		}
	}

	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{v: v, opts: opts}
}

// Load reads the configuration with default search paths
func Load(opts Options) (*Config, error) {
	return NewLoader(opts).Load()
}

// Load reads, decodes and validates the configuration
func (l *Loader) Load() (*Config, error) {
	if l.opts.Flags != nil {
		if err := l.bindFlags(l.opts.Flags); err != nil {
			return nil, err
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
			log.Info("no config file found, using defaults and environment")
		case l.opts.File != "" && errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("config file %s does not exist", l.opts.File)
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return l.decode()
}

// Used returns the config file that was read, if any
func (l *Loader) Used() string {
	return l.v.ConfigFileUsed()
}

// Watch calls fn with the reloaded configuration whenever the file changes
func (l *Loader) Watch(fn func(*Config, error)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		log.Infof("config changed: %s (%s)", e.Name, e.Op)
		fn(l.decode())
	})
	l.v.WatchConfig()
}

func (l *Loader) bindFlags(flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		if !strings.Contains(f.Name, ".") || err != nil {
			return
		}
		err = l.v.BindPFlag(f.Name, f)
	})
	if err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	return nil
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		secondsToDurationHook(),
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := l.v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// secondsToDurationHook reads bare numbers as seconds, e.g. http_timeout = 30
func secondsToDurationHook() mapstructure.DecodeHookFuncType {
	durationType := reflect.TypeOf(time.Duration(0))
	return func(from, to reflect.Type, data any) (any, error) {
		if to != durationType || from == durationType {
			return data, nil
		}
		switch from.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
			secs, err := cast.ToFloat64E(data)
			if err != nil {
				return nil, err
			}
			return time.Duration(secs * float64(time.Second)), nil
		case reflect.String:
			if secs, err := cast.ToFloat64E(data); err == nil {
				return time.Duration(secs * float64(time.Second)), nil
			}
		}
		return data, nil
	}
}

func setDefaults(v *viper.Viper, c *Config) {
	for key, value := range flatten(c) {
		v.SetDefault(key, value)
	}
}

// flatten maps every config key to its value
func flatten(c *Config) map[string]any {
	return map[string]any{
		"catalog.url":                c.Catalog.URL,
		"catalog.token":              c.Catalog.Token,
		"catalog.timeout":            c.Catalog.Timeout,
		"catalog.rate_limit":         c.Catalog.RateLimit,
		"catalog.cache":              c.Catalog.Cache,
		"catalog.cache_lifetime":     c.Catalog.CacheLifetime,
		"player.backend":             c.Player.Backend,
		"player.volume":              c.Player.Volume,
		"player.http_timeout":        c.Player.HTTPTimeout,
		"player.load_timeout":        c.Player.LoadTimeout,
		"player.pause_on_disconnect": c.Player.PauseOnDisconnect,
		"ui.page_size":               c.UI.PageSize,
		"ui.progress_bar_width":      c.UI.ProgressBarWidth,
		"ui.max_column_width":        c.UI.MaxColumnWidth,
		"ui.compact_width":           c.UI.CompactWidth,
		"logs.write":                 c.Logs.Write,
		"logs.level":                 c.Logs.Level,
		"logs.json":                  c.Logs.JSON,
	}
}

// LoadDotEnv loads a .env file into the environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := filesystem.API().Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	f, err := filesystem.API().Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	env, err := godotenv.Parse(f)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return setMissingEnv(env)
}

func setMissingEnv(env map[string]string) error {
	var err error
	for key, value := range env {
		if _, ok := os.LookupEnv(key); ok {
			continue
		}
		err = multierr.Append(err, os.Setenv(key, value))
	}
	return err
}
