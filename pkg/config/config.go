// Package config loads livedot's TOML configuration file.
//
// The file lives at $XDG_CONFIG_HOME/livedot/config.toml (or
// ~/.config/livedot/config.toml). Every key is optional; missing keys keep
// their defaults and unknown keys are rejected so typos do not go unnoticed.
//
//	[render]
//	layout = "neato"
//	format = "svg"
//	normalize_svg = true
//
//	[watch]
//	retry_delay = "100ms"
//	max_stat_retries = 50
//
//	[cache]
//	backend = "redis"          # file, redis, mongo or none
//	redis_addr = "localhost:6379"
//	ttl = "168h"
//
//	[serve]
//	addr = "127.0.0.1:8080"
//
//	[log]
//	level = "info"
package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/livedot/pkg/cache"
	"github.com/matzehuels/livedot/pkg/errors"
	"github.com/matzehuels/livedot/pkg/watcher"
)

const appName = "livedot"

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendMongo = "mongo"
	BackendNone  = "none"
)

var backends = []string{BackendFile, BackendRedis, BackendMongo, BackendNone}

// Config is the whole configuration file.
type Config struct {
	Render Render `toml:"render"`
	Watch  Watch  `toml:"watch"`
	Cache  Cache  `toml:"cache"`
	Serve  Serve  `toml:"serve"`
	Log    Log    `toml:"log"`
}

// Render holds rendering defaults.
type Render struct {
	Layout       string            `toml:"layout"`
	Format       string            `toml:"format"`
	NormalizeSVG bool              `toml:"normalize_svg"`
	Args         map[string]string `toml:"args"`
}

// Watch tunes the file watcher.
type Watch struct {
	RetryDelay     time.Duration `toml:"retry_delay"`
	MaxStatRetries int           `toml:"max_stat_retries"`
}

// Cache selects the output cache backend.
type Cache struct {
	Backend   string        `toml:"backend"`
	Dir       string        `toml:"dir"`
	RedisAddr string        `toml:"redis_addr"`
	MongoURI  string        `toml:"mongo_uri"`
	MongoDB   string        `toml:"mongo_db"`
	TTL       time.Duration `toml:"ttl"`
}

// Serve configures the preview server.
type Serve struct {
	Addr string `toml:"addr"`
}

// Log configures the CLI logger.
type Log struct {
	Level string `toml:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Render: Render{Layout: "dot", Format: "svg"},
		Watch: Watch{
			RetryDelay:     watcher.DefaultRetryDelay,
			MaxStatRetries: watcher.DefaultMaxStatRetries,
		},
		Cache: Cache{
			Backend: BackendFile,
			MongoDB: cache.DefaultMongoDatabase,
			TTL:     cache.TTLArtifact,
		},
		Serve: Serve{Addr: "127.0.0.1:8080"},
		Log:   Log{Level: "info"},
	}
}

// Path returns the default configuration file path.
func Path() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// CacheDir returns the default file cache directory.
func CacheDir() (string, error) {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// Load reads path over the defaults. A missing file is not an error when
// path is the default location; an explicitly named file must exist.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := Path()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && !explicit {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeIO, err, "read config %s", path)
	}
	return Parse(data)
}

// Parse decodes TOML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, errors.New(errors.ErrCodeInvalidInput, "unknown config keys: %s", strings.Join(keys, ", "))
	}
	return cfg, cfg.Validate()
}

// Validate checks value ranges and names.
func (c *Config) Validate() error {
	if err := errors.ValidateEngineName(c.Render.Layout); err != nil {
		return err
	}
	if err := errors.ValidateFormat(c.Render.Format); err != nil {
		return err
	}
	for name := range c.Render.Args {
		if err := errors.ValidateAttributeName(name); err != nil {
			return err
		}
	}
	if c.Watch.RetryDelay <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "watch.retry_delay must be positive")
	}
	if !slices.Contains(backends, c.Cache.Backend) {
		return errors.New(errors.ErrCodeInvalidInput, "cache.backend must be one of %s", strings.Join(backends, ", "))
	}
	switch c.Cache.Backend {
	case BackendRedis:
		if c.Cache.RedisAddr == "" {
			return errors.New(errors.ErrCodeInvalidInput, "cache.redis_addr is required for the redis backend")
		}
	case BackendMongo:
		if c.Cache.MongoURI == "" {
			return errors.New(errors.ErrCodeInvalidInput, "cache.mongo_uri is required for the mongo backend")
		}
	}
	if c.Serve.Addr == "" {
		return errors.New(errors.ErrCodeInvalidInput, "serve.addr cannot be empty")
	}
	if _, err := c.Log.ParseLevel(); err != nil {
		return err
	}
	return nil
}

// ParseLevel returns the charmbracelet/log level named by Level.
func (l Log) ParseLevel() (log.Level, error) {
	lvl, err := log.ParseLevel(l.Level)
	if err != nil {
		return lvl, errors.Wrap(errors.ErrCodeInvalidInput, err, "log.level")
	}
	return lvl, nil
}

// WatchOptions converts the watch section into watcher options.
func (w Watch) WatchOptions() []watcher.Option {
	return []watcher.Option{
		watcher.WithRetryDelay(w.RetryDelay),
		watcher.WithMaxStatRetries(w.MaxStatRetries),
	}
}
