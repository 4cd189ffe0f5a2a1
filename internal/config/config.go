// Package config loads and saves the application configuration.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/piwi3910/cutplan/internal/model"
)

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheFile   = "file"
	CacheRedis  = "redis"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CUTPLAN_"

// AppConfig holds the settings of the server and the CLI.
type AppConfig struct {
	LogLevel  string        `json:"log_level" toml:"log_level"`
	LogFormat string        `json:"log_format" toml:"log_format"` // text or json
	Server    ServerConfig  `json:"server" toml:"server"`
	Cache     CacheConfig   `json:"cache" toml:"cache"`
	Packing   model.Options `json:"packing" toml:"packing"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `json:"addr" toml:"addr"`
	AllowOrigins    []string      `json:"allow_origins" toml:"allow_origins"`
	MaxBodyBytes    int64         `json:"max_body_bytes" toml:"max_body_bytes"`
	ReadTimeout     time.Duration `json:"read_timeout" toml:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout" toml:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" toml:"shutdown_timeout"`
	Verify          bool          `json:"verify" toml:"verify"` // re-check cached plans before serving them
}

// CacheConfig selects and configures the plan cache.
type CacheConfig struct {
	Backend    string        `json:"backend" toml:"backend"`
	Dir        string        `json:"dir" toml:"dir"`
	RedisURL   string        `json:"redis_url" toml:"redis_url"`
	TTL        time.Duration `json:"ttl" toml:"ttl"`
	MaxEntries int           `json:"max_entries" toml:"max_entries"`
}

// Default returns the configuration used when no file exists.
func Default() AppConfig {
	return AppConfig{
		LogLevel:  "info",
		LogFormat: "text",
		Server: ServerConfig{
			Addr:            ":8080",
			AllowOrigins:    []string{"*"},
			MaxBodyBytes:    4 << 20,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Cache: CacheConfig{
			Backend:    CacheMemory,
			Dir:        filepath.Join(DefaultConfigDir(), "cache"),
			TTL:        time.Hour,
			MaxEntries: 1024,
		},
		Packing: model.DefaultOptions(),
	}
}

// DefaultConfigDir returns the default directory for application
// configuration, ~/.cutplan/ on all platforms.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".cutplan")
}

// DefaultConfigPath returns the default path for the configuration file.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Save persists cfg to path, as TOML when the extension is .toml and as
// indented JSON otherwise. Missing parent directories are created.
func Save(path string, cfg AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var data []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		data = buf.Bytes()
	} else {
		var err error
		data, err = json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
	}
	return os.WriteFile(path, data, 0644)
}

// Load reads the configuration at path on top of the defaults, so a file
// only needs the keys it changes. A missing file yields Default() with no
// error.
func Load(path string) (AppConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return AppConfig{}, fmt.Errorf("failed to read config: %w", err)
	}

	if isTOML(path) {
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return AppConfig{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	} else if err := json.Unmarshal(data, &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if cfg.Server.AllowOrigins == nil {
		cfg.Server.AllowOrigins = []string{}
	}
	return cfg, nil
}

// ApplyEnv overrides settings from CUTPLAN_* variables read through getenv
// (normally os.Getenv).
func (c *AppConfig) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvPrefix + "ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getenv(EnvPrefix + "LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := getenv(EnvPrefix + "CACHE"); v != "" {
		c.Cache.Backend = strings.ToLower(v)
	}
	if v := getenv(EnvPrefix + "CACHE_DIR"); v != "" {
		c.Cache.Dir = v
	}
	if v := getenv(EnvPrefix + "REDIS_URL"); v != "" {
		c.Cache.RedisURL = v
	}
	if v := getenv(EnvPrefix + "TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sTIMEOUT: %w", EnvPrefix, err)
		}
		c.Packing.Timeout = d
	}
	return nil
}

// Validate checks values that would otherwise fail later at startup.
func (c AppConfig) Validate() error {
	switch c.Cache.Backend {
	case CacheNone, CacheMemory, CacheFile, CacheRedis:
	default:
		return fmt.Errorf("unknown cache backend %q (valid: none, memory, file, redis)", c.Cache.Backend)
	}
	if c.Cache.Backend == CacheRedis && c.Cache.RedisURL == "" {
		return fmt.Errorf("cache backend redis requires redis_url")
	}
	if c.Cache.Backend == CacheFile && c.Cache.Dir == "" {
		return fmt.Errorf("cache backend file requires dir")
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q (valid: text, json)", c.LogFormat)
	}
	if _, err := c.Packing.Normalize(); err != nil {
		return fmt.Errorf("invalid packing options: %w", err)
	}
	if c.Packing.MaxFreeRects < 0 || c.Packing.Timeout < 0 {
		return fmt.Errorf("invalid packing options: limits must not be negative")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server addr must not be empty")
	}
	for _, o := range c.Server.AllowOrigins {
		if o != "*" && !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
			return fmt.Errorf("invalid allowed origin %q: must be * or start with http:// or https://", o)
		}
	}
	return nil
}
