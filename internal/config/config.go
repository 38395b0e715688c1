// Package config loads the server configuration.
//
// SOURCES, lowest to highest precedence:
//  1. built-in defaults (setDefaults)
//  2. an optional YAML file: config.yaml in ./ or ./configs, or an explicit path
//  3. environment variables prefixed PASTIE_, with "." in a key written as "_":
//     cache.redis.addr → PASTIE_CACHE_REDIS_ADDR
//
// A viper instance is created per Load call instead of using viper's global
// one, so tests can load several configurations side by side.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

type Config struct {
	Port      int             `mapstructure:"port"`
	DBPath    string          `mapstructure:"db_path"`
	LogLevel  string          `mapstructure:"log_level"`
	PageSize  int             `mapstructure:"page_size"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Highlight HighlightConfig `mapstructure:"highlight"`
}

type CacheConfig struct {
	Backend     string        `mapstructure:"backend"` // "memory" or "redis"
	Redis       RedisConfig   `mapstructure:"redis"`
	ListTTL     time.Duration `mapstructure:"list_ttl"`
	TagCloudTTL time.Duration `mapstructure:"tag_cloud_ttl"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type HighlightConfig struct {
	Style        string `mapstructure:"style"`
	SpecialEvery int    `mapstructure:"special_every"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("db_path", "data/pastie.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("page_size", 20)

	v.SetDefault("cache.backend", CacheMemory)
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.prefix", "pastie")
	v.SetDefault("cache.list_ttl", 45*time.Second)
	v.SetDefault("cache.tag_cloud_ttl", 120*time.Second)

	v.SetDefault("highlight.style", "friendly")
	v.SetDefault("highlight.special_every", 10)
}

// Load reads the configuration. An empty path searches for config.yaml and
// carries on without one; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PASTIE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first setting the server cannot start with.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return errors.New("config: db_path is required")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.PageSize < 1 {
		return fmt.Errorf("config: page_size must be positive, got %d", c.PageSize)
	}

	switch c.Cache.Backend {
	case CacheMemory:
	case CacheRedis:
		if c.Cache.Redis.Addr == "" {
			return errors.New("config: cache.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("config: unknown cache.backend %q (want %q or %q)", c.Cache.Backend, CacheMemory, CacheRedis)
	}
	if c.Cache.ListTTL < 0 || c.Cache.TagCloudTTL < 0 {
		return errors.New("config: cache TTLs must not be negative")
	}
	if c.Highlight.SpecialEvery < 0 {
		return fmt.Errorf("config: highlight.special_every must not be negative, got %d", c.Highlight.SpecialEvery)
	}
	return nil
}

// SlogLevel parses LogLevel ("debug", "info", "warn", "error").
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: log_level: %w", err)
	}
	return level, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
