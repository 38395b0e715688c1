package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no config.yaml here

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "data/pastie.db", cfg.DBPath)
	assert.Equal(t, CacheMemory, cfg.Cache.Backend)
	assert.Equal(t, 45*time.Second, cfg.Cache.ListTTL)
	assert.Equal(t, 120*time.Second, cfg.Cache.TagCloudTTL)
	assert.Equal(t, 20, cfg.PageSize)
	assert.Equal(t, 10, cfg.Highlight.SpecialEvery)
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pastie.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 9090
log_level: debug
cache:
  backend: redis
  list_ttl: 30s
  redis:
    addr: redis:6379
    db: 2
highlight:
  style: monokai
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, CacheRedis, cfg.Cache.Backend)
	assert.Equal(t, "redis:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, 2, cfg.Cache.Redis.DB)
	assert.Equal(t, "pastie", cfg.Cache.Redis.Prefix, "unset keys keep their default")
	assert.Equal(t, 30*time.Second, cfg.Cache.ListTTL)
	assert.Equal(t, "monokai", cfg.Highlight.Style)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pastie.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 9090\n"), 0o600))
	t.Setenv("PASTIE_PORT", "7070")
	t.Setenv("PASTIE_CACHE_TAG_CLOUD_TTL", "5m")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TagCloudTTL)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidValue(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PASTIE_CACHE_BACKEND", "memcached")

	_, err := Load("")
	assert.ErrorContains(t, err, "cache.backend")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Port:     8080,
			DBPath:   "x.db",
			LogLevel: "info",
			PageSize: 20,
			Cache:    CacheConfig{Backend: CacheMemory},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"port zero", func(c *Config) { c.Port = 0 }, true},
		{"port too large", func(c *Config) { c.Port = 70000 }, true},
		{"empty db path", func(c *Config) { c.DBPath = " " }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, true},
		{"zero page size", func(c *Config) { c.PageSize = 0 }, true},
		{"redis without addr", func(c *Config) { c.Cache.Backend = CacheRedis }, true},
		{"redis with addr", func(c *Config) {
			c.Cache.Backend = CacheRedis
			c.Cache.Redis.Addr = "localhost:6379"
		}, false},
		{"negative ttl", func(c *Config) { c.Cache.ListTTL = -time.Second }, true},
		{"negative special", func(c *Config) { c.Highlight.SpecialEvery = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
