package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	// Empty file: every value comes from the defaults.
	path := writeFile(t, "config.yaml", "")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://www.economist.com/printedition/", cfg.EditionURL)
	assert.Equal(t, "https://www.economist.com", cfg.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 3, cfg.HTTP.RetryCount)
	assert.Equal(t, "saptahik.db", cfg.Cache.Path)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TocTTL)
	assert.Equal(t, 400, cfg.Images.MaxWidth)
	assert.Equal(t, "images", cfg.Images.Dir)
	assert.Equal(t, ".", cfg.Output.Dir)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FileOverrides(t *testing.T) {
	path := writeFile(t, "config.yaml", `
edition_url: https://example.com/weekly/
http:
  timeout: 45s
  retry_count: 5
images:
  max_width: 600
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/weekly/", cfg.EditionURL)
	assert.Equal(t, 45*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 5, cfg.HTTP.RetryCount)
	assert.Equal(t, 600, cfg.Images.MaxWidth)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Untouched keys keep their defaults.
	assert.Equal(t, "saptahik.db", cfg.Cache.Path)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SAPTAHIK_IMAGES_MAX_WIDTH", "250")
	t.Setenv("SAPTAHIK_LOG_LEVEL", "warn")

	path := writeFile(t, "config.yaml", "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.Images.MaxWidth)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_InvalidRejected(t *testing.T) {
	path := writeFile(t, "config.yaml", "images:\n  max_width: 0\n")

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidMaxWidth)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			EditionURL: "https://example.com/weekly/",
			BaseURL:    "https://example.com",
			HTTP: HTTPConfig{
				Timeout:      time.Second,
				RetryCount:   1,
				RetryWait:    time.Second,
				RetryMaxWait: 2 * time.Second,
			},
			Cache:  CacheConfig{Path: "cache.db", TocTTL: time.Hour},
			Images: ImagesConfig{Dir: "images", MaxWidth: 400},
			Output: OutputConfig{Dir: "."},
			Log:    LogConfig{Level: "info"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(c *Config) {}, nil},
		{"missing edition url", func(c *Config) { c.EditionURL = " " }, ErrMissingEditionURL},
		{"missing base url", func(c *Config) { c.BaseURL = "" }, ErrMissingBaseURL},
		{"zero timeout", func(c *Config) { c.HTTP.Timeout = 0 }, ErrInvalidTimeout},
		{"negative retries", func(c *Config) { c.HTTP.RetryCount = -1 }, ErrInvalidRetryCount},
		{"max wait below wait", func(c *Config) { c.HTTP.RetryMaxWait = 0 }, ErrInvalidRetryMaxWait},
		{"missing cache path", func(c *Config) { c.Cache.Path = "" }, ErrMissingCachePath},
		{"negative ttl", func(c *Config) { c.Cache.TocTTL = -time.Hour }, ErrInvalidTocTTL},
		{"zero max width", func(c *Config) { c.Images.MaxWidth = 0 }, ErrInvalidMaxWidth},
		{"missing images dir", func(c *Config) { c.Images.Dir = "" }, ErrMissingImagesDir},
		{"missing output dir", func(c *Config) { c.Output.Dir = "" }, ErrMissingOutputDir},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, ErrInvalidLogLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
