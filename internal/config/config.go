// Package config loads pipeline configuration from config.yaml,
// environment variables and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Configuration validation errors.
var (
	ErrMissingEditionURL   = errors.New("edition_url is required")
	ErrMissingBaseURL      = errors.New("base_url is required")
	ErrInvalidRetryCount   = errors.New("http.retry_count must be non-negative")
	ErrInvalidTimeout      = errors.New("http.timeout must be positive")
	ErrMissingCachePath    = errors.New("cache.path is required")
	ErrInvalidTocTTL       = errors.New("cache.toc_ttl must be non-negative")
	ErrInvalidMaxWidth     = errors.New("images.max_width must be at least 1")
	ErrMissingImagesDir    = errors.New("images.dir is required")
	ErrMissingOutputDir    = errors.New("output.dir is required")
	ErrInvalidLogLevel     = errors.New("log.level must be one of: debug, info, warn, error")
	ErrInvalidRetryWait    = errors.New("http.retry_wait must be non-negative")
	ErrInvalidRetryMaxWait = errors.New("http.retry_max_wait must be >= http.retry_wait")
)

// Config holds every tunable of a run.
type Config struct {
	EditionURL string       `mapstructure:"edition_url"`
	BaseURL    string       `mapstructure:"base_url"`
	UserAgent  string       `mapstructure:"user_agent"`
	HTTP       HTTPConfig   `mapstructure:"http"`
	Cache      CacheConfig  `mapstructure:"cache"`
	Images     ImagesConfig `mapstructure:"images"`
	Output     OutputConfig `mapstructure:"output"`
	Log        LogConfig    `mapstructure:"log"`
}

// HTTPConfig tunes the fetcher's resty client.
type HTTPConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	RetryCount   int           `mapstructure:"retry_count"`
	RetryWait    time.Duration `mapstructure:"retry_wait"`
	RetryMaxWait time.Duration `mapstructure:"retry_max_wait"`
}

// CacheConfig locates the bbolt store and sets ToC freshness.
type CacheConfig struct {
	Path   string        `mapstructure:"path"`
	TocTTL time.Duration `mapstructure:"toc_ttl"`
}

// ImagesConfig tunes the image resolver.
type ImagesConfig struct {
	Dir      string `mapstructure:"dir"`
	MaxWidth int    `mapstructure:"max_width"`
}

// OutputConfig locates the built ebook.
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// LogConfig tunes logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration in precedence order: defaults, config file,
// environment (SAPTAHIK_ prefix). A missing config file is not an error.
// path may be empty, in which case config.yaml in the working directory
// is tried.
func Load(path string) (*Config, error) {
	// .env is optional; ignore absence.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SAPTAHIK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("edition_url", "https://www.economist.com/printedition/")
	v.SetDefault("base_url", "https://www.economist.com")
	v.SetDefault("user_agent", "saptahik/1.0 (+https://github.com/Adda-Baaj/saptahik)")
	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.retry_count", 3)
	v.SetDefault("http.retry_wait", 2*time.Second)
	v.SetDefault("http.retry_max_wait", 10*time.Second)
	v.SetDefault("cache.path", "saptahik.db")
	v.SetDefault("cache.toc_ttl", 24*time.Hour)
	v.SetDefault("images.dir", "images")
	v.SetDefault("images.max_width", 400)
	v.SetDefault("output.dir", ".")
	v.SetDefault("log.level", "info")
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.EditionURL) == "" {
		return ErrMissingEditionURL
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		return ErrMissingBaseURL
	}
	if c.HTTP.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.HTTP.RetryCount < 0 {
		return ErrInvalidRetryCount
	}
	if c.HTTP.RetryWait < 0 {
		return ErrInvalidRetryWait
	}
	if c.HTTP.RetryMaxWait < c.HTTP.RetryWait {
		return ErrInvalidRetryMaxWait
	}
	if strings.TrimSpace(c.Cache.Path) == "" {
		return ErrMissingCachePath
	}
	if c.Cache.TocTTL < 0 {
		return ErrInvalidTocTTL
	}
	if strings.TrimSpace(c.Images.Dir) == "" {
		return ErrMissingImagesDir
	}
	if c.Images.MaxWidth < 1 {
		return ErrInvalidMaxWidth
	}
	if strings.TrimSpace(c.Output.Dir) == "" {
		return ErrMissingOutputDir
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	return nil
}
