package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. ANIMEWIKI_SERVER_ADDR
const EnvPrefix = "ANIMEWIKI"

// Config holds all application configuration
type Config struct {
	Catalog    CatalogConfig    `mapstructure:"catalog"`
	Collection CollectionConfig `mapstructure:"collection"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// CatalogConfig holds remote catalog client settings
type CatalogConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"` // first backoff step, doubled per attempt
	BannedIDs         []int         `mapstructure:"banned_ids"`  // hidden from browse listings
}

// CollectionConfig holds watchlist settings
type CollectionConfig struct {
	Workers int `mapstructure:"workers"` // concurrent fetches during materialization
}

// StorageConfig holds local storage settings
type StorageConfig struct {
	Path string `mapstructure:"path"` // empty keeps everything in memory
}

// ServerConfig holds search proxy settings
type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			BaseURL:           "https://api.jikan.moe/v4",
			Timeout:           30 * time.Second,
			RequestsPerSecond: 3,
			Burst:             3,
			MaxRetries:        3,
			RetryDelay:        1500 * time.Millisecond,
			BannedIDs:         []int{},
		},
		Collection: CollectionConfig{
			Workers: 3,
		},
		Storage: StorageConfig{
			Path: filepath.Join(dataDir(), "animewiki.db"),
		},
		Server: ServerConfig{
			Addr:           ":3000",
			AllowedOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			File:  filepath.Join(dataDir(), "animewiki.log"),
			Level: "INFO",
		},
	}
}

// dataDir returns the per-user data directory for the current OS
func dataDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "animewiki")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "animewiki")
	}
}

// DefaultConfigPath returns the default config directory for the current OS
func DefaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "animewiki")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "animewiki")
	}
}

// LoadConfig loads configuration from the default locations and environment
func LoadConfig() (*Config, error) {
	return Load(DefaultConfigPath(), ".")
}

// Load reads config.yaml from the first of dirs that has one, then applies
// environment overrides. A missing file is not an error.
func Load(dirs ...string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, dir := range dirs {
		v.AddConfigPath(dir)
	}

	// Environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only applies to keys viper already knows about
	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("catalog.base_url", cfg.Catalog.BaseURL)
	v.SetDefault("catalog.timeout", cfg.Catalog.Timeout)
	v.SetDefault("catalog.requests_per_second", cfg.Catalog.RequestsPerSecond)
	v.SetDefault("catalog.burst", cfg.Catalog.Burst)
	v.SetDefault("catalog.max_retries", cfg.Catalog.MaxRetries)
	v.SetDefault("catalog.retry_delay", cfg.Catalog.RetryDelay)
	v.SetDefault("catalog.banned_ids", cfg.Catalog.BannedIDs)

	v.SetDefault("collection.workers", cfg.Collection.Workers)

	v.SetDefault("storage.path", cfg.Storage.Path)

	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.allowed_origins", cfg.Server.AllowedOrigins)

	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)
}

// Validate reports the first setting that cannot work
func (c *Config) Validate() error {
	u, err := url.Parse(c.Catalog.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("catalog.base_url %q is not an absolute URL", c.Catalog.BaseURL)
	}
	if c.Catalog.Timeout <= 0 {
		return fmt.Errorf("catalog.timeout must be positive, got %s", c.Catalog.Timeout)
	}
	if c.Catalog.RequestsPerSecond <= 0 {
		return fmt.Errorf("catalog.requests_per_second must be positive, got %v", c.Catalog.RequestsPerSecond)
	}
	if c.Catalog.Burst < 1 {
		return fmt.Errorf("catalog.burst must be at least 1, got %d", c.Catalog.Burst)
	}
	if c.Catalog.MaxRetries < 0 {
		return fmt.Errorf("catalog.max_retries cannot be negative, got %d", c.Catalog.MaxRetries)
	}
	if c.Collection.Workers < 1 {
		return fmt.Errorf("collection.workers must be at least 1, got %d", c.Collection.Workers)
	}
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	return nil
}

// SaveConfig writes cfg to the default config directory
func SaveConfig(cfg *Config) error {
	return SaveConfigTo(cfg, DefaultConfigPath())
}

// SaveConfigTo writes cfg as config.yaml inside dir
func SaveConfigTo(cfg *Config, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()

	// Set fields individually to ensure correct key names (snake_case)
	v.Set("catalog.base_url", cfg.Catalog.BaseURL)
	v.Set("catalog.timeout", cfg.Catalog.Timeout.String())
	v.Set("catalog.requests_per_second", cfg.Catalog.RequestsPerSecond)
	v.Set("catalog.burst", cfg.Catalog.Burst)
	v.Set("catalog.max_retries", cfg.Catalog.MaxRetries)
	v.Set("catalog.retry_delay", cfg.Catalog.RetryDelay.String())
	v.Set("catalog.banned_ids", cfg.Catalog.BannedIDs)

	v.Set("collection.workers", cfg.Collection.Workers)

	v.Set("storage.path", cfg.Storage.Path)

	v.Set("server.addr", cfg.Server.Addr)
	v.Set("server.allowed_origins", cfg.Server.AllowedOrigins)

	v.Set("logging.file", cfg.Logging.File)
	v.Set("logging.level", cfg.Logging.Level)

	configFile := filepath.Join(dir, "config.yaml")
	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
