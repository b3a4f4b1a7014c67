// Package config handles loading and managing crossasset configuration.
// It uses Viper to support YAML config files and CROSSASSET_* environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment override, e.g. CROSSASSET_API_PORT.
const EnvPrefix = "CROSSASSET"

// Config is the root configuration structure.
type Config struct {
	Fetch    FetchConfig    `mapstructure:"fetch"    yaml:"fetch"    json:"fetch"`
	Cache    CacheConfig    `mapstructure:"cache"    yaml:"cache"    json:"cache"`
	Analysis AnalysisConfig `mapstructure:"analysis" yaml:"analysis" json:"analysis"`
	Catalog  CatalogConfig  `mapstructure:"catalog"  yaml:"catalog"  json:"catalog"`
	API      APIConfig      `mapstructure:"api"      yaml:"api"      json:"api"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"  json:"logging"`

	// File is the config file that was read, empty when running on defaults.
	File string `mapstructure:"-" yaml:"-" json:"file,omitempty"`
}

// FetchConfig controls upstream requests.
type FetchConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"        yaml:"timeout"        json:"timeout"` // per series
	Retries      int           `mapstructure:"retries"        yaml:"retries"        json:"retries"` // 0 or 1
	Concurrency  int           `mapstructure:"concurrency"    yaml:"concurrency"    json:"concurrency"`
	RateLimit    int           `mapstructure:"rate_limit"     yaml:"rate_limit"     json:"rate_limit"` // requests/second per upstream
	FredBaseURL  string        `mapstructure:"fred_base_url"  yaml:"fred_base_url"  json:"fred_base_url"`
	YahooBaseURL string        `mapstructure:"yahoo_base_url" yaml:"yahoo_base_url" json:"yahoo_base_url"`
	UserAgent    string        `mapstructure:"user_agent"     yaml:"user_agent"     json:"user_agent"`
}

// CacheConfig controls the fetch result cache.
type CacheConfig struct {
	TTL           time.Duration `mapstructure:"ttl"            yaml:"ttl"            json:"ttl"`
	RedisAddr     string        `mapstructure:"redis_addr"     yaml:"redis_addr"     json:"redis_addr"` // empty disables the L2 cache
	RedisPassword string        `mapstructure:"redis_password" yaml:"redis_password" json:"-"`
	RedisDB       int           `mapstructure:"redis_db"       yaml:"redis_db"       json:"redis_db"`
}

// AnalysisConfig holds numeric defaults for transforms and analytics.
type AnalysisConfig struct {
	IndicatorWindow int    `mapstructure:"indicator_window" yaml:"indicator_window" json:"indicator_window"`
	RollingWindow   int    `mapstructure:"rolling_window"   yaml:"rolling_window"   json:"rolling_window"`
	DefaultRange    string `mapstructure:"default_range"    yaml:"default_range"    json:"default_range"` // "1y", "5y", "10y", "20y", "max"
}

// CatalogConfig points at optional catalog overrides.
type CatalogConfig struct {
	Path       string `mapstructure:"path"        yaml:"path"        json:"path"`        // YAML file replacing the embedded catalog
	EventsFeed string `mapstructure:"events_feed" yaml:"events_feed" json:"events_feed"` // RSS/Atom URL for extra chart annotations
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Host           string        `mapstructure:"host"            yaml:"host"            json:"host"`
	Port           int           `mapstructure:"port"            yaml:"port"            json:"port"`
	CORSOrigins    []string      `mapstructure:"cors_origins"    yaml:"cors_origins"    json:"cors_origins"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout" json:"request_timeout"`
}

// LoggingConfig holds log settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  json:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format" json:"format"` // "text" or "json"
}

// Load reads configuration from file and environment.
// Search order: ./config/crossasset.yaml, ~/.crossasset/crossasset.yaml, /etc/crossasset/crossasset.yaml
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("crossasset")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".crossasset"))
	v.AddConfigPath("/etc/crossasset")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	overrideFromEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in defaults without reading files or the environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// setDefaults configures default values for all config keys.
func setDefaults(v *viper.Viper) {
	v.SetDefault("fetch.timeout", 30*time.Second)
	v.SetDefault("fetch.retries", 1)
	v.SetDefault("fetch.concurrency", 4)
	v.SetDefault("fetch.rate_limit", 5)
	v.SetDefault("fetch.fred_base_url", "https://fred.stlouisfed.org")
	v.SetDefault("fetch.yahoo_base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("fetch.user_agent", "")

	v.SetDefault("cache.ttl", time.Hour)
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_db", 0)

	v.SetDefault("analysis.indicator_window", 200)
	v.SetDefault("analysis.rolling_window", 180)
	v.SetDefault("analysis.default_range", "10y")

	v.SetDefault("catalog.path", "")
	v.SetDefault("catalog.events_feed", "")

	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"*"})
	v.SetDefault("api.request_timeout", 60*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv applies secrets that are only read from the environment
// when the config file leaves them empty.
func overrideFromEnv(cfg *Config) {
	if pw := os.Getenv("REDIS_PASSWORD"); pw != "" && cfg.Cache.RedisPassword == "" {
		cfg.Cache.RedisPassword = pw
	}
}

// Validate rejects values the rest of the program cannot work with.
func (c *Config) Validate() error {
	switch {
	case c.Fetch.Timeout <= 0:
		return fmt.Errorf("fetch.timeout must be positive, got %s", c.Fetch.Timeout)
	case c.Fetch.Retries < 0 || c.Fetch.Retries > 1:
		return fmt.Errorf("fetch.retries must be 0 or 1, got %d", c.Fetch.Retries)
	case c.Fetch.Concurrency < 1:
		return fmt.Errorf("fetch.concurrency must be at least 1, got %d", c.Fetch.Concurrency)
	case c.Cache.TTL < 0:
		return fmt.Errorf("cache.ttl must not be negative, got %s", c.Cache.TTL)
	case c.Analysis.IndicatorWindow < 2:
		return fmt.Errorf("analysis.indicator_window must be at least 2, got %d", c.Analysis.IndicatorWindow)
	case c.Analysis.RollingWindow < 2:
		return fmt.Errorf("analysis.rolling_window must be at least 2, got %d", c.Analysis.RollingWindow)
	case c.API.Port <= 0 || c.API.Port > 65535:
		return fmt.Errorf("api.port out of range: %d", c.API.Port)
	}
	return nil
}

// Addr returns host:port for the HTTP server.
func (c APIConfig) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// homeDir returns the user's home directory or "." as fallback.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
