package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ytget/linkedin-dl/internal/logger"
	"github.com/ytget/linkedin-dl/types"
)

// Environment variables read by ApplyEnv.
const (
	EnvMaxAttempts = "LINKEDIN_DL_MAX_ATTEMPTS"
	EnvWait        = "LINKEDIN_DL_WAIT"
	EnvLimit       = "LINKEDIN_DL_LIMIT"
	EnvQuality     = "LINKEDIN_DL_QUALITY"
	EnvRateLimit   = "LINKEDIN_DL_RATE_LIMIT"
	EnvHTTPTimeout = "LINKEDIN_DL_HTTP_TIMEOUT"
	EnvHTTPRetries = "LINKEDIN_DL_HTTP_RETRIES"
	EnvStall       = "LINKEDIN_DL_STALL_TIMEOUT"
	EnvUserAgent   = "LINKEDIN_DL_USER_AGENT"
	EnvProxy       = "LINKEDIN_DL_PROXY"
)

// Config defines configuration for the linkedin-dl CLI.
type Config struct {
	MaxAttempts int
	Wait        time.Duration
	Limit       time.Duration
	Quality     types.Quality
	// RateLimit is in bytes per second, 0 for unlimited.
	RateLimit int64
	HTTP      HTTPConfig
	Log       *logger.LogConfig
}

// HTTPConfig configures page and stream requests.
type HTTPConfig struct {
	Timeout time.Duration
	// StallTimeout ends a capture whose stream stops delivering bytes.
	StallTimeout time.Duration
	Retries      int
	UserAgent    string
	Proxy        string
}

// Default returns a Config with the CLI defaults.
func Default() Config {
	return Config{
		MaxAttempts: 10,
		Quality:     types.DefaultQuality,
		Log:         logger.DefaultLogConfig(),
	}
}

// yamlConfig is used for YAML unmarshaling with string durations.
type yamlConfig struct {
	MaxAttempts int               `yaml:"max_attempts"`
	Wait        string            `yaml:"wait"`
	Limit       string            `yaml:"limit"`
	Quality     int               `yaml:"quality"`
	RateLimit   int64             `yaml:"rate_limit"`
	HTTP        yamlHTTPConfig    `yaml:"http"`
	Log         *logger.LogConfig `yaml:"log"`
}

type yamlHTTPConfig struct {
	Timeout      string `yaml:"timeout"`
	StallTimeout string `yaml:"stall_timeout"`
	Retries      int    `yaml:"retries"`
	UserAgent    string `yaml:"user_agent"`
	Proxy        string `yaml:"proxy"`
}

// LoadFromFile loads configuration from a YAML file on top of Default.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	yc := yamlConfig{Log: logger.DefaultLogConfig()}
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()
	if yc.MaxAttempts != 0 {
		cfg.MaxAttempts = yc.MaxAttempts
	}
	if yc.Wait != "" {
		d, err := time.ParseDuration(yc.Wait)
		if err != nil {
			return Config{}, fmt.Errorf("parse wait: %w", err)
		}
		cfg.Wait = d
	}
	if yc.Limit != "" {
		d, err := time.ParseDuration(yc.Limit)
		if err != nil {
			return Config{}, fmt.Errorf("parse limit: %w", err)
		}
		cfg.Limit = d
	}
	if yc.Quality != 0 {
		cfg.Quality = types.Quality(yc.Quality)
	}
	cfg.RateLimit = yc.RateLimit
	if yc.HTTP.Timeout != "" {
		d, err := time.ParseDuration(yc.HTTP.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse http.timeout: %w", err)
		}
		cfg.HTTP.Timeout = d
	}
	if yc.HTTP.StallTimeout != "" {
		d, err := time.ParseDuration(yc.HTTP.StallTimeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse http.stall_timeout: %w", err)
		}
		cfg.HTTP.StallTimeout = d
	}
	cfg.HTTP.Retries = yc.HTTP.Retries
	cfg.HTTP.UserAgent = yc.HTTP.UserAgent
	cfg.HTTP.Proxy = yc.HTTP.Proxy
	if yc.Log != nil {
		cfg.Log = yc.Log
	}

	return cfg, nil
}

// ApplyEnv overrides fields from LINKEDIN_DL_* environment variables,
// including the LINKEDIN_DL_LOG_* logging ones.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvMaxAttempts); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvMaxAttempts, err)
		}
		c.MaxAttempts = n
	}
	if v := os.Getenv(EnvWait); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvWait, err)
		}
		c.Wait = d
	}
	if v := os.Getenv(EnvLimit); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvLimit, err)
		}
		c.Limit = d
	}
	if v := os.Getenv(EnvQuality); v != "" {
		q, err := types.ParseQuality(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvQuality, err)
		}
		c.Quality = q
	}
	if v := os.Getenv(EnvRateLimit); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvRateLimit, err)
		}
		c.RateLimit = n
	}
	if v := os.Getenv(EnvHTTPTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvHTTPTimeout, err)
		}
		c.HTTP.Timeout = d
	}
	if v := os.Getenv(EnvStall); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvStall, err)
		}
		c.HTTP.StallTimeout = d
	}
	if v := os.Getenv(EnvHTTPRetries); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvHTTPRetries, err)
		}
		c.HTTP.Retries = n
	}
	if v := os.Getenv(EnvUserAgent); v != "" {
		c.HTTP.UserAgent = v
	}
	if v := os.Getenv(EnvProxy); v != "" {
		c.HTTP.Proxy = v
	}
	if c.Log == nil {
		c.Log = logger.DefaultLogConfig()
	}
	c.Log.ApplyEnv()
	return nil
}

// parseSeconds accepts either a Go duration ("1m30s") or a plain number of
// seconds ("90", "2.5") as the CLI flags do.
func parseSeconds(v string) (time.Duration, error) {
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(f * float64(time.Second)), nil
	}
	return time.ParseDuration(v)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.MaxAttempts < 1 {
		return errors.New("config: max_attempts must be at least 1")
	}
	if c.Wait < 0 {
		return errors.New("config: wait must not be negative")
	}
	if c.Limit < 0 {
		return errors.New("config: limit must not be negative")
	}
	if !c.Quality.Valid() {
		return fmt.Errorf("config: quality %d is not one of %v", c.Quality, types.Qualities)
	}
	if c.RateLimit < 0 {
		return errors.New("config: rate_limit must not be negative")
	}
	if c.HTTP.StallTimeout < 0 {
		return errors.New("config: http.stall_timeout must not be negative")
	}
	if c.Log != nil {
		if err := c.Log.ValidateConfig(); err != nil {
			return fmt.Errorf("config: log: %w", err)
		}
	}
	return nil
}
