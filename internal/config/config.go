package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	pdfhttp "github.com/ligustah/pdfslurp/internal/http"
	"github.com/ligustah/pdfslurp/internal/progress"
)

// MaxChunkSize bounds chunk_size; every worker allocates one chunk buffer.
const MaxChunkSize = 16 * 1024 * 1024

// EnvPrefix prefixes every environment variable read by LoadFromEnv.
const EnvPrefix = "PDFSLURP_"

// Config defines configuration for the pdfslurp CLI.
type Config struct {
	URL          string        `yaml:"url"`
	Dir          string        `yaml:"dir"`
	Bucket       string        `yaml:"bucket"`
	Workers      int           `yaml:"workers"`
	Timeout      time.Duration `yaml:"timeout"`
	ChunkSize    int64         `yaml:"chunk_size"`
	UserAgent    string        `yaml:"user_agent"`
	Progress     bool          `yaml:"progress"`
	Disambiguate bool          `yaml:"disambiguate"`
	Strict       bool          `yaml:"strict"`
	LogLevel     string        `yaml:"log_level"`
	Retry        RetryConfig   `yaml:"retry"`
}

// RetryConfig defines connection retry behavior.
type RetryConfig struct {
	Attempts   int           `yaml:"attempts"`
	Backoff    time.Duration `yaml:"backoff"`
	MaxBackoff time.Duration `yaml:"max_backoff"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Dir:       ".",
		Workers:   5,
		Timeout:   10 * time.Second,
		ChunkSize: 8 * 1024, // 8KiB
		UserAgent: pdfhttp.DefaultUserAgent,
		LogLevel:  "info",
		Retry: RetryConfig{
			Attempts:   3,
			Backoff:    500 * time.Millisecond,
			MaxBackoff: 2 * time.Minute,
		},
	}
}

// yamlConfig is used for YAML unmarshaling with string sizes and durations.
type yamlConfig struct {
	URL          string          `yaml:"url"`
	Dir          string          `yaml:"dir"`
	Bucket       string          `yaml:"bucket"`
	Workers      int             `yaml:"workers"`
	Timeout      string          `yaml:"timeout"`
	ChunkSize    string          `yaml:"chunk_size"`
	UserAgent    string          `yaml:"user_agent"`
	Progress     bool            `yaml:"progress"`
	Disambiguate bool            `yaml:"disambiguate"`
	Strict       bool            `yaml:"strict"`
	LogLevel     string          `yaml:"log_level"`
	Retry        yamlRetryConfig `yaml:"retry"`
}

type yamlRetryConfig struct {
	Attempts   *int   `yaml:"attempts"`
	Backoff    string `yaml:"backoff"`
	MaxBackoff string `yaml:"max_backoff"`
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if yc.URL != "" {
		cfg.URL = yc.URL
	}
	if yc.Dir != "" {
		cfg.Dir = yc.Dir
	}
	if yc.Bucket != "" {
		cfg.Bucket = yc.Bucket
	}
	if yc.Workers != 0 {
		cfg.Workers = yc.Workers
	}
	if yc.Timeout != "" {
		d, err := time.ParseDuration(yc.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if yc.ChunkSize != "" {
		size, err := progress.ParseBytes(yc.ChunkSize)
		if err != nil {
			return Config{}, fmt.Errorf("parse chunk_size: %w", err)
		}
		cfg.ChunkSize = size
	}
	if yc.UserAgent != "" {
		cfg.UserAgent = yc.UserAgent
	}
	cfg.Progress = yc.Progress
	cfg.Disambiguate = yc.Disambiguate
	cfg.Strict = yc.Strict
	if yc.LogLevel != "" {
		cfg.LogLevel = yc.LogLevel
	}
	if yc.Retry.Attempts != nil {
		cfg.Retry.Attempts = *yc.Retry.Attempts
	}
	if yc.Retry.Backoff != "" {
		d, err := time.ParseDuration(yc.Retry.Backoff)
		if err != nil {
			return Config{}, fmt.Errorf("parse retry.backoff: %w", err)
		}
		cfg.Retry.Backoff = d
	}
	if yc.Retry.MaxBackoff != "" {
		d, err := time.ParseDuration(yc.Retry.MaxBackoff)
		if err != nil {
			return Config{}, fmt.Errorf("parse retry.max_backoff: %w", err)
		}
		cfg.Retry.MaxBackoff = d
	}

	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Variables that are already set are left untouched, and
// missing files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the PDFSLURP_ prefix.
func (c *Config) LoadFromEnv() error {
	if v := getenv("URL"); v != "" {
		c.URL = v
	}
	if v := getenv("DIR"); v != "" {
		c.Dir = v
	}
	if v := getenv("BUCKET"); v != "" {
		c.Bucket = v
	}
	if v := getenv("WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %sWORKERS: %w", EnvPrefix, err)
		}
		c.Workers = n
	}
	if v := getenv("TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %sTIMEOUT: %w", EnvPrefix, err)
		}
		c.Timeout = d
	}
	if v := getenv("CHUNK_SIZE"); v != "" {
		size, err := progress.ParseBytes(v)
		if err != nil {
			return fmt.Errorf("parse %sCHUNK_SIZE: %w", EnvPrefix, err)
		}
		c.ChunkSize = size
	}
	if v := getenv("USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := getenv("PROGRESS"); v != "" {
		c.Progress = parseBool(v)
	}
	if v := getenv("DISAMBIGUATE"); v != "" {
		c.Disambiguate = parseBool(v)
	}
	if v := getenv("STRICT"); v != "" {
		c.Strict = parseBool(v)
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getenv("RETRY_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %sRETRY_ATTEMPTS: %w", EnvPrefix, err)
		}
		c.Retry.Attempts = n
	}
	if v := getenv("RETRY_BACKOFF"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %sRETRY_BACKOFF: %w", EnvPrefix, err)
		}
		c.Retry.Backoff = d
	}
	if v := getenv("RETRY_MAX_BACKOFF"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %sRETRY_MAX_BACKOFF: %w", EnvPrefix, err)
		}
		c.Retry.MaxBackoff = d
	}

	return nil
}

func getenv(key string) string {
	return os.Getenv(EnvPrefix + key)
}

func parseBool(v string) bool {
	return v == "true" || v == "1"
}

// Validate validates the configuration. The URL is not checked here since
// it may still be prompted for.
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return errors.New("config: workers must be positive")
	}
	if c.Timeout <= 0 {
		return errors.New("config: timeout must be positive")
	}
	if c.ChunkSize <= 0 {
		return errors.New("config: chunk_size must be positive")
	}
	if c.ChunkSize > MaxChunkSize {
		return fmt.Errorf("config: chunk_size must be at most %s", progress.FormatBytes(MaxChunkSize))
	}
	if c.Retry.Attempts < 0 {
		return errors.New("config: retry.attempts must not be negative")
	}
	if c.Bucket == "" && c.Dir == "" {
		return errors.New("config: dir or bucket is required")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if override.URL != "" {
		c.URL = override.URL
	}
	if override.Dir != "" {
		c.Dir = override.Dir
	}
	if override.Bucket != "" {
		c.Bucket = override.Bucket
	}
	if override.Workers != 0 {
		c.Workers = override.Workers
	}
	if override.Timeout != 0 {
		c.Timeout = override.Timeout
	}
	if override.ChunkSize != 0 {
		c.ChunkSize = override.ChunkSize
	}
	if override.UserAgent != "" {
		c.UserAgent = override.UserAgent
	}
	if override.Progress {
		c.Progress = override.Progress
	}
	if override.Disambiguate {
		c.Disambiguate = override.Disambiguate
	}
	if override.Strict {
		c.Strict = override.Strict
	}
	if override.LogLevel != "" {
		c.LogLevel = override.LogLevel
	}
	if override.Retry.Attempts != 0 {
		c.Retry.Attempts = override.Retry.Attempts
	}
	if override.Retry.Backoff != 0 {
		c.Retry.Backoff = override.Retry.Backoff
	}
	if override.Retry.MaxBackoff != 0 {
		c.Retry.MaxBackoff = override.Retry.MaxBackoff
	}
	return c
}

// HTTPOptions returns the transport options described by c.
func (c *Config) HTTPOptions() pdfhttp.Options {
	opts := pdfhttp.DefaultOptions()
	opts.Timeout = c.Timeout
	opts.RetryAttempts = c.Retry.Attempts
	opts.RetryBackoff = c.Retry.Backoff
	opts.RetryMaxBackoff = c.Retry.MaxBackoff
	if c.UserAgent != "" {
		opts.UserAgent = c.UserAgent
	}
	if c.Workers > opts.MaxIdleConnsPerHost {
		opts.MaxIdleConnsPerHost = c.Workers
	}
	return opts
}

// ParseLogLevel maps a level name onto a slog.Level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("config: unknown log level %q", s)
}
