// Package config provides configuration loading and validation for the
// analysis agent. Values come from the environment first; a JSON config file
// can supply defaults for local development.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Defaults applied when neither the environment nor a config file sets a value.
const (
	DefaultPort        = 8080
	DefaultLockTTLSecs = 300
	DefaultCallTimeout = 45 * time.Second
)

// Config holds everything the agent needs to run. Environment variables take
// precedence over config-file values.
type Config struct {
	// DatabaseURL is the PostgreSQL connection string for results and run
	// history.
	DatabaseURL string `json:"database_url,omitempty" validate:"required"`
	// RedisAddr is the host:port of the coordination store.
	RedisAddr string `json:"redis_addr,omitempty" validate:"required,hostname_port"`
	// RedisPassword is optional; empty means no AUTH.
	RedisPassword string `json:"redis_password,omitempty"`
	// APIKey authenticates against the text-generation service.
	APIKey string `json:"api_key,omitempty" validate:"required"`

	// Port is the HTTP listen port for serve mode.
	Port int `json:"port,omitempty" validate:"gte=1,lte=65535"`
	// LockTTLSeconds is the run lock TTL; it is renewed after every wave.
	LockTTLSeconds int `json:"lock_ttl_seconds,omitempty" validate:"gte=30"`
	// WorkerPoolSize overrides the computed pool bound when positive.
	WorkerPoolSize int `json:"worker_pool_size,omitempty" validate:"gte=0"`
	// CallTimeoutSeconds bounds each individual model call.
	CallTimeoutSeconds int `json:"call_timeout_seconds,omitempty" validate:"gte=1"`

	// Verbose enables debug-level logging.
	Verbose bool `json:"verbose,omitempty"`
}

// FromEnv builds a Config from environment variables, applying defaults for
// unset tunables. Call Validate before using the result.
func FromEnv() *Config {
	cfg := &Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		APIKey:             os.Getenv("GEMINI_API_KEY"),
		Port:               envInt("PORT", DefaultPort),
		LockTTLSeconds:     envInt("LOCK_TTL_SECONDS", DefaultLockTTLSecs),
		WorkerPoolSize:     envInt("WORKER_POOL_SIZE", 0),
		CallTimeoutSeconds: envInt("CALL_TIMEOUT_SECONDS", int(DefaultCallTimeout/time.Second)),
		Verbose:            os.Getenv("VERBOSE") == "true" || os.Getenv("VERBOSE") == "1",
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}
	return cfg
}

func envInt(key string, defaultValue int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return defaultValue
	}
	return val
}

// LoadFile loads defaults from a JSON config file.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return &cfg, nil
}

// MergeWithDefaults returns a Config with unset fields filled from defaults.
// Environment values already present on c win.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.RedisAddr == "localhost:6379" && defaults.RedisAddr != "" {
		result.RedisAddr = defaults.RedisAddr
	}
	if result.RedisPassword == "" {
		result.RedisPassword = defaults.RedisPassword
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.Port == DefaultPort && defaults.Port != 0 {
		result.Port = defaults.Port
	}
	if result.WorkerPoolSize == 0 {
		result.WorkerPoolSize = defaults.WorkerPoolSize
	}
	if !result.Verbose {
		result.Verbose = defaults.Verbose
	}
	return result
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			e := errs[0]
			return fmt.Errorf("config error: field %s failed %s validation", e.Field(), e.Tag())
		}
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// LockTTL returns the run lock TTL as a duration.
func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// CallTimeout returns the per-call model timeout as a duration.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.CallTimeoutSeconds) * time.Second
}
