package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		DatabaseURL:        "postgres://localhost/analysis",
		RedisAddr:          "localhost:6379",
		APIKey:             "test-key",
		Port:               8080,
		LockTTLSeconds:     300,
		CallTimeoutSeconds: 45,
	}
}

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/analysis")
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("PORT", "")
	t.Setenv("LOCK_TTL_SECONDS", "")
	t.Setenv("CALL_TIMEOUT_SECONDS", "")

	cfg := FromEnv()

	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, 300*time.Second, cfg.LockTTL())
	assert.Equal(t, 45*time.Second, cfg.CallTimeout())
	require.NoError(t, cfg.Validate())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/analysis")
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("REDIS_ADDR", "redis.internal:6380")
	t.Setenv("PORT", "9090")
	t.Setenv("LOCK_TTL_SECONDS", "120")
	t.Setenv("WORKER_POOL_SIZE", "8")
	t.Setenv("VERBOSE", "true")

	cfg := FromEnv()

	assert.Equal(t, "redis.internal:6380", cfg.RedisAddr)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 120*time.Second, cfg.LockTTL())
	assert.Equal(t, 8, cfg.WorkerPoolSize)
	assert.True(t, cfg.Verbose)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:    "missing database url",
			mutate:  func(c *Config) { c.DatabaseURL = "" },
			wantErr: "DatabaseURL",
		},
		{
			name:    "missing api key",
			mutate:  func(c *Config) { c.APIKey = "" },
			wantErr: "APIKey",
		},
		{
			name:    "malformed redis addr",
			mutate:  func(c *Config) { c.RedisAddr = "not a hostport" },
			wantErr: "RedisAddr",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Port = 70000 },
			wantErr: "Port",
		},
		{
			name:    "lock ttl too short",
			mutate:  func(c *Config) { c.LockTTLSeconds = 5 },
			wantErr: "LockTTLSeconds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoadFileAndMerge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"database_url": "postgres://file/analysis",
		"api_key": "file-key",
		"redis_addr": "redis.file:6379",
		"port": 9000
	}`), 0o600))

	fileCfg, err := LoadFile(path)
	require.NoError(t, err)

	env := &Config{
		DatabaseURL:        "postgres://env/analysis",
		RedisAddr:          "localhost:6379",
		Port:               DefaultPort,
		LockTTLSeconds:     300,
		CallTimeoutSeconds: 45,
	}
	merged := env.MergeWithDefaults(*fileCfg)

	assert.Equal(t, "postgres://env/analysis", merged.DatabaseURL, "environment wins")
	assert.Equal(t, "file-key", merged.APIKey, "file fills unset fields")
	assert.Equal(t, "redis.file:6379", merged.RedisAddr, "file overrides untouched default")
	assert.Equal(t, 9000, merged.Port)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile("")
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err = LoadFile(path)
	assert.Error(t, err)
}
