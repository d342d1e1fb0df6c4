package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, env map[string]string) (*Config, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	for k, v := range env {
		t.Setenv(k, v)
	}
	return LoadConfig()
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := load(t, nil)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverMemory, cfg.EventStoreDriver)
	assert.Equal(t, DriverMemory, cfg.ReadModelDriver, "read model follows the event store")
	assert.Equal(t, DriverMemory, cfg.SequenceDriver)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 3, cfg.CommandMaxRetries)
	assert.Equal(t, 4, cfg.ProjectionPartitions)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSAllowedOrigins)
	assert.NotEmpty(t, cfg.JWTSecret)
}

func TestLoadConfig_Overrides(t *testing.T) {
	cfg, err := load(t, map[string]string{
		"EVENT_STORE_DRIVER":       "SQLite",
		"READ_MODEL_DRIVER":        "memory",
		"SEQUENCE_DRIVER":          "redis",
		"REDIS_ADDRESS":            "localhost:6379",
		"STORE_TIMEOUT":            "750ms",
		"PROJECTION_POLL_INTERVAL": "not-a-duration",
		"CORS_ALLOWED_ORIGINS":     "https://a.example, ,https://b.example",
		"JWT_SECRET":               "s3cret",
	})
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.EventStoreDriver)
	assert.Equal(t, DriverMemory, cfg.ReadModelDriver)
	assert.Equal(t, DriverRedis, cfg.SequenceDriver)
	assert.Equal(t, 750*time.Millisecond, cfg.StoreTimeout)
	assert.Equal(t, 2*time.Second, cfg.ProjectionPollInterval, "bad durations fall back")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
}

func TestLoadConfig_Rejects(t *testing.T) {
	tests := map[string]map[string]string{
		"unknown driver":           {"EVENT_STORE_DRIVER": "mongo"},
		"redis read model":         {"READ_MODEL_DRIVER": "redis"},
		"postgres without url":     {"EVENT_STORE_DRIVER": "postgres"},
		"redis without address":    {"SEQUENCE_DRIVER": "redis"},
		"production without token": {"IS_PRODUCTION": "true"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := load(t, env)
			assert.Error(t, err)
		})
	}
}
