package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, "web/templates", cfg.App.TemplateDir)
	assert.Equal(t, "http://localhost:9090", cfg.Backend.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "sqlite", cfg.Session.Store)
	assert.Equal(t, 720*time.Hour, cfg.Session.Duration)
	assert.Equal(t, "pcrs:session", cfg.Redis.Prefix)
	assert.Empty(t, cfg.Telemetry.OTLPEndpoint)
	assert.Equal(t, 1.0, cfg.Telemetry.SamplingRate)
}

func TestLoadPrefixedEnv(t *testing.T) {
	t.Setenv("PCRS_SESSION_STORE", "Redis")
	t.Setenv("PCRS_REDIS_ADDR", "cache:6380")
	t.Setenv("PCRS_SESSION_DURATION", "2h")
	t.Setenv("PCRS_APP_SECURE_COOKIE", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.Session.Store)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
	assert.Equal(t, 2*time.Hour, cfg.Session.Duration)
	assert.True(t, cfg.App.SecureCookie)
}

func TestLoadShortAliases(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DB_PATH", "/tmp/s.db")
	t.Setenv("BACKEND_URL", "http://api.local/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.App.Port)
	assert.Equal(t, "/tmp/s.db", cfg.Session.DBPath)
	assert.Equal(t, "http://api.local", cfg.Backend.BaseURL)
}

func TestLoadRejectsUnknownStore(t *testing.T) {
	t.Setenv("PCRS_SESSION_STORE", "memcached")
	_, err := Load()
	assert.ErrorContains(t, err, "session.store")
}

func TestProductionRequiresSecret(t *testing.T) {
	t.Setenv("PCRS_APP_ENV", "production")
	_, err := Load()
	assert.ErrorContains(t, err, "session.secret must be changed")

	t.Setenv("PCRS_SESSION_SECRET", "a-real-secret")
	_, err = Load()
	assert.NoError(t, err)
}
