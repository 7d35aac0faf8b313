package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, ":4000", cfg.Server.Addr())
	assert.False(t, cfg.History.Enabled())
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  port: "9090"
  read_timeout: 5s
rate_limit:
  requests_per_second: 2
  burst: 4
cache:
  enabled: false
  max_entries: 500
segments:
  new_customer_period: 1
  churn_threshold: 6
  at_risk_frequency_drop: 30
  loyal_min_flights: 5
`)
	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout, "unset fields keep defaults")
	assert.Equal(t, 2.0, cfg.RateLimit.RequestsPerSecond)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 500, cfg.Cache.MaxEntries)
	assert.Equal(t, 6.0, cfg.Segments.ChurnThreshold)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("DATABASE_URL", "postgres://localhost/metrics?sslmode=disable")
	t.Setenv("CACHE_ENABLED", "false")

	cfg, err := Load("", "")
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.True(t, cfg.History.Enabled())
	assert.False(t, cfg.Cache.Enabled)
}

func TestLoadDotEnv(t *testing.T) {
	// registered so the variable is restored after godotenv sets it
	t.Setenv("LOG_LEVEL", "")
	require.NoError(t, os.Unsetenv("LOG_LEVEL"))

	env := writeFile(t, ".env", "LOG_LEVEL=debug\n")
	cfg, err := Load("", env)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)

	_, err = Load("", filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

func TestLoadRejectsBadValues(t *testing.T) {
	path := writeFile(t, "bad.yaml", "server: [")
	_, err := Load(path, "")
	assert.Error(t, err)

	t.Setenv("PORT", "http")
	_, err = Load("", "")
	assert.Error(t, err)

	t.Setenv("PORT", "8080")
	t.Setenv("RATE_LIMIT_RPS", "fast")
	_, err = Load("", "")
	assert.Error(t, err)
}

func TestValidateSegments(t *testing.T) {
	cfg := Default()
	cfg.Segments.LoyalMinFlights = -1
	assert.Error(t, cfg.Validate())
}

func TestValidateCacheLimit(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 10000, cfg.Cache.MaxEntries)
	cfg.Cache.MaxEntries = -1
	assert.Error(t, cfg.Validate())
}
