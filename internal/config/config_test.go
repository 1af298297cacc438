package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roleadmin.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(ConfigFileEnv, "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "roleadmin", cfg.Database.Name)
	assert.Equal(t, "@every 1m", cfg.Schedule.Refill)
	assert.False(t, cfg.S3.Enabled())
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeFile(t, `
server:
  port: 9090
  requests_per_second: 12.5
database:
  name: fromfile
  host: db.internal
s3:
  bucket_name: audit
rate_limit:
  requests: 5
schedule:
  archive: "0 3 * * *"
`)
	t.Setenv(ConfigFileEnv, path)
	t.Setenv("POSTGRES_DB", "fromenv")
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 12.5, cfg.Server.RequestsPerSecond)
	assert.Equal(t, "fromenv", cfg.Database.Name)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "disable", cfg.Database.SSLMode, "untouched defaults survive the overlay")
	assert.True(t, cfg.S3.Enabled())
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 5, cfg.RateLimit.Requests)
	assert.Equal(t, "0 3 * * *", cfg.Schedule.Archive)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
}

func TestLoadRejectsBadFile(t *testing.T) {
	t.Setenv(ConfigFileEnv, writeFile(t, "server: [not, a, map]"))
	_, err := Load()
	assert.ErrorContains(t, err, "failed to parse config file")

	t.Setenv(ConfigFileEnv, filepath.Join(t.TempDir(), "missing.yml"))
	_, err = Load()
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestValidate(t *testing.T) {
	cfg := LoadTestConfig()
	require.NoError(t, cfg.Validate())

	cfg.Server.Port = 0
	cfg.Worker.Concurrency = 0
	cfg.Schedule.Timezone = "Mars/Olympus"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server port 0")
	assert.Contains(t, err.Error(), "worker concurrency")
	assert.Contains(t, err.Error(), "Mars/Olympus")
}

func TestEnvHelpersIgnoreGarbage(t *testing.T) {
	t.Setenv("ROLEADMIN_TEST_INT", "nope")
	t.Setenv("ROLEADMIN_TEST_FLOAT", "1.5")
	t.Setenv("ROLEADMIN_TEST_BOOL", "maybe")

	assert.Equal(t, 7, getEnvAsInt("ROLEADMIN_TEST_INT", 7))
	assert.Equal(t, 1.5, getEnvAsFloat("ROLEADMIN_TEST_FLOAT", 0))
	assert.True(t, getEnvAsBool("ROLEADMIN_TEST_BOOL", true))
	assert.Equal(t, "x", getEnv("ROLEADMIN_TEST_UNSET", "x"))
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "h", Port: 1, User: "u", Password: "p", Name: "n", SSLMode: "require"}
	assert.Equal(t, "host=h user=u password=p dbname=n port=1 sslmode=require", d.DSN())
}
