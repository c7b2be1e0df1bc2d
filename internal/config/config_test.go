package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
database:
  path: /tmp/approval-test.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 5*time.Second, cfg.Database.BusyTimeout)
	assert.Equal(t, 3, cfg.Notification.MaxAttempts)
	assert.Equal(t, float64(120), cfg.Leave.DefaultAnnualHours)
	assert.Equal(t, "admin", cfg.Auth.AdminRole)
	assert.False(t, cfg.Lark.Enabled)
	assert.Equal(t, time.Minute, cfg.Worker.RetryInterval)
}

func TestLoad_EnvOverridesSecrets(t *testing.T) {
	t.Setenv("LARK_APP_ID", "cli_env")
	t.Setenv("LARK_APP_SECRET", "env-secret")
	t.Setenv("APPROVAL_JWT_SECRET", "jwt-env")

	path := writeConfig(t, `
lark:
  enabled: true
  app_id: cli_file
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "cli_env", cfg.Lark.AppID)
	assert.Equal(t, "env-secret", cfg.Lark.AppSecret)
	assert.Equal(t, "jwt-env", cfg.Auth.JWTSecret)
	assert.Equal(t, "jwt-env", cfg.ToAuthConfig().Secret)
}

func TestLoad_LarkEnabledWithoutCredentials(t *testing.T) {
	path := writeConfig(t, `
lark:
  enabled: true
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	const key = "APPROVAL_DOTENV_CHECK"
	t.Cleanup(func() { os.Unsetenv(key) })

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=from-file\n"), 0644))

	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv(key))

	assert.NoError(t, loadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}

func TestToContainerConfig(t *testing.T) {
	cfg := &Config{
		Database:     DatabaseConfig{Path: "x.db", MaxOpenConns: 2},
		Notification: NotificationConfig{MaxAttempts: 5, MaxConcurrency: 4, DeliverTimeout: time.Second, PendingGrace: 2 * time.Minute},
		Worker:       WorkerConfig{RetryInterval: time.Minute, RetryBatchSize: 10},
		Leave:        LeaveConfig{DefaultAnnualHours: 80},
	}

	cc := cfg.ToContainerConfig()
	assert.Equal(t, "x.db", cc.Database.Path)
	assert.Equal(t, 5, cc.Notification.MaxAttempts)
	assert.Equal(t, 2*time.Minute, cc.Notification.PendingGrace)
	assert.Equal(t, 4, cc.Dispatcher.MaxConcurrency)
	assert.Equal(t, 10, cc.Worker.RetryBatchSize)
	assert.NoError(t, cc.Validate())
}
