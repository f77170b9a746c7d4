package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "data/social.db", cfg.Database.DSN)
	assert.Empty(t, cfg.Storage.Bucket)
	assert.Equal(t, 5*time.Minute, cfg.AccessTTL())
	assert.Equal(t, 24*time.Hour, cfg.RefreshTTL())
	assert.Equal(t, 15*time.Minute, cfg.PresignTTL())
}

func TestLoadFromEnv(t *testing.T) {
	chdirTemp(t)
	t.Setenv("SOCIAL_SERVER_ADDR", "127.0.0.1:9000")
	t.Setenv("SOCIAL_AUTH_JWTSECRET", "s3cret")
	t.Setenv("SOCIAL_AUTH_ACCESSTTLMINUTES", "30")
	t.Setenv("SOCIAL_DATABASE_DRIVER", "postgres")
	t.Setenv("SOCIAL_DATABASE_DSN", "postgres://localhost/social")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 30*time.Minute, cfg.AccessTTL())
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/social", cfg.Database.DSN)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	chdirTemp(t)
	t.Setenv("SOCIAL_DATABASE_DRIVER", "oracle")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadDotEnvKeepsExistingVariables(t *testing.T) {
	dir := chdirTemp(t)
	content := "# comment\nSOCIAL_LOG_LEVEL=\"debug\"\nSOCIAL_SERVER_ADDR=ignored:1\nbroken line\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600))
	t.Setenv("SOCIAL_SERVER_ADDR", "127.0.0.1:7000")
	// registers cleanup for the value loaded from .env
	t.Setenv("SOCIAL_LOG_LEVEL", "")
	require.NoError(t, os.Unsetenv("SOCIAL_LOG_LEVEL"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "127.0.0.1:7000", cfg.Server.Addr)
}
