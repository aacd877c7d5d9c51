package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ModeDebug, cfg.Mode)
	require.Equal(t, 7*24*time.Hour, cfg.JWT.ExpiresIn.Std())
	require.Equal(t, 100, cfg.RateLimit.Max)
	require.Equal(t, 15*time.Minute, cfg.RateLimit.Window)
	require.NotEmpty(t, cfg.JWT.Secret)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
cors_origin: https://app.example.com
database:
  driver: postgres
  host: db.internal
jwt:
  secret: from-file
  expires_in: 2h
rate_limit:
  max: 5
  window: 1m
`), 0o600))

	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("DATABASE_NAME", "users")
	t.Setenv("EMAIL_USER", "mailer@example.com")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://app.example.com", cfg.CorsOrigin)
	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "db.internal", cfg.Database.Host)
	require.Equal(t, "users", cfg.Database.Name)
	require.Equal(t, "from-env", cfg.JWT.Secret)
	require.Equal(t, 2*time.Hour, cfg.JWT.ExpiresIn.Std())
	require.Equal(t, 5, cfg.RateLimit.Max)
	require.Equal(t, time.Minute, cfg.RateLimit.Window)
	require.Equal(t, "mailer@example.com", cfg.Email.User)
}

func TestReleaseModeRequiresSecret(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MODE", "release")

	_, err := Load("")
	require.Error(t, err)
}

func TestUnsupportedDriver(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATABASE_DRIVER", "oracle")

	_, err := Load("")
	require.Error(t, err)
}

func TestNestedKeysIgnoreBareNames(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("USER", "root")
	t.Setenv("HOST", "10.0.0.1")
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "7")
	t.Setenv("S3_USE_PATH_STYLE", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Empty(t, cfg.Email.User)
	require.Empty(t, cfg.Redis.Host)
	require.Equal(t, "10.0.0.1", cfg.Host)
	require.Equal(t, 7, cfg.Database.MaxOpenConns)
	require.True(t, cfg.S3.UsePathStyle)
}

func TestExpiresInDaySuffix(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_EXPIRES_IN", "7d")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 7*24*time.Hour, cfg.JWT.ExpiresIn.Std())

	t.Setenv("JWT_EXPIRES_IN", "1week")
	_, err = Load("")
	require.Error(t, err)
}

func TestParseDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"7d":   7 * 24 * time.Hour,
		"0.5d": 12 * time.Hour,
		"90m":  90 * time.Minute,
		"3600": time.Hour,
		" 2h ": 2 * time.Hour,
	}
	for in, want := range cases {
		got, err := ParseDuration(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	_, err := ParseDuration("d")
	require.Error(t, err)
}
