package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	require.Equal(t, filepath.Join(cfg.Global.DataDir, "missiv.db"), cfg.DatabasePath())
	require.Equal(t, "127.0.0.1:8480", cfg.ListenAddr())
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"max connections", func(c *Config) { c.Database.MaxConnections = 0 }},
		{"port", func(c *Config) { c.HTTP.Port = 70000 }},
		{"negative rps", func(c *Config) { c.HTTP.RateLimitRPS = -1 }},
		{"burst", func(c *Config) { c.HTTP.RateLimitBurst = 0 }},
		{"cleanup interval", func(c *Config) { c.Events.CleanupInterval = 0 }},
		{"directory desk", func(c *Config) { c.Directory = map[string]string{"abc": "Nope"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HTTP.Port = -1
	cfg.Directory = map[string]string{"12": "Short"}

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "http.port")
	require.Contains(t, err.Error(), "directory[12]")
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
database:
  path: /tmp/missiv-test.db
logging:
  level: debug
  format: json
http:
  port: 9090
  rate_limit_rps: 2
  rate_limit_burst: 4
events:
  max_age: 48h
directory:
  "0612345678": Front desk
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, "/tmp/missiv-test.db", cfg.DatabasePath())
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, "json", cfg.Logging.Format)
	require.Equal(t, 9090, cfg.HTTP.Port)
	require.Equal(t, 2.0, cfg.HTTP.RateLimitRPS)
	require.Equal(t, 4, cfg.HTTP.RateLimitBurst)
	require.Equal(t, 48*time.Hour, cfg.Events.MaxAge)
	require.Equal(t, "Front desk", cfg.Directory["0612345678"])
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0o644))

	t.Setenv("MISSIV_LOGGING_LEVEL", "debug")
	t.Setenv("MISSIV_DATABASE_PATH", "~/missiv/env.db")
	t.Setenv("MISSIV_HTTP_PORT", "9191")
	t.Setenv("MISSIV_DIRECTORY", "0612345678=Front desk, 0698765432=Billing")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, 9191, cfg.HTTP.Port)

	home, _ := os.UserHomeDir()
	require.Equal(t, filepath.Join(home, "missiv", "env.db"), cfg.Database.Path)
	require.Equal(t, "Billing", cfg.Directory["0698765432"])
	require.Equal(t, "Front desk", cfg.Directory["0612345678"])
}

func TestLoadEnvWithoutFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("MISSIV_EVENTS_MAX_AGE", "2h")
	t.Setenv("MISSIV_HTTP_ENABLE_METRICS", "false")
	t.Setenv("MISSIV_GLOBAL_DATA_DIR", "~/data")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 2*time.Hour, cfg.Events.MaxAge)
	require.False(t, cfg.HTTP.EnableMetrics)
	require.Equal(t, filepath.Join(home, "data"), cfg.Global.DataDir)
	require.Equal(t, filepath.Join(home, "data", "missiv.db"), cfg.DatabasePath())
	require.Equal(t, DefaultConfig().HTTP.Port, cfg.HTTP.Port)
}

func TestSettingKeysSkipsDirectory(t *testing.T) {
	keys := settingKeys(reflect.ValueOf(DefaultConfig()).Elem(), "")
	require.Contains(t, keys, "http.rate_limit_burst")
	require.Contains(t, keys, "events.cleanup_interval")
	require.NotContains(t, keys, "directory")
	require.Equal(t, "MISSIV_HTTP_RATE_LIMIT_BURST", envName("http.rate_limit_burst"))
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}

func TestParseDirectory(t *testing.T) {
	entries, err := ParseDirectory("0612345678=Front desk,,")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"0612345678": "Front desk"}, entries)

	_, err = ParseDirectory("0612345678")
	require.Error(t, err)
}
