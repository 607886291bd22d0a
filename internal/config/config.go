// Package config handles missiv configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tOgg1/missiv/internal/models"
)

// Config is the root of missiv.yaml. Every scalar field can also be set
// from the environment; see Loader.
type Config struct {
	Global   GlobalConfig   `yaml:"global" mapstructure:"global"`
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Logging  LoggingConfig  `yaml:"logging" mapstructure:"logging"`
	HTTP     HTTPConfig     `yaml:"http" mapstructure:"http"`
	Events   EventsConfig   `yaml:"events" mapstructure:"events"`

	// Directory maps desk ids to display names. It only affects rendering.
	Directory map[string]string `yaml:"directory" mapstructure:"directory"`
}

type GlobalConfig struct {
	DataDir   string `yaml:"data_dir" mapstructure:"data_dir"`
	ConfigDir string `yaml:"config_dir" mapstructure:"config_dir"`
}

type DatabaseConfig struct {
	// Path overrides the default <data_dir>/missiv.db.
	Path           string `yaml:"path" mapstructure:"path"`
	MaxConnections int    `yaml:"max_connections" mapstructure:"max_connections"`
	BusyTimeoutMs  int    `yaml:"busy_timeout_ms" mapstructure:"busy_timeout_ms"`
}

type LoggingConfig struct {
	Level        string `yaml:"level" mapstructure:"level"`
	Format       string `yaml:"format" mapstructure:"format"` // json or console
	File         string `yaml:"file" mapstructure:"file"`
	EnableCaller bool   `yaml:"enable_caller" mapstructure:"enable_caller"`
}

type HTTPConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`

	// RateLimitRPS is the sustained mutation rate per desk; 0 disables it.
	RateLimitRPS   float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
	EnableMetrics  bool    `yaml:"enable_metrics" mapstructure:"enable_metrics"`
}

// EventsConfig bounds the stored notification feed by age and by size.
type EventsConfig struct {
	RetentionEnabled bool          `yaml:"retention_enabled" mapstructure:"retention_enabled"`
	MaxAge           time.Duration `yaml:"max_age" mapstructure:"max_age"`
	MaxCount         int           `yaml:"max_count" mapstructure:"max_count"`
	CleanupInterval  time.Duration `yaml:"cleanup_interval" mapstructure:"cleanup_interval"`
	BatchSize        int           `yaml:"batch_size" mapstructure:"batch_size"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Global: GlobalConfig{
			DataDir:   filepath.Join(homeDir, ".local", "share", "missiv"),
			ConfigDir: filepath.Join(homeDir, ".config", "missiv"),
		},
		Database: DatabaseConfig{
			MaxConnections: 10,
			BusyTimeoutMs:  5000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		HTTP: HTTPConfig{
			Host:            "127.0.0.1",
			Port:            8480,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimitRPS:    5,
			RateLimitBurst:  10,
			EnableMetrics:   true,
		},
		Events: EventsConfig{
			RetentionEnabled: true,
			MaxAge:           30 * 24 * time.Hour,
			MaxCount:         100000,
			CleanupInterval:  time.Hour,
			BatchSize:        1000,
		},
		Directory: map[string]string{},
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Database.MaxConnections >= 1, "database.max_connections must be at least 1")
	check(c.Database.BusyTimeoutMs >= 0, "database.busy_timeout_ms must not be negative")
	check(c.HTTP.Port >= 0 && c.HTTP.Port <= 65535, "http.port %d out of range", c.HTTP.Port)
	check(c.HTTP.RateLimitRPS >= 0, "http.rate_limit_rps must not be negative")
	check(c.HTTP.RateLimitRPS == 0 || c.HTTP.RateLimitBurst >= 1, "http.rate_limit_burst must be at least 1 when rate limiting is on")
	check(!c.Events.RetentionEnabled || c.Events.CleanupInterval >= time.Second, "events.cleanup_interval must be at least 1s")
	check(c.Events.MaxAge >= 0 && c.Events.MaxCount >= 0, "events limits must not be negative")

	for desk := range c.Directory {
		if err := models.ValidateDeskID(desk); err != nil {
			errs = append(errs, fmt.Errorf("directory[%s]: %w", desk, err))
		}
	}
	return errors.Join(errs...)
}

// EnsureDirectories creates the data and config directories, and the
// parent of an explicit database path.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Global.DataDir, c.Global.ConfigDir, filepath.Dir(c.DatabasePath())}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the full database path.
func (c *Config) DatabasePath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(c.Global.DataDir, "missiv.db")
}

// ListenAddr returns host:port for the HTTP server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Host, c.HTTP.Port)
}
