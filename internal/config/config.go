// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/curvebond/internal/logger"
)

const EnvPrefix = "CURVEBOND"

type StorageConfig struct {
	Driver          string `mapstructure:"driver"`
	DSN             string `mapstructure:"dsn"`
	Retries         int    `mapstructure:"retries"`
	RetryIntervalMs int    `mapstructure:"retry_interval_ms"`
}

// RetryInterval returns the base connect backoff.
func (s StorageConfig) RetryInterval() time.Duration {
	return time.Duration(s.RetryIntervalMs) * time.Millisecond
}

type LogConfig struct {
	File        string `mapstructure:"file"`
	Development bool   `mapstructure:"development"`
	Pretty      bool   `mapstructure:"pretty"`
	MaxSizeMB   int    `mapstructure:"max_size_mb"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAgeDays  int    `mapstructure:"max_age_days"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type Config struct {
	ProgramID   string        `mapstructure:"program_id"`
	Storage     StorageConfig `mapstructure:"storage"`
	Log         LogConfig     `mapstructure:"log"`
	Metrics     MetricsConfig `mapstructure:"metrics"`
	EventBuffer int           `mapstructure:"event_buffer"`
	ExportDir   string        `mapstructure:"export_dir"`
}

const (
	DefaultProgramID   = "DCy6L7FGjNZr6oYLZsojS9aC9LJ2XniiTiF7qhkEfBme"
	DefaultDriver      = "memory"
	DefaultRetries     = 3
	DefaultRetryMs     = 500
	DefaultEventBuffer = 1024
	DefaultExportDir   = "exports"
)

var validDrivers = map[string]bool{"memory": true, "sqlite": true, "postgres": true}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"program_id":                DefaultProgramID,
		"storage.driver":            DefaultDriver,
		"storage.dsn":               "",
		"storage.retries":           DefaultRetries,
		"storage.retry_interval_ms": DefaultRetryMs,
		"log.file":                  "",
		"log.development":           false,
		"log.pretty":                true,
		"log.max_size_mb":           100,
		"log.max_backups":           3,
		"log.max_age_days":          7,
		"metrics.enabled":           true,
		"event_buffer":              DefaultEventBuffer,
		"export_dir":                DefaultExportDir,
	}
}

// LoadConfig reads path (json or yaml by extension). An empty path yields
// defaults plus CURVEBOND_* environment overrides.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if _, err := solana.PublicKeyFromBase58(cfg.ProgramID); err != nil {
		return fmt.Errorf("invalid program_id: %w", err)
	}
	if !validDrivers[cfg.Storage.Driver] {
		return fmt.Errorf("unsupported storage.driver %q", cfg.Storage.Driver)
	}
	if cfg.Storage.Driver != "memory" && cfg.Storage.DSN == "" {
		return errors.New("storage.dsn is required for " + cfg.Storage.Driver)
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.Storage.Retries < 1 {
		return errors.New("invalid storage.retries")
	}
	if cfg.Storage.RetryIntervalMs <= 0 {
		return errors.New("invalid storage.retry_interval_ms")
	}
	if cfg.EventBuffer <= 0 {
		return errors.New("invalid event_buffer")
	}
	if cfg.Log.MaxSizeMB < 0 || cfg.Log.MaxBackups < 0 || cfg.Log.MaxAgeDays < 0 {
		return errors.New("invalid log rotation settings")
	}
	return nil
}

// Program returns the parsed program id.
func (c *Config) Program() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(c.ProgramID)
}

// LoggerConfig maps the log section onto the logger factory.
func (c *Config) LoggerConfig() *logger.Config {
	return &logger.Config{
		LogFile:     c.Log.File,
		MaxSize:     c.Log.MaxSizeMB,
		MaxAge:      c.Log.MaxAgeDays,
		MaxBackups:  c.Log.MaxBackups,
		Compress:    true,
		Development: c.Log.Development,
		Pretty:      c.Log.Pretty,
	}
}
