// Package app provides the application initialization and wiring.
package app

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/bnema/siteback/internal/adapters/out/telemetry"
	"github.com/bnema/siteback/pkg/bytesize"
	"github.com/bnema/siteback/pkg/duration"
	"github.com/bnema/siteback/pkg/validation"
)

// Config holds the process-level configuration. Backup settings (site,
// storage, categories, schedule, notify) are read separately through the
// settings store so they can be reloaded while serving.
type Config struct {
	DataDir string `mapstructure:"data_dir"`

	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
		File   struct {
			Enabled    bool   `mapstructure:"enabled"`
			Path       string `mapstructure:"path"`
			MaxSize    int    `mapstructure:"max_size"`
			MaxBackups int    `mapstructure:"max_backups"`
			MaxAge     int    `mapstructure:"max_age"`
		} `mapstructure:"file"`
		Activity struct {
			Path       string `mapstructure:"path"`
			MaxSize    int    `mapstructure:"max_size"`
			MaxBackups int    `mapstructure:"max_backups"`
			MaxAge     int    `mapstructure:"max_age"`
		} `mapstructure:"activity"`
	} `mapstructure:"logging"`

	Upload struct {
		Timeout string `mapstructure:"timeout"`  // e.g. "5m", "1h"
		MaxSize string `mapstructure:"max_size"` // e.g. "5GB"; "0" disables the limit
	} `mapstructure:"upload"`

	History struct {
		Path string `mapstructure:"path"`
		Max  int    `mapstructure:"max"`
	} `mapstructure:"history"`

	Telemetry telemetry.Config `mapstructure:"telemetry"`
}

// initConfig loads configuration from file, environment and .env.
func initConfig(configPath string) (*viper.Viper, Config, error) {
	v := viper.New()
	if err := loadConfig(v, configPath); err != nil {
		return nil, Config{}, fmt.Errorf("failed to load config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.DataDir = validation.ExpandHome(cfg.DataDir)

	return v, cfg, nil
}

// loadConfig registers defaults, reads the config file if one is found and
// binds SITEBACK_* environment variables. A .env file in the working
// directory is applied first without overriding the real environment.
func loadConfig(v *viper.Viper, configPath string) error {
	_ = godotenv.Load()

	v.SetDefault("data_dir", DefaultDataDir())
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file.enabled", false)
	v.SetDefault("logging.file.max_size", 100)
	v.SetDefault("logging.file.max_backups", 3)
	v.SetDefault("logging.file.max_age", 28)
	v.SetDefault("logging.activity.path", "") // defaults to {data_dir}/logs/activity.log
	v.SetDefault("logging.activity.max_size", 5)
	v.SetDefault("logging.activity.max_backups", 2)
	v.SetDefault("logging.activity.max_age", 90)
	v.SetDefault("upload.timeout", "5m")
	v.SetDefault("upload.max_size", "5GB")
	v.SetDefault("history.path", "") // defaults to {data_dir}/history.db
	v.SetDefault("history.max", 50)
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.traces", true)
	v.SetDefault("telemetry.metrics", true)
	v.SetDefault("telemetry.trace_sample_rate", 1.0)

	v.SetDefault("backup.dir", "") // defaults to {data_dir}/archives
	v.SetDefault("backup.keep_local", 3)
	v.SetDefault("storage.scheme", "https")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.addressing_style", "path")
	v.SetDefault("storage.key_prefix", "backups")
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.dump_tool", "auto")
	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.on", "always")
	v.SetDefault("notify.smtp_port", 587)

	ConfigureViper(v, configPath)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("SITEBACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if v.GetString("backup.dir") == "" {
		v.SetDefault("backup.dir", filepath.Join(validation.ExpandHome(v.GetString("data_dir")), "archives"))
	}

	return nil
}

// initLogger initializes the zerowrap logger.
func initLogger(cfg Config) (zerowrap.Logger, func(), error) {
	logConfig := zerowrap.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}

	if cfg.Logging.File.Enabled {
		log, cleanup, err := zerowrap.NewWithFile(logConfig, zerowrap.FileConfig{
			Enabled:    true,
			Path:       resolveLogFilePath(cfg),
			MaxSize:    cfg.Logging.File.MaxSize,
			MaxBackups: cfg.Logging.File.MaxBackups,
			MaxAge:     cfg.Logging.File.MaxAge,
			Compress:   true,
		})
		if err != nil {
			return zerowrap.Default(), nil, fmt.Errorf("failed to create logger with file: %w", err)
		}
		return log, cleanup, nil
	}

	return zerowrap.New(logConfig), nil, nil
}

// resolveLogFilePath returns the configured log file path or {data_dir}/logs/siteback.log.
func resolveLogFilePath(cfg Config) string {
	if cfg.Logging.File.Path != "" {
		return validation.ExpandHome(cfg.Logging.File.Path)
	}
	return filepath.Join(cfg.DataDir, "logs", "siteback.log")
}

// resolveActivityLogPath returns the configured activity log path or {data_dir}/logs/activity.log.
func resolveActivityLogPath(cfg Config) string {
	if cfg.Logging.Activity.Path != "" {
		return validation.ExpandHome(cfg.Logging.Activity.Path)
	}
	return filepath.Join(cfg.DataDir, "logs", "activity.log")
}

// resolveHistoryPath returns the configured history database or {data_dir}/history.db.
func resolveHistoryPath(cfg Config) string {
	if cfg.History.Path != "" {
		return validation.ExpandHome(cfg.History.Path)
	}
	return filepath.Join(cfg.DataDir, "history.db")
}

// uploadLimits parses the upload timeout and maximum archive size.
func uploadLimits(cfg Config) (time.Duration, int64, error) {
	timeout, err := duration.Parse(cfg.Upload.Timeout)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid upload.timeout: %w", err)
	}

	var maxSize int64
	if s := strings.TrimSpace(cfg.Upload.MaxSize); s != "" && s != "0" {
		if maxSize, err = bytesize.Parse(s); err != nil {
			return 0, 0, fmt.Errorf("invalid upload.max_size: %w", err)
		}
	}

	return timeout, maxSize, nil
}
