// Package settings provides the viper-backed settings snapshot a run works from.
package settings

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bnema/zerowrap"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/bnema/siteback/internal/boundaries/out"
	"github.com/bnema/siteback/internal/domain"
	"github.com/bnema/siteback/pkg/validation"
)

var _ out.SettingsStore = (*Store)(nil)

// directoryConfig is one entry of the directories list.
type directoryConfig struct {
	Name    string `mapstructure:"name"`
	Path    string `mapstructure:"path"`
	Enabled *bool  `mapstructure:"enabled"`
}

// Store implements the SettingsStore port.
type Store struct {
	viper    *viper.Viper
	mu       sync.RWMutex
	settings domain.Settings
	loaded   bool
}

// NewStore creates a Store reading from v.
func NewStore(v *viper.Viper) *Store {
	return &Store{viper: v}
}

// Load returns the current snapshot, reading it from viper on first use.
// The returned value shares nothing mutable with the store.
func (s *Store) Load(ctx context.Context) (domain.Settings, error) {
	s.mu.RLock()
	if s.loaded {
		snapshot := copySettings(s.settings)
		s.mu.RUnlock()
		return snapshot, nil
	}
	s.mu.RUnlock()

	if err := s.Reload(ctx); err != nil {
		return domain.Settings{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return copySettings(s.settings), nil
}

// Reload rebuilds the snapshot from viper.
func (s *Store) Reload(ctx context.Context) error {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "adapter",
		zerowrap.FieldAdapter: "settings",
		zerowrap.FieldAction:  "reload",
	})
	log := zerowrap.FromCtx(ctx)

	settings, err := s.read()
	if err != nil {
		log.Error().Err(err).Msg("failed to read settings")
		return fmt.Errorf("read settings: %w", err)
	}

	s.mu.Lock()
	s.settings = settings
	s.loaded = true
	s.mu.Unlock()

	log.Info().
		Str("site", settings.Site).
		Str("storage", settings.Storage.Normalize().String()).
		Int(zerowrap.FieldCount, len(settings.Categories())).
		Msg("settings loaded")

	return nil
}

func (s *Store) read() (domain.Settings, error) {
	v := s.viper

	var dirs []directoryConfig
	if err := v.UnmarshalKey("directories", &dirs); err != nil {
		return domain.Settings{}, err
	}

	categories := make([]domain.Category, 0, len(dirs))
	for i, d := range dirs {
		enabled := true
		if d.Enabled != nil {
			enabled = *d.Enabled
		}
		name := strings.TrimSpace(d.Name)
		if err := validation.ValidateCategoryName(name); err != nil {
			return domain.Settings{}, &domain.ConfigError{Field: fmt.Sprintf("directories[%d].name", i), Reason: err.Error()}
		}
		categories = append(categories, domain.Category{
			Name:       name,
			Kind:       domain.KindDirectory,
			SourcePath: validation.ExpandHome(strings.TrimSpace(d.Path)),
			Enabled:    enabled,
		})
	}

	dsn := v.GetString("database.dsn")
	if domain.DBDriver(strings.ToLower(v.GetString("database.driver"))) == domain.DriverSQLite {
		dsn = validation.ExpandHome(dsn)
	}

	return domain.Settings{
		Site:      v.GetString("backup.site"),
		BackupDir: validation.ExpandHome(v.GetString("backup.dir")),
		KeepLocal: v.GetInt("backup.keep_local"),
		Storage: domain.StorageConfig{
			Endpoint:         v.GetString("storage.endpoint"),
			Scheme:           v.GetString("storage.scheme"),
			Region:           v.GetString("storage.region"),
			Bucket:           v.GetString("storage.bucket"),
			AccessKey:        v.GetString("storage.access_key"),
			SecretKey:        v.GetString("storage.secret_key"),
			AddressingStyle:  domain.AddressingStyle(v.GetString("storage.addressing_style")),
			AllowInsecureTLS: v.GetBool("storage.allow_insecure_tls"),
			KeyPrefix:        v.GetString("storage.key_prefix"),
		},
		Database: domain.DatabaseSettings{
			Enabled:  v.GetBool("database.enabled"),
			Driver:   domain.DBDriver(strings.ToLower(v.GetString("database.driver"))),
			DSN:      dsn,
			DumpTool: v.GetString("database.dump_tool"),
		},
		Directories: categories,
		Schedule: domain.ScheduleSettings{
			Preset: domain.BackupSchedule(strings.ToLower(v.GetString("schedule.preset"))),
			At:     v.GetString("schedule.at"),
		},
		Notify: domain.NotifySettings{
			Enabled:  v.GetBool("notify.enabled"),
			On:       domain.NotifyPolicy(strings.ToLower(v.GetString("notify.on"))),
			To:       v.GetString("notify.to"),
			From:     v.GetString("notify.from"),
			SMTPHost: v.GetString("notify.smtp_host"),
			SMTPPort: v.GetInt("notify.smtp_port"),
			Username: v.GetString("notify.username"),
			Password: v.GetString("notify.password"),
		},
	}, nil
}

// Watch reloads the snapshot whenever the config file changes and then calls onChange.
func (s *Store) Watch(ctx context.Context, onChange func(domain.Settings)) {
	log := zerowrap.FromCtx(ctx)

	s.viper.OnConfigChange(func(e fsnotify.Event) {
		log.Info().Str("file", e.Name).Msg("config file changed")

		if err := s.Reload(ctx); err != nil {
			log.WrapErr(err, "failed to reload settings")
			return
		}

		if onChange != nil {
			s.mu.RLock()
			snapshot := copySettings(s.settings)
			s.mu.RUnlock()
			onChange(snapshot)
		}
	})

	s.viper.WatchConfig()
	log.Info().Msg("watching for configuration changes")
}

func copySettings(in domain.Settings) domain.Settings {
	snapshot := in
	snapshot.Directories = append([]domain.Category(nil), in.Directories...)
	return snapshot
}
