package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() Settings {
	return Settings{
		Site:      "example.com",
		BackupDir: "/var/backups/site",
		KeepLocal: 3,
		Storage:   validStorage().Normalize(),
		Database: DatabaseSettings{
			Enabled: true,
			Driver:  DriverMySQL,
			DSN:     "wp:pw@tcp(localhost:3306)/wordpress",
		},
		Directories: []Category{
			{Name: "themes", SourcePath: "/srv/wp-content/themes", Enabled: true},
			{Name: "plugins", SourcePath: "/srv/wp-content/plugins", Enabled: true},
		},
	}
}

func TestSettingsCategoriesOrder(t *testing.T) {
	s := validSettings()
	s.Directories = append(s.Directories, Category{Name: "uploads", SourcePath: "/srv/uploads", Enabled: false})

	cats := s.Categories()
	require.Len(t, cats, 3)
	assert.Equal(t, DatabaseCategory, cats[0].Name)
	assert.Equal(t, KindDatabase, cats[0].Kind)
	assert.Equal(t, "themes", cats[1].Name)
	assert.Equal(t, KindDirectory, cats[1].Kind)
	assert.Equal(t, "plugins", cats[2].Name)
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name  string
		mod   func(*Settings)
		field string
	}{
		{"missing bucket", func(s *Settings) { s.Storage.Bucket = "" }, "storage.bucket"},
		{"missing site", func(s *Settings) { s.Site = "" }, "backup.site"},
		{"negative keep", func(s *Settings) { s.KeepLocal = -1 }, "backup.keep_local"},
		{"bad driver", func(s *Settings) { s.Database.Driver = "oracle" }, "database.driver"},
		{"missing dsn", func(s *Settings) { s.Database.DSN = "" }, "database.dsn"},
		{"missing dir path", func(s *Settings) { s.Directories[1].SourcePath = "" }, "directories[1].path"},
		{"duplicate dir name", func(s *Settings) { s.Directories[1].Name = "themes" }, "directories[1].name"},
		{"reserved dir name", func(s *Settings) { s.Directories[0].Name = DatabaseCategory }, "directories[0].name"},
		{"nothing selected", func(s *Settings) {
			s.Database.Enabled = false
			s.Directories = nil
		}, "backup"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			tt.mod(&s)

			err := s.Validate()
			require.Error(t, err)
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, validSettings().Validate())
	})
}

func TestNotifyPolicyAllows(t *testing.T) {
	assert.True(t, NotifyAlways.Allows(RunStatusSuccess))
	assert.True(t, NotifyAlways.Allows(RunStatusFailed))
	assert.True(t, NotifyOnSuccess.Allows(RunStatusSuccess))
	assert.False(t, NotifyOnSuccess.Allows(RunStatusFailed))
	assert.False(t, NotifyOnFailure.Allows(RunStatusSuccess))
	assert.True(t, NotifyOnFailure.Allows(RunStatusFailed))
}

func TestArchiveFileName(t *testing.T) {
	ts := time.Date(2026, 2, 7, 11, 4, 5, 0, time.UTC)
	assert.Equal(t, "example.com-themes-20260207-110405.zip", ArchiveFileName("example.com", "themes", ts))
}

func TestCategoryOutcomeFailed(t *testing.T) {
	assert.False(t, CategoryOutcome{Archived: true, Uploaded: true}.Failed())
	assert.True(t, CategoryOutcome{Archived: true}.Failed())
	assert.True(t, CategoryOutcome{}.Failed())
}

func TestRedactFieldsStripsCredentials(t *testing.T) {
	fields := map[string]any{
		"bucket":     "b",
		"secret_key": "s",
		"access_key": "a",
		"db": map[string]any{
			"dsn":  "user:pw@/db",
			"name": "wordpress",
		},
		"smtp_password": "pw",
	}

	clean := RedactFields(fields)
	assert.Equal(t, "b", clean["bucket"])
	assert.NotContains(t, clean, "secret_key")
	assert.NotContains(t, clean, "access_key")
	assert.NotContains(t, clean, "smtp_password")
	assert.Equal(t, map[string]any{"name": "wordpress"}, clean["db"])
	assert.Contains(t, fields, "secret_key", "input must not be mutated")
}

func TestSanitizePathComponent(t *testing.T) {
	assert.Equal(t, "example.com", SanitizePathComponent("example.com"))
	assert.Equal(t, "a_b_c", SanitizePathComponent("a/b:c"))
	assert.Equal(t, "unknown", SanitizePathComponent(" .. "))
}
