package settings

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/siteback/internal/domain"
)

func testContext() context.Context {
	return zerowrap.WithCtx(context.Background(), zerowrap.Default())
}

const sampleConfig = `
backup:
  site: example.com
  dir: /var/backups/site
  keep_local: 3
storage:
  endpoint: https://s3.example.com
  region: eu-west-1
  bucket: site-backups
  access_key: AKIAEXAMPLE
  secret_key: not-a-real-secret
  addressing_style: virtual-hosted
  key_prefix: wp-backups
database:
  enabled: true
  driver: MySQL
  dsn: "user:pw@tcp(localhost:3306)/wp"
  dump_tool: none
directories:
  - name: themes
    path: /srv/wp/wp-content/themes
  - name: uploads
    path: /srv/wp/wp-content/uploads
    enabled: false
schedule:
  preset: Daily
  at: "03:30"
notify:
  enabled: true
  on: failure
  to: ops@example.com
  smtp_host: smtp.example.com
  smtp_port: 587
`

func newViper(t *testing.T, content string) (*viper.Viper, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "siteback.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	return v, path
}

func TestStore_Load(t *testing.T) {
	v, _ := newViper(t, sampleConfig)
	store := NewStore(v)

	s, err := store.Load(testContext())
	require.NoError(t, err)

	assert.Equal(t, "example.com", s.Site)
	assert.Equal(t, "/var/backups/site", s.BackupDir)
	assert.Equal(t, 3, s.KeepLocal)

	assert.Equal(t, "https://s3.example.com", s.Storage.Endpoint)
	assert.Equal(t, "site-backups", s.Storage.Bucket)
	assert.Equal(t, domain.AddressingVirtualHosted, s.Storage.AddressingStyle)
	assert.Equal(t, "wp-backups", s.Storage.KeyPrefix)

	assert.True(t, s.Database.Enabled)
	assert.Equal(t, domain.DriverMySQL, s.Database.Driver)
	assert.Equal(t, domain.DumpToolNone, s.Database.DumpTool)

	require.Len(t, s.Directories, 2)
	assert.Equal(t, domain.Category{Name: "themes", Kind: domain.KindDirectory, SourcePath: "/srv/wp/wp-content/themes", Enabled: true}, s.Directories[0])
	assert.False(t, s.Directories[1].Enabled)

	assert.Equal(t, domain.ScheduleDaily, s.Schedule.Preset)
	assert.Equal(t, "03:30", s.Schedule.At)

	assert.True(t, s.Notify.Enabled)
	assert.Equal(t, domain.NotifyOnFailure, s.Notify.On)
	assert.Equal(t, 587, s.Notify.SMTPPort)

	require.NoError(t, s.Validate())
	assert.Len(t, s.Categories(), 2)
}

func TestStore_LoadReturnsIndependentSnapshots(t *testing.T) {
	v, _ := newViper(t, sampleConfig)
	store := NewStore(v)
	ctx := testContext()

	first, err := store.Load(ctx)
	require.NoError(t, err)
	first.Directories[0].Name = "mutated"
	first.Site = "mutated"

	second, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "themes", second.Directories[0].Name)
	assert.Equal(t, "example.com", second.Site)
}

func TestStore_SnapshotIsStableUntilReload(t *testing.T) {
	v, _ := newViper(t, sampleConfig)
	store := NewStore(v)
	ctx := testContext()

	_, err := store.Load(ctx)
	require.NoError(t, err)

	v.Set("backup.site", "changed.example.com")

	s, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "example.com", s.Site)

	require.NoError(t, store.Reload(ctx))
	s, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "changed.example.com", s.Site)
}

func TestStore_EmptyConfig(t *testing.T) {
	store := NewStore(viper.New())

	s, err := store.Load(testContext())
	require.NoError(t, err)
	assert.Empty(t, s.Directories)

	err = s.Validate()
	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "storage.endpoint", cfgErr.Field)
}

func TestStore_WatchReloadsOnFileChange(t *testing.T) {
	v, path := newViper(t, sampleConfig)
	store := NewStore(v)
	ctx := testContext()

	_, err := store.Load(ctx)
	require.NoError(t, err)

	changed := make(chan domain.Settings, 16)
	store.Watch(ctx, func(s domain.Settings) {
		select {
		case changed <- s:
		default:
		}
	})

	updated := []byte("backup:\n  site: reloaded.example.com\n  dir: /tmp\n")
	require.NoError(t, os.WriteFile(path, updated, 0600))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case s := <-changed:
			if s.Site == "reloaded.example.com" {
				return
			}
		case <-deadline:
			t.Fatal("settings were not reloaded")
		}
	}
}

func TestStore_RejectsUnsafeCategoryName(t *testing.T) {
	v, _ := newViper(t, "directories:\n  - name: ../etc\n    path: /etc\n")
	store := NewStore(v)

	_, err := store.Load(testContext())
	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "directories[0].name", cfgErr.Field)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestStore_ExpandsHomeInPaths(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	v, _ := newViper(t, `
backup:
  dir: ~/siteback/archives
database:
  enabled: true
  driver: sqlite
  dsn: ~/site.db
directories:
  - name: uploads
    path: ~/www/uploads
`)
	s, err := NewStore(v).Load(testContext())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "siteback", "archives"), s.BackupDir)
	assert.Equal(t, filepath.Join(home, "site.db"), s.Database.DSN)
	assert.Equal(t, filepath.Join(home, "www", "uploads"), s.Directories[0].SourcePath)
}
