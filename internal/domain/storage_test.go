package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validStorage() StorageConfig {
	return StorageConfig{
		Endpoint:  "s3.example.com",
		Bucket:    "site-backups",
		AccessKey: "AKIAEXAMPLE",
		SecretKey: "topsecret",
	}
}

func TestStorageConfigNormalizeAppliesDefaults(t *testing.T) {
	cfg := StorageConfig{Endpoint: " s3.example.com/ ", KeyPrefix: "/nightly/"}.Normalize()

	assert.Equal(t, "s3.example.com", cfg.Endpoint)
	assert.Equal(t, "https", cfg.Scheme)
	assert.Equal(t, DefaultRegion, cfg.Region)
	assert.Equal(t, AddressingPath, cfg.AddressingStyle)
	assert.Equal(t, "nightly", cfg.KeyPrefix)
}

func TestStorageConfigNormalizeTakesSchemeFromEndpointURL(t *testing.T) {
	cfg := StorageConfig{Endpoint: "http://minio.local:9000", Scheme: "https"}.Normalize()

	assert.Equal(t, "minio.local:9000", cfg.Endpoint)
	assert.Equal(t, "http", cfg.Scheme)
	assert.Equal(t, "http://minio.local:9000", cfg.BaseURL())
}

func TestStorageConfigNormalizeDefaultsEmptyPrefix(t *testing.T) {
	cfg := StorageConfig{KeyPrefix: " / "}.Normalize()
	assert.Equal(t, DefaultKeyPrefix, cfg.KeyPrefix)
}

func TestStorageConfigValidateNamesFirstMissingField(t *testing.T) {
	tests := []struct {
		name  string
		mod   func(*StorageConfig)
		field string
	}{
		{"endpoint", func(c *StorageConfig) { c.Endpoint = "" }, "storage.endpoint"},
		{"bucket", func(c *StorageConfig) { c.Bucket = "  " }, "storage.bucket"},
		{"access key", func(c *StorageConfig) { c.AccessKey = "" }, "storage.access_key"},
		{"secret key", func(c *StorageConfig) { c.SecretKey = "" }, "storage.secret_key"},
		{"region", func(c *StorageConfig) { c.Region = "" }, "storage.region"},
		{"bucket before secret", func(c *StorageConfig) { c.Bucket = ""; c.SecretKey = "" }, "storage.bucket"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validStorage()
			cfg.Region = "eu-west-1"
			tt.mod(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfiguration))

			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
			assert.False(t, cfg.IsUsable())
		})
	}
}

func TestStorageConfigValidateAcceptsNormalizedConfig(t *testing.T) {
	cfg := validStorage().Normalize()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.IsUsable())
}

func TestStorageConfigStringOmitsCredentials(t *testing.T) {
	cfg := validStorage().Normalize()
	s := cfg.String()

	assert.NotContains(t, s, cfg.SecretKey)
	assert.NotContains(t, s, cfg.AccessKey)
	assert.Contains(t, s, "site-backups")
	assert.Equal(t, "*******MPLE", cfg.MaskedAccessKey())
}

func TestStorageConfigObjectKey(t *testing.T) {
	cfg := validStorage().Normalize()
	cfg.KeyPrefix = "wp-backups"

	assert.Equal(t, "wp-backups/db/example.com-db-20260207-110000.zip",
		cfg.ObjectKey("db", "example.com-db-20260207-110000.zip"))

	cfg.KeyPrefix = ""
	assert.Equal(t, "themes/a.zip", cfg.ObjectKey("themes", "a.zip"))
}
