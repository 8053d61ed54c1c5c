package domain

import (
	"net/url"
	"strings"
)

// DefaultRegion is used for signing when no region is configured.
const DefaultRegion = "us-east-1"

// DefaultKeyPrefix is the object key prefix used when none is configured.
const DefaultKeyPrefix = "backups"

// AddressingStyle selects how the bucket is expressed in object URLs.
type AddressingStyle string

const (
	// AddressingPath puts the bucket in the URI path: https://host/bucket/key.
	AddressingPath AddressingStyle = "path"
	// AddressingVirtualHosted puts the bucket in the host: https://bucket.host/key.
	AddressingVirtualHosted AddressingStyle = "virtual-hosted"
)

// StorageConfig describes the S3-compatible destination for one run.
type StorageConfig struct {
	Endpoint         string
	Scheme           string
	Region           string
	Bucket           string
	AccessKey        string
	SecretKey        string
	AddressingStyle  AddressingStyle
	AllowInsecureTLS bool
	KeyPrefix        string
}

// Normalize returns a copy with whitespace trimmed and defaults applied.
// A scheme embedded in Endpoint ("https://host") wins over Scheme.
func (c StorageConfig) Normalize() StorageConfig {
	n := c
	n.Endpoint = strings.TrimSpace(n.Endpoint)
	n.Scheme = strings.ToLower(strings.TrimSpace(n.Scheme))
	n.Region = strings.TrimSpace(n.Region)
	n.Bucket = strings.TrimSpace(n.Bucket)
	n.AccessKey = strings.TrimSpace(n.AccessKey)
	n.SecretKey = strings.TrimSpace(n.SecretKey)

	if strings.Contains(n.Endpoint, "://") {
		if u, err := url.Parse(n.Endpoint); err == nil && u.Host != "" {
			n.Scheme = strings.ToLower(u.Scheme)
			n.Endpoint = u.Host
		}
	}
	n.Endpoint = strings.TrimSuffix(n.Endpoint, "/")

	if n.Scheme != "http" {
		n.Scheme = "https"
	}
	if n.Region == "" {
		n.Region = DefaultRegion
	}
	if n.AddressingStyle != AddressingVirtualHosted {
		n.AddressingStyle = AddressingPath
	}

	n.KeyPrefix = strings.Trim(strings.TrimSpace(n.KeyPrefix), "/")
	if n.KeyPrefix == "" {
		n.KeyPrefix = DefaultKeyPrefix
	}

	return n
}

// Validate reports the first required field that is empty.
// Order: endpoint, bucket, access_key, secret_key, region.
func (c StorageConfig) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"storage.endpoint", c.Endpoint},
		{"storage.bucket", c.Bucket},
		{"storage.access_key", c.AccessKey},
		{"storage.secret_key", c.SecretKey},
		{"storage.region", c.Region},
	}

	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ConfigError{Field: r.field, Reason: "is required"}
		}
	}

	return nil
}

// IsUsable reports whether a client may issue requests with this config.
func (c StorageConfig) IsUsable() bool {
	return c.Validate() == nil
}

// BaseURL returns scheme://endpoint.
func (c StorageConfig) BaseURL() string {
	return c.Scheme + "://" + c.Endpoint
}

// MaskedAccessKey returns the access key with all but the last four characters hidden.
func (c StorageConfig) MaskedAccessKey() string {
	return MaskSecret(c.AccessKey)
}

// String renders the destination without credentials.
func (c StorageConfig) String() string {
	return c.BaseURL() + " bucket=" + c.Bucket + " style=" + string(c.AddressingStyle) + " region=" + c.Region
}

// ObjectKey joins the key prefix, category and file name.
func (c StorageConfig) ObjectKey(category, fileName string) string {
	parts := make([]string, 0, 3)
	if p := strings.Trim(c.KeyPrefix, "/"); p != "" {
		parts = append(parts, p)
	}
	parts = append(parts, category, fileName)
	return strings.Join(parts, "/")
}
