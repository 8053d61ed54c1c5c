package s3

import (
	"github.com/bnema/siteback/internal/adapters/out/sigv4"
	"github.com/bnema/siteback/internal/domain"
)

// target is where one signed request is sent.
type target struct {
	scheme string
	host   string
	uri    string
}

// resolveTarget derives the request host and canonical URI for key.
// Path-style keeps the bucket in the URI, virtual-hosted moves it into the host.
func resolveTarget(cfg domain.StorageConfig, key string) target {
	t := target{
		scheme: cfg.Scheme,
		host:   cfg.Endpoint,
		uri:    sigv4.CanonicalURI(cfg.Bucket, key, cfg.AddressingStyle),
	}
	if cfg.AddressingStyle == domain.AddressingVirtualHosted {
		t.host = cfg.Bucket + "." + cfg.Endpoint
	}
	return t
}

func (t target) url() string {
	return t.scheme + "://" + t.host + t.uri
}
