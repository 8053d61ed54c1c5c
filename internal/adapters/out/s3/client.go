// Package s3 implements the ObjectStore port against S3-compatible endpoints
// using SigV4-signed requests over net/http.
package s3

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bnema/zerowrap"

	"github.com/bnema/siteback/internal/adapters/out/sigv4"
	"github.com/bnema/siteback/internal/domain"
)

const (
	// DefaultTimeout bounds a single request, including the body transfer.
	DefaultTimeout = 5 * time.Minute

	// DefaultMaxUploadSize is the largest archive accepted for upload (5GB).
	DefaultMaxUploadSize int64 = 5 << 30

	// ArchiveContentType is sent with every archive upload.
	ArchiveContentType = "application/zip"

	// content-type is always signed, so requests without a body still carry one.
	defaultContentType = "application/octet-stream"

	maxMessageBytes = 200
	maxAttempts     = 2

	idleConnTimeout = 90 * time.Second
)

// Client uploads, downloads and deletes objects with signed requests.
type Client struct {
	httpClient    *http.Client
	verified      *http.Transport
	insecure      *http.Transport
	timeout       time.Duration
	maxUploadSize int64
	now           func() time.Time
}

// Option configures the Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithHTTPClient sets a custom HTTP client. Its redirect policy is replaced
// so that redirects are always handled by the Client itself.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithMaxUploadSize caps the size of an uploaded archive. Zero disables the cap.
func WithMaxUploadSize(size int64) Option {
	return func(c *Client) {
		c.maxUploadSize = size
	}
}

// WithClock overrides the signing clock.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// New creates an S3 client.
func New(opts ...Option) *Client {
	c := &Client{
		timeout:       DefaultTimeout,
		maxUploadSize: DefaultMaxUploadSize,
		now:           time.Now,
		verified:      newTransport(false),
		insecure:      newTransport(true),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Close drops the idle keep-alive connections of the default transports.
func (c *Client) Close() {
	c.verified.CloseIdleConnections()
	c.insecure.CloseIdleConnections()
}

func newTransport(skipVerify bool) *http.Transport {
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     idleConnTimeout,
		// #nosec G402 - only when the operator opted in for self-signed endpoints.
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: skipVerify,
			MinVersion:         tls.VersionTLS12,
		},
	}
}

// PutObject uploads the file at localPath as objectKey.
func (c *Client) PutObject(ctx context.Context, localPath, objectKey string, cfg domain.StorageConfig) domain.UploadOutcome {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "adapter",
		zerowrap.FieldAdapter: "s3",
		zerowrap.FieldAction:  "put_object",
		zerowrap.FieldPath:    objectKey,
	})
	log := zerowrap.FromCtx(ctx)

	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return failure(0, "storage is not configured: "+err.Error())
	}

	info, err := os.Stat(localPath)
	if err != nil {
		return failure(0, fmt.Sprintf("%v: cannot read archive: %v", domain.ErrIO, err))
	}
	if c.maxUploadSize > 0 && info.Size() > c.maxUploadSize {
		return failure(0, fmt.Sprintf("archive is %d bytes, above the %d byte upload limit", info.Size(), c.maxUploadSize))
	}

	body, err := os.ReadFile(localPath)
	if err != nil {
		return failure(0, fmt.Sprintf("%v: cannot read archive: %v", domain.ErrIO, err))
	}

	_, outcome := c.do(ctx, http.MethodPut, objectKey, body, cfg)
	if outcome.OK {
		log.Info().Int64(zerowrap.FieldSize, int64(len(body))).Int(zerowrap.FieldStatus, outcome.HTTPStatus).Msg("object uploaded")
	} else {
		log.Warn().Int(zerowrap.FieldStatus, outcome.HTTPStatus).Str("reason", outcome.Message).Msg("object upload failed")
	}
	return outcome
}

// GetObject downloads objectKey into memory.
func (c *Client) GetObject(ctx context.Context, objectKey string, cfg domain.StorageConfig) ([]byte, domain.UploadOutcome) {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "adapter",
		zerowrap.FieldAdapter: "s3",
		zerowrap.FieldAction:  "get_object",
		zerowrap.FieldPath:    objectKey,
	})

	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, failure(0, "storage is not configured: "+err.Error())
	}

	resp, outcome := c.do(ctx, http.MethodGet, objectKey, nil, cfg)
	if !outcome.OK {
		return nil, outcome
	}
	return resp, outcome
}

// DeleteObject removes objectKey.
func (c *Client) DeleteObject(ctx context.Context, objectKey string, cfg domain.StorageConfig) domain.UploadOutcome {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "adapter",
		zerowrap.FieldAdapter: "s3",
		zerowrap.FieldAction:  "delete_object",
		zerowrap.FieldPath:    objectKey,
	})

	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return failure(0, "storage is not configured: "+err.Error())
	}

	_, outcome := c.do(ctx, http.MethodDelete, objectKey, nil, cfg)
	return outcome
}

// do sends one signed request and, on a redirect status, rebuilds and
// resends it once against the Location scheme and host. It returns the
// response body of the final attempt when that attempt succeeded.
func (c *Client) do(ctx context.Context, method, key string, body []byte, cfg domain.StorageConfig) ([]byte, domain.UploadOutcome) {
	log := zerowrap.FromCtx(ctx)
	client := c.client(cfg)
	dest := resolveTarget(cfg, key)
	payloadHash := sigv4.PayloadHash(body)
	creds := sigv4.Credentials{AccessKey: cfg.AccessKey, SecretKey: cfg.SecretKey, Region: cfg.Region}

	outcome := failure(0, domain.ErrNetwork.Error())
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := c.newSignedRequest(ctx, method, dest, body, payloadHash, creds)
		if err != nil {
			return nil, failure(0, fmt.Sprintf("%v: build request: %v", domain.ErrNetwork, err))
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, failure(0, fmt.Sprintf("%v: %s %s: %v", domain.ErrNetwork, method, dest.host, transportError(err)))
		}
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, responseLimit(method)))
		_ = resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if readErr != nil {
				return nil, failure(resp.StatusCode, fmt.Sprintf("%v: read response: %v", domain.ErrNetwork, readErr))
			}
			return respBody, domain.UploadOutcome{OK: true, HTTPStatus: resp.StatusCode, Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
		}

		if isRedirect(resp.StatusCode) && attempt < maxAttempts {
			next, err := redirectTarget(dest, resp.Header.Get("Location"))
			if err != nil {
				return nil, failure(resp.StatusCode, fmt.Sprintf("%v: HTTP %d with unusable Location: %v", domain.ErrNetwork, resp.StatusCode, err))
			}
			log.Debug().
				Int(zerowrap.FieldStatus, resp.StatusCode).
				Str("from", dest.host).
				Str("to", next.host).
				Msg("endpoint redirected, retrying once")
			dest = next
			continue
		}

		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if isRedirect(resp.StatusCode) {
			msg += " (redirected again after retry)"
		}
		if detail := strings.TrimSpace(string(respBody)); detail != "" {
			msg += ": " + detail
		}
		outcome = failure(resp.StatusCode, msg)
		break
	}
	return nil, outcome
}

func (c *Client) newSignedRequest(ctx context.Context, method string, dest target, body []byte, payloadHash string, creds sigv4.Credentials) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, dest.url(), reader)
	if err != nil {
		return nil, err
	}

	now := c.now().UTC()
	contentType := defaultContentType
	if method == http.MethodPut {
		contentType = ArchiveContentType
	}

	auth := sigv4.Sign(sigv4.Request{
		Method:       method,
		CanonicalURI: dest.uri,
		Host:         dest.host,
		ContentType:  contentType,
		PayloadHash:  payloadHash,
		Time:         now,
	}, creds)

	req.Host = dest.host
	req.ContentLength = int64(len(body))
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Amz-Date", now.Format(sigv4.TimeFormat))
	req.Header.Set("X-Amz-Content-Sha256", payloadHash)
	req.Header.Set("Authorization", auth)
	req.Header.Set("User-Agent", "siteback/1.0")

	return req, nil
}

// client returns the HTTP client for one call. The transports are shared
// across calls; redirects are never followed by them.
func (c *Client) client(cfg domain.StorageConfig) *http.Client {
	var client http.Client
	switch {
	case c.httpClient != nil:
		client = *c.httpClient
	case cfg.AllowInsecureTLS:
		client.Transport = c.insecure
	default:
		client.Transport = c.verified
	}
	if client.Timeout == 0 {
		client.Timeout = c.timeout
	}
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &client
}

func redirectTarget(current target, location string) (target, error) {
	if location == "" {
		return target{}, errors.New("missing Location header")
	}
	u, err := url.Parse(location)
	if err != nil {
		return target{}, err
	}
	if u.Host == "" {
		return target{}, fmt.Errorf("location %q has no host", location)
	}

	next := current
	next.host = u.Host
	if u.Scheme != "" {
		next.scheme = strings.ToLower(u.Scheme)
	}
	return next, nil
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	default:
		return false
	}
}

func responseLimit(method string) int64 {
	if method == http.MethodGet {
		return DefaultMaxUploadSize
	}
	return 64 << 10
}

// transportError unwraps url.Error so that the request URL does not leak
// into messages twice.
func transportError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

func failure(status int, msg string) domain.UploadOutcome {
	return domain.UploadOutcome{OK: false, HTTPStatus: status, Message: truncate(msg, maxMessageBytes)}
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
