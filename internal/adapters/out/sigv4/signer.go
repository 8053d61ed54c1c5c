// Package sigv4 computes AWS Signature Version 4 authorization headers for
// single S3 requests. It performs no I/O.
package sigv4

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/bnema/siteback/internal/domain"
)

const (
	// Algorithm is the SigV4 algorithm identifier.
	Algorithm = "AWS4-HMAC-SHA256"
	// Service is the fixed service name.
	Service = "s3"

	// TimeFormat is the ISO8601 basic format used in X-Amz-Date.
	TimeFormat = "20060102T150405Z"
	dateFormat = "20060102"

	terminator = "aws4_request"
)

// SignedHeaders lists the headers covered by every signature, sorted.
var SignedHeaders = []string{"content-type", "host", "x-amz-content-sha256", "x-amz-date"}

// Credentials identify the signer.
type Credentials struct {
	AccessKey string
	SecretKey string
	Region    string
}

// Request describes the parts of an HTTP request that are signed.
type Request struct {
	Method       string
	CanonicalURI string
	Host         string
	ContentType  string
	PayloadHash  string
	Time         time.Time
}

// Sign returns the Authorization header value for req.
// Region must already be normalized by the caller.
func Sign(req Request, creds Credentials) string {
	t := req.Time.UTC()
	amzDate := t.Format(TimeFormat)
	scope := Scope(t, creds.Region)

	canonical := CanonicalRequest(req)
	stringToSign := StringToSign(amzDate, scope, canonical)
	signature := hex.EncodeToString(hmacSHA256(SigningKey(creds.SecretKey, t, creds.Region), []byte(stringToSign)))

	return Algorithm + " Credential=" + creds.AccessKey + "/" + scope +
		", SignedHeaders=" + strings.Join(SignedHeaders, ";") +
		", Signature=" + signature
}

// CanonicalRequest builds METHOD\nURI\n\nHEADERS\n\nSIGNED\nPAYLOAD.
// The query string is always empty.
func CanonicalRequest(req Request) string {
	var b strings.Builder
	b.WriteString(req.Method)
	b.WriteByte('\n')
	b.WriteString(req.CanonicalURI)
	b.WriteString("\n\n")
	b.WriteString(canonicalHeaders(req))
	b.WriteByte('\n')
	b.WriteString(strings.Join(SignedHeaders, ";"))
	b.WriteByte('\n')
	b.WriteString(req.PayloadHash)
	return b.String()
}

func canonicalHeaders(req Request) string {
	values := map[string]string{
		"content-type":         strings.TrimSpace(req.ContentType),
		"host":                 strings.TrimSpace(req.Host),
		"x-amz-content-sha256": req.PayloadHash,
		"x-amz-date":           req.Time.UTC().Format(TimeFormat),
	}

	var b strings.Builder
	for _, name := range SignedHeaders {
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(values[name])
		b.WriteByte('\n')
	}
	return b.String()
}

// StringToSign builds the SigV4 string to sign.
func StringToSign(amzDate, scope, canonicalRequest string) string {
	sum := sha256.Sum256([]byte(canonicalRequest))
	return Algorithm + "\n" + amzDate + "\n" + scope + "\n" + hex.EncodeToString(sum[:])
}

// Scope returns date/region/s3/aws4_request.
func Scope(t time.Time, region string) string {
	return t.UTC().Format(dateFormat) + "/" + region + "/" + Service + "/" + terminator
}

// SigningKey derives the per-day signing key.
func SigningKey(secretKey string, t time.Time, region string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secretKey), []byte(t.UTC().Format(dateFormat)))
	kRegion := hmacSHA256(kDate, []byte(region))
	kService := hmacSHA256(kRegion, []byte(Service))
	return hmacSHA256(kService, []byte(terminator))
}

// PayloadHash returns the hex SHA-256 of the full request body.
func PayloadHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// CanonicalURI returns the escaped request path for key under the given
// addressing style. Path-style prefixes the bucket name.
func CanonicalURI(bucket, key string, style domain.AddressingStyle) string {
	path := strings.TrimLeft(key, "/")
	if style != domain.AddressingVirtualHosted {
		path = bucket + "/" + path
	}

	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = EscapeSegment(seg)
	}
	return "/" + strings.Join(segments, "/")
}

// EscapeSegment percent-encodes one path segment, keeping only the
// RFC 3986 unreserved characters literal.
func EscapeSegment(s string) string {
	const hexDigits = "0123456789ABCDEF"

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hexDigits[c>>4])
		b.WriteByte(hexDigits[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '_', c == '.', c == '~':
		return true
	default:
		return false
	}
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}
