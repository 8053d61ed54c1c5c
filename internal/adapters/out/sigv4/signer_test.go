package sigv4

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/siteback/internal/domain"
)

var fixedTime = time.Date(2026, 2, 7, 11, 4, 5, 0, time.UTC)

func testCreds() Credentials {
	return Credentials{
		AccessKey: "AKIDEXAMPLE",
		SecretKey: "wJalrXUtnFEMI/K7MDENG+bPxRfiCYEXAMPLEKEY",
		Region:    "us-east-1",
	}
}

func testRequest(body []byte) Request {
	return Request{
		Method:       "PUT",
		CanonicalURI: "/site-backups/backups/db/example.com-db-20260207-110405.zip",
		Host:         "s3.example.com",
		ContentType:  "application/zip",
		PayloadHash:  PayloadHash(body),
		Time:         fixedTime,
	}
}

func TestSignIsDeterministic(t *testing.T) {
	req := testRequest([]byte("archive bytes"))

	first := Sign(req, testCreds())
	second := Sign(req, testCreds())

	assert.Equal(t, first, second)
}

func TestSignHeaderFormat(t *testing.T) {
	header := Sign(testRequest([]byte("x")), testCreds())

	pattern := regexp.MustCompile(`^AWS4-HMAC-SHA256 Credential=AKIDEXAMPLE/20260207/us-east-1/s3/aws4_request, SignedHeaders=content-type;host;x-amz-content-sha256;x-amz-date, Signature=[0-9a-f]{64}$`)
	assert.Regexp(t, pattern, header)
}

func TestSignChangesWithPayload(t *testing.T) {
	body := []byte("archive bytes")
	altered := []byte("archive bytez")

	assert.NotEqual(t, PayloadHash(body), PayloadHash(altered))
	assert.NotEqual(t, Sign(testRequest(body), testCreds()), Sign(testRequest(altered), testCreds()))
}

func TestSignChangesWithHostAndRegion(t *testing.T) {
	base := testRequest([]byte("x"))
	otherHost := base
	otherHost.Host = "site-backups.s3.example.com"

	assert.NotEqual(t, Sign(base, testCreds()), Sign(otherHost, testCreds()))

	creds := testCreds()
	creds.Region = "eu-central-1"
	assert.NotEqual(t, Sign(base, testCreds()), Sign(base, creds))
}

func TestPayloadHashMatchesSHA256(t *testing.T) {
	body := []byte("the exact bytes sent")
	sum := sha256.Sum256(body)
	assert.Equal(t, hex.EncodeToString(sum[:]), PayloadHash(body))

	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", PayloadHash(nil))
}

func TestCanonicalRequestLayout(t *testing.T) {
	req := testRequest([]byte("x"))

	expected := "PUT\n" +
		"/site-backups/backups/db/example.com-db-20260207-110405.zip\n" +
		"\n" +
		"content-type:application/zip\n" +
		"host:s3.example.com\n" +
		"x-amz-content-sha256:" + req.PayloadHash + "\n" +
		"x-amz-date:20260207T110405Z\n" +
		"\n" +
		"content-type;host;x-amz-content-sha256;x-amz-date\n" +
		req.PayloadHash

	assert.Equal(t, expected, CanonicalRequest(req))
}

func TestSignMatchesManualDerivation(t *testing.T) {
	req := testRequest([]byte("payload"))
	creds := testCreds()

	canonical := CanonicalRequest(req)
	sts := StringToSign("20260207T110405Z", "20260207/us-east-1/s3/aws4_request", canonical)
	key := SigningKey(creds.SecretKey, fixedTime, creds.Region)
	sig := hex.EncodeToString(hmacSHA256(key, []byte(sts)))

	header := Sign(req, creds)
	assert.Contains(t, header, "Signature="+sig)

	kDate := hmacSHA256([]byte("AWS4"+creds.SecretKey), []byte("20260207"))
	kRegion := hmacSHA256(kDate, []byte("us-east-1"))
	kService := hmacSHA256(kRegion, []byte("s3"))
	assert.Equal(t, hmacSHA256(kService, []byte("aws4_request")), key)
}

func TestStringToSignLayout(t *testing.T) {
	sts := StringToSign("20260207T110405Z", "20260207/us-east-1/s3/aws4_request", "canonical")
	sum := sha256.Sum256([]byte("canonical"))

	assert.Equal(t, "AWS4-HMAC-SHA256\n20260207T110405Z\n20260207/us-east-1/s3/aws4_request\n"+hex.EncodeToString(sum[:]), sts)
}

func TestCanonicalURI(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		style  domain.AddressingStyle
		expect string
	}{
		{"path style", "backups/db/a.zip", domain.AddressingPath, "/bucket/backups/db/a.zip"},
		{"virtual hosted", "backups/db/a.zip", domain.AddressingVirtualHosted, "/backups/db/a.zip"},
		{"segments escaped separately", "my dir/a+b=c.zip", domain.AddressingVirtualHosted, "/my%20dir/a%2Bb%3Dc.zip"},
		{"unreserved kept", "a-b_c.d~e/f", domain.AddressingVirtualHosted, "/a-b_c.d~e/f"},
		{"utf8 escaped", "é.zip", domain.AddressingVirtualHosted, "/%C3%A9.zip"},
		{"leading slash trimmed", "/x.zip", domain.AddressingPath, "/bucket/x.zip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, CanonicalURI("bucket", tt.key, tt.style))
		})
	}
}

func TestScope(t *testing.T) {
	require.Equal(t, "20260207/eu-west-1/s3/aws4_request", Scope(fixedTime, "eu-west-1"))
}
