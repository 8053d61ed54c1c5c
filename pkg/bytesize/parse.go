// Package bytesize parses and formats archive size limits.
package bytesize

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
)

// Parse parses a size such as "512MB", "5GB" or "1.5GiB".
//
// Units follow go-humanize: KB, MB, GB and TB are powers of 1000, while
// KiB, MiB, GiB and TiB are powers of 1024. A bare number is bytes.
// "0" is accepted and means no limit to callers that support one.
func Parse(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("invalid size %q: negative value not allowed", s)
	}

	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("size %q exceeds maximum allowed value", s)
	}

	return int64(n), nil
}

// Format renders n with binary units, e.g. "1.5 GiB".
func Format(n int64) string {
	if n < 0 {
		return "-" + humanize.IBytes(uint64(-n))
	}
	return humanize.IBytes(uint64(n))
}
