// Package duration parses timeouts and intervals written with day and
// week units in addition to the ones time.ParseDuration knows.
package duration

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	Day  = 24 * time.Hour
	Week = 7 * Day
)

var unitMultipliers = map[string]time.Duration{
	"d": Day,
	"w": Week,
}

var longUnitPattern = regexp.MustCompile(`(\d+)([wd])`)

// Parse accepts "90s", "5m", "1h30m", "2d" or "1w2d12h". A bare "0"
// returns zero, which upload settings read as no timeout.
func Parse(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration string")
	}
	if s == "0" {
		return 0, nil
	}

	var total time.Duration
	for _, match := range longUnitPattern.FindAllStringSubmatch(s, -1) {
		value, err := strconv.ParseInt(match[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration value %q in %q", match[1], s)
		}
		total += time.Duration(value) * unitMultipliers[match[2]]
	}

	rest := strings.TrimSpace(longUnitPattern.ReplaceAllString(s, ""))
	if rest == "" {
		return total, nil
	}

	d, err := time.ParseDuration(rest)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q (supported units: ms, s, m, h, d, w)", s)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid duration %q: negative value not allowed", s)
	}

	return total + d, nil
}
