package scanner

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var intervalRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*([hm])$`)

// ParseScanInterval turns a user-supplied interval token into a
// duration. Accepted forms are a bare number (hours) or a number with
// an h/m suffix. Anything unparsable falls back to the default.
func ParseScanInterval(raw string, fallback time.Duration) time.Duration {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return fallback
	}

	if hours, err := strconv.ParseFloat(raw, 64); err == nil {
		if hours <= 0 {
			return fallback
		}
		return time.Duration(hours * float64(time.Hour))
	}

	m := intervalRe.FindStringSubmatch(raw)
	if m == nil {
		return fallback
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil || value <= 0 {
		return fallback
	}
	unit := time.Hour
	if m[2] == "m" {
		unit = time.Minute
	}
	return time.Duration(value * float64(unit))
}
