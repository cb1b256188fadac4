package util

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Duration is a time.Duration that is stored in configuration files as text, such as "30s" or "10m".
type Duration time.Duration

// UnmarshalText ...
func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration: cannot parse %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText ...
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// ErrInvalidDuration is returned by ParseDuration when the input holds no recognised duration token.
var ErrInvalidDuration = errors.New("invalid duration format")

// durationToken matches a single "<n><unit>" pair of a moderation duration.
var durationToken = regexp.MustCompile(`(\d+)([mhdw])`)

// units maps a duration unit to its length.
var units = map[string]time.Duration{
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
	"w": 7 * 24 * time.Hour,
}

// ParseDuration parses a moderation duration made of repeating "<n>[mhdw]" tokens, such as "10m", "2h" or
// "1d12h". Tokens are summed. Input without a single recognised token returns ErrInvalidDuration.
func ParseDuration(s string) (time.Duration, error) {
	matches := durationToken.FindAllStringSubmatch(strings.ToLower(s), -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}

	var total time.Duration
	for _, m := range matches {
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %w", ErrInvalidDuration, s, err)
		}
		total += time.Duration(n) * units[m[2]]
	}
	return total, nil
}

// FormatDuration formats a duration as a short human-readable string, such as "1d 2h 3m 4s". Zero components
// are omitted and durations under a second render as "0s".
func FormatDuration(d time.Duration) string {
	seconds := int64(d / time.Second)
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours%24 > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours%24))
	}
	if minutes%60 > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes%60))
	}
	if seconds%60 > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", seconds%60))
	}
	return strings.Join(parts, " ")
}
