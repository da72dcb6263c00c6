package rules

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidWindow = errors.New("invalid window")

// Symbolic windows offered by the limits editor. They are display labels
// only; limits are always stored as exact seconds.
var symbolicWindows = map[string]uint{
	"10m": 600,
	"1h":  3600,
	"6h":  21600,
	"24h": 86400,
	"7d":  604800,
}

// ParseWindowSeconds resolves a moderator-supplied window into exact
// seconds. Accepts the symbolic windows (10m/1h/6h/24h/7d) and any
// positive time.ParseDuration string.
func ParseWindowSeconds(raw string) (uint, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return 0, fmt.Errorf("%w: empty window", ErrInvalidWindow)
	}

	if sec, ok := symbolicWindows[trimmed]; ok {
		return sec, nil
	}

	d, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWindow, raw)
	}
	if d < time.Second {
		return 0, fmt.Errorf("%w: window must be at least one second", ErrInvalidWindow)
	}
	return uint(d / time.Second), nil
}

// WindowLabel renders a second count for display, preferring the
// symbolic buckets when the count matches one exactly.
func WindowLabel(seconds uint) string {
	for label, sec := range symbolicWindows {
		if sec == seconds {
			return label
		}
	}
	return (time.Duration(seconds) * time.Second).String()
}
