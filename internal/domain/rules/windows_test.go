package rules

import (
	"errors"
	"testing"
)

func TestParseWindowSeconds(t *testing.T) {
	tests := []struct {
		raw  string
		want uint
	}{
		{raw: "10m", want: 600},
		{raw: "1h", want: 3600},
		{raw: "6h", want: 21600},
		{raw: "24h", want: 86400},
		{raw: "7d", want: 604800},
		{raw: "90s", want: 90},
		{raw: "2h30m", want: 9000},
		{raw: " 1H ", want: 3600},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseWindowSeconds(tt.raw)
			if err != nil {
				t.Fatalf("parse %q: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Fatalf("parse %q: got %d want %d", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseWindowSecondsRejectsBadInput(t *testing.T) {
	for _, raw := range []string{"", "soon", "-5m", "500ms", "0s"} {
		if _, err := ParseWindowSeconds(raw); !errors.Is(err, ErrInvalidWindow) {
			t.Fatalf("expected ErrInvalidWindow for %q, got %v", raw, err)
		}
	}
}

func TestWindowLabelPrefersSymbolicBuckets(t *testing.T) {
	if got := WindowLabel(86400); got != "24h" {
		t.Fatalf("expected symbolic label 24h, got %s", got)
	}
	if got := WindowLabel(90); got != "1m30s" {
		t.Fatalf("expected duration label 1m30s, got %s", got)
	}
}
