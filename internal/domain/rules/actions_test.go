package rules

import (
	"errors"
	"testing"
)

func TestNormalizeActionKey(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "ban", want: "ban"},
		{raw: "  Ban  ", want: "ban"},
		{raw: "Temp Ban", want: "temp_ban"},
		{raw: "temp-ban", want: "temp_ban"},
		{raw: "temp - -  ban", want: "temp_ban"},
		{raw: "WARN_USER", want: "warn_user"},
		{raw: "clear__messages", want: "clear_messages"},
		{raw: "-ban-", want: "ban"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := NormalizeActionKey(tt.raw)
			if err != nil {
				t.Fatalf("normalize %q: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Fatalf("normalize %q: got %q want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeActionKeyRejectsEmpty(t *testing.T) {
	for _, raw := range []string{"", "   ", "---", " - _ "} {
		if _, err := NormalizeActionKey(raw); !errors.Is(err, ErrInvalidActionKey) {
			t.Fatalf("expected ErrInvalidActionKey for %q, got %v", raw, err)
		}
	}
}
