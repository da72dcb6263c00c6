package rules

import (
	"errors"
	"strings"
)

var ErrInvalidActionKey = errors.New("invalid action key")

// NormalizeActionKey canonicalizes a moderation action identifier: trim,
// lower-case, internal whitespace and hyphen runs collapsed to a single
// underscore. Two spellings of the same action must never coexist as
// override or limit keys.
func NormalizeActionKey(raw string) (string, error) {
	trimmed := strings.TrimSpace(strings.ToLower(raw))
	if trimmed == "" {
		return "", ErrInvalidActionKey
	}

	var b strings.Builder
	pendingSep := false
	for _, r := range trimmed {
		if r == ' ' || r == '\t' || r == '-' || r == '_' {
			pendingSep = true
			continue
		}
		if pendingSep && b.Len() > 0 {
			b.WriteByte('_')
		}
		pendingSep = false
		b.WriteRune(r)
	}

	key := b.String()
	if key == "" {
		return "", ErrInvalidActionKey
	}
	return key, nil
}
