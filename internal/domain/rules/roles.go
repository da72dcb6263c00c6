package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/somospye/pyebot-sub000/internal/domain/enums"
	"github.com/somospye/pyebot-sub000/internal/domain/model"
)

var ErrInvalidLabel = errors.New("invalid label")

// ValidateLabel enforces the display-name rule: non-empty after trimming
// and at most model.MaxLabelLength characters.
func ValidateLabel(label string) (string, error) {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return "", fmt.Errorf("%w: label is empty", ErrInvalidLabel)
	}
	if len([]rune(trimmed)) > model.MaxLabelLength {
		return "", fmt.Errorf("%w: label exceeds %d characters", ErrInvalidLabel, model.MaxLabelLength)
	}
	return trimmed, nil
}

// RolesEqual is the single equality rule behind both dirty tracking and
// the save preview. Roles compare equal when label, platform mapping,
// limit maps and override maps all match; absence of an override is
// inherit, a limit with MaxUses 0 is no limit at all.
func RolesEqual(a, b model.ManagedRole) bool {
	if a.Label != b.Label {
		return false
	}
	if !platformRoleEqual(a.PlatformRoleID, b.PlatformRoleID) {
		return false
	}
	if !limitsEqual(a.Limits, b.Limits) {
		return false
	}
	return overridesEqual(a.Overrides, b.Overrides)
}

func platformRoleEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func limitsEqual(a, b map[string]model.LimitRecord) bool {
	for key := range unionKeys(len(a)+len(b), limitKeys(a), limitKeys(b)) {
		la, oka := effectiveLimit(a, key)
		lb, okb := effectiveLimit(b, key)
		if oka != okb {
			return false
		}
		if !oka {
			continue
		}
		if la.MaxUses != lb.MaxUses || la.EffectiveWindowSeconds() != lb.EffectiveWindowSeconds() {
			return false
		}
	}
	return true
}

func overridesEqual(a, b map[string]enums.OverrideValue) bool {
	for key := range unionKeys(len(a)+len(b), overrideKeys(a), overrideKeys(b)) {
		if a[key].Effective() != b[key].Effective() {
			return false
		}
	}
	return true
}

func effectiveLimit(limits map[string]model.LimitRecord, key string) (model.LimitRecord, bool) {
	limit, ok := limits[key]
	if !ok || !limit.Configured() {
		return model.LimitRecord{}, false
	}
	return limit, true
}

func limitKeys(m map[string]model.LimitRecord) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func overrideKeys(m map[string]enums.OverrideValue) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func unionKeys(sizeHint int, groups ...[]string) map[string]struct{} {
	union := make(map[string]struct{}, sizeHint)
	for _, group := range groups {
		for _, k := range group {
			union[k] = struct{}{}
		}
	}
	return union
}
