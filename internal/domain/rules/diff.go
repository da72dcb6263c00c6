package rules

import (
	"fmt"
	"sort"

	"github.com/somospye/pyebot-sub000/internal/domain/enums"
	"github.com/somospye/pyebot-sub000/internal/domain/model"
)

// RoleDiff lists the changes a draft would persist over its original,
// one human-readable before/after line per changed field. It is the
// content of the save preview; rendering it is someone else's problem.
type RoleDiff struct {
	Key   string
	New   bool
	Lines []string
}

// Empty reports whether the diff carries no changes.
func (d RoleDiff) Empty() bool {
	return !d.New && len(d.Lines) == 0
}

// DiffRole compares a draft against its original snapshot. original is
// nil for a role that did not exist when the session loaded.
func DiffRole(original *model.ManagedRole, draft model.ManagedRole) RoleDiff {
	diff := RoleDiff{Key: draft.Key, New: original == nil}

	var base model.ManagedRole
	if original != nil {
		base = *original
	}

	if base.Label != draft.Label {
		diff.Lines = append(diff.Lines, fmt.Sprintf("label: %s -> %s", displayOr(base.Label), displayOr(draft.Label)))
	}
	if !platformRoleEqual(base.PlatformRoleID, draft.PlatformRoleID) {
		diff.Lines = append(diff.Lines, fmt.Sprintf("mapping: %s -> %s",
			platformRoleDisplay(base.PlatformRoleID), platformRoleDisplay(draft.PlatformRoleID)))
	}

	diff.Lines = append(diff.Lines, diffLimits(base.Limits, draft.Limits)...)
	diff.Lines = append(diff.Lines, diffOverrides(base.Overrides, draft.Overrides)...)
	return diff
}

func diffLimits(before, after map[string]model.LimitRecord) []string {
	var lines []string
	for _, key := range sortedUnion(limitKeys(before), limitKeys(after)) {
		lb, okb := effectiveLimit(before, key)
		la, oka := effectiveLimit(after, key)
		if okb == oka && (!okb || (lb.MaxUses == la.MaxUses && lb.EffectiveWindowSeconds() == la.EffectiveWindowSeconds())) {
			continue
		}
		lines = append(lines, fmt.Sprintf("limit %s: %s -> %s", key, limitDisplay(lb, okb), limitDisplay(la, oka)))
	}
	return lines
}

func diffOverrides(before, after map[string]enums.OverrideValue) []string {
	var lines []string
	for _, key := range sortedUnion(overrideKeys(before), overrideKeys(after)) {
		vb := before[key].Effective()
		va := after[key].Effective()
		if vb == va {
			continue
		}
		lines = append(lines, fmt.Sprintf("override %s: %s -> %s", key, vb, va))
	}
	return lines
}

func limitDisplay(limit model.LimitRecord, configured bool) string {
	if !configured {
		return "none"
	}
	window := limit.EffectiveWindowSeconds()
	if window == 0 {
		return fmt.Sprintf("%d uses", limit.MaxUses)
	}
	return fmt.Sprintf("%d uses / %s", limit.MaxUses, WindowLabel(window))
}

func platformRoleDisplay(id *string) string {
	if id == nil || *id == "" {
		return "unmapped"
	}
	return *id
}

func displayOr(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func sortedUnion(groups ...[]string) []string {
	union := unionKeys(0, groups...)
	keys := make([]string, 0, len(union))
	for k := range union {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
