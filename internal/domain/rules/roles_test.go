package rules

import (
	"errors"
	"strings"
	"testing"

	"github.com/somospye/pyebot-sub000/internal/domain/enums"
	"github.com/somospye/pyebot-sub000/internal/domain/model"
)

func uintPtr(v uint) *uint { return &v }

func strPtr(v string) *string { return &v }

func TestValidateLabel(t *testing.T) {
	got, err := ValidateLabel("  Moderators  ")
	if err != nil {
		t.Fatalf("validate label: %v", err)
	}
	if got != "Moderators" {
		t.Fatalf("expected trimmed label, got %q", got)
	}

	if _, err := ValidateLabel("   "); !errors.Is(err, ErrInvalidLabel) {
		t.Fatalf("expected ErrInvalidLabel for blank label, got %v", err)
	}
	if _, err := ValidateLabel(strings.Repeat("x", 40)); !errors.Is(err, ErrInvalidLabel) {
		t.Fatalf("expected ErrInvalidLabel for 40-char label, got %v", err)
	}
	if _, err := ValidateLabel(strings.Repeat("x", 32)); err != nil {
		t.Fatalf("32-char label must pass: %v", err)
	}
}

func TestRolesEqualTreatsAbsenceAsDefaults(t *testing.T) {
	a := model.ManagedRole{
		Key:   "mod",
		Label: "Mods",
		Overrides: map[string]enums.OverrideValue{
			"warn": enums.OverrideInherit,
		},
		Limits: map[string]model.LimitRecord{
			"ban": {MaxUses: 0},
		},
	}
	b := model.ManagedRole{Key: "mod", Label: "Mods"}

	if !RolesEqual(a, b) {
		t.Fatalf("explicit inherit and zero limit must equal absent entries")
	}
}

func TestRolesEqualDetectsEachField(t *testing.T) {
	base := model.ManagedRole{
		Key:            "mod",
		Label:          "Mods",
		PlatformRoleID: strPtr("111"),
		Overrides:      map[string]enums.OverrideValue{"warn": enums.OverrideAllow},
		Limits:         map[string]model.LimitRecord{"ban": {MaxUses: 3, WindowSeconds: uintPtr(86400)}},
	}

	tests := []struct {
		name   string
		mutate func(r *model.ManagedRole)
	}{
		{name: "label", mutate: func(r *model.ManagedRole) { r.Label = "Helpers" }},
		{name: "mapping", mutate: func(r *model.ManagedRole) { r.PlatformRoleID = nil }},
		{name: "mapping id", mutate: func(r *model.ManagedRole) { r.PlatformRoleID = strPtr("222") }},
		{name: "override", mutate: func(r *model.ManagedRole) { r.Overrides["warn"] = enums.OverrideDeny }},
		{name: "limit uses", mutate: func(r *model.ManagedRole) {
			r.Limits["ban"] = model.LimitRecord{MaxUses: 4, WindowSeconds: uintPtr(86400)}
		}},
		{name: "limit window", mutate: func(r *model.ManagedRole) {
			r.Limits["ban"] = model.LimitRecord{MaxUses: 3, WindowSeconds: uintPtr(3600)}
		}},
		{name: "limit cleared", mutate: func(r *model.ManagedRole) {
			r.Limits["ban"] = model.LimitRecord{MaxUses: 0, WindowSeconds: uintPtr(86400)}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed := base.Clone()
			tt.mutate(&changed)
			if RolesEqual(base, changed) {
				t.Fatalf("expected inequality after changing %s", tt.name)
			}
		})
	}

	if !RolesEqual(base, base.Clone()) {
		t.Fatalf("clone must equal its source")
	}
}

func TestDiffRoleLines(t *testing.T) {
	original := model.ManagedRole{
		Key:            "mod",
		Label:          "Mods",
		PlatformRoleID: strPtr("111"),
		Overrides:      map[string]enums.OverrideValue{"warn": enums.OverrideAllow},
		Limits:         map[string]model.LimitRecord{"ban": {MaxUses: 3, WindowSeconds: uintPtr(86400)}},
	}
	draft := original.Clone()
	draft.Label = "Moderators"
	draft.PlatformRoleID = strPtr("222")
	draft.Overrides["warn"] = enums.OverrideDeny
	draft.Limits["ban"] = model.LimitRecord{MaxUses: 5, WindowSeconds: uintPtr(3600)}

	diff := DiffRole(&original, draft)
	if diff.New {
		t.Fatalf("existing role must not be flagged new")
	}
	want := []string{
		"label: Mods -> Moderators",
		"mapping: 111 -> 222",
		"limit ban: 3 uses / 24h -> 5 uses / 1h",
		"override warn: allow -> deny",
	}
	if len(diff.Lines) != len(want) {
		t.Fatalf("unexpected diff lines: %v", diff.Lines)
	}
	for i, line := range want {
		if diff.Lines[i] != line {
			t.Fatalf("diff line %d: got %q want %q", i, diff.Lines[i], line)
		}
	}
}

func TestDiffRoleNewEntry(t *testing.T) {
	draft := model.ManagedRole{Key: "helper", Label: "Helpers"}
	diff := DiffRole(nil, draft)
	if !diff.New {
		t.Fatalf("role absent from original must be flagged new")
	}
	if diff.Empty() {
		t.Fatalf("new role diff must not be empty")
	}
}
