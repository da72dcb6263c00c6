package model

import (
	"time"

	"github.com/somospye/pyebot-sub000/internal/domain/enums"
)

const MaxLabelLength = 32

// LimitRecord is a per-action usage quota attached to a managed role.
// MaxUses 0 means the limit is not configured for the action.
type LimitRecord struct {
	MaxUses       uint  `json:"max_uses"`
	WindowSeconds *uint `json:"window_seconds,omitempty"`
}

// Configured reports whether the record actually restricts anything.
func (l LimitRecord) Configured() bool {
	return l.MaxUses > 0
}

// EffectiveWindowSeconds returns the window length, 0 when unset.
func (l LimitRecord) EffectiveWindowSeconds() uint {
	if l.WindowSeconds == nil {
		return 0
	}
	return *l.WindowSeconds
}

// ManagedRole is one guild-scoped role configuration. Key is chosen by a
// moderator and is stable; PlatformRoleID points at the Discord role the
// configuration is mapped to, if any.
type ManagedRole struct {
	GuildID        string                         `json:"guild_id"`
	Key            string                         `json:"key"`
	Label          string                         `json:"label"`
	PlatformRoleID *string                        `json:"platform_role_id,omitempty"`
	Overrides      map[string]enums.OverrideValue `json:"overrides"`
	Limits         map[string]LimitRecord         `json:"limits"`
	UpdatedBy      string                         `json:"updated_by"`
	UpdatedAt      time.Time                      `json:"updated_at"`
}

// OverrideFor returns the override for a normalized action key, with
// absence collapsing to inherit.
func (r ManagedRole) OverrideFor(actionKey string) enums.OverrideValue {
	if r.Overrides == nil {
		return enums.OverrideInherit
	}
	return r.Overrides[actionKey].Effective()
}

// LimitFor returns the configured limit for a normalized action key and
// whether one is configured at all.
func (r ManagedRole) LimitFor(actionKey string) (LimitRecord, bool) {
	if r.Limits == nil {
		return LimitRecord{}, false
	}
	limit, ok := r.Limits[actionKey]
	if !ok || !limit.Configured() {
		return LimitRecord{}, false
	}
	return limit, true
}

// HeldBy reports whether a member holding the given platform role IDs
// holds this managed role. An unmapped role cannot be held.
func (r ManagedRole) HeldBy(memberRoleIDs []string) bool {
	if r.PlatformRoleID == nil || *r.PlatformRoleID == "" {
		return false
	}
	for _, id := range memberRoleIDs {
		if id == *r.PlatformRoleID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy. Sessions keep two independent snapshots of
// every role, so aliasing the maps or the pointer would corrupt diffs.
func (r ManagedRole) Clone() ManagedRole {
	out := r
	if r.PlatformRoleID != nil {
		id := *r.PlatformRoleID
		out.PlatformRoleID = &id
	}
	if r.Overrides != nil {
		out.Overrides = make(map[string]enums.OverrideValue, len(r.Overrides))
		for k, v := range r.Overrides {
			out.Overrides[k] = v
		}
	}
	if r.Limits != nil {
		out.Limits = make(map[string]LimitRecord, len(r.Limits))
		for k, v := range r.Limits {
			if v.WindowSeconds != nil {
				w := *v.WindowSeconds
				v.WindowSeconds = &w
			}
			out.Limits[k] = v
		}
	}
	return out
}

// CloneRoleMap deep-copies a key -> role map.
func CloneRoleMap(roles map[string]ManagedRole) map[string]ManagedRole {
	out := make(map[string]ManagedRole, len(roles))
	for k, r := range roles {
		out[k] = r.Clone()
	}
	return out
}
