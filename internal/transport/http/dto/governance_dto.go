package dto

import "time"

// LimitPayload carries one per-action quota over the wire. Window
// accepts the symbolic presets (10m, 1h, 6h, 24h, 7d) or any duration
// of at least one second.
type LimitPayload struct {
	MaxUses uint   `json:"max_uses"`
	Window  string `json:"window,omitempty"`
}

type RoleResponse struct {
	GuildID        string                  `json:"guild_id"`
	Key            string                  `json:"key"`
	Label          string                  `json:"label"`
	PlatformRoleID *string                 `json:"platform_role_id,omitempty"`
	Overrides      map[string]string       `json:"overrides"`
	Limits         map[string]LimitPayload `json:"limits"`
	UpdatedBy      string                  `json:"updated_by,omitempty"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

type RolesListResponse struct {
	Roles []RoleResponse `json:"roles"`
}

type UpsertRoleRequest struct {
	Label          string                  `json:"label"`
	PlatformRoleID *string                 `json:"platform_role_id"`
	Overrides      map[string]string       `json:"overrides"`
	Limits         map[string]LimitPayload `json:"limits"`
}

type ResolveRequest struct {
	Action          string   `json:"action"`
	MemberRoleIDs   []string `json:"member_role_ids"`
	FallbackAllowed bool     `json:"fallback_allowed"`
}

type ResolveResponse struct {
	Allowed        bool   `json:"allowed"`
	Decision       string `json:"decision"`
	MatchedRoleKey string `json:"matched_role_key,omitempty"`
}

type ConsumeRequest struct {
	Action        string   `json:"action"`
	MemberRoleIDs []string `json:"member_role_ids"`
}

type ConsumeResponse struct {
	Allowed   bool       `json:"allowed"`
	Limited   bool       `json:"limited"`
	Remaining uint       `json:"remaining"`
	ResetAt   *time.Time `json:"reset_at,omitempty"`
}

type RankedItemResponse struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

type DashboardResponse struct {
	OverrideDenied1h  int64                `json:"override_denied_1h"`
	RateLimited1h     int64                `json:"rate_limited_1h"`
	Commits24h        int64                `json:"commits_24h"`
	TopLimitedActions []RankedItemResponse `json:"top_limited_actions"`
	TopDeniedRoles    []RankedItemResponse `json:"top_denied_roles"`
}
