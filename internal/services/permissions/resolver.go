package permissions

import (
	"context"
	"fmt"

	"github.com/somospye/pyebot-sub000/internal/domain/enums"
	"github.com/somospye/pyebot-sub000/internal/domain/model"
	"github.com/somospye/pyebot-sub000/internal/domain/rules"
)

// RoleSource supplies the managed role configurations of a guild.
type RoleSource interface {
	ListRoles(ctx context.Context, guildID string) ([]model.ManagedRole, error)
}

type Decision string

const (
	DecisionAllowedByOverride Decision = "allowed_by_override"
	DecisionDeniedByOverride  Decision = "denied_by_override"
	DecisionFallback          Decision = "fallback"
)

// PermissionDecision is the resolver verdict. MatchedRoleKey names the
// deciding role for override decisions and is empty on fallback.
type PermissionDecision struct {
	Allowed        bool     `json:"allowed"`
	Decision       Decision `json:"decision"`
	MatchedRoleKey string   `json:"matched_role_key,omitempty"`
}

type Service struct {
	roles RoleSource
}

func NewService(roles RoleSource) *Service {
	return &Service{roles: roles}
}

// Resolve decides whether a member holding the given platform roles may
// run an action. Deny overrides always win: the scan only short-circuits
// on deny, so an allow seen earlier never hides a later deny. When every
// held role inherits, the caller-supplied platform flag decides.
func (s *Service) Resolve(ctx context.Context, guildID, actionKey string, memberRoleIDs []string, fallbackAllowed bool) (PermissionDecision, error) {
	if s.roles == nil {
		return PermissionDecision{}, fmt.Errorf("permissions role source is not configured")
	}

	key, err := rules.NormalizeActionKey(actionKey)
	if err != nil {
		return PermissionDecision{}, err
	}

	fallback := PermissionDecision{Allowed: fallbackAllowed, Decision: DecisionFallback}
	if len(memberRoleIDs) == 0 {
		return fallback, nil
	}

	roles, err := s.roles.ListRoles(ctx, guildID)
	if err != nil {
		return PermissionDecision{}, fmt.Errorf("load managed roles: %w", err)
	}

	allowedBy := ""
	for _, role := range roles {
		if !role.HeldBy(memberRoleIDs) {
			continue
		}
		switch role.OverrideFor(key) {
		case enums.OverrideDeny:
			return PermissionDecision{
				Allowed:        false,
				Decision:       DecisionDeniedByOverride,
				MatchedRoleKey: role.Key,
			}, nil
		case enums.OverrideAllow:
			if allowedBy == "" {
				allowedBy = role.Key
			}
		}
	}

	if allowedBy != "" {
		return PermissionDecision{
			Allowed:        true,
			Decision:       DecisionAllowedByOverride,
			MatchedRoleKey: allowedBy,
		}, nil
	}

	return fallback, nil
}
