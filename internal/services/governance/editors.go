package governance

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/somospye/pyebot-sub000/internal/domain/enums"
	"github.com/somospye/pyebot-sub000/internal/domain/model"
	"github.com/somospye/pyebot-sub000/internal/domain/rules"
)

// selectRole targets a role for editing. An unknown key that is absent
// from the original snapshot is auto-provisioned as an empty draft entry
// and counts as a new, dirty role.
func selectRole(session *Session, rawKey string) (ActionResult, error) {
	if session.state != enums.SessionStateHome && session.state != enums.SessionStateRoleMenu {
		return ActionResult{}, fmt.Errorf("%w: select_role in state %s", ErrUnknownAction, session.state)
	}

	key, err := rules.NormalizeActionKey(rawKey)
	if err != nil {
		return ActionResult{}, fmt.Errorf("%w: role key", ErrValidation)
	}

	if _, ok := session.draft[key]; !ok {
		if _, existed := session.original[key]; existed {
			return ActionResult{}, fmt.Errorf("%w: %q", ErrUnknownRole, key)
		}
		session.draft[key] = model.ManagedRole{
			GuildID:   session.GuildID,
			Key:       key,
			Label:     key,
			Overrides: map[string]enums.OverrideValue{},
			Limits:    map[string]model.LimitRecord{},
		}
		session.recomputeDirty(key)
	}

	session.activeKey = key
	session.state = enums.SessionStateRoleMenu
	session.data = stateData{}
	return ActionResult{}, nil
}

// openOption enters a sub-editor for the selected role, snapshotting the
// sub-object it edits so cancel can restore it verbatim. Rename has no
// dedicated screen; it is applied directly by rename_confirm.
func openOption(session *Session, option string) (ActionResult, error) {
	if session.state != enums.SessionStateRoleMenu {
		return ActionResult{}, fmt.Errorf("%w: open_option in state %s", ErrUnknownAction, session.state)
	}
	role, ok := session.draft[session.activeKey]
	if !ok {
		return ActionResult{}, ErrUnknownRole
	}

	switch option {
	case "map":
		snapshot := &mappingSnapshot{}
		if role.PlatformRoleID != nil {
			id := *role.PlatformRoleID
			snapshot.platformRoleID = &id
		}
		session.state = enums.SessionStateMapRole
		session.data = stateData{pendingMapping: snapshot}
		return ActionResult{}, nil
	case "limits":
		session.state = enums.SessionStateLimits
		session.data = stateData{pendingLimits: cloneLimits(role.Limits)}
		return ActionResult{}, nil
	case "reach":
		session.state = enums.SessionStateReach
		session.data = stateData{pendingReach: cloneOverrides(role.Overrides)}
		return ActionResult{}, nil
	case "rename":
		return ActionResult{Notice: "Send the new label (max 32 characters)."}, nil
	default:
		return ActionResult{}, fmt.Errorf("%w: option %q", ErrUnknownAction, option)
	}
}

// renameConfirm applies a new label directly from ROLE_MENU. Rejected
// input leaves the label untouched.
func renameConfirm(session *Session, rawLabel string) (ActionResult, error) {
	if session.state != enums.SessionStateRoleMenu {
		return ActionResult{}, fmt.Errorf("%w: rename_confirm in state %s", ErrUnknownAction, session.state)
	}
	role, ok := session.draft[session.activeKey]
	if !ok {
		return ActionResult{}, ErrUnknownRole
	}

	label, err := rules.ValidateLabel(rawLabel)
	if err != nil {
		return ActionResult{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	role.Label = label
	session.draft[session.activeKey] = role
	session.recomputeDirty(session.activeKey)
	return ActionResult{Notice: fmt.Sprintf("Label set to %q.", label)}, nil
}

func mapSelect(session *Session, platformRoleID string) (ActionResult, error) {
	role, err := activeSubEditorRole(session, enums.SessionStateMapRole, "map_select")
	if err != nil {
		return ActionResult{}, err
	}

	id := strings.TrimSpace(platformRoleID)
	if id == "" {
		return ActionResult{}, fmt.Errorf("%w: platform role id is empty", ErrValidation)
	}

	role.PlatformRoleID = &id
	session.draft[session.activeKey] = role
	session.recomputeDirty(session.activeKey)
	return ActionResult{}, nil
}

func mapClear(session *Session) (ActionResult, error) {
	role, err := activeSubEditorRole(session, enums.SessionStateMapRole, "map_clear")
	if err != nil {
		return ActionResult{}, err
	}

	role.PlatformRoleID = nil
	session.draft[session.activeKey] = role
	session.recomputeDirty(session.activeKey)
	return ActionResult{}, nil
}

func mapCancel(session *Session) (ActionResult, error) {
	role, err := activeSubEditorRole(session, enums.SessionStateMapRole, "map_cancel")
	if err != nil {
		return ActionResult{}, err
	}

	if snap := session.data.pendingMapping; snap != nil {
		role.PlatformRoleID = nil
		if snap.platformRoleID != nil {
			id := *snap.platformRoleID
			role.PlatformRoleID = &id
		}
		session.draft[session.activeKey] = role
		session.recomputeDirty(session.activeKey)
	}

	session.state = enums.SessionStateRoleMenu
	session.data = stateData{}
	return ActionResult{}, nil
}

func mapApply(session *Session) (ActionResult, error) {
	if _, err := activeSubEditorRole(session, enums.SessionStateMapRole, "map_apply"); err != nil {
		return ActionResult{}, err
	}
	session.state = enums.SessionStateRoleMenu
	session.data = stateData{}
	return ActionResult{}, nil
}

// setLimit stores one per-action quota. maxUses 0 always clears the
// limit; a positive maxUses requires a resolvable positive window.
func setLimit(session *Session, rawAction, rawMaxUses, rawWindow string) (ActionResult, error) {
	role, err := activeSubEditorRole(session, enums.SessionStateLimits, "set_limit")
	if err != nil {
		return ActionResult{}, err
	}

	actionKey, err := rules.NormalizeActionKey(rawAction)
	if err != nil {
		return ActionResult{}, fmt.Errorf("%w: action key", ErrValidation)
	}

	maxUses, err := strconv.ParseUint(strings.TrimSpace(rawMaxUses), 10, 32)
	if err != nil {
		return ActionResult{}, fmt.Errorf("%w: max uses must be a non-negative integer", ErrValidation)
	}

	if role.Limits == nil {
		role.Limits = map[string]model.LimitRecord{}
	}

	if maxUses == 0 {
		delete(role.Limits, actionKey)
		session.draft[session.activeKey] = role
		session.recomputeDirty(session.activeKey)
		return ActionResult{Notice: fmt.Sprintf("Limit for %s cleared.", actionKey)}, nil
	}

	windowSec, err := rules.ParseWindowSeconds(rawWindow)
	if err != nil {
		return ActionResult{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	role.Limits[actionKey] = model.LimitRecord{MaxUses: uint(maxUses), WindowSeconds: &windowSec}
	session.draft[session.activeKey] = role
	session.recomputeDirty(session.activeKey)
	return ActionResult{
		Notice: fmt.Sprintf("Limit for %s set to %d uses per %s.", actionKey, maxUses, rules.WindowLabel(windowSec)),
	}, nil
}

func limitsCancel(session *Session) (ActionResult, error) {
	role, err := activeSubEditorRole(session, enums.SessionStateLimits, "limits_cancel")
	if err != nil {
		return ActionResult{}, err
	}

	role.Limits = cloneLimits(session.data.pendingLimits)
	session.draft[session.activeKey] = role
	session.recomputeDirty(session.activeKey)
	session.state = enums.SessionStateRoleMenu
	session.data = stateData{}
	return ActionResult{}, nil
}

func limitsApply(session *Session) (ActionResult, error) {
	if _, err := activeSubEditorRole(session, enums.SessionStateLimits, "limits_apply"); err != nil {
		return ActionResult{}, err
	}
	session.state = enums.SessionStateRoleMenu
	session.data = stateData{}
	return ActionResult{}, nil
}

// reachSelectOverride sets one per-action override. Selecting inherit
// removes the stored entry; absence already means inherit.
func reachSelectOverride(session *Session, rawAction, rawOverride string) (ActionResult, error) {
	role, err := activeSubEditorRole(session, enums.SessionStateReach, "reach_select_override")
	if err != nil {
		return ActionResult{}, err
	}

	actionKey, err := rules.NormalizeActionKey(rawAction)
	if err != nil {
		return ActionResult{}, fmt.Errorf("%w: action key", ErrValidation)
	}

	override := enums.OverrideValue(strings.ToLower(strings.TrimSpace(rawOverride)))
	if !override.Valid() {
		return ActionResult{}, fmt.Errorf("%w: override must be allow, deny or inherit", ErrValidation)
	}

	if role.Overrides == nil {
		role.Overrides = map[string]enums.OverrideValue{}
	}
	if override == enums.OverrideInherit {
		delete(role.Overrides, actionKey)
	} else {
		role.Overrides[actionKey] = override
	}

	session.draft[session.activeKey] = role
	session.recomputeDirty(session.activeKey)
	return ActionResult{}, nil
}

func reachCancel(session *Session) (ActionResult, error) {
	role, err := activeSubEditorRole(session, enums.SessionStateReach, "reach_cancel")
	if err != nil {
		return ActionResult{}, err
	}

	role.Overrides = cloneOverrides(session.data.pendingReach)
	session.draft[session.activeKey] = role
	session.recomputeDirty(session.activeKey)
	session.state = enums.SessionStateRoleMenu
	session.data = stateData{}
	return ActionResult{}, nil
}

func reachApply(session *Session) (ActionResult, error) {
	if _, err := activeSubEditorRole(session, enums.SessionStateReach, "reach_apply"); err != nil {
		return ActionResult{}, err
	}
	session.state = enums.SessionStateRoleMenu
	session.data = stateData{}
	return ActionResult{}, nil
}

func activeSubEditorRole(session *Session, want enums.SessionState, action string) (model.ManagedRole, error) {
	if session.state != want {
		return model.ManagedRole{}, fmt.Errorf("%w: %s in state %s", ErrUnknownAction, action, session.state)
	}
	role, ok := session.draft[session.activeKey]
	if !ok {
		return model.ManagedRole{}, ErrUnknownRole
	}
	return role, nil
}

func cloneLimits(m map[string]model.LimitRecord) map[string]model.LimitRecord {
	out := make(map[string]model.LimitRecord, len(m))
	for k, v := range m {
		if v.WindowSeconds != nil {
			w := *v.WindowSeconds
			v.WindowSeconds = &w
		}
		out[k] = v
	}
	return out
}

func cloneOverrides(m map[string]enums.OverrideValue) map[string]enums.OverrideValue {
	out := make(map[string]enums.OverrideValue, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
