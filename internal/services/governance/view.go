package governance

import (
	"fmt"
	"sort"
	"strings"

	"github.com/somospye/pyebot-sub000/internal/domain/enums"
	"github.com/somospye/pyebot-sub000/internal/domain/model"
	"github.com/somospye/pyebot-sub000/internal/domain/rules"
)

// buildView produces the abstract render model for the active screen.
// Only plain strings land here; platform markup belongs to the caller.
func buildView(session *Session) model.View {
	switch session.state {
	case enums.SessionStateRoleMenu:
		return roleMenuView(session)
	case enums.SessionStateMapRole:
		return mapRoleView(session)
	case enums.SessionStateLimits:
		return limitsView(session)
	case enums.SessionStateReach:
		return reachView(session)
	case enums.SessionStateConfirmSave:
		return confirmSaveView(session)
	case enums.SessionStateTimeout:
		return timeoutView()
	default:
		return homeView(session)
	}
}

func homeView(session *Session) model.View {
	view := model.View{
		Title:        "Role governance",
		Description:  "Pick a managed role to edit.",
		SelectAction: "select_role",
		Buttons: []model.ViewButton{
			{Action: "save_request", Label: "Save changes", Disable: len(session.dirty) == 0},
			{Action: "refresh", Label: "Refresh", Disable: len(session.dirty) > 0},
			{Action: "close", Label: "Close", Danger: true},
		},
	}

	for _, key := range sortedRoleKeys(session.draft) {
		role := session.draft[key]
		label := role.Label
		if _, dirty := session.dirty[key]; dirty {
			label += " *"
		}
		view.Options = append(view.Options, model.ViewOption{
			Value:       key,
			Label:       label,
			Description: mappingSummary(role),
		})
	}
	return view
}

func roleMenuView(session *Session) model.View {
	role := session.draft[session.activeKey]
	lines := []string{
		"Mapping: " + mappingSummary(role),
		"Limits: " + limitsSummary(role),
		"Overrides: " + overridesSummary(role),
	}
	if _, dirty := session.dirty[session.activeKey]; dirty {
		lines = append(lines, "Unsaved changes pending.")
	}

	return model.View{
		Title: role.Label,
		Lines: lines,
		Buttons: []model.ViewButton{
			{Action: "open_option", Value: "map", Label: "Map platform role"},
			{Action: "open_option", Value: "limits", Label: "Edit limits"},
			{Action: "open_option", Value: "reach", Label: "Edit overrides"},
			{Action: "open_option", Value: "rename", Label: "Rename"},
			{Action: "save_request", Label: "Save changes", Disable: len(session.dirty) == 0},
			{Action: "back", Label: "Back"},
		},
	}
}

func mapRoleView(session *Session) model.View {
	role := session.draft[session.activeKey]
	return model.View{
		Title:        role.Label + " - platform mapping",
		Description:  "Current: " + mappingSummary(role),
		SelectAction: "map_select",
		Buttons: []model.ViewButton{
			{Action: "map_clear", Label: "Unmap"},
			{Action: "map_apply", Label: "Done"},
			{Action: "map_cancel", Label: "Cancel", Danger: true},
		},
	}
}

func limitsView(session *Session) model.View {
	role := session.draft[session.activeKey]
	view := model.View{
		Title:       role.Label + " - limits",
		Description: "Set max uses per window. 0 uses clears a limit.",
		Buttons: []model.ViewButton{
			{Action: "set_limit", Label: "Set limit"},
			{Action: "limits_apply", Label: "Done"},
			{Action: "limits_cancel", Label: "Cancel", Danger: true},
		},
	}

	for _, key := range sortedLimitKeys(role.Limits) {
		limit := role.Limits[key]
		if !limit.Configured() {
			continue
		}
		view.Lines = append(view.Lines, fmt.Sprintf("%s: %d uses / %s",
			key, limit.MaxUses, rules.WindowLabel(limit.EffectiveWindowSeconds())))
	}
	if len(view.Lines) == 0 {
		view.Lines = []string{"No limits configured."}
	}
	return view
}

func reachView(session *Session) model.View {
	role := session.draft[session.activeKey]
	view := model.View{
		Title:       role.Label + " - overrides",
		Description: "allow and deny override the platform permission; inherit falls through.",
		Buttons: []model.ViewButton{
			{Action: "reach_select_override", Label: "Set override"},
			{Action: "reach_apply", Label: "Done"},
			{Action: "reach_cancel", Label: "Cancel", Danger: true},
		},
	}

	for _, key := range sortedOverrideKeys(role.Overrides) {
		view.Lines = append(view.Lines, fmt.Sprintf("%s: %s", key, role.Overrides[key].Effective()))
	}
	if len(view.Lines) == 0 {
		view.Lines = []string{"No overrides configured."}
	}
	return view
}

func confirmSaveView(session *Session) model.View {
	view := model.View{
		Title:       "Confirm save",
		Description: fmt.Sprintf("%d role(s) will be written.", len(session.data.preview)),
		Buttons: []model.ViewButton{
			{Action: "save_confirm", Label: "Save now"},
			{Action: "save_continue", Label: "Keep editing"},
		},
	}

	for _, diff := range session.data.preview {
		header := diff.Key
		if diff.New {
			header += " (new)"
		}
		view.Lines = append(view.Lines, header)
		for _, line := range diff.Lines {
			view.Lines = append(view.Lines, "  "+line)
		}
	}
	return view
}

func timeoutView() model.View {
	return model.View{
		Title:       "Session expired",
		Description: "The editing session timed out after inactivity.",
		Buttons: []model.ViewButton{
			{Action: "reopen", Label: "Reopen"},
			{Action: "close", Label: "Close", Danger: true},
		},
	}
}

func mappingSummary(role model.ManagedRole) string {
	if role.PlatformRoleID == nil || *role.PlatformRoleID == "" {
		return "unmapped"
	}
	return "role " + *role.PlatformRoleID
}

func limitsSummary(role model.ManagedRole) string {
	keys := sortedLimitKeys(role.Limits)
	var parts []string
	for _, key := range keys {
		limit := role.Limits[key]
		if !limit.Configured() {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %d/%s", key, limit.MaxUses, rules.WindowLabel(limit.EffectiveWindowSeconds())))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

func overridesSummary(role model.ManagedRole) string {
	keys := sortedOverrideKeys(role.Overrides)
	var parts []string
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", key, role.Overrides[key].Effective()))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

func sortedRoleKeys(m map[string]model.ManagedRole) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedLimitKeys(m map[string]model.LimitRecord) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedOverrideKeys(m map[string]enums.OverrideValue) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
