package enums

type SessionState string

const (
	SessionStateHome        SessionState = "home"
	SessionStateRoleMenu    SessionState = "role_menu"
	SessionStateMapRole     SessionState = "map_role"
	SessionStateLimits      SessionState = "limits"
	SessionStateReach       SessionState = "reach"
	SessionStateConfirmSave SessionState = "confirm_save"
	SessionStateTimeout     SessionState = "timeout"
)
