package enums

type OverrideValue string

const (
	OverrideAllow   OverrideValue = "allow"
	OverrideDeny    OverrideValue = "deny"
	OverrideInherit OverrideValue = "inherit"
)

func (v OverrideValue) Valid() bool {
	switch v {
	case OverrideAllow, OverrideDeny, OverrideInherit:
		return true
	default:
		return false
	}
}

// Effective treats the empty string (absent map entry) as inherit.
func (v OverrideValue) Effective() OverrideValue {
	if v == "" {
		return OverrideInherit
	}
	return v
}
