package model

// View is the abstract render model handed to presentation layers. The
// engine fills only plain field values; turning them into Discord embeds,
// select menus and buttons (or JSON for the admin API) happens outside.
type View struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Lines       []string     `json:"lines,omitempty"`
	Options     []ViewOption `json:"options,omitempty"`
	Buttons     []ViewButton `json:"buttons,omitempty"`

	// SelectAction is the session action a select menu on this view
	// dispatches. Options may be empty when the platform supplies the
	// choices itself, as with a native role picker.
	SelectAction string `json:"select_action,omitempty"`
}

// ViewOption is one entry of a select menu.
type ViewOption struct {
	Value       string `json:"value"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Selected    bool   `json:"selected,omitempty"`
}

// ViewButton is an actionable button; Action is the session action the
// button dispatches when pressed, Value its optional argument.
type ViewButton struct {
	Action  string `json:"action"`
	Value   string `json:"value,omitempty"`
	Label   string `json:"label"`
	Style   string `json:"style,omitempty"`
	Danger  bool   `json:"danger,omitempty"`
	Disable bool   `json:"disable,omitempty"`
}
