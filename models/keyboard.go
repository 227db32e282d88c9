package models

// Button is one selectable option attached to an outbound message.
// Action is the opaque payload echoed back in the inbound action event.
type Button struct {
	Label  string
	Action string
	URL    string // link buttons carry a URL instead of an action
}

// Keyboard is a grid of buttons, one slice per row
type Keyboard struct {
	Rows [][]Button
}

// NewKeyboard creates a keyboard from rows of buttons
func NewKeyboard(rows ...[]Button) *Keyboard {
	return &Keyboard{Rows: rows}
}

// Row is a convenience for building a keyboard row
func Row(buttons ...Button) []Button {
	return buttons
}
