package editor

// Event is a tagged input event fed to the session dispatcher. The
// frontend translates raw user input (mouse, keyboard, buttons) into
// these and never touches session state directly.
type Event interface {
	isEvent()
}

// MouseDown starts a new rectangle at the anchor point.
type MouseDown struct {
	X, Y int
}

// MouseMove updates the live rectangle preview while drawing. Outside
// a drag it only moves the cursor.
type MouseMove struct {
	X, Y int
}

// MouseUp commits the rectangle spanned from the anchor to this point.
type MouseUp struct {
	X, Y int
}

// Digit assigns a class to the most recently drawn box. Key is the
// raw 1-9 key the operator pressed.
type Digit struct {
	Key int
}

// RightClick deletes the topmost box containing the point.
type RightClick struct {
	X, Y int
}

// Advance saves the current image's boxes and moves to the next image.
type Advance struct{}

// Cancel discards the in-progress rectangle, or the last committed
// box when nothing is being drawn.
type Cancel struct{}

// Reset clears every box drawn on the current image.
type Reset struct{}

// ToggleAuto switches auto-label mode, in which each committed box
// immediately receives the last used class.
type ToggleAuto struct{}

func (MouseDown) isEvent()  {}
func (MouseMove) isEvent()  {}
func (MouseUp) isEvent()    {}
func (Digit) isEvent()      {}
func (RightClick) isEvent() {}
func (Advance) isEvent()    {}
func (Cancel) isEvent()     {}
func (Reset) isEvent()      {}
func (ToggleAuto) isEvent() {}
