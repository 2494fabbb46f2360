package arbiter

import (
	"context"

	"github.com/gwillem/ethobot/pkg/behavior"
)

// Button identifies an operator input.
type Button int

// Buttons on the robot controller. Side toggles between modes; the rest are
// used by the hierarchy editor.
const (
	SideButton Button = iota
	ButtonA           // toggle active
	ButtonB           // move up
	ButtonC           // cursor up
	ButtonX           // reset all
	ButtonY           // move down
	ButtonZ           // cursor down
)

// LabeledButtons are the buttons with an on-screen label.
var LabeledButtons = []Button{ButtonA, ButtonB, ButtonC, ButtonX, ButtonY, ButtonZ}

func (b Button) String() string {
	switch b {
	case SideButton:
		return "side"
	case ButtonA:
		return "A"
	case ButtonB:
		return "B"
	case ButtonC:
		return "C"
	case ButtonX:
		return "X"
	case ButtonY:
		return "Y"
	case ButtonZ:
		return "Z"
	}
	return "?"
}

// Buttons reports button edges. Edge returns true at most once per press.
type Buttons interface {
	Edge(b Button) bool
}

// Display renders the hierarchy for the operator.
type Display interface {
	RenderTable(entries []behavior.Entry, cursor int)
	RenderOperateSummary(active []behavior.Entry)
	SetButtonLabel(b Button, text string)
}

// Motors engages and disengages the wheel servos.
type Motors interface {
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
}
