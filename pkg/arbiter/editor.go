package arbiter

import (
	"fmt"
	"math/rand/v2"

	"github.com/gwillem/ethobot/pkg/behavior"
)

// Rank step for one move up or down. Two clears the neighbour's rank so a
// single press moves the entry exactly one slot.
const nudgeStep = 2

// Editor edits the behavior table from button input.
type Editor struct {
	table   *behavior.Table
	display Display
	rng     *rand.Rand
	shuffle bool
	cursor  int
}

// NewEditor creates an editor. When shuffle is set the table is randomized
// on first entry into edit mode.
func NewEditor(table *behavior.Table, display Display, rng *rand.Rand, shuffle bool) *Editor {
	return &Editor{
		table:   table,
		display: display,
		rng:     rng,
		shuffle: shuffle,
	}
}

// Cursor returns the row under the cursor.
func (e *Editor) Cursor() int {
	return e.cursor
}

// Enter is called when edit mode starts. It always renders.
func (e *Editor) Enter() {
	if e.shuffle && !e.table.Randomized() {
		e.table.Randomize(e.rng)
	}
	e.commit()
}

// Handle applies at most one button edge and reports whether anything
// changed. The table is rendered only on change.
func (e *Editor) Handle(buttons Buttons) (bool, error) {
	n := e.table.Len()
	if n == 0 {
		return false, nil
	}

	e.labels()

	var err error
	switch {
	case buttons.Edge(ButtonC):
		e.cursor = (e.cursor - 1 + n) % n
	case buttons.Edge(ButtonZ):
		e.cursor = (e.cursor + 1) % n
	case buttons.Edge(ButtonA):
		err = e.table.ToggleActive(e.cursor)
	case buttons.Edge(ButtonB):
		err = e.table.NudgeRank(e.cursor, -nudgeStep)
	case buttons.Edge(ButtonY):
		err = e.table.NudgeRank(e.cursor, nudgeStep)
	case buttons.Edge(ButtonX):
		e.table.ResetAllInactive()
	default:
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("edit row %d: %w", e.cursor, err)
	}

	e.commit()
	return true, nil
}

// ClearLabels blanks every editor button label.
func (e *Editor) ClearLabels() {
	for _, b := range LabeledButtons {
		e.display.SetButtonLabel(b, "")
	}
}

func (e *Editor) commit() {
	e.table.Resort()
	e.labels()
	e.display.RenderTable(e.table.Entries(), e.cursor)
}

// labels follow the entry under the cursor. Move buttons are blank for
// inactive entries.
func (e *Editor) labels() {
	entry, err := e.table.Entry(e.cursor)
	if err != nil {
		return
	}
	toggle, up, down := "Activate", "", ""
	if entry.Active {
		toggle, up, down = "Deactivate", "Move Up", "Move Down"
	}
	e.display.SetButtonLabel(ButtonA, toggle)
	e.display.SetButtonLabel(ButtonB, up)
	e.display.SetButtonLabel(ButtonY, down)
	e.display.SetButtonLabel(ButtonC, "▲")
	e.display.SetButtonLabel(ButtonZ, "▼")
	e.display.SetButtonLabel(ButtonX, "Reset")
}
