package arbiter

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/gwillem/ethobot/pkg/behavior"
)

func newEditor(shuffle bool) (*Editor, *behavior.Table, *fakeDisplay, *fakeButtons) {
	tbl := behavior.NewTable(behavior.DefaultHierarchy())
	disp := &fakeDisplay{labels: map[Button]string{}}
	btns := &fakeButtons{pressed: map[Button]bool{}}
	return NewEditor(tbl, disp, rand.New(rand.NewPCG(1, 1)), shuffle), tbl, disp, btns
}

func TestEditor_CursorWraps(t *testing.T) {
	ed, tbl, disp, btns := newEditor(false)
	ed.Enter()

	btns.press(ButtonC)
	if changed, err := ed.Handle(btns); err != nil || !changed {
		t.Fatalf("cursor up: Handle() = %v, %v", changed, err)
	}
	if ed.Cursor() != tbl.Len()-1 {
		t.Errorf("Cursor() = %d, want %d", ed.Cursor(), tbl.Len()-1)
	}
	btns.press(ButtonZ)
	ed.Handle(btns)
	if ed.Cursor() != 0 {
		t.Errorf("Cursor() = %d, want 0", ed.Cursor())
	}
	if disp.tables != 3 {
		t.Errorf("rendered %d times, want 3", disp.tables)
	}
	if disp.cursor != 0 {
		t.Errorf("rendered cursor %d, want 0", disp.cursor)
	}
}

func TestEditor_NoInputNoRender(t *testing.T) {
	ed, _, disp, btns := newEditor(false)
	ed.Enter()
	for range 10 {
		if changed, _ := ed.Handle(btns); changed {
			t.Fatal("Handle() = true without input")
		}
	}
	if disp.tables != 1 {
		t.Errorf("rendered %d times, want 1", disp.tables)
	}
}

func TestEditor_MoveUpDown(t *testing.T) {
	ed, tbl, _, btns := newEditor(false)
	ed.Enter()

	// Cursor to AVOID (row 2), move it up
	btns.press(ButtonZ)
	ed.Handle(btns)
	btns.press(ButtonZ)
	ed.Handle(btns)
	btns.press(ButtonB)
	ed.Handle(btns)

	e, _ := tbl.Entry(1)
	if e.Name != "AVOID" {
		t.Errorf("Entry(1) = %q after move up, want AVOID", e.Name)
	}

	// Cursor stays on row 2, now ESCAPE BACK; move it down
	btns.press(ButtonY)
	ed.Handle(btns)
	e, _ = tbl.Entry(3)
	if e.Name != "ESCAPE BACK" {
		t.Errorf("Entry(3) = %q after move down, want ESCAPE BACK", e.Name)
	}
}

func TestEditor_ToggleAndReset(t *testing.T) {
	ed, tbl, _, btns := newEditor(false)
	ed.Enter()

	btns.press(ButtonA)
	ed.Handle(btns)
	if e, _ := tbl.Entry(0); e.Name != "ESCAPE BACK" {
		t.Errorf("Entry(0) = %q after deactivating top, want ESCAPE BACK", e.Name)
	}

	btns.press(ButtonX)
	ed.Handle(btns)
	if n := len(tbl.Active()); n != 0 {
		t.Errorf("%d active after reset, want 0", n)
	}
}

func TestEditor_RowOutOfRange(t *testing.T) {
	ed, _, disp, btns := newEditor(false)
	ed.Enter()
	ed.cursor = 99

	for _, b := range []Button{ButtonA, ButtonB, ButtonY} {
		btns.press(b)
		changed, err := ed.Handle(btns)
		if !errors.Is(err, behavior.ErrIndexOutOfRange) {
			t.Errorf("%s: Handle() error = %v, want ErrIndexOutOfRange", b, err)
		}
		if changed {
			t.Errorf("%s: Handle() reported a change", b)
		}
	}
	if disp.tables != 1 {
		t.Errorf("rendered %d times, want 1", disp.tables)
	}
}

func TestEditor_OneInputPerCycle(t *testing.T) {
	ed, _, _, btns := newEditor(false)
	ed.Enter()
	btns.press(ButtonZ)
	btns.press(ButtonA)
	ed.Handle(btns)
	if ed.Cursor() != 1 {
		t.Errorf("Cursor() = %d, want 1", ed.Cursor())
	}
	if !btns.pressed[ButtonA] {
		t.Error("second press consumed in the same cycle")
	}
	if len(ed.table.Active()) != 5 {
		t.Error("toggle applied in the same cycle as cursor move")
	}
}

func TestEditor_Labels(t *testing.T) {
	ed, _, disp, btns := newEditor(false)
	ed.Enter()

	if disp.labels[ButtonA] != "Deactivate" || disp.labels[ButtonB] != "Move Up" || disp.labels[ButtonY] != "Move Down" {
		t.Errorf("labels on active entry = %v", disp.labels)
	}
	if disp.labels[ButtonC] != "▲" || disp.labels[ButtonZ] != "▼" || disp.labels[ButtonX] != "Reset" {
		t.Errorf("fixed labels = %v", disp.labels)
	}

	// Row 5 is the first inactive entry
	for range 5 {
		btns.press(ButtonZ)
		ed.Handle(btns)
	}
	if disp.labels[ButtonA] != "Activate" || disp.labels[ButtonB] != "" || disp.labels[ButtonY] != "" {
		t.Errorf("labels on inactive entry = %v", disp.labels)
	}

	ed.ClearLabels()
	for _, b := range LabeledButtons {
		if disp.labels[b] != "" {
			t.Errorf("label %s = %q after ClearLabels", b, disp.labels[b])
		}
	}
}

func TestEditor_ShuffleHidesBootOrder(t *testing.T) {
	ed, tbl, _, _ := newEditor(true)
	ed.Enter()
	if !tbl.Randomized() {
		t.Fatal("table not randomized on first entry")
	}
	if n := len(tbl.Active()); n != 0 {
		t.Errorf("%d active after shuffle, want 0", n)
	}
}
