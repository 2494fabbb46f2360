package behavior

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/gwillem/ethobot/pkg/drive"
	"github.com/gwillem/ethobot/pkg/sensor"
)

type recordingDriver struct {
	cmds []drive.Command
}

func (r *recordingDriver) Drive(_ context.Context, cmd drive.Command) error {
	r.cmds = append(r.cmds, cmd)
	return nil
}

func execute(t *testing.T, typ Type, snap sensor.Snapshot) drive.Command {
	t.Helper()
	b, err := New(typ, DefaultParams())
	if err != nil {
		t.Fatalf("New(%s): %v", typ, err)
	}
	d := &recordingDriver{}
	if err := b.Execute(context.Background(), snap, d); err != nil {
		t.Fatalf("Execute(%s): %v", typ, err)
	}
	if len(d.cmds) != 1 {
		t.Fatalf("%s issued %d commands, want 1", typ, len(d.cmds))
	}
	return d.cmds[0]
}

func sameCommand(a, b drive.Command) bool {
	const eps = 1e-9
	return math.Abs(a.Left-b.Left) < eps &&
		math.Abs(a.Right-b.Right) < eps &&
		math.Abs(a.Duration-b.Duration) < eps
}

func clearSticky() sensor.Snapshot {
	return sensor.Snapshot{Mode: sensor.BumpSticky, FrontBump: sensor.BumpClear, BackBump: sensor.BumpClear}
}

func TestSet_AllTypesRegistered(t *testing.T) {
	set, err := Set(DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	for _, typ := range AllTypes() {
		b, ok := set[typ]
		if !ok {
			t.Errorf("no behavior for %s", typ)
			continue
		}
		if b.Type() != typ {
			t.Errorf("behavior for %s reports type %s", typ, b.Type())
		}
	}
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name     string
		mid, max float64
		ok       bool
	}{
		{"default", 250, 400, true},
		{"zero midpoint", 0, 400, false},
		{"max equals midpoint", 250, 250, false},
		{"max below midpoint", 300, 200, false},
	}
	for _, tt := range tests {
		p := DefaultParams()
		p.BumpMidpoint, p.BumpMax = tt.mid, tt.max
		err := p.Validate()
		if tt.ok && err != nil {
			t.Errorf("%s: Validate() = %v", tt.name, err)
		}
		if !tt.ok && !errors.Is(err, ErrBadCalibration) {
			t.Errorf("%s: Validate() = %v, want ErrBadCalibration", tt.name, err)
		}
		if !tt.ok {
			if _, err := Set(p); err == nil {
				t.Errorf("%s: Set() accepted bad calibration", tt.name)
			}
		}
	}
}

func TestReleasers(t *testing.T) {
	p := DefaultParams()
	snap := clearSticky()
	snap.LeftIR, snap.RightIR = 350, 20
	snap.LeftPhoto, snap.RightPhoto = 100, 100
	snap.FrontBump = 300

	want := map[Type]bool{
		SeekLight:      false,
		SeekDark:       false,
		Approach:       true,
		Avoid:          true,
		EscapeFront:    true,
		EscapeBack:     false,
		CruiseStraight: true,
		CruiseArc:      true,
	}
	for typ, w := range want {
		b, _ := New(typ, p)
		if got := b.Releases(snap); got != w {
			t.Errorf("%s.Releases() = %v, want %v", typ, got, w)
		}
	}
}

func TestConstantActions(t *testing.T) {
	snap := clearSticky()
	tests := []struct {
		typ  Type
		want drive.Command
	}{
		{CruiseStraight, drive.Command{Left: 0.5, Right: 0.5, Duration: 0.25}},
		{CruiseArc, drive.Command{Left: 0.25, Right: 0.4, Duration: 0.5}},
	}
	for _, tt := range tests {
		if got := execute(t, tt.typ, snap); !sameCommand(got, tt.want) {
			t.Errorf("%s = %v, want %v", tt.typ, got, tt.want)
		}
	}

	d := &recordingDriver{}
	Stop(context.Background(), d)
	if len(d.cmds) != 1 || !sameCommand(d.cmds[0], drive.Command{Duration: 0.25}) {
		t.Errorf("Stop issued %v", d.cmds)
	}
}

func TestSeekActions(t *testing.T) {
	leftDarker := clearSticky()
	leftDarker.LeftPhoto, leftDarker.RightPhoto = 150, 100
	rightDarker := clearSticky()
	rightDarker.LeftPhoto, rightDarker.RightPhoto = 100, 150

	tests := []struct {
		typ  Type
		snap sensor.Snapshot
		want drive.Command
	}{
		{SeekLight, leftDarker, drive.Command{Left: -0.2, Right: 0.2, Duration: 0.25}},
		{SeekLight, rightDarker, drive.Command{Left: 0.2, Right: -0.2, Duration: 0.25}},
		{SeekDark, leftDarker, drive.Command{Left: 0.2, Right: -0.2, Duration: 0.25}},
		{SeekDark, rightDarker, drive.Command{Left: -0.2, Right: 0.2, Duration: 0.25}},
	}
	for _, tt := range tests {
		if got := execute(t, tt.typ, tt.snap); !sameCommand(got, tt.want) {
			t.Errorf("%s with diff %d = %v, want %v", tt.typ, tt.snap.PhotoDifference(), got, tt.want)
		}
	}
}

func TestDistanceActions(t *testing.T) {
	left := clearSticky()
	left.LeftIR = 500
	right := clearSticky()
	right.RightIR = 500
	neither := clearSticky()

	tests := []struct {
		typ  Type
		snap sensor.Snapshot
		want drive.Command
	}{
		{Avoid, left, drive.Command{Left: 0.5, Right: -0.5, Duration: 0.1}},
		{Avoid, right, drive.Command{Left: -0.5, Right: 0.5, Duration: 0.1}},
		{Avoid, neither, StopCommand},
		{Approach, left, drive.Command{Left: 0.1, Right: 0.9, Duration: 0.5}},
		{Approach, right, drive.Command{Left: 0.9, Right: 0.1, Duration: 0.5}},
		{Approach, neither, StopCommand},
	}
	for _, tt := range tests {
		if got := execute(t, tt.typ, tt.snap); !sameCommand(got, tt.want) {
			t.Errorf("%s with IR %d/%d = %v, want %v", tt.typ, tt.snap.LeftIR, tt.snap.RightIR, got, tt.want)
		}
	}
}

func TestEscapeSticky(t *testing.T) {
	tests := []struct {
		typ   Type
		value int
		want  drive.Command
	}{
		{EscapeFront, 0, drive.Command{Left: -0.1, Right: -0.9, Duration: 0.3}},
		{EscapeFront, 125, drive.Command{Left: -0.1, Right: -0.9, Duration: 0.525}},
		{EscapeFront, 250, drive.Command{Left: -0.9, Right: 0, Duration: 0.75}},
		{EscapeFront, 400, drive.Command{Left: -0.9, Right: 0, Duration: 0.3}},
		{EscapeFront, 1000, drive.Command{Left: -0.9, Right: 0, Duration: 0.3}}, // clamped
		{EscapeBack, 100, drive.Command{Left: 0.9, Right: 0.1, Duration: 0.48}},
		{EscapeBack, 325, drive.Command{Left: 0.1, Right: 0.9, Duration: 0.525}},
	}
	for _, tt := range tests {
		snap := clearSticky()
		if tt.typ == EscapeFront {
			snap.FrontBump = tt.value
		} else {
			snap.BackBump = tt.value
		}
		if got := execute(t, tt.typ, snap); !sameCommand(got, tt.want) {
			t.Errorf("%s at %d = %v, want %v", tt.typ, tt.value, got, tt.want)
		}
	}
}

func TestEscapeDiscrete(t *testing.T) {
	snap := func(front, back [3]bool) sensor.Snapshot {
		return sensor.Snapshot{Mode: sensor.BumpDiscrete, Front: front, Back: back}
	}
	tests := []struct {
		name string
		typ  Type
		snap sensor.Snapshot
		want drive.Command
	}{
		{"front left", EscapeFront, snap([3]bool{true, false, false}, [3]bool{}), drive.Command{Left: -0.1, Right: -1, Duration: 2}},
		{"front right", EscapeFront, snap([3]bool{false, false, true}, [3]bool{}), drive.Command{Left: -1, Right: -0.1, Duration: 2}},
		{"front center", EscapeFront, snap([3]bool{false, true, false}, [3]bool{}), drive.Command{Left: -0.9, Right: -0.9, Duration: 2}},
		{"back", EscapeBack, snap([3]bool{}, [3]bool{false, true, false}), drive.Command{Left: 0.5, Right: 0.5, Duration: 0.25}},
	}
	for _, tt := range tests {
		b, _ := New(tt.typ, DefaultParams())
		if !b.Releases(tt.snap) {
			t.Errorf("%s: Releases() = false", tt.name)
		}
		if got := execute(t, tt.typ, tt.snap); !sameCommand(got, tt.want) {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestParseType(t *testing.T) {
	for _, typ := range AllTypes() {
		text, err := typ.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var back Type
		if err := back.UnmarshalText(text); err != nil || back != typ {
			t.Errorf("UnmarshalText(%q) = %s, %v", text, back, err)
		}
		if got, err := ParseType(typ.String()); err != nil || got != typ {
			t.Errorf("ParseType(%q) = %s, %v", typ.String(), got, err)
		}
	}
	if _, err := ParseType("moonwalk"); err == nil {
		t.Error("ParseType(moonwalk) = nil error")
	}
}
