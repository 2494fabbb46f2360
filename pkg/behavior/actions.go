package behavior

import (
	"context"
	"math"

	"github.com/gwillem/ethobot/pkg/drive"
	"github.com/gwillem/ethobot/pkg/sensor"
)

func init() {
	Register(CruiseStraight, func(Params) Behavior {
		return cruise{CruiseStraight, drive.Command{Left: 0.5, Right: 0.5, Duration: 0.25}}
	})
	Register(CruiseArc, func(Params) Behavior {
		return cruise{CruiseArc, drive.Command{Left: 0.25, Right: 0.4, Duration: 0.5}}
	})
	Register(SeekLight, func(p Params) Behavior { return seek{SeekLight, p.PhotoThreshold, 1} })
	Register(SeekDark, func(p Params) Behavior { return seek{SeekDark, p.PhotoThreshold, -1} })
	Register(Avoid, func(p Params) Behavior { return avoid{p.AvoidThreshold} })
	Register(Approach, func(p Params) Behavior { return approach{p.ApproachThreshold} })
	Register(EscapeFront, func(p Params) Behavior { return escape{sensor.Front, p.BumpMidpoint, p.BumpMax} })
	Register(EscapeBack, func(p Params) Behavior { return escape{sensor.Back, p.BumpMidpoint, p.BumpMax} })
}

// cruise always releases and drives a constant command.
type cruise struct {
	t   Type
	cmd drive.Command
}

func (c cruise) Type() Type                            { return c.t }
func (c cruise) Releases(sensor.Snapshot) bool         { return true }
func (c cruise) Command(sensor.Snapshot) drive.Command { return c.cmd }

func (c cruise) Execute(ctx context.Context, _ sensor.Snapshot, d Driver) error {
	return d.Drive(ctx, c.cmd)
}

// seek pivots at a fixed rate in the direction given by the sign of the
// photo differential. SeekDark flips the sign.
type seek struct {
	t         Type
	threshold int
	sign      float64
}

func (s seek) Type() Type { return s.t }

func (s seek) Releases(snap sensor.Snapshot) bool {
	return snap.PhotoAsymmetry(s.threshold)
}

func (s seek) Command(snap sensor.Snapshot) drive.Command {
	m := -s.sign
	if snap.PhotoDifference() > 0 {
		m = s.sign
	}
	return drive.Command{Left: -0.2 * m, Right: 0.2 * m, Duration: 0.25}
}

func (s seek) Execute(ctx context.Context, snap sensor.Snapshot, d Driver) error {
	return d.Drive(ctx, s.Command(snap))
}

// avoid pivots away from the IR channel over threshold.
type avoid struct{ threshold int }

func (a avoid) Type() Type { return Avoid }

func (a avoid) Releases(snap sensor.Snapshot) bool {
	return snap.DistanceAsymmetry(a.threshold)
}

func (a avoid) Command(snap sensor.Snapshot) drive.Command {
	switch {
	case snap.LeftIR > a.threshold:
		return drive.Command{Left: 0.5, Right: -0.5, Duration: 0.1}
	case snap.RightIR > a.threshold:
		return drive.Command{Left: -0.5, Right: 0.5, Duration: 0.1}
	}
	return StopCommand
}

func (a avoid) Execute(ctx context.Context, snap sensor.Snapshot, d Driver) error {
	return d.Drive(ctx, a.Command(snap))
}

// approach arcs gently toward the IR channel over threshold.
type approach struct{ threshold int }

func (a approach) Type() Type { return Approach }

func (a approach) Releases(snap sensor.Snapshot) bool {
	return snap.DistanceAsymmetry(a.threshold)
}

func (a approach) Command(snap sensor.Snapshot) drive.Command {
	switch {
	case snap.LeftIR > a.threshold:
		return drive.Command{Left: 0.1, Right: 0.9, Duration: 0.5}
	case snap.RightIR > a.threshold:
		return drive.Command{Left: 0.9, Right: 0.1, Duration: 0.5}
	}
	return StopCommand
}

func (a approach) Execute(ctx context.Context, snap sensor.Snapshot, d Driver) error {
	return d.Drive(ctx, a.Command(snap))
}

// escape backs away from a bumper contact. With sticky bumpers the backup
// time peaks for hits reading at the midpoint and falls off linearly toward
// both ends of the contact band.
type escape struct {
	side     sensor.Side
	midpoint float64
	max      float64
}

func (e escape) Type() Type {
	if e.side == sensor.Back {
		return EscapeBack
	}
	return EscapeFront
}

func (e escape) Releases(snap sensor.Snapshot) bool {
	return snap.Bumped(e.side)
}

func (e escape) Command(snap sensor.Snapshot) drive.Command {
	if snap.Mode == sensor.BumpDiscrete {
		return e.discrete(snap)
	}

	v := math.Max(0, math.Min(e.max, float64(snap.BumpValue(e.side))))
	wheels := escapeWheels[e.side]
	if v < e.midpoint {
		w := wheels[0]
		return drive.Command{Left: w[0], Right: w[1], Duration: drive.Remap(v, 0, e.midpoint, 0.3, 0.75)}
	}
	w := wheels[1]
	return drive.Command{Left: w[0], Right: w[1], Duration: drive.Remap(v, e.midpoint, e.max, 0.75, 0.3)}
}

// escapeWheels holds (left, right) intensities per side for readings below
// and above the bump midpoint.
var escapeWheels = map[sensor.Side][2][2]float64{
	sensor.Front: {{-0.1, -0.9}, {-0.9, 0}},
	sensor.Back:  {{0.9, 0.1}, {0.1, 0.9}},
}

func (e escape) discrete(snap sensor.Snapshot) drive.Command {
	if e.side == sensor.Back {
		return drive.Command{Left: 0.5, Right: 0.5, Duration: 0.25}
	}
	switch {
	case snap.Front[sensor.Left]:
		return drive.Command{Left: -0.1, Right: -1, Duration: 2}
	case snap.Front[sensor.Right]:
		return drive.Command{Left: -1, Right: -0.1, Duration: 2}
	}
	return drive.Command{Left: -0.9, Right: -0.9, Duration: 2}
}

func (e escape) Execute(ctx context.Context, snap sensor.Snapshot, d Driver) error {
	return d.Drive(ctx, e.Command(snap))
}
