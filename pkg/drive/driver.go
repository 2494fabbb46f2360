package drive

import (
	"context"
	"fmt"
	"math"
)

// Command is a pair of wheel intensities in [-1, 1] held for Duration seconds.
type Command struct {
	Left     float64
	Right    float64
	Duration float64
}

func (c Command) String() string {
	return fmt.Sprintf("(%+.2f, %+.2f) for %.2fs", c.Left, c.Right, c.Duration)
}

// Actuator writes native wheel commands.
type Actuator interface {
	SetDrive(ctx context.Context, left, right int) error
}

// Latch is cleared every time a command is issued.
type Latch interface {
	ClearBumps()
}

// Driver is the single path by which wheel commands are issued.
type Driver struct {
	act   Actuator
	timer *Timer
	latch Latch
	left  Range
	right Range
	last  Command
}

// NewDriver creates a driver mapping intensities onto the native ranges of
// each wheel. A wheel mounted mirrored takes an inverted range.
func NewDriver(act Actuator, timer *Timer, latch Latch, left, right Range) (*Driver, error) {
	if err := left.Validate(); err != nil {
		return nil, fmt.Errorf("left wheel: %w", err)
	}
	if err := right.Validate(); err != nil {
		return nil, fmt.Errorf("right wheel: %w", err)
	}
	return &Driver{
		act:   act,
		timer: timer,
		latch: latch,
		left:  left,
		right: right,
	}, nil
}

// Drive issues cmd. The timer is armed and bump latches cleared even when
// the actuator write fails.
func (d *Driver) Drive(ctx context.Context, cmd Command) error {
	l, r := d.Native(cmd)

	d.timer.Arm(cmd.Duration)
	if d.latch != nil {
		d.latch.ClearBumps()
	}
	d.last = cmd

	if err := d.act.SetDrive(ctx, l, r); err != nil {
		return fmt.Errorf("set drive %s: %w", cmd, err)
	}
	return nil
}

// Native converts cmd into actuator units.
func (d *Driver) Native(cmd Command) (left, right int) {
	left = int(math.Round(Intensity.Map(clamp(cmd.Left), d.left)))
	right = int(math.Round(Intensity.Map(clamp(cmd.Right), d.right)))
	return left, right
}

// Last returns the most recently issued command.
func (d *Driver) Last() Command {
	return d.last
}

// Timer returns the action timer the driver arms.
func (d *Driver) Timer() *Timer {
	return d.timer
}

func clamp(v float64) float64 {
	return math.Max(Intensity.Lo, math.Min(Intensity.Hi, v))
}
