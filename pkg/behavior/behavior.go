package behavior

import (
	"context"
	"errors"
	"fmt"

	"github.com/gwillem/ethobot/pkg/drive"
	"github.com/gwillem/ethobot/pkg/sensor"
)

// ErrBadCalibration is returned when escape calibration would make the
// backup interpolation degenerate.
var ErrBadCalibration = errors.New("bad calibration")

// Driver issues wheel commands. *drive.Driver implements it.
type Driver interface {
	Drive(ctx context.Context, cmd drive.Command) error
}

// Behavior is a releasing condition paired with the action it triggers.
type Behavior interface {
	Type() Type
	// Releases reports whether the behavior wants to fire for s.
	Releases(s sensor.Snapshot) bool
	// Execute issues exactly one drive command.
	Execute(ctx context.Context, s sensor.Snapshot, d Driver) error
}

// Params holds the thresholds and calibration shared by all behaviors.
type Params struct {
	AvoidThreshold    int `json:"avoid_threshold" yaml:"avoid_threshold"`
	ApproachThreshold int `json:"approach_threshold" yaml:"approach_threshold"`
	PhotoThreshold    int `json:"photo_threshold" yaml:"photo_threshold"`

	// Sticky bump readings below BumpMidpoint are off-center hits, readings
	// between BumpMidpoint and BumpMax are centered.
	BumpMidpoint float64 `json:"bump_midpoint" yaml:"bump_midpoint"`
	BumpMax      float64 `json:"bump_max" yaml:"bump_max"`
}

// DefaultParams returns the thresholds for the analog sensor kit.
func DefaultParams() Params {
	return Params{
		AvoidThreshold:    300,
		ApproachThreshold: 300,
		PhotoThreshold:    8,
		BumpMidpoint:      250,
		BumpMax:           400,
	}
}

// Validate checks the escape calibration.
func (p Params) Validate() error {
	if p.BumpMidpoint <= 0 {
		return fmt.Errorf("%w: bump midpoint %g must be positive", ErrBadCalibration, p.BumpMidpoint)
	}
	if p.BumpMax <= p.BumpMidpoint {
		return fmt.Errorf("%w: bump max %g must exceed midpoint %g", ErrBadCalibration, p.BumpMax, p.BumpMidpoint)
	}
	return nil
}

var registry = map[Type]func(Params) Behavior{}

// Register installs the constructor for a behavior type.
func Register(t Type, fn func(Params) Behavior) {
	registry[t] = fn
}

// New builds the behavior for t.
func New(t Type, p Params) (Behavior, error) {
	fn, ok := registry[t]
	if !ok {
		return nil, fmt.Errorf("no behavior registered for %s", t)
	}
	return fn(p), nil
}

// Set builds one behavior per registered type.
func Set(p Params) (map[Type]Behavior, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	set := make(map[Type]Behavior, len(registry))
	for _, t := range AllTypes() {
		b, err := New(t, p)
		if err != nil {
			return nil, err
		}
		set[t] = b
	}
	return set, nil
}

// StopCommand holds the wheels still briefly. It is issued when no behavior
// releases.
var StopCommand = drive.Command{Left: 0, Right: 0, Duration: 0.25}

// Stop issues StopCommand.
func Stop(ctx context.Context, d Driver) error {
	return d.Drive(ctx, StopCommand)
}
