// Package arbiter runs the subsumption hierarchy: each cycle the highest
// priority active behavior whose releaser fires drives the robot.
package arbiter

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/gwillem/ethobot/pkg/behavior"
	"github.com/gwillem/ethobot/pkg/drive"
	"github.com/gwillem/ethobot/pkg/sensor"
)

// Mode is the arbiter's operating mode.
type Mode int

const (
	Operate Mode = iota
	Edit
)

func (m Mode) String() string {
	if m == Edit {
		return "edit"
	}
	return "operate"
}

// Zero drives issued at boot and when leaving edit mode, letting the robot
// settle before arbitration resumes.
var (
	StartCommand  = drive.Command{Duration: 1}
	ResumeCommand = drive.Command{Duration: 2}
)

// Outcome classifies a cycle.
type Outcome int

const (
	// Skipped: the previous action is still running.
	Skipped Outcome = iota
	// Fired: a behavior released and drove.
	Fired
	// Stopped: no behavior released and Stop was issued.
	Stopped
	// Resumed: the settle command was issued on return to operate mode.
	Resumed
	// Editing: the cycle went to the hierarchy editor.
	Editing
)

func (o Outcome) String() string {
	return [...]string{"skipped", "fired", "stopped", "resumed", "editing"}[o]
}

// Decision describes what one cycle did.
type Decision struct {
	Outcome Outcome
	Entry   behavior.Entry // set when Outcome is Fired
	Command drive.Command  // set when a command was issued
	Changed bool           // editor changed the table
}

// Config wires an arbiter.
type Config struct {
	Sensors   *sensor.Sensors
	Driver    *drive.Driver
	Table     *behavior.Table
	Behaviors map[behavior.Type]behavior.Behavior
	Display   Display
	Buttons   Buttons
	Motors    Motors
	Rand      *rand.Rand
	// Shuffle randomizes the table on first entry into edit mode.
	Shuffle bool
}

// Arbiter owns the sensors, table and driver. It is not safe for concurrent
// use; drive it from a single loop.
type Arbiter struct {
	sensors   *sensor.Sensors
	driver    *drive.Driver
	table     *behavior.Table
	behaviors map[behavior.Type]behavior.Behavior
	display   Display
	buttons   Buttons
	motors    Motors
	editor    *Editor

	mode    Mode
	resume  bool
	edited  bool
	started bool
}

// New validates cfg and creates an arbiter in operate mode.
func New(cfg Config) (*Arbiter, error) {
	if cfg.Sensors == nil || cfg.Driver == nil || cfg.Table == nil {
		return nil, fmt.Errorf("arbiter: sensors, driver and table are required")
	}
	if cfg.Display == nil || cfg.Buttons == nil || cfg.Motors == nil {
		return nil, fmt.Errorf("arbiter: display, buttons and motors are required")
	}
	for _, e := range cfg.Table.Entries() {
		if _, ok := cfg.Behaviors[e.Type]; !ok {
			return nil, fmt.Errorf("arbiter: no behavior for entry %q (%s)", e.Name, e.Type)
		}
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return &Arbiter{
		sensors:   cfg.Sensors,
		driver:    cfg.Driver,
		table:     cfg.Table,
		behaviors: cfg.Behaviors,
		display:   cfg.Display,
		buttons:   cfg.Buttons,
		motors:    cfg.Motors,
		editor:    NewEditor(cfg.Table, cfg.Display, rng, cfg.Shuffle),
	}, nil
}

// Mode returns the current mode.
func (a *Arbiter) Mode() Mode {
	return a.mode
}

// Table returns the behavior table. Callers must not mutate it while the
// arbiter runs.
func (a *Arbiter) Table() *behavior.Table {
	return a.table
}

// Editor returns the hierarchy editor.
func (a *Arbiter) Editor() *Editor {
	return a.editor
}

// Snapshot returns the latest sensor readings.
func (a *Arbiter) Snapshot() sensor.Snapshot {
	return a.sensors.Snapshot()
}

// Driver returns the wheel driver.
func (a *Arbiter) Driver() *drive.Driver {
	return a.driver
}

// Start enables the motors and issues the boot settle command.
func (a *Arbiter) Start(ctx context.Context) error {
	a.started = true
	a.editor.ClearLabels()
	if err := a.motors.Enable(ctx); err != nil {
		return fmt.Errorf("enable motors: %w", err)
	}
	return a.driver.Drive(ctx, StartCommand)
}

// Step runs one control cycle.
func (a *Arbiter) Step(ctx context.Context) (Decision, error) {
	if !a.started {
		if err := a.Start(ctx); err != nil {
			return Decision{}, err
		}
	}

	if a.buttons.Edge(SideButton) {
		if err := a.toggleMode(ctx); err != nil {
			return Decision{Outcome: Editing}, err
		}
	}

	if a.mode == Edit {
		changed, err := a.editor.Handle(a.buttons)
		return Decision{Outcome: Editing, Changed: changed}, err
	}

	if a.resume {
		a.resume = false
		if a.edited {
			a.display.RenderOperateSummary(a.table.Active())
		}
		if err := a.motors.Enable(ctx); err != nil {
			return Decision{Outcome: Resumed}, fmt.Errorf("enable motors: %w", err)
		}
		err := a.driver.Drive(ctx, ResumeCommand)
		return Decision{Outcome: Resumed, Command: ResumeCommand}, err
	}

	a.sensors.Refresh()
	if !a.driver.Timer().Elapsed() {
		return Decision{Outcome: Skipped}, nil
	}
	return a.arbitrate(ctx)
}

// arbitrate walks active entries in priority order and executes the first
// one that releases. Stop is issued only when the walk is exhausted.
func (a *Arbiter) arbitrate(ctx context.Context) (Decision, error) {
	snap := a.sensors.Snapshot()

	for _, e := range a.table.Active() {
		b := a.behaviors[e.Type]
		if !b.Releases(snap) {
			continue
		}
		err := b.Execute(ctx, snap, a.driver)
		return Decision{Outcome: Fired, Entry: e, Command: a.driver.Last()}, err
	}

	err := behavior.Stop(ctx, a.driver)
	return Decision{Outcome: Stopped, Command: behavior.StopCommand}, err
}

func (a *Arbiter) toggleMode(ctx context.Context) error {
	if a.mode == Edit {
		a.mode = Operate
		a.resume = true
		a.editor.ClearLabels()
		return nil
	}

	a.mode = Edit
	a.edited = true
	a.editor.Enter()

	// Torque comes off even if the stop command was lost
	stopErr := behavior.Stop(ctx, a.driver)
	if err := a.motors.Disable(ctx); err != nil {
		return errors.Join(stopErr, fmt.Errorf("disable motors: %w", err))
	}
	return stopErr
}
