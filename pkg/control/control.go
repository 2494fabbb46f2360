// Package control runs the arbiter on the host: a paced control loop with
// button input from the UI and state and log output back to it.
package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/gwillem/ethobot/pkg/arbiter"
	"github.com/gwillem/ethobot/pkg/behavior"
	"github.com/gwillem/ethobot/pkg/drive"
	"github.com/gwillem/ethobot/pkg/robot"
	"github.com/gwillem/ethobot/pkg/sensor"
)

// DefaultHz bounds the idle wait between cycles.
const DefaultHz = 1000

// States are published at most this often unless a cycle issued a command.
const publishInterval = time.Second / 60

// State represents the current state of the robot as seen by the UI.
type State struct {
	Mode     arbiter.Mode
	Snapshot sensor.Snapshot
	Decision arbiter.Decision

	// Last is the command currently running and Remaining its time left.
	Last      drive.Command
	Remaining time.Duration

	// Editor view, as last rendered.
	Entries []behavior.Entry
	Cursor  int
	Labels  map[arbiter.Button]string

	// Active hierarchy shown on return to operate mode. Nil until the
	// hierarchy has been edited.
	Summary []behavior.Entry

	Timestamp time.Time
	Error     error
}

// Config holds configuration for the controller.
type Config struct {
	Settings *robot.Config
	Reader   sensor.Reader
	Actuator drive.Actuator
	Motors   arbiter.Motors

	// Closers are closed by Close, in order.
	Closers []io.Closer

	Hz    int
	Clock drive.Clock
	Rand  *rand.Rand
}

// Controller manages the arbitration control loop.
type Controller struct {
	arb     *arbiter.Arbiter
	motors  arbiter.Motors
	reader  sensor.Reader
	closers []io.Closer
	hz      int

	presses    chan arbiter.Button
	pending    arbiter.Button
	hasPending bool

	// Display output from the arbiter.
	entries []behavior.Entry
	cursor  int
	labels  map[arbiter.Button]string
	summary []behavior.Entry

	lastMode    arbiter.Mode
	lastFired   string
	lastOutcome arbiter.Outcome
	lastReadErr string
	published   time.Time

	mu      sync.Mutex
	running bool
	stateCh chan State
	logCh   chan string
}

// NewController creates a controller for the given hardware.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Settings == nil {
		cfg.Settings = robot.Default()
	}
	if cfg.Reader == nil || cfg.Actuator == nil || cfg.Motors == nil {
		return nil, errors.New("control: reader, actuator and motors are required")
	}
	if err := cfg.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Hz <= 0 {
		cfg.Hz = DefaultHz
	}
	if cfg.Clock == nil {
		cfg.Clock = drive.NewSystemClock()
	}

	s := cfg.Settings
	sensors := sensor.New(cfg.Reader, s.Sensors.Pins, s.Sensors.BumpMode)
	cal := s.Wheels.Calibration
	driver, err := drive.NewDriver(cfg.Actuator, drive.NewTimer(cfg.Clock), sensors,
		cal[robot.LeftWheel].Range(), cal[robot.RightWheel].Range())
	if err != nil {
		return nil, fmt.Errorf("create driver: %w", err)
	}
	behaviors, err := behavior.Set(s.Behavior)
	if err != nil {
		return nil, fmt.Errorf("create behaviors: %w", err)
	}

	c := &Controller{
		motors:  cfg.Motors,
		reader:  cfg.Reader,
		closers: cfg.Closers,
		hz:      cfg.Hz,
		presses: make(chan arbiter.Button, 16),
		labels:  map[arbiter.Button]string{},
		stateCh: make(chan State, 1),
		logCh:   make(chan string, 10),
	}

	table := behavior.NewTable(s.Hierarchy)
	c.entries = table.Entries()

	c.arb, err = arbiter.New(arbiter.Config{
		Sensors:   sensors,
		Driver:    driver,
		Table:     table,
		Behaviors: behaviors,
		Display:   c,
		Buttons:   c,
		Motors:    cfg.Motors,
		Rand:      cfg.Rand,
		Shuffle:   s.Shuffle,
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Close closes the controller and releases resources.
func (c *Controller) Close() error {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	var errs []error
	for _, cl := range c.closers {
		if err := cl.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// States returns a channel that receives state updates.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Hz returns the control frequency.
func (c *Controller) Hz() int {
	return c.hz
}

// Press queues a button press. It is safe to call from any goroutine.
// Presses are delivered one per cycle; it returns false when the queue is
// full and the press was dropped.
func (c *Controller) Press(b arbiter.Button) bool {
	select {
	case c.presses <- b:
		return true
	default:
		return false
	}
}

// Edge implements arbiter.Buttons.
func (c *Controller) Edge(b arbiter.Button) bool {
	if c.hasPending && c.pending == b {
		c.hasPending = false
		return true
	}
	return false
}

// RenderTable implements arbiter.Display.
func (c *Controller) RenderTable(entries []behavior.Entry, cursor int) {
	c.entries = entries
	c.cursor = cursor
}

// RenderOperateSummary implements arbiter.Display.
func (c *Controller) RenderOperateSummary(active []behavior.Entry) {
	c.summary = active
	names := make([]string, len(active))
	for i, e := range active {
		names[i] = e.Name
	}
	c.log("Active hierarchy: %v", names)
}

// SetButtonLabel implements arbiter.Display.
func (c *Controller) SetButtonLabel(b arbiter.Button, text string) {
	if text == "" {
		delete(c.labels, b)
		return
	}
	c.labels[b] = text
}

func (c *Controller) log(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Start begins the control loop. It blocks until ctx is done.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("already running")
	}
	c.running = true
	c.mu.Unlock()

	c.boot(ctx)

	ticker := time.NewTicker(time.Second / time.Duration(c.hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case <-ticker.C:
			c.step(ctx)
		}
	}
}

func (c *Controller) boot(ctx context.Context) {
	if err := c.arb.Start(ctx); err != nil {
		c.log("Warning: start failed: %v", err)
	} else {
		c.log("Wheels: torque enabled")
	}
	c.log("Arbitration started at %d Hz", c.hz)
	c.publish(arbiter.Decision{Outcome: arbiter.Resumed, Command: arbiter.StartCommand}, nil, true)
}

func (c *Controller) step(ctx context.Context) {
	// One press per cycle, discarded if nothing consumed it
	select {
	case b := <-c.presses:
		c.pending, c.hasPending = b, true
	default:
	}

	dec, err := c.arb.Step(ctx)
	c.hasPending = false

	if err != nil {
		c.log("Step error: %v", err)
	}
	c.report(dec)
	c.publish(dec, err, dec.Outcome != arbiter.Skipped || dec.Changed)
}

// report logs mode changes, changes of the firing behavior, and sensor
// link errors.
func (c *Controller) report(dec arbiter.Decision) {
	if mode := c.arb.Mode(); mode != c.lastMode {
		c.lastMode = mode
		c.log("Mode: %s", mode)
	}

	switch dec.Outcome {
	case arbiter.Fired:
		if dec.Entry.Name != c.lastFired || c.lastOutcome != arbiter.Fired {
			c.log("%s %s", dec.Entry.Name, dec.Command)
		}
		c.lastFired = dec.Entry.Name
		c.lastOutcome = dec.Outcome
	case arbiter.Stopped:
		if c.lastOutcome != arbiter.Stopped {
			c.log("No behavior released, stopping")
		}
		c.lastFired = ""
		c.lastOutcome = dec.Outcome
	case arbiter.Resumed:
		c.lastFired = ""
		c.lastOutcome = dec.Outcome
	}

	if r, ok := c.reader.(interface{ Err() error }); ok {
		msg := ""
		if err := r.Err(); err != nil {
			msg = err.Error()
		}
		if msg != c.lastReadErr {
			c.lastReadErr = msg
			if msg != "" {
				c.log("Sensor error: %s", msg)
			} else {
				c.log("Sensor link recovered")
			}
		}
	}
}

func (c *Controller) publish(dec arbiter.Decision, err error, force bool) {
	now := time.Now()
	if !force && now.Sub(c.published) < publishInterval {
		return
	}
	c.published = now

	driver := c.arb.Driver()
	c.sendState(State{
		Mode:      c.arb.Mode(),
		Snapshot:  c.arb.Snapshot(),
		Decision:  dec,
		Last:      driver.Last(),
		Remaining: driver.Timer().Remaining(),
		Entries:   c.entries,
		Cursor:    c.cursor,
		Labels:    maps.Clone(c.labels),
		Summary:   c.summary,
		Timestamp: now,
		Error:     err,
	})
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		c.stateCh <- s
	}
}

func (c *Controller) shutdown() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	ctx := context.Background()
	if err := behavior.Stop(ctx, c.arb.Driver()); err != nil {
		c.log("Warning: failed to stop wheels: %v", err)
	}
	if err := c.motors.Disable(ctx); err != nil {
		c.log("Warning: failed to disable wheels: %v", err)
	} else {
		c.log("Wheels: torque disabled")
	}
	c.log("Arbitration stopped")
}
