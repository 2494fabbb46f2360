package robot

import (
	"context"
	"sync"

	"github.com/gwillem/ethobot/pkg/sensor"
)

// Sim is an in-memory robot. It reads and drives like the hardware so the
// arbiter can run without a board or servos attached.
type Sim struct {
	mu      sync.Mutex
	analog  map[int]int
	digital map[int]bool
	pulses  map[int]int

	left, right int
	enabled     bool
	commands    int
}

// SimState is a copy of the simulated wheels.
type SimState struct {
	Left, Right int
	Enabled     bool
	Commands    int
}

// NewSim creates a robot standing in open space under even light.
func NewSim(pins sensor.Pins) *Sim {
	s := &Sim{
		analog:  map[int]int{},
		digital: map[int]bool{},
		pulses:  map[int]int{},
	}
	s.analog[pins.LeftPhoto] = 512
	s.analog[pins.RightPhoto] = 512
	s.analog[pins.LeftIR] = 0
	s.analog[pins.RightIR] = 0
	s.analog[pins.FrontBump] = NoAnalog
	s.analog[pins.BackBump] = NoAnalog
	return s
}

// ReadAnalog returns a pending pulse for the channel, or its steady value.
func (s *Sim) ReadAnalog(channel int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.pulses[channel]; ok {
		delete(s.pulses, channel)
		return v
	}
	if v, ok := s.analog[channel]; ok {
		return v
	}
	return NoAnalog
}

// ReadDigital returns the channel level. Unset channels read high.
func (s *Sim) ReadDigital(channel int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.digital[channel]; ok {
		return v
	}
	return NoDigital
}

// SetAnalog sets the steady value of an analog channel.
func (s *Sim) SetAnalog(channel, value int) {
	s.mu.Lock()
	s.analog[channel] = value
	s.mu.Unlock()
}

// Analog returns the steady value of an analog channel.
func (s *Sim) Analog(channel int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.analog[channel]; ok {
		return v
	}
	return NoAnalog
}

// SetDigital sets the level of a digital channel.
func (s *Sim) SetDigital(channel int, level bool) {
	s.mu.Lock()
	s.digital[channel] = level
	s.mu.Unlock()
}

// Pulse makes the next read of an analog channel return value, once.
func (s *Sim) Pulse(channel, value int) {
	s.mu.Lock()
	s.pulses[channel] = value
	s.mu.Unlock()
}

func (s *Sim) SetDrive(_ context.Context, left, right int) error {
	s.mu.Lock()
	s.left, s.right = left, right
	s.commands++
	s.mu.Unlock()
	return nil
}

func (s *Sim) Enable(context.Context) error {
	s.mu.Lock()
	s.enabled = true
	s.mu.Unlock()
	return nil
}

func (s *Sim) Disable(context.Context) error {
	s.mu.Lock()
	s.enabled = false
	s.mu.Unlock()
	return nil
}

// State returns the simulated wheels.
func (s *Sim) State() SimState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SimState{
		Left:     s.left,
		Right:    s.right,
		Enabled:  s.enabled,
		Commands: s.commands,
	}
}
