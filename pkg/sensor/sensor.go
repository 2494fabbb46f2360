// Package sensor reads the robot's photo, IR and bump channels into a
// per-cycle snapshot and answers the releaser questions behaviors ask of it.
package sensor

// Reader reads raw hardware channels. Implementations return a benign
// default when the hardware is absent instead of failing.
type Reader interface {
	ReadAnalog(channel int) int
	ReadDigital(channel int) bool
}

// BumpMode selects how bumpers are wired.
type BumpMode string

const (
	// BumpSticky is one analog bumper per side whose contact readings are
	// latched until the next drive command.
	BumpSticky BumpMode = "sticky"
	// BumpDiscrete is three digital switches per side, read fresh every cycle.
	BumpDiscrete BumpMode = "discrete"
)

// Sticky bumper calibration. Unbumped readings float between 900 and 1024,
// contact reads between 0 and 400.
const (
	ContactThreshold = 400
	BumpClear        = 1000
)

// Side identifies the front or back bumper.
type Side int

const (
	Front Side = iota
	Back
)

func (s Side) String() string {
	if s == Back {
		return "back"
	}
	return "front"
}

// Switch positions within a discrete bumper.
const (
	Left = iota
	Center
	Right
)

// Pins maps logical sensors to hardware channels.
type Pins struct {
	LeftPhoto  int `json:"left_photo" yaml:"left_photo"`
	RightPhoto int `json:"right_photo" yaml:"right_photo"`
	LeftIR     int `json:"left_ir" yaml:"left_ir"`
	RightIR    int `json:"right_ir" yaml:"right_ir"`

	// Analog bumpers, BumpSticky only.
	FrontBump int `json:"front_bump" yaml:"front_bump"`
	BackBump  int `json:"back_bump" yaml:"back_bump"`

	// Digital switches (left, center, right), BumpDiscrete only.
	FrontSwitches [3]int `json:"front_switches" yaml:"front_switches"`
	BackSwitches  [3]int `json:"back_switches" yaml:"back_switches"`
}

// Snapshot is one cycle's worth of readings. Photo readings grow as light
// falls.
type Snapshot struct {
	Mode BumpMode

	LeftPhoto  int
	RightPhoto int
	LeftIR     int
	RightIR    int

	// Latched analog readings (BumpSticky).
	FrontBump int
	BackBump  int

	// Switch contact flags (BumpDiscrete), indexed by Left, Center, Right.
	Front [3]bool
	Back  [3]bool
}

// Sensors owns the current snapshot.
type Sensors struct {
	reader Reader
	pins   Pins
	snap   Snapshot
}

// New creates a sensor set reading through r. Sticky latches start clear.
func New(r Reader, pins Pins, mode BumpMode) *Sensors {
	if mode == "" {
		mode = BumpSticky
	}
	return &Sensors{
		reader: r,
		pins:   pins,
		snap: Snapshot{
			Mode:      mode,
			FrontBump: BumpClear,
			BackBump:  BumpClear,
		},
	}
}

// Refresh reads every channel once.
func (s *Sensors) Refresh() {
	r, p := s.reader, s.pins

	s.snap.LeftPhoto = r.ReadAnalog(p.LeftPhoto)
	s.snap.RightPhoto = r.ReadAnalog(p.RightPhoto)
	s.snap.LeftIR = r.ReadAnalog(p.LeftIR)
	s.snap.RightIR = r.ReadAnalog(p.RightIR)

	switch s.snap.Mode {
	case BumpDiscrete:
		for i := range 3 {
			// Switches pull low on contact
			s.snap.Front[i] = !r.ReadDigital(p.FrontSwitches[i])
			s.snap.Back[i] = !r.ReadDigital(p.BackSwitches[i])
		}
	default:
		if v := r.ReadAnalog(p.FrontBump); v < ContactThreshold {
			s.snap.FrontBump = v
		}
		if v := r.ReadAnalog(p.BackBump); v < ContactThreshold {
			s.snap.BackBump = v
		}
	}
}

// Snapshot returns a copy of the current readings.
func (s *Sensors) Snapshot() Snapshot {
	return s.snap
}

// ClearBumps resets the sticky latches to no contact. Only the drive step
// calls this.
func (s *Sensors) ClearBumps() {
	s.snap.FrontBump = BumpClear
	s.snap.BackBump = BumpClear
}
