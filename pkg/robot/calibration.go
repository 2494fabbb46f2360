package robot

import (
	"errors"
	"fmt"
	"math"

	"github.com/gwillem/ethobot/pkg/drive"
)

// WheelCalibration holds calibration data for a single wheel servo.
// RangeMin is the command for full reverse and RangeMax for full forward; a
// mirrored wheel has RangeMin above RangeMax.
type WheelCalibration struct {
	ID       int `json:"id" yaml:"id"`
	RangeMin int `json:"range_min" yaml:"range_min"`
	RangeMax int `json:"range_max" yaml:"range_max"`
}

// Calibration holds calibration data for both wheels, keyed by wheel name.
type Calibration map[WheelName]WheelCalibration

// DefaultCalibration maps the wheels onto signed goal velocities, with the
// right wheel mirrored. Zero intensity is zero velocity.
func DefaultCalibration() Calibration {
	return Calibration{
		LeftWheel:  {ID: 1, RangeMin: -MaxWheelVelocity, RangeMax: MaxWheelVelocity},
		RightWheel: {ID: 2, RangeMin: MaxWheelVelocity, RangeMax: -MaxWheelVelocity},
	}
}

// Range returns the native command range as a drive range.
func (c WheelCalibration) Range() drive.Range {
	return drive.Range{Lo: float64(c.RangeMin), Hi: float64(c.RangeMax)}
}

// Normalize converts a raw servo command to an intensity in [-1, 1].
func (c WheelCalibration) Normalize(raw int) float64 {
	if c.RangeMax == c.RangeMin {
		return 0
	}
	return c.Range().Map(float64(raw), drive.Intensity)
}

// Denormalize converts an intensity in [-1, 1] to a raw servo command.
func (c WheelCalibration) Denormalize(intensity float64) int {
	return int(math.Round(drive.Intensity.Map(intensity, c.Range())))
}

// ErrDuplicateID is returned when both wheels share a servo ID.
var ErrDuplicateID = errors.New("duplicate servo id")

// Validate checks both wheels are present on distinct servos with usable
// ranges.
func (c Calibration) Validate() error {
	seen := make(map[int]WheelName, len(c))
	for _, name := range AllWheels() {
		wc, ok := c[name]
		if !ok {
			return fmt.Errorf("%s wheel: not calibrated", name)
		}
		if err := wc.Range().Validate(); err != nil {
			return fmt.Errorf("%s wheel: %w", name, err)
		}
		if other, ok := seen[wc.ID]; ok {
			return fmt.Errorf("%s wheel: %w %d, also used by %s wheel", name, ErrDuplicateID, wc.ID, other)
		}
		seen[wc.ID] = name
	}
	return nil
}

// WheelIDs returns the servo IDs for both wheels in AllWheels order.
func (c Calibration) WheelIDs() []int {
	ids := make([]int, 0, len(c))
	for _, name := range AllWheels() {
		if wc, ok := c[name]; ok {
			ids = append(ids, wc.ID)
		}
	}
	return ids
}

// ByID returns wheel name and calibration for a given servo ID.
func (c Calibration) ByID(id int) (WheelName, WheelCalibration, bool) {
	for name, wc := range c {
		if wc.ID == id {
			return name, wc, true
		}
	}
	return "", WheelCalibration{}, false
}
