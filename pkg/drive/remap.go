// Package drive issues timed wheel commands and gates how often new ones
// may be issued.
package drive

import (
	"errors"
	"fmt"
)

// ErrDegenerateRange is returned for a range whose ends coincide.
var ErrDegenerateRange = errors.New("degenerate range")

// Remap linearly maps value from [srcLo, srcHi] onto [dstLo, dstHi]. Ranges may
// be inverted. srcLo must differ from srcHi; validate calibration with Range.Validate.
func Remap(value, srcLo, srcHi, dstLo, dstHi float64) float64 {
	return dstLo + (value-srcLo)/(srcHi-srcLo)*(dstHi-dstLo)
}

// Range is a closed interval. Lo may be greater than Hi.
type Range struct {
	Lo float64 `json:"lo" yaml:"lo"`
	Hi float64 `json:"hi" yaml:"hi"`
}

// Validate rejects ranges that would divide by zero when used as a source.
func (r Range) Validate() error {
	if r.Lo == r.Hi {
		return fmt.Errorf("%w: [%g, %g]", ErrDegenerateRange, r.Lo, r.Hi)
	}
	return nil
}

// Intensity is the canonical wheel range: full reverse to full forward.
var Intensity = Range{Lo: -1, Hi: 1}

// Map carries value from range r into range dst.
func (r Range) Map(value float64, dst Range) float64 {
	return Remap(value, r.Lo, r.Hi, dst.Lo, dst.Hi)
}
