// Package robot provides the hardware behind the arbiter: wheel servos,
// the sensor board, a simulator, and the configuration file.
package robot

// WheelName identifies a drive wheel.
type WheelName string

// Wheel names for the two-wheeled base.
const (
	LeftWheel  WheelName = "left"
	RightWheel WheelName = "right"
)

// AllWheels returns both wheels in order (matching servo IDs 1-2).
func AllWheels() []WheelName {
	return []WheelName{
		LeftWheel,
		RightWheel,
	}
}
