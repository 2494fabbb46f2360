// Package ethobot runs a subsumption behavior hierarchy on a small
// two-wheeled robot.
//
// Each control cycle the robot reads its photo, IR and bump sensors and the
// highest priority active behavior whose releaser fires takes the wheels
// for a fixed time. The hierarchy can be reordered and switched on and off
// from the robot's buttons while it runs.
//
// # Installation
//
//	go install github.com/gwillem/ethobot/cmd/ethobot@latest
//
// # Usage
//
// First, run setup to find the wheel servos and the sensor board:
//
//	ethobot setup
//
// Then start the robot:
//
//	ethobot run
//
// Or try it without hardware:
//
//	ethobot run --sim
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/ethobot: CLI with setup, run and ports commands
//   - pkg/sensor: Sensor snapshot and releaser conditions
//   - pkg/drive: Range mapping, action timer and the wheel driver
//   - pkg/behavior: Behaviors and the priority table
//   - pkg/arbiter: Arbitration cycle and the hierarchy editor
//   - pkg/control: Host control loop feeding the terminal UI
//   - pkg/robot: Wheels, sensor board, simulator and configuration
package ethobot
