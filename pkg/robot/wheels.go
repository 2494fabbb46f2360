package robot

import (
	"context"
	"fmt"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
)

// ModeVelocity is the STS operating mode that spins continuously at the
// goal velocity.
const ModeVelocity = 1

// MaxWheelVelocity is the goal velocity, in steps/s, for full intensity.
const MaxWheelVelocity = 2400

// Wheels drives the two wheel servos on a feetech bus in velocity mode.
type Wheels struct {
	bus         *feetech.Bus
	group       *feetech.ServoGroup
	calibration Calibration
}

// NewWheels opens the servo bus and groups both wheels.
func NewWheels(port string, cal Calibration) (*Wheels, error) {
	if port == "" {
		return nil, fmt.Errorf("wheels: %w", ErrNoPort)
	}
	if err := cal.Validate(); err != nil {
		return nil, fmt.Errorf("wheels: %w", err)
	}

	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	return newWheels(bus, cal), nil
}

func newWheels(bus *feetech.Bus, cal Calibration) *Wheels {
	return &Wheels{
		bus:         bus,
		group:       feetech.NewServoGroupByIDs(bus, cal.WheelIDs()...),
		calibration: cal,
	}
}

// Close closes the wheel bus connection.
func (w *Wheels) Close() error {
	return w.bus.Close()
}

// Enable switches both wheels to velocity mode at rest and enables torque.
// The mode register only takes writes with torque off and the EEPROM
// unlocked.
func (w *Wheels) Enable(ctx context.Context) error {
	if err := w.group.DisableAll(ctx); err != nil {
		return fmt.Errorf("disable torque: %w", err)
	}
	if err := w.writeByte(ctx, feetech.RegLock, 0); err != nil {
		return fmt.Errorf("unlock: %w", err)
	}
	if err := w.writeByte(ctx, feetech.RegOperatingMode, ModeVelocity); err != nil {
		return fmt.Errorf("set velocity mode: %w", err)
	}
	if err := w.writeByte(ctx, feetech.RegLock, 1); err != nil {
		return fmt.Errorf("lock: %w", err)
	}
	if err := w.SetDrive(ctx, 0, 0); err != nil {
		return err
	}
	return w.group.EnableAll(ctx)
}

// Disable disables torque on both wheels.
func (w *Wheels) Disable(ctx context.Context) error {
	return w.group.DisableAll(ctx)
}

// SetDrive writes signed goal velocities to both wheels in one sync write.
func (w *Wheels) SetDrive(ctx context.Context, left, right int) error {
	proto := w.bus.Protocol()
	data := map[int][]byte{
		w.calibration[LeftWheel].ID:  proto.EncodeWord(encodeVelocity(left)),
		w.calibration[RightWheel].ID: proto.EncodeWord(encodeVelocity(right)),
	}
	reg := feetech.RegGoalVelocity
	if err := w.bus.SyncWrite(ctx, reg.Address, reg.Size, data); err != nil {
		return fmt.Errorf("write wheels: %w", err)
	}
	return nil
}

// SetVelocityMode puts a single servo in velocity mode and leaves its torque
// off.
func SetVelocityMode(ctx context.Context, servo *feetech.Servo) error {
	if err := servo.Disable(ctx); err != nil {
		return err
	}
	if err := servo.WriteRegister(ctx, "lock", []byte{0}); err != nil {
		return err
	}
	if err := servo.SetOperatingMode(ctx, ModeVelocity); err != nil {
		return err
	}
	return servo.WriteRegister(ctx, "lock", []byte{1})
}

func (w *Wheels) writeByte(ctx context.Context, reg feetech.Register, value byte) error {
	data := make(map[int][]byte, 2)
	for _, id := range w.calibration.WheelIDs() {
		data[id] = []byte{value}
	}
	return w.bus.SyncWrite(ctx, reg.Address, reg.Size, data)
}

// encodeVelocity packs a signed velocity as sign-magnitude on bit 15, the
// way the goal velocity register expects it.
func encodeVelocity(v int) uint16 {
	v = max(-MaxWheelVelocity, min(MaxWheelVelocity, v))
	if v < 0 {
		return uint16(-v) | 1<<feetech.RegGoalVelocity.SignBit
	}
	return uint16(v)
}
