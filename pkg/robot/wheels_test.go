package robot

import (
	"context"
	"testing"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
)

// syncWrite is one decoded sync write: register address and bytes per servo.
type syncWrite struct {
	address byte
	data    map[int][]byte
}

func newTestWheels(t *testing.T) (*Wheels, *feetech.MockTransport) {
	t.Helper()
	mock := &feetech.MockTransport{}
	bus, err := feetech.NewBus(feetech.BusConfig{
		Transport:     mock,
		Protocol:      feetech.ProtocolSTS,
		Timeout:       10 * time.Millisecond,
		MinCommandGap: time.Microsecond,
	})
	if err != nil {
		t.Fatalf("NewBus failed: %v", err)
	}
	t.Cleanup(func() { bus.Close() })
	return newWheels(bus, DefaultCalibration()), mock
}

// syncWrites decodes every packet the bus wrote.
func syncWrites(t *testing.T, bus *feetech.Bus, raw []byte) []syncWrite {
	t.Helper()
	var writes []syncWrite
	for len(raw) > 0 {
		pkt, n, err := bus.Protocol().Decode(raw)
		if err != nil {
			t.Fatalf("decode packet: %v", err)
		}
		raw = raw[n:]
		// Decode reads the instruction byte into the status field
		if inst := byte(pkt.Error); inst != feetech.InstSyncWrite {
			t.Fatalf("instruction = %02X, want sync write", inst)
		}
		w := syncWrite{address: pkt.Parameters[0], data: map[int][]byte{}}
		size := int(pkt.Parameters[1])
		for rest := pkt.Parameters[2:]; len(rest) > 0; rest = rest[1+size:] {
			w.data[int(rest[0])] = rest[1 : 1+size]
		}
		writes = append(writes, w)
	}
	return writes
}

func TestWheels_SetDriveWritesVelocity(t *testing.T) {
	w, mock := newTestWheels(t)
	cal := DefaultCalibration()

	tests := []struct {
		name        string
		left, right float64
		wantL       uint16
		wantR       uint16
	}{
		{"stop", 0, 0, 0, 0},
		{"forward", 1, 1, MaxWheelVelocity, MaxWheelVelocity | 1<<15},
		{"spin", -0.5, 0.5, MaxWheelVelocity/2 | 1<<15, MaxWheelVelocity/2 | 1<<15},
	}

	for _, tt := range tests {
		mock.WriteData = nil
		left := cal[LeftWheel].Denormalize(tt.left)
		right := cal[RightWheel].Denormalize(tt.right)
		if err := w.SetDrive(context.Background(), left, right); err != nil {
			t.Fatalf("%s: SetDrive: %v", tt.name, err)
		}

		writes := syncWrites(t, w.bus, mock.WriteData)
		if len(writes) != 1 {
			t.Fatalf("%s: %d writes, want 1", tt.name, len(writes))
		}
		got := writes[0]
		if got.address != feetech.RegGoalVelocity.Address {
			t.Errorf("%s: address = %d, want goal velocity %d", tt.name, got.address, feetech.RegGoalVelocity.Address)
		}
		proto := w.bus.Protocol()
		if v := proto.DecodeWord(got.data[1]); v != tt.wantL {
			t.Errorf("%s: left = %#04x, want %#04x", tt.name, v, tt.wantL)
		}
		if v := proto.DecodeWord(got.data[2]); v != tt.wantR {
			t.Errorf("%s: right = %#04x, want %#04x", tt.name, v, tt.wantR)
		}
	}
}

func TestWheels_EnableSwitchesToVelocityMode(t *testing.T) {
	w, mock := newTestWheels(t)

	if err := w.Enable(context.Background()); err != nil {
		t.Fatalf("Enable: %v", err)
	}

	type step struct {
		address byte
		value   byte
	}
	want := []step{
		{feetech.RegTorqueEnable.Address, 0},
		{feetech.RegLock.Address, 0},
		{feetech.RegOperatingMode.Address, ModeVelocity},
		{feetech.RegLock.Address, 1},
		{feetech.RegGoalVelocity.Address, 0},
		{feetech.RegTorqueEnable.Address, 1},
	}

	writes := syncWrites(t, w.bus, mock.WriteData)
	if len(writes) != len(want) {
		t.Fatalf("%d writes, want %d", len(writes), len(want))
	}
	for i, s := range want {
		got := writes[i]
		if got.address != s.address {
			t.Errorf("write %d: address = %d, want %d", i, got.address, s.address)
		}
		for _, id := range []int{1, 2} {
			if b := got.data[id]; len(b) == 0 || b[0] != s.value {
				t.Errorf("write %d: servo %d = %v, want %d", i, id, b, s.value)
			}
		}
	}
}

func TestEncodeVelocity_Clamps(t *testing.T) {
	if got := encodeVelocity(10 * MaxWheelVelocity); got != MaxWheelVelocity {
		t.Errorf("encodeVelocity(over) = %d, want %d", got, MaxWheelVelocity)
	}
	if got := encodeVelocity(-10 * MaxWheelVelocity); got != MaxWheelVelocity|1<<15 {
		t.Errorf("encodeVelocity(under) = %#04x, want %#04x", got, MaxWheelVelocity|1<<15)
	}
}
