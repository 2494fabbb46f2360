package robot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gwillem/ethobot/pkg/behavior"
	"github.com/gwillem/ethobot/pkg/sensor"
)

func TestDefault_Validates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestConfig_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"ethobot.json", "ethobot.yaml"} {
		path := filepath.Join(dir, name)
		cfg := Default()
		cfg.Wheels.Port = "/dev/ttyACM0"
		cfg.Sensors.BumpMode = sensor.BumpDiscrete
		cfg.Shuffle = false
		cfg.Hierarchy[0].Active = false

		if err := cfg.SaveTo(path); err != nil {
			t.Fatalf("%s: SaveTo() = %v", name, err)
		}
		got, err := LoadConfigFrom(path)
		if err != nil {
			t.Fatalf("%s: LoadConfigFrom() = %v", name, err)
		}

		if got.Wheels.Port != "/dev/ttyACM0" {
			t.Errorf("%s: port = %q", name, got.Wheels.Port)
		}
		if got.Sensors.BumpMode != sensor.BumpDiscrete {
			t.Errorf("%s: bump mode = %q", name, got.Sensors.BumpMode)
		}
		if got.Shuffle {
			t.Errorf("%s: shuffle survived as true", name)
		}
		if len(got.Hierarchy) != len(cfg.Hierarchy) {
			t.Fatalf("%s: %d hierarchy entries, want %d", name, len(got.Hierarchy), len(cfg.Hierarchy))
		}
		for i := range got.Hierarchy {
			if got.Hierarchy[i] != cfg.Hierarchy[i] {
				t.Errorf("%s: Hierarchy[%d] = %+v, want %+v", name, i, got.Hierarchy[i], cfg.Hierarchy[i])
			}
		}
		if got.Wheels.Calibration[RightWheel] != cfg.Wheels.Calibration[RightWheel] {
			t.Errorf("%s: right wheel = %+v", name, got.Wheels.Calibration[RightWheel])
		}
	}
}

func TestLoadConfigFrom_YAMLDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "robot.yml")
	data := `
sensors:
  port: /dev/ttyUSB1
behavior:
  avoid_threshold: 450
hierarchy:
  - type: cruise_arc
    active: true
  - name: Hide
    type: seek_dark
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadConfigFrom() = %v", err)
	}
	if cfg.Sensors.Port != "/dev/ttyUSB1" {
		t.Errorf("port = %q", cfg.Sensors.Port)
	}
	if cfg.Sensors.BaudRate != DefaultBaudRate {
		t.Errorf("baud rate = %d, want default %d", cfg.Sensors.BaudRate, DefaultBaudRate)
	}
	if cfg.Behavior.AvoidThreshold != 450 {
		t.Errorf("avoid threshold = %d, want 450", cfg.Behavior.AvoidThreshold)
	}
	if cfg.Behavior.PhotoThreshold != behavior.DefaultParams().PhotoThreshold {
		t.Errorf("photo threshold = %d, want default", cfg.Behavior.PhotoThreshold)
	}

	want := []behavior.Entry{
		{Type: behavior.CruiseArc, Active: true},
		{Name: "Hide", Type: behavior.SeekDark},
	}
	if len(cfg.Hierarchy) != len(want) {
		t.Fatalf("%d hierarchy entries, want %d", len(cfg.Hierarchy), len(want))
	}
	for i := range want {
		if cfg.Hierarchy[i] != want[i] {
			t.Errorf("Hierarchy[%d] = %+v, want %+v", i, cfg.Hierarchy[i], want[i])
		}
	}
}

func TestLoadConfigFrom_EmptyHierarchyKeepsDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ethobot.json")
	if err := os.WriteFile(path, []byte(`{"shuffle": false}`), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadConfigFrom() = %v", err)
	}
	if len(cfg.Hierarchy) != len(behavior.DefaultHierarchy()) {
		t.Errorf("%d hierarchy entries, want the default", len(cfg.Hierarchy))
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		target error
	}{
		{"flat wheel", func(c *Config) {
			c.Wheels.Calibration[LeftWheel] = WheelCalibration{ID: 1, RangeMin: 9, RangeMax: 9}
		}, nil},
		{"bump max below mid", func(c *Config) { c.Behavior.BumpMax = 100 }, behavior.ErrBadCalibration},
		{"unknown bump mode", func(c *Config) { c.Sensors.BumpMode = "magnetic" }, nil},
		{"no hierarchy", func(c *Config) { c.Hierarchy = nil }, nil},
	}

	for _, tt := range tests {
		cfg := Default()
		tt.mutate(cfg)
		err := cfg.Validate()
		if err == nil {
			t.Errorf("%s: Validate() = nil, want error", tt.name)
			continue
		}
		if tt.target != nil && !errors.Is(err, tt.target) {
			t.Errorf("%s: Validate() = %v, want %v", tt.name, err, tt.target)
		}
	}
}

func TestLoadConfigFrom_BadType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ethobot.json")
	data := `{"hierarchy": [{"type": "dance", "active": true}]}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfigFrom(path); err == nil {
		t.Error("LoadConfigFrom() accepted an unknown behavior type")
	}
}
