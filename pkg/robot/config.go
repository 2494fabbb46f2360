package robot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gwillem/ethobot/pkg/behavior"
	"github.com/gwillem/ethobot/pkg/sensor"
)

const DefaultConfigFile = "ethobot.json"

// ErrNoPort is returned when a hardware port has not been configured.
var ErrNoPort = errors.New("no port configured")

// Config holds the robot configuration
type Config struct {
	Wheels    WheelsConfig     `json:"wheels" yaml:"wheels"`
	Sensors   SensorsConfig    `json:"sensors" yaml:"sensors"`
	Behavior  behavior.Params  `json:"behavior" yaml:"behavior"`
	Hierarchy []behavior.Entry `json:"hierarchy" yaml:"hierarchy"`

	// Shuffle randomizes the hierarchy on first entry into edit mode.
	Shuffle bool `json:"shuffle" yaml:"shuffle"`
}

// WheelsConfig holds configuration for the wheel servo bus
type WheelsConfig struct {
	Port        string      `json:"port" yaml:"port"`
	Calibration Calibration `json:"calibration,omitempty" yaml:"calibration,omitempty"`
}

// SensorsConfig holds configuration for the sensor board
type SensorsConfig struct {
	Port     string          `json:"port" yaml:"port"`
	BaudRate int             `json:"baud_rate" yaml:"baud_rate"`
	BumpMode sensor.BumpMode `json:"bump_mode" yaml:"bump_mode"`
	Pins     sensor.Pins     `json:"pins" yaml:"pins"`
}

// IsCalibrated returns true if both wheels have calibration data
func (w *WheelsConfig) IsCalibrated() bool {
	return w.Calibration.Validate() == nil
}

// DefaultPins is the channel layout of the reference board.
func DefaultPins() sensor.Pins {
	return sensor.Pins{
		LeftPhoto:     0,
		RightPhoto:    1,
		LeftIR:        2,
		RightIR:       3,
		FrontBump:     4,
		BackBump:      5,
		FrontSwitches: [3]int{2, 3, 4},
		BackSwitches:  [3]int{5, 6, 7},
	}
}

// Default returns the built-in configuration. Ports are left empty.
func Default() *Config {
	return &Config{
		Wheels: WheelsConfig{
			Calibration: DefaultCalibration(),
		},
		Sensors: SensorsConfig{
			BaudRate: DefaultBaudRate,
			BumpMode: sensor.BumpSticky,
			Pins:     DefaultPins(),
		},
		Behavior:  behavior.DefaultParams(),
		Hierarchy: behavior.DefaultHierarchy(),
		Shuffle:   true,
	}
}

// LoadConfigFrom loads configuration from a specific file. Fields missing
// from the file keep their defaults. Files ending in .yaml or .yml are read
// as YAML, anything else as JSON.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	// Decoding into the default slice would merge rows field by field.
	cfg.Hierarchy = nil
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(cfg.Hierarchy) == 0 {
		cfg.Hierarchy = behavior.DefaultHierarchy()
	}
	return cfg, nil
}

// SaveTo saves configuration to a specific file, as YAML when the path ends
// in .yaml or .yml
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks calibration and the hierarchy for values that cannot run.
func (c *Config) Validate() error {
	if err := c.Wheels.Calibration.Validate(); err != nil {
		return fmt.Errorf("wheels: %w", err)
	}
	if err := c.Behavior.Validate(); err != nil {
		return fmt.Errorf("behavior: %w", err)
	}
	switch c.Sensors.BumpMode {
	case "", sensor.BumpSticky, sensor.BumpDiscrete:
	default:
		return fmt.Errorf("sensors: unknown bump mode %q", c.Sensors.BumpMode)
	}
	if len(c.Hierarchy) == 0 {
		return errors.New("hierarchy: no entries")
	}
	return nil
}

// ConfigExists returns true if the config file exists
func ConfigExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
