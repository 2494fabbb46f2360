// Package behavior defines the robot's reactive behaviors and the
// priority table that orders them.
package behavior

import (
	"fmt"
	"strings"
)

// Type identifies what a behavior does. It never changes for an entry.
type Type int

// Behavior types.
const (
	SeekLight Type = iota
	SeekDark
	Approach
	Avoid
	EscapeFront
	EscapeBack
	CruiseStraight
	CruiseArc
)

var typeNames = map[Type]string{
	SeekLight:      "SEEK LIGHT",
	SeekDark:       "SEEK DARK",
	Approach:       "APPROACH",
	Avoid:          "AVOID",
	EscapeFront:    "ESCAPE FRONT",
	EscapeBack:     "ESCAPE BACK",
	CruiseStraight: "CRUISE STRAIGHT",
	CruiseArc:      "CRUISE ARC",
}

// AllTypes returns every behavior type in declaration order.
func AllTypes() []Type {
	return []Type{
		SeekLight,
		SeekDark,
		Approach,
		Avoid,
		EscapeFront,
		EscapeBack,
		CruiseStraight,
		CruiseArc,
	}
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// ParseType accepts a display name ("SEEK LIGHT") or a config key
// ("seek_light"), case-insensitively.
func ParseType(s string) (Type, error) {
	key := strings.ToUpper(strings.NewReplacer("_", " ", "-", " ").Replace(strings.TrimSpace(s)))
	for t, name := range typeNames {
		if name == key {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown behavior type %q", s)
}

// MarshalText encodes the type as its config key.
func (t Type) MarshalText() ([]byte, error) {
	name, ok := typeNames[t]
	if !ok {
		return nil, fmt.Errorf("unknown behavior type %d", int(t))
	}
	return []byte(strings.ToLower(strings.ReplaceAll(name, " ", "_"))), nil
}

// UnmarshalText decodes a config key or display name.
func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
