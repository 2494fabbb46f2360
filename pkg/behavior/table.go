package behavior

import (
	"cmp"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
)

// ErrIndexOutOfRange is returned for a table index past either end.
var ErrIndexOutOfRange = errors.New("index out of range")

// Entry is one row of the subsumption hierarchy. Rank orders entries; it is
// not an identity.
type Entry struct {
	Name   string `json:"name" yaml:"name"`
	Type   Type   `json:"type" yaml:"type"`
	Rank   int    `json:"-" yaml:"-"`
	Active bool   `json:"active" yaml:"active"`
}

// DefaultHierarchy is the boot hierarchy, highest priority first.
func DefaultHierarchy() []Entry {
	return []Entry{
		{Name: "ESCAPE FRONT", Type: EscapeFront, Active: true},
		{Name: "ESCAPE BACK", Type: EscapeBack, Active: true},
		{Name: "AVOID", Type: Avoid, Active: true},
		{Name: "SEEK LIGHT", Type: SeekLight, Active: true},
		{Name: "CRUISE STRAIGHT", Type: CruiseStraight, Active: true},
		{Name: "SEEK DARK", Type: SeekDark},
		{Name: "APPROACH", Type: Approach},
		{Name: "CRUISE ARC", Type: CruiseArc},
	}
}

// Table is the priority-ordered behavior hierarchy. Entries are never added
// or removed after construction.
type Table struct {
	entries    []Entry
	randomized bool
}

// NewTable creates a table from entries listed highest priority first.
// Ranks in entries are ignored.
func NewTable(entries []Entry) *Table {
	t := &Table{entries: slices.Clone(entries)}
	for i := range t.entries {
		t.entries[i].Rank = i
		if t.entries[i].Name == "" {
			t.entries[i].Name = t.entries[i].Type.String()
		}
	}
	t.Resort()
	return t
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.entries)
}

// Entries returns a copy of the table in order.
func (t *Table) Entries() []Entry {
	return slices.Clone(t.entries)
}

// Entry returns the entry at i.
func (t *Table) Entry(i int) (Entry, error) {
	if err := t.check(i); err != nil {
		return Entry{}, err
	}
	return t.entries[i], nil
}

// Active returns the active entries in execution priority. Valid after Resort.
func (t *Table) Active() []Entry {
	var active []Entry
	for _, e := range t.entries {
		if !e.Active {
			break
		}
		active = append(active, e)
	}
	return active
}

// InactiveRank is the rank every inactive entry holds after Resort. It sorts
// below every active rank, so a newly activated entry lands at the bottom
// of the active block.
func (t *Table) InactiveRank() int {
	return len(t.entries) + 1
}

// ToggleActive flips the active flag of entry i.
func (t *Table) ToggleActive(i int) error {
	if err := t.check(i); err != nil {
		return err
	}
	t.entries[i].Active = !t.entries[i].Active
	return nil
}

// NudgeRank adds delta to the rank of entry i. Negative deltas raise priority.
func (t *Table) NudgeRank(i, delta int) error {
	if err := t.check(i); err != nil {
		return err
	}
	t.entries[i].Rank += delta
	return nil
}

// ResetAllInactive deactivates every entry.
func (t *Table) ResetAllInactive() {
	for i := range t.entries {
		t.entries[i].Active = false
	}
}

// Resort orders entries by (inactive, rank), keeping the relative order of
// ties, and renormalizes ranks: active entries get 0..k-1, inactive entries
// get InactiveRank.
func (t *Table) Resort() {
	slices.SortStableFunc(t.entries, func(a, b Entry) int {
		return cmp.Or(
			cmp.Compare(inactiveKey(a), inactiveKey(b)),
			cmp.Compare(a.Rank, b.Rank),
		)
	})
	for i := range t.entries {
		if t.entries[i].Active {
			t.entries[i].Rank = i
		} else {
			t.entries[i].Rank = t.InactiveRank()
		}
	}
}

// Randomize shuffles the table and deactivates every entry, hiding the boot
// hierarchy. It runs at most once per table and reports whether it ran.
func (t *Table) Randomize(rng *rand.Rand) bool {
	if t.randomized {
		return false
	}
	t.randomized = true
	for i := range t.entries {
		t.entries[i].Active = false
		t.entries[i].Rank = rng.Int()
	}
	t.Resort()
	return true
}

// Randomized reports whether Randomize has run.
func (t *Table) Randomized() bool {
	return t.randomized
}

func (t *Table) check(i int) error {
	if i < 0 || i >= len(t.entries) {
		return fmt.Errorf("entry %d of %d: %w", i, len(t.entries), ErrIndexOutOfRange)
	}
	return nil
}

func inactiveKey(e Entry) int {
	if e.Active {
		return 0
	}
	return 1
}
