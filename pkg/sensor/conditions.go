package sensor

// Bumped reports whether the given side is in contact.
func (s Snapshot) Bumped(side Side) bool {
	if s.Mode == BumpDiscrete {
		sw := s.Front
		if side == Back {
			sw = s.Back
		}
		return sw[Left] || sw[Center] || sw[Right]
	}
	return s.BumpValue(side) <= ContactThreshold
}

// BumpValue returns the latched analog reading for a side.
func (s Snapshot) BumpValue(side Side) int {
	if side == Back {
		return s.BackBump
	}
	return s.FrontBump
}

// DistanceAsymmetry reports whether exactly one IR reading exceeds the
// threshold. Both sides over threshold is ambiguous geometry and does not
// count.
func (s Snapshot) DistanceAsymmetry(threshold int) bool {
	return (s.LeftIR > threshold) != (s.RightIR > threshold)
}

// PhotoAsymmetry reports whether the photo readings differ by more than the
// threshold.
func (s Snapshot) PhotoAsymmetry(threshold int) bool {
	return abs(s.PhotoDifference()) > threshold
}

// PhotoDifference is left minus right. Positive means the right side sees
// more light.
func (s Snapshot) PhotoDifference() int {
	return s.LeftPhoto - s.RightPhoto
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
