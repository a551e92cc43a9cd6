package analysis

// Side identifies which half of the body supplies the angle landmarks.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// SideSelector picks the more visible side of the body with hysteresis:
// once a side is active, the other side must be preferred for a run of
// consecutive frames before the selector flips. This keeps the choice
// stable when visibility scores hover near a 50/50 split.
type SideSelector struct {
	stickyFrames int
	current      Side
	chosen       bool
	switchCount  int
}

// NewSideSelector creates a selector that requires stickyFrames
// consecutive frames of contrary preference before switching sides.
func NewSideSelector(stickyFrames int) *SideSelector {
	return &SideSelector{stickyFrames: stickyFrames}
}

// Update feeds one frame's per-side mean visibility scores and returns the
// active side. Ties prefer the right side, matching the reference pose
// topology's camera-facing convention.
func (s *SideSelector) Update(leftVis, rightVis float64) Side {
	preferred := SideLeft
	if rightVis >= leftVis {
		preferred = SideRight
	}

	switch {
	case !s.chosen:
		s.current = preferred
		s.chosen = true
		s.switchCount = 0
	case preferred != s.current:
		s.switchCount++
		if s.switchCount >= s.stickyFrames {
			s.current = preferred
			s.switchCount = 0
		}
	default:
		s.switchCount = 0
	}

	return s.current
}

// Current returns the active side and whether one has been chosen yet.
func (s *SideSelector) Current() (Side, bool) {
	return s.current, s.chosen
}

// Reset clears the selection so the next Update adopts its preference
// immediately.
func (s *SideSelector) Reset() {
	s.current = ""
	s.chosen = false
	s.switchCount = 0
}
