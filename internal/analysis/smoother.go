package analysis

import "fmt"

// Smoother is an exponential moving average over one angle signal. The
// first sample after construction or Reset seeds the value directly, so
// there is no warm-up bias from a zero initial state.
type Smoother struct {
	alpha  float64
	value  float64
	seeded bool
}

// NewSmoother creates a Smoother with the given smoothing factor. Higher
// alpha tracks faster; lower alpha smooths harder. Alpha must be in (0, 1].
func NewSmoother(alpha float64) (*Smoother, error) {
	if alpha <= 0 || alpha > 1 {
		return nil, fmt.Errorf("analysis: smoothing factor %v out of range (0, 1]", alpha)
	}
	return &Smoother{alpha: alpha}, nil
}

// Update feeds one raw sample and returns the smoothed value.
func (s *Smoother) Update(raw float64) float64 {
	if !s.seeded {
		s.value = raw
		s.seeded = true
		return s.value
	}
	s.value = s.alpha*raw + (1-s.alpha)*s.value
	return s.value
}

// Reset clears the smoother to unseeded; the next Update reseeds without
// weight from stale history.
func (s *Smoother) Reset() {
	s.value = 0
	s.seeded = false
}
