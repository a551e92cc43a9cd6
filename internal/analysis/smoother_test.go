package analysis

import (
	"math"
	"testing"
)

// TestSmootherSeedsOnFirstSample verifies that the first sample is
// returned unweighted instead of being averaged against a zero state.
func TestSmootherSeedsOnFirstSample(t *testing.T) {
	s, err := NewSmoother(0.35)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.Update(170); got != 170 {
		t.Errorf("first sample = %v, want 170", got)
	}
}

// TestSmootherRecurrence verifies the EMA update against a hand-computed
// value.
func TestSmootherRecurrence(t *testing.T) {
	s, err := NewSmoother(0.35)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Update(100)
	if got := s.Update(50); math.Abs(got-82.5) > 1e-9 {
		t.Errorf("smoothed = %v, want 82.5", got)
	}
}

// TestSmootherConvergence verifies monotone convergence toward a constant
// input without overshoot.
func TestSmootherConvergence(t *testing.T) {
	s, err := NewSmoother(0.35)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	prev := s.Update(170)
	for i := 0; i < 50; i++ {
		v := s.Update(90)
		if v >= prev {
			t.Fatalf("step %d: %v did not decrease from %v", i, v, prev)
		}
		if v < 90 {
			t.Fatalf("step %d: %v overshot the target", i, v)
		}
		prev = v
	}
	if math.Abs(prev-90) > 0.01 {
		t.Errorf("after 50 steps value = %v, want ~90", prev)
	}
}

// TestSmootherReset verifies that Reset discards history so the next
// sample reseeds.
func TestSmootherReset(t *testing.T) {
	s, err := NewSmoother(0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Update(100)
	s.Update(100)
	s.Reset()
	if got := s.Update(20); got != 20 {
		t.Errorf("sample after reset = %v, want 20", got)
	}
}

// TestSmootherInvalidAlpha verifies that out-of-range smoothing factors
// are rejected at construction.
func TestSmootherInvalidAlpha(t *testing.T) {
	for _, alpha := range []float64{0, -0.1, 1.01} {
		if _, err := NewSmoother(alpha); err == nil {
			t.Errorf("alpha %v: expected error", alpha)
		}
	}
}
