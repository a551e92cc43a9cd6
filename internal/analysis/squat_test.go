package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/claude/formcoach/internal/pose"
)

// squatFrame synthesizes a side-view frame with the given knee and back
// angles on both body halves. The hip is placed behind the ankle-knee
// column so the knee-travel check stays quiet; tests that want travel
// build their own geometry.
func squatFrame(kneeDeg, backDeg, vis float64) pose.Frame {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }

	ankle := pose.Point{X: 100, Y: 400}
	knee := pose.Point{X: 100, Y: 300}

	hipDir := rad(90 - kneeDeg)
	hip := pose.Point{X: knee.X + 100*math.Cos(hipDir), Y: knee.Y + 100*math.Sin(hipDir)}

	hipToKnee := 90 - kneeDeg + 180
	shoulderDir := rad(hipToKnee - backDeg)
	shoulder := pose.Point{X: hip.X + 100*math.Cos(shoulderDir), Y: hip.Y + 100*math.Sin(shoulderDir)}

	f := make(pose.Frame, pose.NumLandmarks)
	for i := range f {
		f[i] = pose.Landmark{ID: i, X: 100, Y: 100, Visibility: vis}
	}
	set := func(idx int, p pose.Point) {
		f[idx].X = p.X
		f[idx].Y = p.Y
	}
	set(pose.LeftShoulder, shoulder)
	set(pose.RightShoulder, shoulder)
	set(pose.LeftHip, hip)
	set(pose.RightHip, hip)
	set(pose.LeftKnee, knee)
	set(pose.RightKnee, knee)
	set(pose.LeftAnkle, ankle)
	set(pose.RightAnkle, ankle)
	return f
}

// feedSquat advances the analyzer through a run of identical frames and
// returns the last non-nil result.
func feedSquat(t *testing.T, a *SquatAnalyzer, n int, kneeDeg, backDeg, vis float64) *Result {
	t.Helper()
	var last *Result
	for i := 0; i < n; i++ {
		if res := a.Advance(squatFrame(kneeDeg, backDeg, vis), Viewport{}); res != nil {
			last = res
		}
	}
	if last == nil {
		t.Fatal("no result produced")
	}
	return last
}

// TestSquatValidRep walks one clean repetition through all four phases
// and verifies it counts as valid with immediate completion feedback.
func TestSquatValidRep(t *testing.T) {
	a := NewSquatAnalyzer()

	res := feedSquat(t, a, 1, 170, 170, 1)
	if res.Phase != PhaseUp {
		t.Fatalf("phase = %v, want up", res.Phase)
	}

	res = feedSquat(t, a, 8, 90, 170, 1)
	if res.Phase != PhaseBottom {
		t.Fatalf("phase after descent = %v, want bottom", res.Phase)
	}
	if res.Feedback != squatGoodDepthMsg {
		t.Errorf("feedback at bottom = %q, want %q", res.Feedback, squatGoodDepthMsg)
	}

	res = feedSquat(t, a, 4, 170, 170, 1)
	if res.Phase != PhaseUp {
		t.Errorf("phase after ascent = %v, want up", res.Phase)
	}
	if res.RepCount != 1 || res.ValidReps != 1 || res.InvalidReps != 0 {
		t.Errorf("reps = %d/%d/%d, want 1/1/0", res.RepCount, res.ValidReps, res.InvalidReps)
	}
	if res.Feedback != squatGoodRepMsg {
		t.Errorf("feedback = %q, want %q", res.Feedback, squatGoodRepMsg)
	}
	if res.FeedbackLevel != LevelSuccess {
		t.Errorf("level = %v, want success", res.FeedbackLevel)
	}
}

// TestSquatShallowAttemptNotCounted verifies that hovering above depth
// draws the depth nudge and standing back up records no repetition.
func TestSquatShallowAttemptNotCounted(t *testing.T) {
	a := NewSquatAnalyzer()

	feedSquat(t, a, 1, 170, 170, 1)
	res := feedSquat(t, a, 14, 120, 170, 1)
	if res.Feedback != WarnSquatDepth.Message() {
		t.Errorf("feedback = %q, want %q", res.Feedback, WarnSquatDepth.Message())
	}
	if res.FeedbackLevel != LevelWarning {
		t.Errorf("level = %v, want warning", res.FeedbackLevel)
	}

	res = feedSquat(t, a, 8, 170, 170, 1)
	if res.RepCount != 0 {
		t.Errorf("rep count = %d, want 0 for aborted attempt", res.RepCount)
	}
	if res.Phase != PhaseUp {
		t.Errorf("phase = %v, want up", res.Phase)
	}
}

// TestSquatBackRoundingInvalidRep verifies that sustained severe back
// rounding marks the repetition invalid and surfaces the rounding cue as
// the rep outcome.
func TestSquatBackRoundingInvalidRep(t *testing.T) {
	a := NewSquatAnalyzer()

	feedSquat(t, a, 1, 170, 170, 1)
	res := feedSquat(t, a, 12, 90, 50, 1)
	if res.GoodForm {
		t.Error("expected bad form while severely rounded")
	}

	res = feedSquat(t, a, 8, 170, 170, 1)
	if res.RepCount != 1 || res.ValidReps != 0 || res.InvalidReps != 1 {
		t.Errorf("reps = %d/%d/%d, want 1/0/1", res.RepCount, res.ValidReps, res.InvalidReps)
	}
	if res.Feedback != WarnBackSevere.Message() {
		t.Errorf("feedback = %q, want %q", res.Feedback, WarnBackSevere.Message())
	}
}

// TestSquatPhantomSpikeRejected verifies that a single-frame landmark
// glitch to a deep angle does not produce a repetition.
func TestSquatPhantomSpikeRejected(t *testing.T) {
	a := NewSquatAnalyzer()

	feedSquat(t, a, 3, 170, 170, 1)
	feedSquat(t, a, 1, 20, 170, 1)
	res := feedSquat(t, a, 6, 170, 170, 1)

	if res.RepCount != 0 {
		t.Errorf("rep count = %d, want 0 after spike", res.RepCount)
	}
	if res.Phase != PhaseUp {
		t.Errorf("phase = %v, want up", res.Phase)
	}
}

// TestSquatMinRepInterval verifies that a second lockout inside the
// minimum inter-rep interval is not counted.
func TestSquatMinRepInterval(t *testing.T) {
	a := NewSquatAnalyzer()

	base := time.Unix(1700000000, 0)
	tick := 0
	a.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * 10 * time.Millisecond)
	}

	feedSquat(t, a, 1, 170, 170, 1)
	feedSquat(t, a, 8, 90, 170, 1)
	res := feedSquat(t, a, 4, 170, 170, 1)
	if res.RepCount != 1 {
		t.Fatalf("first rep count = %d, want 1", res.RepCount)
	}

	feedSquat(t, a, 8, 90, 170, 1)
	res = feedSquat(t, a, 4, 170, 170, 1)
	if res.RepCount != 1 {
		t.Errorf("rep count = %d, want 1 (second lockout inside interval)", res.RepCount)
	}
	if res.Phase != PhaseUp {
		t.Errorf("phase = %v, want up even when the rep is not counted", res.Phase)
	}
}

// TestSquatLowVisibilityFreezesCounting verifies that a full cycle with
// side visibility below the gate moves through the phases without
// recording a repetition.
func TestSquatLowVisibilityFreezesCounting(t *testing.T) {
	a := NewSquatAnalyzer()

	feedSquat(t, a, 1, 170, 170, 0.3)
	feedSquat(t, a, 8, 90, 170, 0.3)
	res := feedSquat(t, a, 4, 170, 170, 0.3)

	if res.RepCount != 0 {
		t.Errorf("rep count = %d, want 0 under low visibility", res.RepCount)
	}
	if res.Phase != PhaseUp {
		t.Errorf("phase = %v, want up", res.Phase)
	}
}

// TestSquatDepthNudgeForgiven verifies that the depth nudge accumulated
// while hovering does not invalidate a rep that ultimately reaches depth.
func TestSquatDepthNudgeForgiven(t *testing.T) {
	a := NewSquatAnalyzer()

	feedSquat(t, a, 1, 170, 170, 1)
	feedSquat(t, a, 10, 120, 170, 1) // hover above depth, nudge fires
	feedSquat(t, a, 8, 90, 170, 1)   // then commit to full depth
	res := feedSquat(t, a, 6, 170, 170, 1)

	if res.RepCount != 1 || res.ValidReps != 1 || res.InvalidReps != 0 {
		t.Errorf("reps = %d/%d/%d, want 1/1/0", res.RepCount, res.ValidReps, res.InvalidReps)
	}
	if res.Feedback != squatGoodRepMsg {
		t.Errorf("feedback = %q, want %q", res.Feedback, squatGoodRepMsg)
	}
}

// TestSquatReset verifies that Reset restores a fresh set without
// touching configuration.
func TestSquatReset(t *testing.T) {
	a := NewSquatAnalyzer()

	feedSquat(t, a, 1, 170, 170, 1)
	feedSquat(t, a, 8, 90, 170, 1)
	feedSquat(t, a, 4, 170, 170, 1)
	a.Reset()

	res := feedSquat(t, a, 1, 170, 170, 1)
	if res.RepCount != 0 || res.ValidReps != 0 || res.InvalidReps != 0 {
		t.Errorf("reps after reset = %d/%d/%d, want 0/0/0", res.RepCount, res.ValidReps, res.InvalidReps)
	}
	if res.Phase != PhaseUp {
		t.Errorf("phase = %v, want up", res.Phase)
	}
	if res.Feedback != squatStartMsg {
		t.Errorf("feedback = %q, want %q", res.Feedback, squatStartMsg)
	}
}

// TestSquatIncompleteFrameSkipped verifies that a frame without the full
// landmark topology returns nil and leaves state untouched.
func TestSquatIncompleteFrameSkipped(t *testing.T) {
	a := NewSquatAnalyzer()

	feedSquat(t, a, 1, 170, 170, 1)
	if res := a.Advance(pose.Frame{{ID: 0}}, Viewport{}); res != nil {
		t.Fatal("expected nil result for incomplete frame")
	}

	res := feedSquat(t, a, 1, 170, 170, 1)
	if res.RepCount != 0 || res.Phase != PhaseUp {
		t.Errorf("state disturbed by incomplete frame: reps=%d phase=%v", res.RepCount, res.Phase)
	}
}

// TestSquatDegenerateGeometrySkipped verifies that coincident landmarks
// are treated like a no-body frame.
func TestSquatDegenerateGeometrySkipped(t *testing.T) {
	a := NewSquatAnalyzer()

	f := squatFrame(170, 170, 1)
	knee := f[pose.RightKnee]
	f[pose.RightHip].X = knee.X
	f[pose.RightHip].Y = knee.Y
	f[pose.LeftHip].X = knee.X
	f[pose.LeftHip].Y = knee.Y

	if res := a.Advance(f, Viewport{}); res != nil {
		t.Error("expected nil result for degenerate geometry")
	}
}

// TestSquatConfigValidation verifies the threshold ordering checks.
func TestSquatConfigValidation(t *testing.T) {
	bad := DefaultSquatConfig()
	bad.KneeLockout = bad.KneeStanding + 5
	if _, err := NewSquatAnalyzerConfig(bad); err == nil {
		t.Error("expected error for inverted knee thresholds")
	}

	bad = DefaultSquatConfig()
	bad.SmoothAlpha = 0
	if _, err := NewSquatAnalyzerConfig(bad); err == nil {
		t.Error("expected error for zero smoothing factor")
	}

	bad = DefaultSquatConfig()
	bad.BackBad = bad.BackWarning + 1
	if _, err := NewSquatAnalyzerConfig(bad); err == nil {
		t.Error("expected error for inverted back thresholds")
	}
}

// TestSquatTrajectoryTracksHip verifies that the movement path follows
// the hip and respects the configured capacity.
func TestSquatTrajectoryTracksHip(t *testing.T) {
	a := NewSquatAnalyzer()

	res := feedSquat(t, a, 40, 170, 170, 1)
	if len(res.Trajectory) != DefaultSquatConfig().TrajectoryLen {
		t.Errorf("trajectory length = %d, want %d", len(res.Trajectory), DefaultSquatConfig().TrajectoryLen)
	}

	f := squatFrame(170, 170, 1)
	hip := f.Point(pose.RightHip)
	last := res.Trajectory[len(res.Trajectory)-1]
	if math.Abs(last.X-hip.X) > 1e-9 || math.Abs(last.Y-hip.Y) > 1e-9 {
		t.Errorf("last trajectory point = %v, want hip %v", last, hip)
	}
}
