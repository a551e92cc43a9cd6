package analysis

import (
	"fmt"
	"math"
	"time"

	"github.com/claude/formcoach/internal/geometry"
	"github.com/claude/formcoach/internal/pose"
)

// Push-up feedback messages for discrete rep outcomes.
const (
	pushupStartMsg     = "Start Push-ups"
	pushupGoodRepMsg   = "Good rep!"
	pushupGoodDepthMsg = "Good depth! Push up!"
	pushupDeeperMsg    = "Lower chest more next rep"
	pushupCheckFormMsg = "Check form"
)

// pikeHysteresisPx keeps the pike sign check from flickering when the hip
// sits exactly on the body line. Pixel units; negligible against any
// realistic capture resolution.
const pikeHysteresisPx = 2.0

// PushupConfig holds every tunable threshold of the push-up analyzer.
// Elbow-angle thresholds mirror the squat's knee bands; the alignment
// signal is the shoulder-hip-ankle body line.
type PushupConfig struct {
	ElbowExtended float64 // above this while descending snaps back to up
	ElbowLockout  float64 // crossing below leaves up; crossing above closes the rep
	ElbowDeep     float64 // at or below counts as sufficient depth
	ElbowBottom   float64 // at or below, sustained, promotes to bottom
	ElbowRise     float64 // rising above this leaves bottom

	BodyWarning float64 // body-line angle below this is mild sag
	BodyBad     float64 // below this is severe sag (error level)

	// PikeMax is the maximum perpendicular deviation of the hip above the
	// shoulder-ankle line, as a fraction of body length, before a hip pike
	// is flagged. Sag (hips below the line) is covered by the body-angle
	// check instead.
	PikeMax float64

	MinVisibility  float64
	MinRepInterval time.Duration
	MinDeepFrames  int
	SmoothAlpha    float64

	SideStickyFrames int

	WarnFramesBody    int
	WarnFramesPike    int
	WarnFramesDeeper  int
	WarnFramesLockout int
	WarnFramesFraming int

	CandidateThreshold int
	FeedbackHold       time.Duration
	FramingMargin      float64
	TrajectoryLen      int
}

// DefaultPushupConfig returns the calibrated thresholds. The smoothing
// factor is higher than the squat's because push-up tempo is faster
// relative to typical capture rates.
func DefaultPushupConfig() PushupConfig {
	return PushupConfig{
		ElbowExtended:      155,
		ElbowLockout:       145,
		ElbowDeep:          100,
		ElbowBottom:        95,
		ElbowRise:          110,
		BodyWarning:        160,
		BodyBad:            150,
		PikeMax:            0.06,
		MinVisibility:      0.50,
		MinRepInterval:     800 * time.Millisecond,
		MinDeepFrames:      2,
		SmoothAlpha:        0.55,
		SideStickyFrames:   5,
		WarnFramesBody:     6,
		WarnFramesPike:     8,
		WarnFramesDeeper:   8,
		WarnFramesLockout:  6,
		WarnFramesFraming:  4,
		CandidateThreshold: 5,
		FeedbackHold:       2500 * time.Millisecond,
		FramingMargin:      0.03,
		TrajectoryLen:      30,
	}
}

func (c PushupConfig) validate() error {
	if c.SmoothAlpha <= 0 || c.SmoothAlpha > 1 {
		return fmt.Errorf("smooth_alpha %v out of range (0, 1]", c.SmoothAlpha)
	}
	if !(c.ElbowExtended > c.ElbowLockout && c.ElbowLockout > c.ElbowRise && c.ElbowRise > c.ElbowDeep && c.ElbowDeep >= c.ElbowBottom) {
		return fmt.Errorf("elbow thresholds must satisfy extended > lockout > rise > deep >= bottom")
	}
	if c.BodyBad > c.BodyWarning {
		return fmt.Errorf("body_bad %v must not exceed body_warning %v", c.BodyBad, c.BodyWarning)
	}
	if c.MinDeepFrames < 1 {
		return fmt.Errorf("min_deep_frames must be >= 1")
	}
	if c.SideStickyFrames < 1 {
		return fmt.Errorf("side_sticky_frames must be >= 1")
	}
	if c.MinRepInterval < 0 {
		return fmt.Errorf("min_rep_interval must not be negative")
	}
	return nil
}

var pushupWarnPriority = []Warning{
	WarnOutOfFrame,
	WarnBodySag,
	WarnHipPike,
	WarnCoreLoose,
	WarnPushupDepth,
	WarnPushupLockout,
}

// PushupAnalyzer tracks push-up repetitions: arms extended, lowering,
// chest low, pushing up. Alignment defects (sag, pike) accumulate against
// the rep while it is in flight.
type PushupAnalyzer struct {
	cfg PushupConfig

	phase       Phase
	repCount    int
	validReps   int
	invalidReps int
	repFeedback string

	elbow *Smoother
	body  *Smoother
	side  *SideSelector
	stab  *Stabilizer
	traj  *Trajectory

	lastRepTime time.Time
	deepFrames  int

	repIssues   []Warning
	repHadDepth bool

	bodyWarnFrames    int
	pikeWarnFrames    int
	deeperWarnFrames  int
	lockoutWarnFrames int
	framingWarnFrames int

	now func() time.Time
}

// NewPushupAnalyzer creates a push-up analyzer with default thresholds.
func NewPushupAnalyzer() *PushupAnalyzer {
	a, err := NewPushupAnalyzerConfig(DefaultPushupConfig())
	if err != nil {
		panic("analysis: invalid default pushup config: " + err.Error())
	}
	return a
}

// NewPushupAnalyzerConfig creates a push-up analyzer with custom
// thresholds, failing fast on an invalid configuration.
func NewPushupAnalyzerConfig(cfg PushupConfig) (*PushupAnalyzer, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("analysis: pushup config: %w", err)
	}

	elbow, err := NewSmoother(cfg.SmoothAlpha)
	if err != nil {
		return nil, err
	}
	body, err := NewSmoother(cfg.SmoothAlpha)
	if err != nil {
		return nil, err
	}

	stab, err := NewStabilizer(
		pushupWarnPriority,
		pushupWarnPriority,
		[]string{pushupGoodRepMsg, pushupGoodDepthMsg, pushupDeeperMsg, pushupCheckFormMsg},
		cfg.CandidateThreshold,
		cfg.FeedbackHold,
		pushupStartMsg,
	)
	if err != nil {
		return nil, err
	}

	return &PushupAnalyzer{
		cfg:         cfg,
		phase:       PhaseUp,
		repFeedback: pushupStartMsg,
		elbow:       elbow,
		body:        body,
		side:        NewSideSelector(cfg.SideStickyFrames),
		stab:        stab,
		traj:        NewTrajectory(cfg.TrajectoryLen),
		now:         time.Now,
	}, nil
}

// Reset restores the analyzer for a new set. Configuration is untouched.
func (a *PushupAnalyzer) Reset() {
	a.phase = PhaseUp
	a.repCount = 0
	a.validReps = 0
	a.invalidReps = 0
	a.repFeedback = pushupStartMsg
	a.elbow.Reset()
	a.body.Reset()
	a.side.Reset()
	a.stab.Reset(pushupStartMsg)
	a.traj.Reset()
	a.lastRepTime = time.Time{}
	a.deepFrames = 0
	a.repIssues = nil
	a.repHadDepth = false
	a.bodyWarnFrames = 0
	a.pikeWarnFrames = 0
	a.deeperWarnFrames = 0
	a.lockoutWarnFrames = 0
	a.framingWarnFrames = 0
}

// Advance processes one landmark frame. Returns nil without mutating any
// state when the frame carries no usable body.
func (a *PushupAnalyzer) Advance(frame pose.Frame, vp Viewport) *Result {
	if !frame.Complete() {
		return nil
	}

	leftVis := frame.MeanVisibility(pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist, pose.LeftHip, pose.LeftAnkle)
	rightVis := frame.MeanVisibility(pose.RightShoulder, pose.RightElbow, pose.RightWrist, pose.RightHip, pose.RightAnkle)
	side := a.side.Update(leftVis, rightVis)

	var shoulder, elbow, wrist, hip, ankle pose.Point
	var sideVis float64
	if side == SideRight {
		shoulder = frame.Point(pose.RightShoulder)
		elbow = frame.Point(pose.RightElbow)
		wrist = frame.Point(pose.RightWrist)
		hip = frame.Point(pose.RightHip)
		ankle = frame.Point(pose.RightAnkle)
		sideVis = rightVis
	} else {
		shoulder = frame.Point(pose.LeftShoulder)
		elbow = frame.Point(pose.LeftElbow)
		wrist = frame.Point(pose.LeftWrist)
		hip = frame.Point(pose.LeftHip)
		ankle = frame.Point(pose.LeftAnkle)
		sideVis = leftVis
	}

	rawElbow, err := geometry.Angle(shoulder, elbow, wrist)
	if err != nil {
		return nil
	}
	rawBody, err := geometry.Angle(shoulder, hip, ankle)
	if err != nil {
		return nil
	}

	elbowAngle := a.elbow.Update(rawElbow)
	bodyAngle := a.body.Update(rawBody)
	a.traj.Push(shoulder)

	lowConfidence := sideVis < a.cfg.MinVisibility
	isDeep := elbowAngle <= a.cfg.ElbowDeep
	now := a.now()

	var candidates []Warning
	goodForm := true
	active := a.phase == PhaseDescending || a.phase == PhaseBottom || a.phase == PhaseAscending

	// Framing advisory; the prone kind skips the standing plausibility
	// checks.
	if vp.Valid() {
		if !geometry.FullBodyInFrame(frame, vp.Width, vp.Height, a.cfg.FramingMargin, geometry.Prone) {
			a.framingWarnFrames++
		} else {
			a.framingWarnFrames = decay(a.framingWarnFrames, 2)
		}
		if a.framingWarnFrames >= a.cfg.WarnFramesFraming {
			candidates = append(candidates, WarnOutOfFrame)
		}
	} else {
		a.framingWarnFrames = decay(a.framingWarnFrames, 1)
	}

	// Two-tier sag detection on the shoulder-hip-ankle line.
	if active {
		if bodyAngle < a.cfg.BodyWarning {
			a.bodyWarnFrames++
		} else {
			a.bodyWarnFrames = decay(a.bodyWarnFrames, 2)
		}
		if a.bodyWarnFrames >= a.cfg.WarnFramesBody {
			if bodyAngle < a.cfg.BodyBad {
				candidates = append(candidates, WarnBodySag)
				goodForm = false
			} else if bodyAngle < a.cfg.BodyWarning {
				candidates = append(candidates, WarnCoreLoose)
			}
		}
	} else {
		a.bodyWarnFrames = decay(a.bodyWarnFrames, 1)
	}

	// Hip pike: perpendicular deviation of the hip above the
	// shoulder-ankle body axis. Orientation-independent; only hips above
	// the line count (lower image y = higher in the room).
	if active {
		dev := geometry.LineDeviation(hip, shoulder, ankle)
		hipAboveLine := hip.Y < dev.Foot.Y-pikeHysteresisPx
		if hipAboveLine && dev.Normalized > a.cfg.PikeMax {
			a.pikeWarnFrames++
		} else {
			a.pikeWarnFrames = decay(a.pikeWarnFrames, 2)
		}
		if a.pikeWarnFrames >= a.cfg.WarnFramesPike {
			candidates = append(candidates, WarnHipPike)
			goodForm = false
		}
	} else {
		a.pikeWarnFrames = decay(a.pikeWarnFrames, 1)
	}

	switch a.phase {
	case PhaseUp:
		if elbowAngle < a.cfg.ElbowLockout {
			a.phase = PhaseDescending
			a.repIssues = nil
			a.repHadDepth = false
			a.deepFrames = 0
			a.bodyWarnFrames = 0
			a.pikeWarnFrames = 0
			a.deeperWarnFrames = 0
			a.lockoutWarnFrames = 0
		}

	case PhaseDescending:
		if elbowAngle <= a.cfg.ElbowBottom {
			a.deepFrames++
			a.deeperWarnFrames = 0
		} else {
			a.deepFrames = decay(a.deepFrames, 1)
			if elbowAngle < a.cfg.ElbowLockout {
				a.deeperWarnFrames++
			}
		}

		if isDeep {
			a.repHadDepth = true
		}

		if a.deeperWarnFrames >= a.cfg.WarnFramesDeeper && !isDeep {
			candidates = append(candidates, WarnPushupDepth)
		}

		a.recordIssues(candidates)

		if a.deepFrames >= a.cfg.MinDeepFrames {
			a.phase = PhaseBottom
			a.repFeedback = pushupGoodDepthMsg
		} else if elbowAngle > a.cfg.ElbowExtended {
			a.phase = PhaseUp
			a.deepFrames = 0
			a.deeperWarnFrames = 0
		}

	case PhaseBottom:
		if isDeep {
			a.repHadDepth = true
		}
		a.recordIssues(candidates)

		if elbowAngle > a.cfg.ElbowRise {
			a.phase = PhaseAscending
		}

	case PhaseAscending:
		if elbowAngle < a.cfg.ElbowLockout && elbowAngle > 120 {
			a.lockoutWarnFrames++
		} else {
			a.lockoutWarnFrames = decay(a.lockoutWarnFrames, 1)
		}
		if a.lockoutWarnFrames >= a.cfg.WarnFramesLockout {
			candidates = append(candidates, WarnPushupLockout)
		}

		a.recordIssues(candidates)

		if elbowAngle >= a.cfg.ElbowLockout {
			a.closeRep(now, lowConfidence)
		}
	}

	counters := map[Warning]int{
		WarnOutOfFrame:    a.framingWarnFrames,
		WarnBodySag:       a.bodyWarnFrames,
		WarnCoreLoose:     a.bodyWarnFrames,
		WarnHipPike:       a.pikeWarnFrames,
		WarnPushupDepth:   a.deeperWarnFrames,
		WarnPushupLockout: a.lockoutWarnFrames,
	}
	feedback, level := a.stab.Update(candidates, counters, goodForm, a.repFeedback, now)

	depthStatus := "High"
	if isDeep {
		depthStatus = "Good"
	}

	return &Result{
		PrimaryAngle:   int(math.Round(elbowAngle)),
		SecondaryAngle: int(math.Round(bodyAngle)),
		Phase:          a.phase,
		RepCount:       a.repCount,
		ValidReps:      a.validReps,
		InvalidReps:    a.invalidReps,
		Feedback:       feedback,
		FeedbackLevel:  level,
		GoodForm:       goodForm,
		DepthStatus:    depthStatus,
		TargetDepthY:   wrist.Y, // the floor: chest meets the hands
		CurrentDepthY:  shoulder.Y,
		Trajectory:     a.traj.Points(),
		Side:           side,
	}
}

func (a *PushupAnalyzer) recordIssues(candidates []Warning) {
	for _, w := range candidates {
		if w == WarnOutOfFrame {
			continue
		}
		a.repIssues = addIssue(a.repIssues, w)
	}
}

func (a *PushupAnalyzer) closeRep(now time.Time, lowConfidence bool) {
	sinceLast := now.Sub(a.lastRepTime)
	if sinceLast >= a.cfg.MinRepInterval && !lowConfidence {
		a.repCount++
		a.lastRepTime = now

		issues := a.finalIssues()
		if len(issues) == 0 && a.repHadDepth {
			a.validReps++
			a.repFeedback = pushupGoodRepMsg
		} else {
			a.invalidReps++
			switch {
			case !a.repHadDepth:
				a.repFeedback = pushupDeeperMsg
			case len(issues) > 0:
				a.repFeedback = issues[0].Message()
			default:
				a.repFeedback = pushupCheckFormMsg
			}
		}
	}

	a.phase = PhaseUp
	a.deepFrames = 0
}

func (a *PushupAnalyzer) finalIssues() []Warning {
	if !a.repHadDepth {
		return a.repIssues
	}
	out := a.repIssues[:0:0]
	for _, w := range a.repIssues {
		if w == WarnPushupDepth {
			continue
		}
		out = append(out, w)
	}
	return out
}
