package analysis

import (
	"fmt"
	"math"
	"time"

	"github.com/claude/formcoach/internal/geometry"
	"github.com/claude/formcoach/internal/pose"
)

// Squat feedback messages for discrete rep outcomes.
const (
	squatStartMsg     = "Start Squats"
	squatGoodRepMsg   = "Good rep!"
	squatGoodDepthMsg = "Good depth! Drive up!"
	squatDeeperMsg    = "Squat deeper next rep"
	squatCheckFormMsg = "Check form"
)

// SquatConfig holds every tunable threshold of the squat analyzer. The
// struct is copied at construction; analyzers never share or mutate it.
//
// Knee-angle thresholds form two hysteresis bands:
//
//	KneeStanding > KneeLockout ......... top of the rep
//	KneeRise > KneeDeep >= KneeBottom .. bottom of the rep
type SquatConfig struct {
	KneeStanding float64 // above this while descending snaps back to up
	KneeLockout  float64 // crossing below leaves up; crossing above closes the rep
	KneeDeep     float64 // at or below counts as sufficient depth
	KneeBottom   float64 // at or below, sustained, promotes to bottom
	KneeRise     float64 // rising above this leaves bottom

	BackWarning float64 // shoulder-hip-knee angle below this is mild rounding
	BackBad     float64 // below this is severe rounding (error level)

	// KneeTravelMax is the maximum perpendicular deviation of the knee
	// from the ankle-hip line, as a fraction of that segment's length,
	// before forward knee travel is flagged.
	KneeTravelMax float64

	MinVisibility  float64       // side visibility below this freezes rep counting
	MinRepInterval time.Duration // rejects double-counts at the lockout boundary
	MinDeepFrames  int           // consecutive deep frames required for bottom
	SmoothAlpha    float64       // EMA factor for both angle signals

	SideStickyFrames int

	WarnFramesBack    int // debounce: back rounding
	WarnFramesKnee    int // debounce: knee travel
	WarnFramesDeeper  int // debounce: depth nudge
	WarnFramesLockout int // debounce: lockout nudge
	WarnFramesFraming int // debounce: out-of-frame advisory

	CandidateThreshold int           // stabilizer promotion threshold
	FeedbackHold       time.Duration // minimum on-screen time per message
	FramingMargin      float64       // full-body-in-frame margin fraction
	TrajectoryLen      int           // hip path history length
}

// DefaultSquatConfig returns the calibrated thresholds for roughly 5-30
// fps input.
func DefaultSquatConfig() SquatConfig {
	return SquatConfig{
		KneeStanding:       160,
		KneeLockout:        150,
		KneeDeep:           100,
		KneeBottom:         95,
		KneeRise:           110,
		BackWarning:        70,
		BackBad:            60,
		KneeTravelMax:      0.08,
		MinVisibility:      0.50,
		MinRepInterval:     800 * time.Millisecond,
		MinDeepFrames:      2,
		SmoothAlpha:        0.35,
		SideStickyFrames:   5,
		WarnFramesBack:     6,
		WarnFramesKnee:     8,
		WarnFramesDeeper:   8,
		WarnFramesLockout:  6,
		WarnFramesFraming:  4,
		CandidateThreshold: 5,
		FeedbackHold:       2500 * time.Millisecond,
		FramingMargin:      0.03,
		TrajectoryLen:      30,
	}
}

func (c SquatConfig) validate() error {
	if c.SmoothAlpha <= 0 || c.SmoothAlpha > 1 {
		return fmt.Errorf("smooth_alpha %v out of range (0, 1]", c.SmoothAlpha)
	}
	if !(c.KneeStanding > c.KneeLockout && c.KneeLockout > c.KneeRise && c.KneeRise > c.KneeDeep && c.KneeDeep >= c.KneeBottom) {
		return fmt.Errorf("knee thresholds must satisfy standing > lockout > rise > deep >= bottom")
	}
	if c.BackBad > c.BackWarning {
		return fmt.Errorf("back_bad %v must not exceed back_warning %v", c.BackBad, c.BackWarning)
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

// squatWarnPriority orders the squat warnings; earlier entries win when
// several fire at once.
var squatWarnPriority = []Warning{
	WarnOutOfFrame,
	WarnBackSevere,
	WarnKneeTravel,
	WarnBackRounding,
	WarnSquatDepth,
	WarnSquatLockout,
}

// SquatAnalyzer tracks squat repetitions through the
// up/descending/bottom/ascending cycle, classifying each completed rep
// against depth and form criteria.
type SquatAnalyzer struct {
	cfg SquatConfig

	phase       Phase
	repCount    int
	validReps   int
	invalidReps int
	repFeedback string // last discrete outcome; default message for the stabilizer

	knee *Smoother
	back *Smoother
	side *SideSelector
	stab *Stabilizer
	traj *Trajectory

	lastRepTime time.Time
	deepFrames  int

	repIssues   []Warning
	repHadDepth bool

	backWarnFrames    int
	kneeWarnFrames    int
	deeperWarnFrames  int
	lockoutWarnFrames int
	framingWarnFrames int

	now func() time.Time
}

// NewSquatAnalyzer creates a squat analyzer with default thresholds.
func NewSquatAnalyzer() *SquatAnalyzer {
	a, err := NewSquatAnalyzerConfig(DefaultSquatConfig())
	if err != nil {
		// Defaults are compile-time constants; failing here is a bug.
		panic("analysis: invalid default squat config: " + err.Error())
	}
	return a
}

// NewSquatAnalyzerConfig creates a squat analyzer with custom thresholds,
// failing fast on an invalid configuration.
func NewSquatAnalyzerConfig(cfg SquatConfig) (*SquatAnalyzer, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("analysis: squat config: %w", err)
	}

	knee, err := NewSmoother(cfg.SmoothAlpha)
	if err != nil {
		return nil, err
	}
	back, err := NewSmoother(cfg.SmoothAlpha)
	if err != nil {
		return nil, err
	}

	stab, err := NewStabilizer(
		squatWarnPriority,
		squatWarnPriority, // the squat checks emit exactly the priority set
		[]string{squatGoodRepMsg, squatGoodDepthMsg, squatDeeperMsg, squatCheckFormMsg},
		cfg.CandidateThreshold,
		cfg.FeedbackHold,
		squatStartMsg,
	)
	if err != nil {
		return nil, err
	}

	return &SquatAnalyzer{
		cfg:         cfg,
		phase:       PhaseUp,
		repFeedback: squatStartMsg,
		knee:        knee,
		back:        back,
		side:        NewSideSelector(cfg.SideStickyFrames),
		stab:        stab,
		traj:        NewTrajectory(cfg.TrajectoryLen),
		now:         time.Now,
	}, nil
}

// Reset restores the analyzer for a new set. Configuration is untouched.
func (a *SquatAnalyzer) Reset() {
	a.phase = PhaseUp
	a.repCount = 0
	a.validReps = 0
	a.invalidReps = 0
	a.repFeedback = squatStartMsg
	a.knee.Reset()
	a.back.Reset()
	a.side.Reset()
	a.stab.Reset(squatStartMsg)
	a.traj.Reset()
	a.lastRepTime = time.Time{}
	a.deepFrames = 0
	a.repIssues = nil
	a.repHadDepth = false
	a.backWarnFrames = 0
	a.kneeWarnFrames = 0
	a.deeperWarnFrames = 0
	a.lockoutWarnFrames = 0
	a.framingWarnFrames = 0
}

// Advance processes one landmark frame. Returns nil without mutating any
// state when the frame carries no usable body.
func (a *SquatAnalyzer) Advance(frame pose.Frame, vp Viewport) *Result {
	if !frame.Complete() {
		return nil
	}

	leftVis := frame.MeanVisibility(pose.LeftShoulder, pose.LeftHip, pose.LeftKnee, pose.LeftAnkle)
	rightVis := frame.MeanVisibility(pose.RightShoulder, pose.RightHip, pose.RightKnee, pose.RightAnkle)
	side := a.side.Update(leftVis, rightVis)

	var shoulder, hip, knee, ankle pose.Point
	var sideVis float64
	if side == SideRight {
		shoulder = frame.Point(pose.RightShoulder)
		hip = frame.Point(pose.RightHip)
		knee = frame.Point(pose.RightKnee)
		ankle = frame.Point(pose.RightAnkle)
		sideVis = rightVis
	} else {
		shoulder = frame.Point(pose.LeftShoulder)
		hip = frame.Point(pose.LeftHip)
		knee = frame.Point(pose.LeftKnee)
		ankle = frame.Point(pose.LeftAnkle)
		sideVis = leftVis
	}

	rawKnee, err := geometry.Angle(hip, knee, ankle)
	if err != nil {
		return nil
	}
	rawBack, err := geometry.Angle(shoulder, hip, knee)
	if err != nil {
		return nil
	}

	kneeAngle := a.knee.Update(rawKnee)
	backAngle := a.back.Update(rawBack)
	a.traj.Push(hip)

	lowConfidence := sideVis < a.cfg.MinVisibility
	isDeep := kneeAngle <= a.cfg.KneeDeep
	now := a.now()

	var candidates []Warning
	goodForm := true
	active := a.phase == PhaseDescending || a.phase == PhaseBottom || a.phase == PhaseAscending

	// Framing advisory. Never gates rep counting.
	if vp.Valid() {
		if !geometry.FullBodyInFrame(frame, vp.Width, vp.Height, a.cfg.FramingMargin, geometry.Standing) {
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

	// Two-tier back rounding check, only while actively squatting. A brief
	// correction clears the counter faster than violations grow it.
	if active {
		if backAngle < a.cfg.BackWarning {
			a.backWarnFrames++
		} else {
			a.backWarnFrames = decay(a.backWarnFrames, 2)
		}
		if a.backWarnFrames >= a.cfg.WarnFramesBack {
			if backAngle < a.cfg.BackBad {
				candidates = append(candidates, WarnBackSevere)
				goodForm = false
			} else if backAngle < a.cfg.BackWarning {
				candidates = append(candidates, WarnBackRounding)
			}
		}
	} else {
		a.backWarnFrames = decay(a.backWarnFrames, 1)
	}

	// Forward knee travel: perpendicular deviation of the knee from the
	// ankle-hip line, flagged only when the offset points the way the toes
	// do (the tracked side faces +x when right, -x when left).
	if active {
		dev := geometry.LineDeviation(knee, ankle, hip)
		forward := knee.X - dev.Foot.X
		travel := dev.Normalized > a.cfg.KneeTravelMax &&
			((side == SideRight && forward > 0) || (side == SideLeft && forward < 0))
		if travel {
			a.kneeWarnFrames++
		} else {
			a.kneeWarnFrames = decay(a.kneeWarnFrames, 2)
		}
		if a.kneeWarnFrames >= a.cfg.WarnFramesKnee {
			candidates = append(candidates, WarnKneeTravel)
			goodForm = false
		}
	} else {
		a.kneeWarnFrames = decay(a.kneeWarnFrames, 1)
	}

	switch a.phase {
	case PhaseUp:
		if kneeAngle < a.cfg.KneeLockout {
			a.phase = PhaseDescending
			a.repIssues = nil
			a.repHadDepth = false
			a.deepFrames = 0
			a.backWarnFrames = 0
			a.kneeWarnFrames = 0
			a.deeperWarnFrames = 0
			a.lockoutWarnFrames = 0
		}

	case PhaseDescending:
		if kneeAngle <= a.cfg.KneeBottom {
			a.deepFrames++
			a.deeperWarnFrames = 0
		} else {
			a.deepFrames = decay(a.deepFrames, 1)
			if kneeAngle < a.cfg.KneeLockout {
				// Hovering short of depth.
				a.deeperWarnFrames++
			}
		}

		if isDeep {
			a.repHadDepth = true
		}

		if a.deeperWarnFrames >= a.cfg.WarnFramesDeeper && !isDeep {
			candidates = append(candidates, WarnSquatDepth)
		}

		a.recordIssues(candidates)

		if a.deepFrames >= a.cfg.MinDeepFrames {
			a.phase = PhaseBottom
			a.repFeedback = squatGoodDepthMsg
		} else if kneeAngle > a.cfg.KneeStanding {
			// Stood back up without a rep.
			a.phase = PhaseUp
			a.deepFrames = 0
			a.deeperWarnFrames = 0
		}

	case PhaseBottom:
		if isDeep {
			a.repHadDepth = true
		}
		a.recordIssues(candidates)

		if kneeAngle > a.cfg.KneeRise {
			a.phase = PhaseAscending
		}

	case PhaseAscending:
		// Stalling below lockout but clearly past the bottom.
		if kneeAngle < a.cfg.KneeLockout && kneeAngle > 120 {
			a.lockoutWarnFrames++
		} else {
			a.lockoutWarnFrames = decay(a.lockoutWarnFrames, 1)
		}
		if a.lockoutWarnFrames >= a.cfg.WarnFramesLockout {
			candidates = append(candidates, WarnSquatLockout)
		}

		a.recordIssues(candidates)

		if kneeAngle >= a.cfg.KneeLockout {
			a.closeRep(now, lowConfidence)
		}
	}

	counters := map[Warning]int{
		WarnOutOfFrame:   a.framingWarnFrames,
		WarnBackSevere:   a.backWarnFrames,
		WarnBackRounding: a.backWarnFrames,
		WarnKneeTravel:   a.kneeWarnFrames,
		WarnSquatDepth:   a.deeperWarnFrames,
		WarnSquatLockout: a.lockoutWarnFrames,
	}
	feedback, level := a.stab.Update(candidates, counters, goodForm, a.repFeedback, now)

	depthStatus := "High"
	if isDeep {
		depthStatus = "Good"
	}

	return &Result{
		PrimaryAngle:   int(math.Round(kneeAngle)),
		SecondaryAngle: int(math.Round(backAngle)),
		Phase:          a.phase,
		RepCount:       a.repCount,
		ValidReps:      a.validReps,
		InvalidReps:    a.invalidReps,
		Feedback:       feedback,
		FeedbackLevel:  level,
		GoodForm:       goodForm,
		DepthStatus:    depthStatus,
		TargetDepthY:   knee.Y, // parallel: hip crease level with the knee
		CurrentDepthY:  hip.Y,
		Trajectory:     a.traj.Points(),
		Side:           side,
	}
}

// recordIssues folds this frame's fired warnings into the per-rep issue
// set. The framing advisory is positioning guidance, not a form defect.
func (a *SquatAnalyzer) recordIssues(candidates []Warning) {
	for _, w := range candidates {
		if w == WarnOutOfFrame {
			continue
		}
		a.repIssues = addIssue(a.repIssues, w)
	}
}

// closeRep finalizes the repetition at lockout, subject to the minimum
// inter-rep interval and the side-visibility gate. The phase always
// returns to up; only the counting effects are gated.
func (a *SquatAnalyzer) closeRep(now time.Time, lowConfidence bool) {
	sinceLast := now.Sub(a.lastRepTime)
	if sinceLast >= a.cfg.MinRepInterval && !lowConfidence {
		a.repCount++
		a.lastRepTime = now

		issues := a.finalIssues()
		if len(issues) == 0 && a.repHadDepth {
			a.validReps++
			a.repFeedback = squatGoodRepMsg
		} else {
			a.invalidReps++
			switch {
			case !a.repHadDepth:
				a.repFeedback = squatDeeperMsg
			case len(issues) > 0:
				a.repFeedback = issues[0].Message()
			default:
				a.repFeedback = squatCheckFormMsg
			}
		}
	}

	a.phase = PhaseUp
	a.deepFrames = 0
}

// finalIssues returns the rep's defect set. The depth nudge was guidance,
// not a defect, when the rep ultimately achieved depth.
func (a *SquatAnalyzer) finalIssues() []Warning {
	if !a.repHadDepth {
		return a.repIssues
	}
	out := a.repIssues[:0:0]
	for _, w := range a.repIssues {
		if w == WarnSquatDepth {
			continue
		}
		out = append(out, w)
	}
	return out
}

// decay lowers a debounce counter without letting it go negative.
func decay(n, by int) int {
	n -= by
	if n < 0 {
		return 0
	}
	return n
}

// addIssue appends w if not already present.
func addIssue(issues []Warning, w Warning) []Warning {
	for _, have := range issues {
		if have == w {
			return issues
		}
	}
	return append(issues, w)
}
