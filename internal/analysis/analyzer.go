// Package analysis implements the per-exercise rep state machines: phase
// detection with hysteresis, per-frame form checks with debounce,
// per-repetition issue aggregation, and stabilized coaching feedback.
//
// Analyzer instances are strictly sequential and not safe for concurrent
// use; give each subject its own instance and feed frames in capture
// order.
package analysis

import (
	"sort"
	"strings"

	"github.com/claude/formcoach/internal/pose"
)

// Phase is the current stage of the repetition cycle.
type Phase string

const (
	PhaseUp         Phase = "up"
	PhaseDescending Phase = "descending"
	PhaseBottom     Phase = "bottom"
	PhaseAscending  Phase = "ascending"
)

// Viewport is the capture frame size. It feeds advisory framing feedback
// only; a zero Viewport disables the framing check.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid reports whether the viewport carries usable dimensions.
func (v Viewport) Valid() bool {
	return v.Width > 0 && v.Height > 0
}

// Result is the structured outcome of advancing an analyzer by one frame.
type Result struct {
	PrimaryAngle   int          `json:"primary_angle"`
	SecondaryAngle int          `json:"secondary_angle"`
	Phase          Phase        `json:"phase"`
	RepCount       int          `json:"rep_count"`
	ValidReps      int          `json:"valid_reps"`
	InvalidReps    int          `json:"invalid_reps"`
	Feedback       string       `json:"feedback"`
	FeedbackLevel  Level        `json:"feedback_level"`
	GoodForm       bool         `json:"good_form"`
	DepthStatus    string       `json:"depth_status"`
	TargetDepthY   float64      `json:"target_depth_y"`
	CurrentDepthY  float64      `json:"current_depth_y"`
	Trajectory     []pose.Point `json:"trajectory"`
	Side           Side         `json:"side"`
}

// Analyzer is the per-exercise frame-by-frame engine. Advance consumes one
// landmark frame and returns the analysis result, or nil when the frame
// carries no usable body (no analyzer state is mutated in that case).
// Reset restores counters, phase, and all smoothing/debounce state without
// touching configuration.
type Analyzer interface {
	Advance(frame pose.Frame, vp Viewport) *Result
	Reset()
}

// Registry maps exercise names to analyzer constructors. It is built
// explicitly at startup and passed by reference to whatever creates
// sessions; there is no package-level registration.
type Registry struct {
	byName   map[string]func() Analyzer
	fallback func() Analyzer
}

// NewRegistry returns a registry with the built-in exercises registered.
// Unrecognized names fall back to the squat analyzer.
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]func() Analyzer)}
	r.Register("squat", func() Analyzer { return NewSquatAnalyzer() })
	r.Register("pushup", func() Analyzer { return NewPushupAnalyzer() })
	r.fallback = r.byName["squat"]
	return r
}

// Register adds or replaces a named constructor.
func (r *Registry) Register(name string, ctor func() Analyzer) {
	r.byName[normalizeName(name)] = ctor
}

// New constructs a fresh analyzer for the named exercise, falling back to
// the default exercise for unknown names.
func (r *Registry) New(name string) Analyzer {
	if ctor, ok := r.byName[normalizeName(name)]; ok {
		return ctor()
	}
	return r.fallback()
}

// Known reports whether the name maps to a registered exercise.
func (r *Registry) Known(name string) bool {
	_, ok := r.byName[normalizeName(name)]
	return ok
}

// Names returns the registered exercise names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
