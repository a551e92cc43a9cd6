// Package geometry provides the pure 2D computations behind the exercise
// analyzers: joint angles, point-to-segment deviation, and the full-body
// framing gate.
package geometry

import (
	"fmt"
	"math"

	"github.com/claude/formcoach/internal/pose"
)

// DegenerateAngleError reports an angle computation whose vertex coincides
// with one of its endpoints. The reference trig identities are undefined on
// zero-length rays, so this is surfaced as a typed error instead of NaN.
type DegenerateAngleError struct {
	Vertex pose.Point
}

func (e *DegenerateAngleError) Error() string {
	return fmt.Sprintf("geometry: degenerate angle at vertex (%.1f, %.1f)", e.Vertex.X, e.Vertex.Y)
}

// Angle returns the angle in degrees at vertex b between rays b→a and b→c,
// reflected into [0, 180].
func Angle(a, b, c pose.Point) (float64, error) {
	if a == b || b == c {
		return 0, &DegenerateAngleError{Vertex: b}
	}
	rad := math.Atan2(c.Y-b.Y, c.X-b.X) - math.Atan2(a.Y-b.Y, a.X-b.X)
	deg := math.Abs(rad * 180.0 / math.Pi)
	if deg > 180 {
		deg = 360 - deg
	}
	return deg, nil
}

// Deviation describes where a point falls relative to a line segment.
type Deviation struct {
	// T is the projection parameter clamped to [0, 1]: 0 at the segment
	// start, 1 at the end.
	T float64
	// Foot is the clamped projection of the point onto the segment.
	Foot pose.Point
	// Normalized is the perpendicular distance from the point to Foot
	// divided by the segment length, making the measure resolution- and
	// orientation-independent.
	Normalized float64
	// SegmentLength is the distance from start to end, floored at 1 to
	// avoid division blowups on collapsed segments.
	SegmentLength float64
}

// LineDeviation projects p onto the segment [start, end] and measures the
// perpendicular deviation. Used for knee-over-toe and hip-pike detection.
func LineDeviation(p, start, end pose.Point) Deviation {
	dx := end.X - start.X
	dy := end.Y - start.Y
	length := math.Max(math.Hypot(dx, dy), 1)

	t := ((p.X-start.X)*dx + (p.Y-start.Y)*dy) / (length * length)
	t = math.Max(0, math.Min(1, t))

	foot := pose.Point{X: start.X + t*dx, Y: start.Y + t*dy}
	dist := math.Hypot(p.X-foot.X, p.Y-foot.Y)

	return Deviation{
		T:             t,
		Foot:          foot,
		Normalized:    dist / length,
		SegmentLength: length,
	}
}

// ExerciseKind selects the plausibility checks FullBodyInFrame applies.
type ExerciseKind int

const (
	// Standing covers upright exercises (squats): the body must span a
	// meaningful vertical range with the head above the ankles.
	Standing ExerciseKind = iota
	// Prone covers horizontal exercises (push-ups): no vertical-span
	// requirement beyond the shared bounding-box check.
	Prone
)

// keyLandmarks are the joints that must stay inside the frame: head,
// shoulders, hips, knees, ankles.
var keyLandmarks = []int{
	pose.Nose,
	pose.LeftShoulder, pose.RightShoulder,
	pose.LeftHip, pose.RightHip,
	pose.LeftKnee, pose.RightKnee,
	pose.LeftAnkle, pose.RightAnkle,
}

// minSpanFraction is the minimum bounding-box span of the key landmarks as
// a fraction of the smaller frame dimension. Rejects a single joint
// filling the frame while staying permissive about everything else.
const minSpanFraction = 0.15

// FullBodyInFrame reports whether the key joints all lie inside the frame
// margins and form a plausible body for the given exercise kind. The
// result feeds advisory framing feedback only; rep counting never depends
// on it.
func FullBodyInFrame(f pose.Frame, width, height, margin float64, kind ExerciseKind) bool {
	if !f.Complete() || width <= 0 || height <= 0 {
		return false
	}

	xMin, xMax := margin*width, (1-margin)*width
	yMin, yMax := margin*height, (1-margin)*height

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, idx := range keyLandmarks {
		p := f.Point(idx)
		if p.X < xMin || p.X > xMax || p.Y < yMin || p.Y > yMax {
			return false
		}
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}

	minSpan := minSpanFraction * math.Min(width, height)
	if maxX-minX < minSpan && maxY-minY < minSpan {
		return false
	}

	if kind == Standing {
		headY := f.Point(pose.Nose).Y
		ankleY := math.Max(f.Point(pose.LeftAnkle).Y, f.Point(pose.RightAnkle).Y)
		if ankleY-headY < minSpanFraction*height {
			return false
		}
		// A head in the bottom third with ankles outside the top third is
		// not a standing body.
		if headY > height*2/3 && ankleY > height/3 {
			return false
		}
	}

	return true
}
