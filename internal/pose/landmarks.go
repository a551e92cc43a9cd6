// Package pose defines the 2D body-landmark data model consumed by the
// exercise analyzers. Landmark indices follow the MediaPipe Pose topology
// (33 points per detection).
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
package pose

// Body landmark indices used by the analyzers. Fingers and toes are
// deliberately absent; they leave the frame too easily to be useful.
const (
	Nose          = 0
	LeftShoulder  = 11
	RightShoulder = 12
	LeftElbow     = 13
	RightElbow    = 14
	LeftWrist     = 15
	RightWrist    = 16
	LeftHip       = 23
	RightHip      = 24
	LeftKnee      = 25
	RightKnee     = 26
	LeftAnkle     = 27
	RightAnkle    = 28

	// NumLandmarks is the full MediaPipe Pose landmark count. A frame with
	// fewer landmarks carries no usable body and is skipped by analyzers.
	NumLandmarks = 33
)

// Point is a 2D position in capture-frame coordinates (pixels, y grows
// downward) or normalized coordinates; the analyzers are unit-agnostic.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Landmark is one detected joint with its estimator confidence.
type Landmark struct {
	ID         int     `json:"id"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Visibility float64 `json:"visibility"`
}

// Frame is the ordered landmark list for one captured frame.
type Frame []Landmark

// Complete reports whether the frame carries the full landmark topology.
func (f Frame) Complete() bool {
	return len(f) >= NumLandmarks
}

// Point returns the 2D position of landmark i.
func (f Frame) Point(i int) Point {
	return Point{X: f[i].X, Y: f[i].Y}
}

// MeanVisibility averages the visibility scores of the given landmark
// indices. Returns 0 for an empty index list.
func (f Frame) MeanVisibility(indices ...int) float64 {
	if len(indices) == 0 {
		return 0
	}
	var sum float64
	for _, i := range indices {
		sum += f[i].Visibility
	}
	return sum / float64(len(indices))
}
