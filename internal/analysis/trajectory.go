package analysis

import "github.com/claude/formcoach/internal/pose"

// Trajectory is a fixed-capacity ring buffer of recent joint positions,
// used for on-screen movement-path drawing. The oldest position is evicted
// once capacity is reached; the buffer never reallocates.
type Trajectory struct {
	buf  []pose.Point
	head int
	size int
}

// NewTrajectory creates a ring buffer holding up to capacity points.
func NewTrajectory(capacity int) *Trajectory {
	if capacity < 1 {
		capacity = 1
	}
	return &Trajectory{buf: make([]pose.Point, capacity)}
}

// Push appends a position, evicting the oldest when full.
func (t *Trajectory) Push(p pose.Point) {
	t.buf[t.head] = p
	t.head = (t.head + 1) % len(t.buf)
	if t.size < len(t.buf) {
		t.size++
	}
}

// Len returns the number of stored positions.
func (t *Trajectory) Len() int {
	return t.size
}

// Points returns the stored positions oldest first, as a fresh slice.
func (t *Trajectory) Points() []pose.Point {
	out := make([]pose.Point, t.size)
	start := (t.head - t.size + len(t.buf)) % len(t.buf)
	for i := 0; i < t.size; i++ {
		out[i] = t.buf[(start+i)%len(t.buf)]
	}
	return out
}

// Reset discards all stored positions.
func (t *Trajectory) Reset() {
	t.head = 0
	t.size = 0
}
