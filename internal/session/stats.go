package session

import (
	"time"

	"gonum.org/v1/gonum/stat"
)

// Summary aggregates a session for downstream advisors: counts, validity
// rate, and rep-tempo consistency (mean and spread of inter-rep
// intervals, in seconds).
type Summary struct {
	SessionID   string    `json:"session_id"`
	Exercise    string    `json:"exercise"`
	StartedAt   time.Time `json:"started_at"`
	DurationSec float64   `json:"duration_sec"`

	RepCount    int     `json:"rep_count"`
	ValidReps   int     `json:"valid_reps"`
	InvalidReps int     `json:"invalid_reps"`
	ValidRate   float64 `json:"valid_rate"`

	MeanRepIntervalSec float64 `json:"mean_rep_interval_sec"`
	RepIntervalStdSec  float64 `json:"rep_interval_std_sec"`

	LastFeedback string `json:"last_feedback,omitempty"`
}

// Summary computes the session's aggregate statistics.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := Summary{
		SessionID:   s.ID,
		Exercise:    s.Exercise,
		StartedAt:   s.StartedAt,
		DurationSec: s.now().Sub(s.StartedAt).Seconds(),
	}

	if s.last != nil {
		sum.RepCount = s.last.RepCount
		sum.ValidReps = s.last.ValidReps
		sum.InvalidReps = s.last.InvalidReps
		sum.LastFeedback = s.last.Feedback
		if sum.RepCount > 0 {
			sum.ValidRate = float64(sum.ValidReps) / float64(sum.RepCount)
		}
	}

	if len(s.repTimes) >= 2 {
		intervals := make([]float64, 0, len(s.repTimes)-1)
		for i := 1; i < len(s.repTimes); i++ {
			intervals = append(intervals, s.repTimes[i].Sub(s.repTimes[i-1]).Seconds())
		}
		sum.MeanRepIntervalSec = stat.Mean(intervals, nil)
		if len(intervals) >= 2 {
			sum.RepIntervalStdSec = stat.StdDev(intervals, nil)
		}
	}

	return sum
}
