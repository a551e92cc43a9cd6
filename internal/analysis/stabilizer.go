package analysis

import (
	"fmt"
	"time"
)

// Stabilizer turns a noisy per-frame warning classifier into a stable,
// non-flickering feedback channel. It locks onto the shown warning until
// its debounce counter decays to zero, picks new warnings by fixed
// priority, and promotes a new message only after it has been the desired
// message for several consecutive frames. Discrete rep-completion
// messages bypass the gate entirely.
type Stabilizer struct {
	rank               map[Warning]int
	repEvents          map[string]struct{}
	candidateThreshold int
	holdTime           time.Duration

	stable         string
	stableLevel    Level
	stableSince    time.Time
	candidate      string
	candidateCount int
	active         Warning
}

// NewStabilizer builds a Stabilizer. priority is the fixed warning order
// (first entry wins); emits is the full set of warnings the caller's
// checks can produce. Every emitted warning must appear in priority, so a
// missing table entry fails at construction instead of producing silent
// fallback behavior at runtime. repEvents are the messages that represent
// completed discrete events and are promoted immediately.
func NewStabilizer(priority, emits []Warning, repEvents []string, candidateThreshold int, holdTime time.Duration, initial string) (*Stabilizer, error) {
	if len(priority) == 0 {
		return nil, fmt.Errorf("analysis: empty warning priority list")
	}
	if candidateThreshold < 1 {
		return nil, fmt.Errorf("analysis: candidate threshold %d must be >= 1", candidateThreshold)
	}
	if holdTime <= 0 {
		return nil, fmt.Errorf("analysis: feedback hold time %v must be positive", holdTime)
	}

	rank := make(map[Warning]int, len(priority))
	for i, w := range priority {
		if _, dup := rank[w]; dup {
			return nil, fmt.Errorf("analysis: warning %q listed twice in priority", w.Message())
		}
		rank[w] = i
	}
	for _, w := range emits {
		if _, ok := rank[w]; !ok {
			return nil, fmt.Errorf("analysis: emitted warning %q missing from priority list", w.Message())
		}
	}

	events := make(map[string]struct{}, len(repEvents))
	for _, m := range repEvents {
		events[m] = struct{}{}
	}

	return &Stabilizer{
		rank:               rank,
		repEvents:          events,
		candidateThreshold: candidateThreshold,
		holdTime:           holdTime,
		stable:             initial,
		stableLevel:        LevelSuccess,
		active:             WarnNone,
	}, nil
}

// Reset restores the stabilizer to its initial state with the given
// default message.
func (st *Stabilizer) Reset(initial string) {
	st.stable = initial
	st.stableLevel = LevelSuccess
	st.stableSince = time.Time{}
	st.candidate = ""
	st.candidateCount = 0
	st.active = WarnNone
}

// Stable returns the current externally visible message and level.
func (st *Stabilizer) Stable() (string, Level) {
	return st.stable, st.stableLevel
}

// Update processes one frame's warning signals and returns the stable
// feedback. candidates is the frame's fired warnings in detection order;
// counters maps each warning to its current debounce counter; goodForm
// reports whether this frame's form is acceptable; defaultMsg is shown
// when no warning is active.
func (st *Stabilizer) Update(candidates []Warning, counters map[Warning]int, goodForm bool, defaultMsg string, now time.Time) (string, Level) {
	// Release the lock once the shown warning's counter has fully decayed.
	if st.active != WarnNone && counters[st.active] == 0 {
		st.active = WarnNone
	}

	chosen := WarnNone
	if len(candidates) > 0 {
		if st.active != WarnNone && containsWarning(candidates, st.active) {
			chosen = st.active
		} else {
			best := -1
			for _, c := range candidates {
				if r, ok := st.rank[c]; ok && (best == -1 || r < best) {
					best = r
					chosen = c
				}
			}
			if chosen == WarnNone {
				chosen = candidates[0]
			}
			st.active = chosen
		}
	}

	var desired string
	var level Level
	if chosen != WarnNone {
		desired = chosen.Message()
		level = LevelWarning
		if !goodForm {
			level = LevelError
		}
	} else {
		desired = defaultMsg
		level = LevelSuccess
		st.active = WarnNone
	}

	if desired == st.candidate {
		st.candidateCount++
	} else {
		st.candidate = desired
		st.candidateCount = 1
	}

	_, isRepEvent := st.repEvents[desired]
	heldLongEnough := now.Sub(st.stableSince) >= st.holdTime && st.candidateCount >= 2
	promote := isRepEvent || st.candidateCount >= st.candidateThreshold || heldLongEnough

	if promote && desired != st.stable {
		st.stable = desired
		st.stableLevel = level
		st.stableSince = now
	}

	return st.stable, st.stableLevel
}

func containsWarning(ws []Warning, w Warning) bool {
	for _, c := range ws {
		if c == w {
			return true
		}
	}
	return false
}
