// Package session owns the mapping from live coaching sessions to analyzer
// instances. Each session holds exactly one analyzer and serializes all
// frame advances through its own mutex, preserving the engine's strict
// frame ordering; no analyzer state is ever shared between sessions.
package session

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/claude/formcoach/internal/analysis"
	"github.com/claude/formcoach/internal/pose"
	"github.com/google/uuid"
)

// Manager creates, looks up, and removes sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	registry *analysis.Registry
	log      *slog.Logger
	now      func() time.Time
}

// NewManager creates a Manager backed by the given analyzer registry.
func NewManager(registry *analysis.Registry, log *slog.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		registry: registry,
		log:      log,
		now:      time.Now,
	}
}

// Create starts a new session for the named exercise. Unknown exercise
// names fall back to the registry default.
func (m *Manager) Create(exercise string) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		Exercise:  exercise,
		StartedAt: m.now(),
		analyzer:  m.registry.New(exercise),
		now:       m.now,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.log.Info("session created", "id", s.ID, "exercise", exercise)
	return s
}

// Get returns the session with the given ID.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Delete removes a session. Removing an unknown ID is a no-op.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		m.log.Info("session deleted", "id", id)
	}
}

// List returns snapshots of all sessions, oldest first.
func (m *Manager) List() []Snapshot {
	m.mu.RLock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].StartedAt.Before(all[j].StartedAt) })

	out := make([]Snapshot, len(all))
	for i, s := range all {
		out[i] = s.Snapshot()
	}
	return out
}

// Exercises returns the registered exercise names.
func (m *Manager) Exercises() []string {
	return m.registry.Names()
}

// Session is one subject's live coaching session.
type Session struct {
	ID        string
	Exercise  string
	StartedAt time.Time

	mu       sync.Mutex
	analyzer analysis.Analyzer
	last     *analysis.Result
	repTimes []time.Time
	now      func() time.Time
}

// Advance feeds one landmark frame to the session's analyzer. Returns nil
// when the frame carried no usable body.
func (s *Session) Advance(frame pose.Frame, vp analysis.Viewport) *analysis.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevReps := 0
	if s.last != nil {
		prevReps = s.last.RepCount
	}

	res := s.analyzer.Advance(frame, vp)
	if res == nil {
		return nil
	}

	if res.RepCount > prevReps {
		s.repTimes = append(s.repTimes, s.now())
	}
	s.last = res
	return res
}

// Reset clears the analyzer and the session's rep timing log.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyzer.Reset()
	s.last = nil
	s.repTimes = nil
}

// Snapshot is the externally visible session state.
type Snapshot struct {
	ID        string           `json:"id"`
	Exercise  string           `json:"exercise"`
	StartedAt time.Time        `json:"started_at"`
	Last      *analysis.Result `json:"last,omitempty"`
}

// Snapshot returns the session's current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:        s.ID,
		Exercise:  s.Exercise,
		StartedAt: s.StartedAt,
		Last:      s.last,
	}
}
