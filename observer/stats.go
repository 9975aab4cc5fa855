package observer

import (
	"sync"
	"time"

	"github.com/SlowSpeedChase/selene-sub000/core"
)

// StepStats aggregates outcomes for one step ID across chain runs.
type StepStats struct {
	Started       int
	Retries       int
	Succeeded     int
	Failed        int
	Skipped       int
	TotalAttempts int
	TotalDuration time.Duration
}

// ChainStats aggregates chain-level outcomes.
type ChainStats struct {
	Completed     int
	Succeeded     int
	Partial       int
	Failed        int
	TotalDuration time.Duration
}

// Snapshot is a point-in-time copy of collected statistics.
type Snapshot struct {
	Steps  map[string]StepStats
	Chains ChainStats
	Routes map[string]int // "task/backend/reason" -> count
}

// Stats collects in-memory execution statistics. It is safe for concurrent
// use and intended for analytics consumers that poll Snapshot.
type Stats struct {
	mu     sync.Mutex
	steps  map[string]StepStats
	chains ChainStats
	routes map[string]int
}

var _ core.Observer = (*Stats)(nil)

// NewStats constructs an empty collector.
func NewStats() *Stats {
	return &Stats{
		steps:  make(map[string]StepStats),
		routes: make(map[string]int),
	}
}

// OnRouteResolved implements core.Observer.
func (s *Stats) OnRouteResolved(task, backend, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[task+"/"+backend+"/"+reason]++
}

// OnStepStarted implements core.Observer.
func (s *Stats) OnStepStarted(_, stepID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.steps[stepID]
	st.Started++
	s.steps[stepID] = st
}

// OnStepRetried implements core.Observer.
func (s *Stats) OnStepRetried(_, stepID string, _ int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.steps[stepID]
	st.Retries++
	s.steps[stepID] = st
}

// OnStepTerminal implements core.Observer.
func (s *Stats) OnStepTerminal(_ string, result core.StepResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.steps[result.StepID]
	switch result.Status {
	case core.StepSucceeded:
		st.Succeeded++
	case core.StepFailed:
		st.Failed++
	case core.StepSkipped:
		st.Skipped++
	}
	st.TotalAttempts += result.AttemptsUsed
	st.TotalDuration += result.Duration
	s.steps[result.StepID] = st
}

// OnChainTerminal implements core.Observer.
func (s *Stats) OnChainTerminal(result core.ChainResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chains.Completed++
	switch result.OverallStatus {
	case core.ChainSucceeded:
		s.chains.Succeeded++
	case core.ChainPartial:
		s.chains.Partial++
	case core.ChainFailed:
		s.chains.Failed++
	}
	s.chains.TotalDuration += result.Duration
}

// Snapshot returns a copy of all collected statistics.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Steps:  make(map[string]StepStats, len(s.steps)),
		Chains: s.chains,
		Routes: make(map[string]int, len(s.routes)),
	}
	for k, v := range s.steps {
		snap.Steps[k] = v
	}
	for k, v := range s.routes {
		snap.Routes[k] = v
	}
	return snap
}
