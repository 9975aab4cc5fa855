package observer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SlowSpeedChase/selene-sub000/core"
)

func TestStats_CollectsStepOutcomes(t *testing.T) {
	s := NewStats()

	s.OnStepStarted("c1", "sum")
	s.OnStepRetried("c1", "sum", 2)
	s.OnStepTerminal("c1", core.StepResult{StepID: "sum", Status: core.StepSucceeded, AttemptsUsed: 2, Duration: 10 * time.Millisecond})

	s.OnStepStarted("c2", "sum")
	s.OnStepTerminal("c2", core.StepResult{StepID: "sum", Status: core.StepFailed, AttemptsUsed: 3, Duration: 5 * time.Millisecond})

	s.OnStepStarted("c2", "ext")
	s.OnStepTerminal("c2", core.StepResult{StepID: "ext", Status: core.StepSkipped})

	snap := s.Snapshot()

	sum := snap.Steps["sum"]
	assert.Equal(t, 2, sum.Started)
	assert.Equal(t, 1, sum.Retries)
	assert.Equal(t, 1, sum.Succeeded)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 5, sum.TotalAttempts)
	assert.Equal(t, 15*time.Millisecond, sum.TotalDuration)

	ext := snap.Steps["ext"]
	assert.Equal(t, 1, ext.Skipped)
}

func TestStats_CollectsChainOutcomes(t *testing.T) {
	s := NewStats()

	s.OnChainTerminal(core.ChainResult{OverallStatus: core.ChainSucceeded, Duration: time.Second})
	s.OnChainTerminal(core.ChainResult{OverallStatus: core.ChainPartial})
	s.OnChainTerminal(core.ChainResult{OverallStatus: core.ChainFailed})

	snap := s.Snapshot()
	assert.Equal(t, 3, snap.Chains.Completed)
	assert.Equal(t, 1, snap.Chains.Succeeded)
	assert.Equal(t, 1, snap.Chains.Partial)
	assert.Equal(t, 1, snap.Chains.Failed)
	assert.Equal(t, time.Second, snap.Chains.TotalDuration)
}

func TestStats_CollectsRouteDecisions(t *testing.T) {
	s := NewStats()

	s.OnRouteResolved("summarize", "local", "priority")
	s.OnRouteResolved("summarize", "local", "priority")
	s.OnRouteResolved("summarize", "remote", "fallback-from:local")

	snap := s.Snapshot()
	assert.Equal(t, 2, snap.Routes["summarize/local/priority"])
	assert.Equal(t, 1, snap.Routes["summarize/remote/fallback-from:local"])
}

func TestStats_SnapshotIsACopy(t *testing.T) {
	s := NewStats()
	s.OnStepStarted("c1", "sum")

	snap := s.Snapshot()
	snap.Steps["sum"] = StepStats{Started: 99}
	snap.Routes["tampered"] = 1

	fresh := s.Snapshot()
	assert.Equal(t, 1, fresh.Steps["sum"].Started)
	assert.NotContains(t, fresh.Routes, "tampered")
}

func TestStats_ConcurrentUse(t *testing.T) {
	s := NewStats()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.OnStepStarted("c", "sum")
				s.OnStepTerminal("c", core.StepResult{StepID: "sum", Status: core.StepSucceeded, AttemptsUsed: 1})
			}
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	assert.Equal(t, 800, snap.Steps["sum"].Started)
	assert.Equal(t, 800, snap.Steps["sum"].Succeeded)
}

// countingObserver counts deliveries per hook for Multi fan-out assertions.
type countingObserver struct {
	routes, started, retried, terminal, chains int
}

func (c *countingObserver) OnRouteResolved(string, string, string) { c.routes++ }
func (c *countingObserver) OnStepStarted(string, string)           { c.started++ }
func (c *countingObserver) OnStepRetried(string, string, int)      { c.retried++ }
func (c *countingObserver) OnStepTerminal(string, core.StepResult) { c.terminal++ }
func (c *countingObserver) OnChainTerminal(core.ChainResult)       { c.chains++ }

func TestMulti_FansOutToAll(t *testing.T) {
	a, b := &countingObserver{}, &countingObserver{}
	m := Multi{a, b}

	m.OnRouteResolved("t", "backend", "priority")
	m.OnStepStarted("c", "s")
	m.OnStepRetried("c", "s", 2)
	m.OnStepTerminal("c", core.StepResult{})
	m.OnChainTerminal(core.ChainResult{})

	for _, o := range []*countingObserver{a, b} {
		require.Equal(t, 1, o.routes)
		require.Equal(t, 1, o.started)
		require.Equal(t, 1, o.retried)
		require.Equal(t, 1, o.terminal)
		require.Equal(t, 1, o.chains)
	}
}
