package core

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// recordingObserver captures every event for assertions. Safe for concurrent
// use because the async dispatcher delivers from its own goroutine.
type recordingObserver struct {
	mu     sync.Mutex
	routes []string
	events []string
	gate   chan struct{} // when non-nil, every delivery blocks until released
}

func (r *recordingObserver) wait() {
	if r.gate != nil {
		<-r.gate
	}
}

func (r *recordingObserver) record(ev string) {
	r.wait()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingObserver) OnRouteResolved(task, backend, reason string) {
	r.record("route:" + task + "/" + backend + "/" + reason)
}

func (r *recordingObserver) OnStepStarted(chainID, stepID string) {
	r.record("started:" + stepID)
}

func (r *recordingObserver) OnStepRetried(chainID, stepID string, attempt int) {
	r.record("retried:" + stepID)
}

func (r *recordingObserver) OnStepTerminal(chainID string, result StepResult) {
	r.record("terminal:" + result.StepID + "/" + string(result.Status))
}

func (r *recordingObserver) OnChainTerminal(result ChainResult) {
	r.record("chain:" + string(result.OverallStatus))
}

func (r *recordingObserver) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

func TestAsyncObserver_DeliversInOrder(t *testing.T) {
	sink := &recordingObserver{}
	a := NewAsyncObserver(sink, 16)

	a.OnRouteResolved("summarize", "local", "priority")
	a.OnStepStarted("chain-1", "a")
	a.OnStepRetried("chain-1", "a", 2)
	a.OnStepTerminal("chain-1", StepResult{StepID: "a", Status: StepSucceeded})
	a.OnChainTerminal(ChainResult{OverallStatus: ChainSucceeded})
	a.Close()

	assert.Equal(t, []string{
		"route:summarize/local/priority",
		"started:a",
		"retried:a",
		"terminal:a/succeeded",
		"chain:succeeded",
	}, sink.recorded())
}

func TestAsyncObserver_DropsWhenFull(t *testing.T) {
	gate := make(chan struct{})
	sink := &recordingObserver{gate: gate}
	a := NewAsyncObserver(sink, 1)

	// First event occupies the drain goroutine, blocked on the gate.
	a.OnStepStarted("chain-1", "a")
	waitForDrainBlocked(t, a)

	// Second fills the buffer; the rest must be dropped, never blocking us.
	a.OnStepStarted("chain-1", "b")
	done := make(chan struct{})
	go func() {
		a.OnStepStarted("chain-1", "c")
		a.OnStepStarted("chain-1", "d")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("enqueue blocked on a full buffer")
	}

	close(gate)
	a.Close()

	assert.Equal(t, []string{"started:a", "started:b"}, sink.recorded())
}

func TestAsyncObserver_DropsAfterClose(t *testing.T) {
	sink := &recordingObserver{}
	a := NewAsyncObserver(sink, 4)
	a.Close()

	// Must not panic, must not deliver.
	a.OnStepStarted("chain-1", "late")
	assert.Empty(t, sink.recorded())
}

func TestAsyncObserver_DefaultBuffer(t *testing.T) {
	sink := &recordingObserver{}
	a := NewAsyncObserver(sink, 0)
	a.OnStepStarted("chain-1", "a")
	a.Close()
	assert.Equal(t, []string{"started:a"}, sink.recorded())
}

// waitForDrainBlocked waits until the dispatcher has picked the pending event
// off the queue, leaving the buffer empty.
func waitForDrainBlocked(t *testing.T, a *AsyncObserver) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for len(a.events) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("dispatcher never picked up the event")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestNoOpObserver_ImplementsObserver(t *testing.T) {
	var o Observer = NoOpObserver{}
	o.OnRouteResolved("t", "b", "priority")
	o.OnStepStarted("c", "s")
	o.OnStepRetried("c", "s", 2)
	o.OnStepTerminal("c", StepResult{})
	o.OnChainTerminal(ChainResult{})
}
