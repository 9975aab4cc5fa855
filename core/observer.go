package core

// Observer receives lifecycle events from the router and chain executor.
// Implementations are consumed by monitoring and analytics collaborators;
// the engine never depends on their behavior.
//
// Hooks are fire-and-forget: the engine delivers them through an async
// dispatcher (see AsyncObserver) so a slow observer can never block chain
// progress. Implementations therefore do not need to be fast, but they must
// be safe for concurrent use.
type Observer interface {
	// OnRouteResolved records a routing decision: the backend chosen for a
	// task and the reason ("priority", "pinned", or "fallback-from:<name>").
	OnRouteResolved(task, backend, reason string)

	// OnStepStarted fires when a step begins executing.
	OnStepStarted(chainID, stepID string)

	// OnStepRetried fires before each retry attempt. attempt is the number
	// of the attempt about to run (2 for the first retry).
	OnStepRetried(chainID, stepID string, attempt int)

	// OnStepTerminal fires when a step reaches a terminal state.
	OnStepTerminal(chainID string, result StepResult)

	// OnChainTerminal fires once when the chain completes.
	OnChainTerminal(result ChainResult)
}

// NoOpObserver discards all events. It is the default when no observer is
// configured.
type NoOpObserver struct{}

// OnRouteResolved implements Observer.
func (NoOpObserver) OnRouteResolved(string, string, string) {}

// OnStepStarted implements Observer.
func (NoOpObserver) OnStepStarted(string, string) {}

// OnStepRetried implements Observer.
func (NoOpObserver) OnStepRetried(string, string, int) {}

// OnStepTerminal implements Observer.
func (NoOpObserver) OnStepTerminal(string, StepResult) {}

// OnChainTerminal implements Observer.
func (NoOpObserver) OnChainTerminal(ChainResult) {}

// observerEvent is the internal envelope queued by AsyncObserver.
type observerEvent struct {
	kind        string
	task        string
	backend     string
	reason      string
	chainID     string
	stepID      string
	attempt     int
	stepResult  StepResult
	chainResult ChainResult
}

// AsyncObserver decouples event delivery from the execution path. Events are
// queued on a buffered channel and drained by a single goroutine; when the
// buffer is full the event is dropped rather than blocking the caller.
//
// Close stops the drain goroutine after the queue empties. Events sent after
// Close are dropped.
type AsyncObserver struct {
	sink   Observer
	events chan observerEvent
	done   chan struct{}
}

// NewAsyncObserver wraps sink with a non-blocking dispatcher. bufferSize
// bounds the queue; values <= 0 default to 128.
func NewAsyncObserver(sink Observer, bufferSize int) *AsyncObserver {
	if bufferSize <= 0 {
		bufferSize = 128
	}
	a := &AsyncObserver{
		sink:   sink,
		events: make(chan observerEvent, bufferSize),
		done:   make(chan struct{}),
	}
	go a.drain()
	return a
}

func (a *AsyncObserver) drain() {
	defer close(a.done)
	for ev := range a.events {
		switch ev.kind {
		case "route":
			a.sink.OnRouteResolved(ev.task, ev.backend, ev.reason)
		case "step_started":
			a.sink.OnStepStarted(ev.chainID, ev.stepID)
		case "step_retried":
			a.sink.OnStepRetried(ev.chainID, ev.stepID, ev.attempt)
		case "step_terminal":
			a.sink.OnStepTerminal(ev.chainID, ev.stepResult)
		case "chain_terminal":
			a.sink.OnChainTerminal(ev.chainResult)
		}
	}
}

// enqueue performs a non-blocking send, dropping the event when full or closed.
func (a *AsyncObserver) enqueue(ev observerEvent) {
	defer func() {
		// Sends after Close are dropped.
		_ = recover()
	}()
	select {
	case a.events <- ev:
	default:
	}
}

// OnRouteResolved implements Observer.
func (a *AsyncObserver) OnRouteResolved(task, backend, reason string) {
	a.enqueue(observerEvent{kind: "route", task: task, backend: backend, reason: reason})
}

// OnStepStarted implements Observer.
func (a *AsyncObserver) OnStepStarted(chainID, stepID string) {
	a.enqueue(observerEvent{kind: "step_started", chainID: chainID, stepID: stepID})
}

// OnStepRetried implements Observer.
func (a *AsyncObserver) OnStepRetried(chainID, stepID string, attempt int) {
	a.enqueue(observerEvent{kind: "step_retried", chainID: chainID, stepID: stepID, attempt: attempt})
}

// OnStepTerminal implements Observer.
func (a *AsyncObserver) OnStepTerminal(chainID string, result StepResult) {
	a.enqueue(observerEvent{kind: "step_terminal", chainID: chainID, stepResult: result})
}

// OnChainTerminal implements Observer.
func (a *AsyncObserver) OnChainTerminal(result ChainResult) {
	a.enqueue(observerEvent{kind: "chain_terminal", chainResult: result})
}

// Close stops the dispatcher once queued events are delivered.
func (a *AsyncObserver) Close() {
	close(a.events)
	<-a.done
}
