// Package selene provides a high-level façade over the model router and
// chain executor, enabling rapid construction of note-processing workflows.
// Most applications interact with this package by:
//  1. Creating an Engine via New() with a backend registry and a capability
//  2. Running chain definitions (RunChain) or one-off tasks (Process)
//  3. Comparing backends side by side (Compare)
//
// The façade delegates routing to router.Router and orchestration to
// chain.Executor while keeping setup and usage ergonomics concise. All
// defaults are safe for local development and testing; production
// deployments typically supply a structured logger and a real observer.
package selene

import (
	"context"
	"time"

	"github.com/SlowSpeedChase/selene-sub000/aggregate"
	"github.com/SlowSpeedChase/selene-sub000/chain"
	"github.com/SlowSpeedChase/selene-sub000/core"
	"github.com/SlowSpeedChase/selene-sub000/logging"
	"github.com/SlowSpeedChase/selene-sub000/router"
)

// Options configures the Engine instance.
type Options struct {
	// Observer receives lifecycle events (defaults to NoOpObserver).
	Observer core.Observer

	// Logger provides structured logging (defaults to NoOpLogger).
	Logger logging.Logger

	// AttemptTimeout bounds each backend invocation attempt.
	AttemptTimeout time.Duration

	// RetryPolicy shapes delays between retry attempts.
	RetryPolicy chain.RetryPolicy

	// Aggregator assembles the chain-level final output.
	Aggregator aggregate.Strategy

	// GroupAggregator combines parallel-group outputs.
	GroupAggregator aggregate.Strategy

	// MaxParallel caps concurrently executing parallel-group members.
	MaxParallel int64
}

// WithObserver sets the lifecycle event sink.
func WithObserver(o core.Observer) func(*Options) {
	return func(opts *Options) { opts.Observer = o }
}

// WithLogger sets the structured logger.
func WithLogger(l logging.Logger) func(*Options) {
	return func(opts *Options) { opts.Logger = l }
}

// WithAttemptTimeout bounds each backend invocation attempt.
func WithAttemptTimeout(d time.Duration) func(*Options) {
	return func(opts *Options) { opts.AttemptTimeout = d }
}

// WithRetryPolicy sets the delay policy between retry attempts.
func WithRetryPolicy(p chain.RetryPolicy) func(*Options) {
	return func(opts *Options) { opts.RetryPolicy = p }
}

// WithAggregator sets the chain-level aggregation strategy.
func WithAggregator(s aggregate.Strategy) func(*Options) {
	return func(opts *Options) { opts.Aggregator = s }
}

// WithGroupAggregator sets the parallel-group aggregation strategy.
func WithGroupAggregator(s aggregate.Strategy) func(*Options) {
	return func(opts *Options) { opts.GroupAggregator = s }
}

// WithMaxParallel caps concurrently executing parallel-group members.
func WithMaxParallel(n int64) func(*Options) {
	return func(opts *Options) { opts.MaxParallel = n }
}

// Engine bundles a router and a chain executor over one backend registry
// and capability. It is safe for concurrent use.
type Engine struct {
	router   *router.Router
	executor *chain.Executor
}

// New constructs an Engine over the given backend registry and capability.
// Call Close when done to flush the observer dispatcher.
func New(registry []core.BackendConfig, capability core.Capability, optFns ...func(o *Options)) *Engine {
	opts := Options{
		Observer:        core.NoOpObserver{},
		Logger:          logging.NoOpLogger{},
		RetryPolicy:     chain.DefaultRetryPolicy,
		Aggregator:      aggregate.Concat{},
		GroupAggregator: aggregate.Concat{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	rtr := router.New(registry, capability,
		router.WithObserver(opts.Observer),
		router.WithLogger(opts.Logger),
		router.WithCompareTimeout(opts.AttemptTimeout),
	)

	exec := chain.NewExecutor(rtr, capability,
		chain.WithObserver(opts.Observer),
		chain.WithLogger(opts.Logger),
		chain.WithAttemptTimeout(opts.AttemptTimeout),
		chain.WithRetryPolicy(opts.RetryPolicy),
		chain.WithAggregator(opts.Aggregator),
		chain.WithGroupAggregator(opts.GroupAggregator),
		chain.WithMaxParallel(opts.MaxParallel),
	)

	return &Engine{router: rtr, executor: exec}
}

// Router exposes the underlying model router.
func (e *Engine) Router() *router.Router { return e.router }

// RunChain executes a chain definition. See chain.Executor.Execute for the
// result and error contract.
func (e *Engine) RunChain(ctx context.Context, c core.Chain) (*core.ChainResult, error) {
	return e.executor.Execute(ctx, c)
}

// Process runs a single task against the router's best backend by executing
// a one-step chain. It is a convenience for callers that do not need
// multi-step workflows.
func (e *Engine) Process(ctx context.Context, task, content string) (*core.ChainResult, error) {
	return e.executor.Execute(ctx, core.Chain{
		Seed:  content,
		Steps: []core.ChainStep{{ID: task, Task: task}},
	})
}

// Compare invokes the capability once per named backend concurrently and
// returns all results keyed by backend name, without short-circuiting.
func (e *Engine) Compare(ctx context.Context, task, content string, backends []string) map[string]core.StepResult {
	return e.router.Compare(ctx, task, content, backends)
}

// Close flushes queued observer events and stops the dispatcher.
func (e *Engine) Close() { e.executor.Close() }
