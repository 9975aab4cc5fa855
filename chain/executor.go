package chain

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/SlowSpeedChase/selene-sub000/aggregate"
	"github.com/SlowSpeedChase/selene-sub000/core"
	"github.com/SlowSpeedChase/selene-sub000/internal/transform"
	"github.com/SlowSpeedChase/selene-sub000/logging"
	"github.com/SlowSpeedChase/selene-sub000/router"
)

// Options configures an Executor instance.
type Options struct {
	// Observer receives lifecycle events. It is wrapped in an async
	// dispatcher so a slow observer never blocks execution. Defaults to
	// NoOpObserver.
	Observer core.Observer

	// ObserverBuffer sets the async dispatcher's queue size; events beyond
	// it are dropped. Defaults to 128.
	ObserverBuffer int

	// Logger provides structured logging. Defaults to NoOpLogger.
	Logger logging.Logger

	// AttemptTimeout bounds each backend invocation attempt.
	AttemptTimeout time.Duration

	// RetryPolicy shapes delays between retry attempts.
	RetryPolicy RetryPolicy

	// Aggregator assembles the chain's final output from all attempted
	// step results. Defaults to aggregate.Concat.
	Aggregator aggregate.Strategy

	// GroupAggregator combines a parallel group's outputs into the default
	// content handed to the step that follows the barrier. Defaults to
	// aggregate.Concat.
	GroupAggregator aggregate.Strategy

	// MaxParallel caps concurrently executing parallel-group members.
	// Zero means no cap.
	MaxParallel int64
}

// WithObserver sets the lifecycle event sink.
func WithObserver(o core.Observer) func(*Options) {
	return func(opts *Options) { opts.Observer = o }
}

// WithObserverBuffer sets the async observer dispatcher's queue size.
func WithObserverBuffer(n int) func(*Options) {
	return func(opts *Options) { opts.ObserverBuffer = n }
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
func WithRetryPolicy(p RetryPolicy) func(*Options) {
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

// Executor orchestrates chain execution. It walks the declared steps in
// order, dispatches contiguous parallel groups concurrently with a join
// barrier, gates conditional steps, and assembles the final result.
//
// An Executor is safe for concurrent use; it holds no per-chain state.
type Executor struct {
	steps      *StepExecutor
	observer   *core.AsyncObserver
	logger     logging.Logger
	aggregator aggregate.Strategy
	groupAgg   aggregate.Strategy
	sem        *semaphore.Weighted
}

// NewExecutor constructs an Executor over the given router and capability.
// Call Close when done to flush and stop the async observer dispatcher.
func NewExecutor(rtr *router.Router, capability core.Capability, optFns ...func(o *Options)) *Executor {
	opts := Options{
		Observer:        core.NoOpObserver{},
		Logger:          logging.NoOpLogger{},
		RetryPolicy:     DefaultRetryPolicy,
		Aggregator:      aggregate.Concat{},
		GroupAggregator: aggregate.Concat{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	async := core.NewAsyncObserver(opts.Observer, opts.ObserverBuffer)

	e := &Executor{
		steps: NewStepExecutor(rtr, capability, func(o *StepExecutorOptions) {
			o.Observer = async
			o.Logger = opts.Logger
			o.AttemptTimeout = opts.AttemptTimeout
			o.RetryPolicy = opts.RetryPolicy
		}),
		observer:   async,
		logger:     opts.Logger,
		aggregator: opts.Aggregator,
		groupAgg:   opts.GroupAggregator,
	}
	if opts.MaxParallel > 0 {
		e.sem = semaphore.NewWeighted(opts.MaxParallel)
	}
	return e
}

// Close flushes queued observer events and stops the dispatcher.
func (e *Executor) Close() { e.observer.Close() }

// run tracks the mutable state of one chain execution.
type run struct {
	chainID string
	seed    string
	results []core.StepResult
	byID    map[string]core.StepResult
	outputs map[string]string
	content string // default input for the next step

	// aggFailed marks a group aggregation failure, which is fatal to the
	// chain regardless of member outcomes.
	aggFailed bool
}

// Execute runs the chain to completion and returns its result. The error is
// non-nil only when the chain definition itself is invalid; once execution
// begins, failures are communicated exclusively through the ChainResult's
// overall status and per-step results.
//
// Cancelling ctx aborts pending retries and backoff delays; step results
// already terminal at that point are preserved in the returned ChainResult.
func (e *Executor) Execute(ctx context.Context, c core.Chain) (*core.ChainResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	r := &run{
		chainID: c.ID,
		seed:    c.Seed,
		byID:    make(map[string]core.StepResult, len(c.Steps)),
		outputs: make(map[string]string, len(c.Steps)),
		content: c.Seed,
	}
	if r.chainID == "" {
		r.chainID = core.NewID()
	}
	e.logger.Info("chain started", "chain_id", r.chainID, "steps", len(c.Steps))

	aborted := false
	for i := 0; i < len(c.Steps) && !aborted; {
		if ctx.Err() != nil {
			e.logger.Warn("chain cancelled", "chain_id", r.chainID, "error", ctx.Err())
			break
		}

		step := c.Steps[i]
		switch step.EffectiveMode() {
		case core.ModeParallel:
			end := i + 1
			for end < len(c.Steps) &&
				c.Steps[end].EffectiveMode() == core.ModeParallel &&
				c.Steps[end].ParallelGroup == step.ParallelGroup {
				end++
			}
			aborted = e.runGroup(ctx, r, c.Steps[i:end])
			i = end

		case core.ModeConditional:
			aborted = e.runConditional(ctx, r, step)
			i++

		default: // sequential
			aborted = e.record(r, e.runOne(ctx, r, step))
			i++
		}
	}

	result := e.finish(r, len(c.Steps), start)
	return result, nil
}

// runOne resolves a step's input and executes it. Transform resolution
// failures terminate the step without invoking any backend.
func (e *Executor) runOne(ctx context.Context, r *run, step core.ChainStep) core.StepResult {
	return e.runWithContent(ctx, r, step, r.content, r.outputs)
}

// runWithContent executes step against an explicit default content and
// prior-output snapshot (parallel members pass the group-start snapshot for
// mutual isolation).
func (e *Executor) runWithContent(ctx context.Context, r *run, step core.ChainStep, content string, outputs map[string]string) core.StepResult {
	input := content
	if step.InputTransform != "" {
		rendered, err := transform.Render(step.InputTransform, transform.Context{
			Seed:    r.seed,
			Content: content,
			Steps:   outputs,
		})
		if err != nil {
			tre := &core.TransformResolutionError{StepID: step.ID, Template: step.InputTransform, Err: err}
			return e.failWithoutInvoke(r.chainID, step, tre)
		}
		input = rendered
	}

	return e.steps.Execute(ctx, r.chainID, step, input, r.seed, outputs)
}

// failWithoutInvoke records a fatal pre-invocation failure as the step's
// terminal result, honoring skip_on_failure.
func (e *Executor) failWithoutInvoke(chainID string, step core.ChainStep, err error) core.StepResult {
	e.observer.OnStepStarted(chainID, step.ID)
	res := core.StepResult{StepID: step.ID, Status: core.StepFailed, Error: err.Error()}
	if step.SkipOnFailure {
		res.Status = core.StepSkipped
		res.Error = ""
	}
	e.logger.Warn("step failed before invocation", "step", step.ID, "error", err)
	e.observer.OnStepTerminal(chainID, res)
	return res
}

// runConditional evaluates the gate and either executes the step or records
// it as skipped without touching any backend.
func (e *Executor) runConditional(ctx context.Context, r *run, step core.ChainStep) bool {
	pass, err := evalCondition(*step.Condition, r.byID, r.seed)
	if err != nil {
		return e.record(r, e.failWithoutInvoke(r.chainID, step, err))
	}
	if !pass {
		res := core.StepResult{StepID: step.ID, Status: core.StepSkipped}
		e.logger.Debug("condition not met, skipping step", "step", step.ID)
		e.observer.OnStepTerminal(r.chainID, res)
		return e.record(r, res)
	}
	return e.record(r, e.runOne(ctx, r, step))
}

// runGroup fans out all members of a contiguous parallel group, waits for
// every member to reach a terminal state (the barrier), then folds the
// results back in declaration order. A failing member never cancels its
// siblings. Reports whether the chain must abort.
func (e *Executor) runGroup(ctx context.Context, r *run, group []core.ChainStep) bool {
	// Members are mutually isolated: each sees the content and outputs as
	// of the group's start, never a sibling's output.
	content := r.content
	outputs := make(map[string]string, len(r.outputs))
	for k, v := range r.outputs {
		outputs[k] = v
	}

	results := make([]core.StepResult, len(group))
	var wg sync.WaitGroup
	for i, step := range group {
		wg.Add(1)
		go func(i int, step core.ChainStep) {
			defer wg.Done()
			if e.sem != nil {
				if err := e.sem.Acquire(ctx, 1); err != nil {
					results[i] = e.failWithoutInvoke(r.chainID, step, err)
					return
				}
				defer e.sem.Release(1)
			}
			results[i] = e.runWithContent(ctx, r, step, content, outputs)
		}(i, step)
	}
	wg.Wait()

	abort := false
	for _, res := range results {
		if e.record(r, res) {
			abort = true
		}
	}

	// The combined group output becomes the default content for the step
	// after the barrier.
	combined, err := e.groupAgg.Aggregate(results)
	if err != nil {
		e.logger.Error("parallel group aggregation failed", "strategy", e.groupAgg.Name(), "error", err)
		r.aggFailed = true
		return true
	}
	if combined != "" {
		r.content = combined
	}

	return abort
}

// record folds a terminal step result into the run state and reports whether
// the chain must abort (a FAILED result; skip_on_failure already converted
// absorbable failures to SKIPPED).
func (e *Executor) record(r *run, res core.StepResult) bool {
	r.results = append(r.results, res)
	r.byID[res.StepID] = res
	if res.Succeeded() {
		r.outputs[res.StepID] = res.Output
		r.content = res.Output
	}
	return res.Status == core.StepFailed
}

// finish computes the overall status, assembles the final output and emits
// the chain-terminal event.
func (e *Executor) finish(r *run, declared int, start time.Time) *core.ChainResult {
	succeeded, failed := 0, 0
	for _, res := range r.results {
		switch res.Status {
		case core.StepSucceeded:
			succeeded++
		case core.StepFailed:
			failed++
		}
	}

	var status core.ChainStatus
	switch {
	case r.aggFailed:
		status = core.ChainFailed
	case failed == 0 && succeeded > 0:
		status = core.ChainSucceeded
	case succeeded > 0:
		status = core.ChainPartial
	default:
		status = core.ChainFailed
	}

	finalOutput, err := e.aggregator.Aggregate(r.results)
	if err != nil {
		e.logger.Error("final aggregation failed", "strategy", e.aggregator.Name(), "error", err)
		status = core.ChainFailed
		finalOutput = ""
	}

	result := &core.ChainResult{
		ChainID:       r.chainID,
		StepResults:   r.results,
		FinalOutput:   finalOutput,
		OverallStatus: status,
		Duration:      time.Since(start),
	}

	e.logger.Info("chain completed", "chain_id", r.chainID, "status", status, "attempted", len(r.results), "declared", declared, "duration", result.Duration)
	e.observer.OnChainTerminal(*result)
	return result
}
