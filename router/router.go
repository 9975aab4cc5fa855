// Package router selects the backend that should serve a processing task.
//
// The Router holds a read-only registry of BackendConfigs grouped by
// supported task. It resolves the highest-priority backend for a task,
// produces priority-ordered fallback lists for the step executor, and runs
// side-by-side comparisons across named backends. The Router holds
// configuration data only; backend behavior lives behind core.Capability.
package router

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/SlowSpeedChase/selene-sub000/core"
	"github.com/SlowSpeedChase/selene-sub000/logging"
)

// Options configures a Router instance.
type Options struct {
	// Observer receives routing-decision events. Defaults to NoOpObserver.
	Observer core.Observer

	// Logger provides structured logging. Defaults to NoOpLogger.
	Logger logging.Logger

	// CompareTimeout bounds each backend invocation during Compare.
	// Zero means no per-invocation timeout.
	CompareTimeout time.Duration
}

// Router resolves tasks to backends by priority. It is immutable after
// construction and safe for concurrent use.
type Router struct {
	configs    []core.BackendConfig
	byName     map[string]core.BackendConfig
	capability core.Capability
	observer   core.Observer
	logger     logging.Logger
	cmpTimeout time.Duration
}

// New constructs a Router over the given registry. The registry is copied;
// the caller may not mutate it afterwards through the original slice, but
// the Router never writes to its copy either.
func New(registry []core.BackendConfig, capability core.Capability, optFns ...func(o *Options)) *Router {
	opts := Options{
		Observer: core.NoOpObserver{},
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	configs := make([]core.BackendConfig, len(registry))
	copy(configs, registry)
	byName := make(map[string]core.BackendConfig, len(configs))
	for _, c := range configs {
		byName[c.Name] = c
	}

	return &Router{
		configs:    configs,
		byName:     byName,
		capability: capability,
		observer:   opts.Observer,
		logger:     opts.Logger,
		cmpTimeout: opts.CompareTimeout,
	}
}

// WithObserver sets the observer that receives routing-decision events.
func WithObserver(o core.Observer) func(*Options) {
	return func(opts *Options) { opts.Observer = o }
}

// WithLogger sets the structured logger.
func WithLogger(l logging.Logger) func(*Options) {
	return func(opts *Options) { opts.Logger = l }
}

// WithCompareTimeout bounds each backend invocation during Compare.
func WithCompareTimeout(d time.Duration) func(*Options) {
	return func(opts *Options) { opts.CompareTimeout = d }
}

// Backend looks up a registered backend config by name.
func (r *Router) Backend(name string) (core.BackendConfig, bool) {
	c, ok := r.byName[name]
	return c, ok
}

// Resolve returns the highest-priority backend supporting task. It fails
// with core.ErrNoBackendAvailable when no registered backend matches.
func (r *Router) Resolve(task string) (core.BackendConfig, error) {
	candidates, err := r.ResolveWithFallback(task)
	if err != nil {
		return core.BackendConfig{}, err
	}
	chosen := candidates[0]
	r.observer.OnRouteResolved(task, chosen.Name, "priority")
	r.logger.Debug("resolved backend", "task", task, "backend", chosen.Name, "priority", chosen.Priority)
	return chosen, nil
}

// ResolveWithFallback returns all backends supporting task sorted ascending
// by priority (ties broken by name for determinism). The step executor walks
// this list when a step's model is not pinned.
func (r *Router) ResolveWithFallback(task string) ([]core.BackendConfig, error) {
	var candidates []core.BackendConfig
	for _, c := range r.configs {
		if c.SupportsTask(task) {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("task %q: %w", task, core.ErrNoBackendAvailable)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority < candidates[j].Priority
		}
		return candidates[i].Name < candidates[j].Name
	})
	return candidates, nil
}

// Compare invokes the capability once per named backend concurrently and
// returns all results keyed by backend name. Failures are captured as FAILED
// StepResults rather than short-circuiting the other invocations; Compare is
// a side-by-side diagnostic, not a production execution path.
func (r *Router) Compare(ctx context.Context, task, content string, backends []string) map[string]core.StepResult {
	results := make([]core.StepResult, len(backends))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range backends {
		g.Go(func() error {
			results[i] = r.invokeOne(gctx, task, content, name)
			return nil
		})
	}
	// Workers never return errors; Wait is a pure barrier here.
	_ = g.Wait()

	out := make(map[string]core.StepResult, len(backends))
	for i, name := range backends {
		out[name] = results[i]
	}
	return out
}

// invokeOne runs a single comparison invocation, folding any error into a
// FAILED StepResult.
func (r *Router) invokeOne(ctx context.Context, task, content, name string) core.StepResult {
	if _, ok := r.byName[name]; !ok {
		return core.StepResult{
			StepID: name,
			Status: core.StepFailed,
			Error:  fmt.Sprintf("backend %q: %v", name, core.ErrNoBackendAvailable),
		}
	}

	if r.cmpTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cmpTimeout)
		defer cancel()
	}

	start := time.Now()
	output, err := r.capability.Invoke(ctx, task, content, name, nil)
	dur := time.Since(start)

	if err != nil {
		r.logger.Warn("comparison invocation failed", "task", task, "backend", name, "error", err)
		return core.StepResult{
			StepID:       name,
			Status:       core.StepFailed,
			Error:        err.Error(),
			AttemptsUsed: 1,
			Duration:     dur,
		}
	}

	return core.StepResult{
		StepID:       name,
		Status:       core.StepSucceeded,
		Output:       output,
		AttemptsUsed: 1,
		Duration:     dur,
	}
}
