package chain

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/SlowSpeedChase/selene-sub000/core"
	"github.com/SlowSpeedChase/selene-sub000/internal/transform"
	"github.com/SlowSpeedChase/selene-sub000/logging"
	"github.com/SlowSpeedChase/selene-sub000/router"
)

// BackoffKind selects the delay progression between retry attempts.
type BackoffKind string

const (
	// BackoffFixed waits the same interval before every retry.
	BackoffFixed BackoffKind = "fixed"
	// BackoffExponential grows the interval multiplicatively per retry.
	BackoffExponential BackoffKind = "exponential"
)

// RetryPolicy configures the delay between attempts of the same backend.
// The number of attempts per backend is the step's retry_count plus one;
// the policy only shapes the waits in between. Waits are suspension points
// that respect context cancellation, never blocking sleeps.
type RetryPolicy struct {
	Kind        BackoffKind
	Interval    time.Duration
	Multiplier  float64       // exponential only; defaults to 1.5
	MaxInterval time.Duration // exponential only; caps the delay
}

// DefaultRetryPolicy is a fixed half-second delay between attempts.
var DefaultRetryPolicy = RetryPolicy{Kind: BackoffFixed, Interval: 500 * time.Millisecond}

// newBackOff builds a fresh backoff sequence. Each backend in the fallback
// list gets its own sequence so delays restart when the executor advances.
func (p RetryPolicy) newBackOff() backoff.BackOff {
	if p.Kind == BackoffExponential {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = p.Interval
		if p.Multiplier > 0 {
			b.Multiplier = p.Multiplier
		}
		if p.MaxInterval > 0 {
			b.MaxInterval = p.MaxInterval
		}
		b.MaxElapsedTime = 0
		// Reset re-latches the configured fields; without it the first
		// delay would come from the constructor's defaults.
		b.Reset()
		return b
	}
	return backoff.NewConstantBackOff(p.Interval)
}

// StepExecutorOptions configures a StepExecutor.
type StepExecutorOptions struct {
	// Observer receives step lifecycle events. Defaults to NoOpObserver.
	Observer core.Observer

	// Logger provides structured logging. Defaults to NoOpLogger.
	Logger logging.Logger

	// AttemptTimeout bounds each individual backend invocation. A timed-out
	// attempt counts as an invocation failure for retry and fallback
	// purposes. Zero disables the per-attempt timeout.
	AttemptTimeout time.Duration

	// RetryPolicy shapes the delays between attempts of one backend.
	RetryPolicy RetryPolicy
}

// StepExecutor runs one chain step to a terminal state. Per step it resolves
// the backend (pinned model or router fallback order), invokes the
// capability, retries the same backend up to the step's retry count before
// advancing to the next backend, and classifies the outcome.
//
// The state machine per step is
//
//	PENDING -> INVOKING -> (SUCCEEDED | RETRYING -> INVOKING | FAILED)
//
// with FAILED converted to SKIPPED when the step declares skip_on_failure.
type StepExecutor struct {
	router         *router.Router
	capability     core.Capability
	observer       core.Observer
	logger         logging.Logger
	attemptTimeout time.Duration
	retryPolicy    RetryPolicy
}

// NewStepExecutor constructs a StepExecutor over the given router and
// capability.
func NewStepExecutor(rtr *router.Router, capability core.Capability, optFns ...func(o *StepExecutorOptions)) *StepExecutor {
	opts := StepExecutorOptions{
		Observer:    core.NoOpObserver{},
		Logger:      logging.NoOpLogger{},
		RetryPolicy: DefaultRetryPolicy,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &StepExecutor{
		router:         rtr,
		capability:     capability,
		observer:       opts.Observer,
		logger:         opts.Logger,
		attemptTimeout: opts.AttemptTimeout,
		retryPolicy:    opts.RetryPolicy,
	}
}

// Execute runs step to a terminal StepResult. input is the step's resolved
// content (after any input transform); seed and priorOutputs provide the
// rendering context for the step's output transform.
//
// Execute never returns an error: retryable failures are absorbed up to the
// configured retry count and fallback list, and exhaustion surfaces as a
// terminal FAILED (or SKIPPED, with skip_on_failure) result.
func (e *StepExecutor) Execute(ctx context.Context, chainID string, step core.ChainStep, input, seed string, priorOutputs map[string]string) core.StepResult {
	start := time.Now()
	e.observer.OnStepStarted(chainID, step.ID)

	candidates, fatalErr := e.resolveCandidates(step)
	if fatalErr != nil {
		return e.terminal(chainID, step, core.StepResult{
			StepID:   step.ID,
			Status:   core.StepFailed,
			Error:    fatalErr.Error(),
			Duration: time.Since(start),
		})
	}

	attempts := 0
	var output string
	var lastErr error

	for i, cand := range candidates {
		if i > 0 {
			e.observer.OnRouteResolved(step.Task, cand.Name, "fallback-from:"+candidates[i-1].Name)
			e.logger.Info("advancing to fallback backend", "step", step.ID, "task", step.Task, "backend", cand.Name)
		}

		op := func() error {
			attempts++
			if attempts > 1 {
				e.observer.OnStepRetried(chainID, step.ID, attempts)
			}
			out, err := e.invoke(ctx, step, cand.Name, input)
			if err != nil {
				if core.IsFatal(err) {
					return backoff.Permanent(err)
				}
				return err
			}
			output = out
			return nil
		}

		// Retries exhaust per backend: a fresh backoff sequence bounded by
		// the step's retry count, reset for each fallback candidate.
		b := backoff.WithContext(
			backoff.WithMaxRetries(e.retryPolicy.newBackOff(), uint64(step.RetryCount)),
			ctx,
		)

		lastErr = backoff.Retry(op, b)
		if lastErr == nil {
			return e.succeed(chainID, step, output, seed, priorOutputs, attempts, start)
		}
		if core.IsFatal(lastErr) || ctx.Err() != nil {
			break
		}
	}

	res := core.StepResult{
		StepID:       step.ID,
		Status:       core.StepFailed,
		Error:        lastErr.Error(),
		AttemptsUsed: attempts,
		Duration:     time.Since(start),
	}
	return e.terminal(chainID, step, res)
}

// resolveCandidates produces the ordered backend list for the step: the
// pinned model alone when present, otherwise the router's fallback order.
func (e *StepExecutor) resolveCandidates(step core.ChainStep) ([]core.BackendConfig, error) {
	if step.Model != "" {
		e.observer.OnRouteResolved(step.Task, step.Model, "pinned")
		if cfg, ok := e.router.Backend(step.Model); ok {
			return []core.BackendConfig{cfg}, nil
		}
		// A pinned model need not be registered; the capability decides
		// whether it can serve it.
		return []core.BackendConfig{{Name: step.Model, Tasks: []string{step.Task}}}, nil
	}

	candidates, err := e.router.ResolveWithFallback(step.Task)
	if err != nil {
		return nil, err
	}
	e.observer.OnRouteResolved(step.Task, candidates[0].Name, "priority")
	return candidates, nil
}

// invoke performs a single capability attempt with the per-attempt timeout.
func (e *StepExecutor) invoke(ctx context.Context, step core.ChainStep, model, input string) (string, error) {
	if e.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.attemptTimeout)
		defer cancel()
	}

	start := time.Now()
	out, err := e.capability.Invoke(ctx, step.Task, input, model, step.Params)
	if err != nil {
		e.logger.Warn("backend invocation failed", "step", step.ID, "task", step.Task, "backend", model, "duration", time.Since(start), "error", err)
		return "", err
	}
	e.logger.Debug("backend invocation succeeded", "step", step.ID, "task", step.Task, "backend", model, "duration", time.Since(start))
	return out, nil
}

// succeed applies the output transform and emits the terminal result. A
// failing output transform demotes the step to FAILED (or SKIPPED via
// skip_on_failure): downstream steps must only ever see post-transform
// content.
func (e *StepExecutor) succeed(chainID string, step core.ChainStep, output, seed string, priorOutputs map[string]string, attempts int, start time.Time) core.StepResult {
	if step.OutputTransform != "" {
		rendered, err := transform.Render(step.OutputTransform, transform.Context{
			Seed:    seed,
			Content: output,
			Steps:   priorOutputs,
		})
		if err != nil {
			tre := &core.TransformResolutionError{StepID: step.ID, Template: step.OutputTransform, Err: err}
			return e.terminal(chainID, step, core.StepResult{
				StepID:       step.ID,
				Status:       core.StepFailed,
				Error:        tre.Error(),
				AttemptsUsed: attempts,
				Duration:     time.Since(start),
			})
		}
		output = rendered
	}

	return e.terminal(chainID, step, core.StepResult{
		StepID:       step.ID,
		Status:       core.StepSucceeded,
		Output:       output,
		AttemptsUsed: attempts,
		Duration:     time.Since(start),
	})
}

// terminal applies the skip_on_failure policy and notifies the observer.
func (e *StepExecutor) terminal(chainID string, step core.ChainStep, res core.StepResult) core.StepResult {
	if res.Status == core.StepFailed && step.SkipOnFailure {
		e.logger.Info("absorbing step failure", "step", step.ID, "error", res.Error)
		res.Status = core.StepSkipped
		res.Error = ""
		res.Output = ""
	}
	e.observer.OnStepTerminal(chainID, res)
	return res
}
