package core

import (
	"errors"
	"fmt"
)

// ErrNoBackendAvailable is returned by the router when no registered backend
// supports the requested task. It is fatal: the step executor does not retry
// resolution failures.
var ErrNoBackendAvailable = errors.New("no backend available")

// TransformResolutionError reports an input or output transform referencing
// a step whose output is missing (skipped, failed, or not yet executed).
// It is fatal to the affected step and never retried.
type TransformResolutionError struct {
	StepID   string // step whose transform failed
	Template string // the offending template
	Err      error  // underlying render error
}

// Error implements error.
func (e *TransformResolutionError) Error() string {
	return fmt.Sprintf("step %q: transform resolution failed: %v", e.StepID, e.Err)
}

// Unwrap exposes the underlying render error.
func (e *TransformResolutionError) Unwrap() error { return e.Err }

// AggregationError reports a malformed or misconfigured aggregation strategy.
// It is fatal to the chain.
type AggregationError struct {
	Strategy string
	Err      error
}

// Error implements error.
func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregation strategy %q: %v", e.Strategy, e.Err)
}

// Unwrap exposes the underlying error.
func (e *AggregationError) Unwrap() error { return e.Err }

// IsFatal reports whether err belongs to the non-retryable taxonomy:
// router resolution failures, transform resolution failures and
// aggregation failures. All other invocation errors (including timeouts)
// are transient and subject to the step's retry/fallback policy.
func IsFatal(err error) bool {
	if errors.Is(err, ErrNoBackendAvailable) {
		return true
	}
	var tre *TransformResolutionError
	if errors.As(err, &tre) {
		return true
	}
	var age *AggregationError
	return errors.As(err, &age)
}
