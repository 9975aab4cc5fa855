// Package observer provides ready-made core.Observer implementations: a
// structured-logging observer, an in-memory statistics collector, and a
// Prometheus collector in the dep-isolating observer/prom sub-package.
package observer

import (
	"github.com/SlowSpeedChase/selene-sub000/core"
	"github.com/SlowSpeedChase/selene-sub000/logging"
)

// Logging forwards lifecycle events to a structured logger.
type Logging struct {
	logger logging.Logger
}

var _ core.Observer = (*Logging)(nil)

// NewLogging constructs a logging observer.
func NewLogging(logger logging.Logger) *Logging {
	return &Logging{logger: logger}
}

// OnRouteResolved implements core.Observer.
func (o *Logging) OnRouteResolved(task, backend, reason string) {
	o.logger.Debug("route resolved", "task", task, "backend", backend, "reason", reason)
}

// OnStepStarted implements core.Observer.
func (o *Logging) OnStepStarted(chainID, stepID string) {
	o.logger.Info("step started", "chain_id", chainID, "step_id", stepID)
}

// OnStepRetried implements core.Observer.
func (o *Logging) OnStepRetried(chainID, stepID string, attempt int) {
	o.logger.Warn("step retried", "chain_id", chainID, "step_id", stepID, "attempt", attempt)
}

// OnStepTerminal implements core.Observer.
func (o *Logging) OnStepTerminal(chainID string, result core.StepResult) {
	if result.Status == core.StepFailed {
		o.logger.Error("step failed", "chain_id", chainID, "step_id", result.StepID, "attempts", result.AttemptsUsed, "duration", result.Duration, "error", result.Error)
		return
	}
	o.logger.Info("step completed", "chain_id", chainID, "step_id", result.StepID, "status", result.Status, "attempts", result.AttemptsUsed, "duration", result.Duration)
}

// OnChainTerminal implements core.Observer.
func (o *Logging) OnChainTerminal(result core.ChainResult) {
	o.logger.Info("chain completed", "chain_id", result.ChainID, "status", result.OverallStatus, "steps", len(result.StepResults), "duration", result.Duration)
}

// Multi fans one event out to several observers in order.
type Multi []core.Observer

var _ core.Observer = Multi{}

// OnRouteResolved implements core.Observer.
func (m Multi) OnRouteResolved(task, backend, reason string) {
	for _, o := range m {
		o.OnRouteResolved(task, backend, reason)
	}
}

// OnStepStarted implements core.Observer.
func (m Multi) OnStepStarted(chainID, stepID string) {
	for _, o := range m {
		o.OnStepStarted(chainID, stepID)
	}
}

// OnStepRetried implements core.Observer.
func (m Multi) OnStepRetried(chainID, stepID string, attempt int) {
	for _, o := range m {
		o.OnStepRetried(chainID, stepID, attempt)
	}
}

// OnStepTerminal implements core.Observer.
func (m Multi) OnStepTerminal(chainID string, result core.StepResult) {
	for _, o := range m {
		o.OnStepTerminal(chainID, result)
	}
}

// OnChainTerminal implements core.Observer.
func (m Multi) OnChainTerminal(result core.ChainResult) {
	for _, o := range m {
		o.OnChainTerminal(result)
	}
}
