// Package prom exposes chain execution metrics to Prometheus. It lives in
// its own sub-package so importers of observer do not pull the Prometheus
// client unless they use it.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/SlowSpeedChase/selene-sub000/core"
)

// Observer records chain and step outcomes as Prometheus metrics.
type Observer struct {
	chainsTotal   *prometheus.CounterVec
	chainDuration *prometheus.HistogramVec
	stepsTotal    *prometheus.CounterVec
	stepDuration  *prometheus.HistogramVec
	stepRetries   prometheus.Counter
	routesTotal   *prometheus.CounterVec
}

var _ core.Observer = (*Observer)(nil)

// New constructs the observer and registers its collectors with reg
// (use prometheus.DefaultRegisterer for the default registry).
func New(reg prometheus.Registerer) *Observer {
	o := &Observer{
		chainsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "selene",
				Subsystem: "chain",
				Name:      "runs_total",
				Help:      "Total number of chain runs by final status",
			},
			[]string{"status"},
		),
		chainDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "selene",
				Subsystem: "chain",
				Name:      "run_duration_seconds",
				Help:      "Chain execution duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"status"},
		),
		stepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "selene",
				Subsystem: "chain",
				Name:      "steps_total",
				Help:      "Total number of steps executed by terminal status",
			},
			[]string{"status"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "selene",
				Subsystem: "chain",
				Name:      "step_duration_seconds",
				Help:      "Step execution duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		stepRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "selene",
				Subsystem: "chain",
				Name:      "step_retries_total",
				Help:      "Total number of step retry attempts",
			},
		),
		routesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "selene",
				Subsystem: "router",
				Name:      "decisions_total",
				Help:      "Routing decisions by task, backend and reason",
			},
			[]string{"task", "backend", "reason"},
		),
	}

	reg.MustRegister(o.chainsTotal, o.chainDuration, o.stepsTotal, o.stepDuration, o.stepRetries, o.routesTotal)
	return o
}

// OnRouteResolved implements core.Observer.
func (o *Observer) OnRouteResolved(task, backend, reason string) {
	o.routesTotal.WithLabelValues(task, backend, reason).Inc()
}

// OnStepStarted implements core.Observer.
func (o *Observer) OnStepStarted(string, string) {}

// OnStepRetried implements core.Observer.
func (o *Observer) OnStepRetried(string, string, int) {
	o.stepRetries.Inc()
}

// OnStepTerminal implements core.Observer.
func (o *Observer) OnStepTerminal(_ string, result core.StepResult) {
	o.stepsTotal.WithLabelValues(string(result.Status)).Inc()
	o.stepDuration.WithLabelValues(string(result.Status)).Observe(result.Duration.Seconds())
}

// OnChainTerminal implements core.Observer.
func (o *Observer) OnChainTerminal(result core.ChainResult) {
	o.chainsTotal.WithLabelValues(string(result.OverallStatus)).Inc()
	o.chainDuration.WithLabelValues(string(result.OverallStatus)).Observe(result.Duration.Seconds())
}
