// Package chain implements the Selene workflow engine: the per-step
// execution state machine (retry, backoff, backend fallback, timeouts) and
// the chain executor that schedules steps according to their declared
// execution modes.
//
// The executor walks an ordered list of steps, dispatching contiguous
// parallel groups concurrently with a join barrier, gating conditional steps
// on prior results, and aborting not-yet-started steps after an
// unrecoverable failure. Each step's output becomes available to later
// steps' input transforms; the final output is assembled by an injected
// aggregation strategy.
//
// Failures never escape Execute as errors once execution has begun: the
// caller always receives a well-formed ChainResult whose overall status
// communicates the outcome.
package chain
