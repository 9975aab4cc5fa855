// Package core provides the foundational domain types, interfaces and error
// taxonomy used by the Selene orchestration engine. It defines the core
// abstractions for:
//
//   - Capability (the single text-processing operation supplied by backends)
//   - BackendConfig (declarative backend registrations with task/priority data)
//   - Chain / ChainStep (immutable multi-step workflow definitions)
//   - StepResult / ChainResult (per-execution outcome records)
//   - Observer (fire-and-forget lifecycle event sink for monitoring)
//
// The package intentionally keeps implementation concerns (routing, retry,
// scheduling, aggregation, concrete backends) out of scope, exposing small
// interfaces to enable custom backends and extensions.
package core
