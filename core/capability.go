package core

import "context"

// Capability is the single operation the orchestration engine requires from
// a text-processing backend. Implementations wrap a concrete model or
// service (local process, HTTP API, etc.); the engine never interprets
// their internals.
//
// Implementations must:
//   - Be safe for concurrent use from multiple parallel steps
//   - Respect context cancellation and deadlines
//   - Return the transformed text on success, or an error describing the
//     failure (the engine treats any error as retryable unless it is part
//     of the fatal taxonomy in errors.go)
type Capability interface {
	// Invoke executes one text-transform request. task names the kind of
	// processing (e.g. "summarize"), content is the input text, model is
	// the backend-specific model identifier chosen by the router or pinned
	// by the step, and params carries step-level tuning values.
	Invoke(ctx context.Context, task, content, model string, params map[string]any) (string, error)
}

// CapabilityFunc adapts a plain function to the Capability interface.
type CapabilityFunc func(ctx context.Context, task, content, model string, params map[string]any) (string, error)

// Invoke implements Capability.
func (f CapabilityFunc) Invoke(ctx context.Context, task, content, model string, params map[string]any) (string, error) {
	return f(ctx, task, content, model, params)
}
