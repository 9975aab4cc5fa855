// Package backend provides core.Capability implementations: a deterministic
// in-memory mock for tests and examples, with vendor adapters in the
// backend/openai and backend/anthropic sub-packages.
package backend

import (
	"context"
	"fmt"
	"sync"
)

// Invocation records one call observed by the Mock, for test assertions.
type Invocation struct {
	Task    string
	Content string
	Model   string
}

// Mock is a lightweight in-memory Capability useful for tests & examples.
// It returns canned responses keyed by task and model, and can be scripted
// to fail a fixed number of times per model before succeeding. Mock is safe
// for concurrent use.
type Mock struct {
	mu          sync.Mutex
	responses   map[string]string
	failures    map[string]int
	failErr     error
	invocations []Invocation
}

// NewMock constructs an empty Mock. Unconfigured task/model pairs yield a
// deterministic synthesized response.
func NewMock() *Mock {
	return &Mock{
		responses: make(map[string]string),
		failures:  make(map[string]int),
	}
}

func key(task, model string) string { return task + "/" + model }

// AddResponse registers a deterministic canned response for a task/model pair.
func (m *Mock) AddResponse(task, model, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[key(task, model)] = response
}

// FailTimes scripts the next n invocations of model to fail with err.
func (m *Mock) FailTimes(model string, n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[model] = n
	m.failErr = err
}

// Invoke implements core.Capability.
func (m *Mock) Invoke(ctx context.Context, task, content, model string, _ map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.invocations = append(m.invocations, Invocation{Task: task, Content: content, Model: model})

	if n := m.failures[model]; n > 0 {
		m.failures[model] = n - 1
		err := m.failErr
		if err == nil {
			err = fmt.Errorf("scripted failure for %s", model)
		}
		return "", err
	}

	if resp, ok := m.responses[key(task, model)]; ok {
		return resp, nil
	}
	return fmt.Sprintf("%s(%s): %s", task, model, content), nil
}

// Invocations returns a copy of all calls observed so far.
func (m *Mock) Invocations() []Invocation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Invocation, len(m.invocations))
	copy(out, m.invocations)
	return out
}

// InvocationCount returns the number of calls observed for model, or all
// calls when model is empty.
func (m *Mock) InvocationCount(model string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if model == "" {
		return len(m.invocations)
	}
	n := 0
	for _, inv := range m.invocations {
		if inv.Model == model {
			n++
		}
	}
	return n
}
