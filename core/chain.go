package core

import "fmt"

// ExecutionMode declares how the chain executor schedules a step.
type ExecutionMode string

const (
	// ModeSequential runs the step on its own, in declaration order.
	ModeSequential ExecutionMode = "sequential"
	// ModeParallel runs the step concurrently with its parallel group.
	ModeParallel ExecutionMode = "parallel"
	// ModeConditional gates the step on a condition over a prior step's result.
	ModeConditional ExecutionMode = "conditional"
)

// ConditionType enumerates the supported conditional gates.
type ConditionType string

const (
	// ConditionOnSuccess passes when the referenced step succeeded.
	ConditionOnSuccess ConditionType = "on_success"
	// ConditionOnFailure passes when the referenced step failed.
	ConditionOnFailure ConditionType = "on_failure"
	// ConditionContentContains passes when the referenced step's output
	// contains Pattern as a substring.
	ConditionContentContains ConditionType = "content_contains"
	// ConditionExpression passes when Expression evaluates truthy against the
	// outputs and statuses of all completed steps.
	ConditionExpression ConditionType = "expression"
)

// Condition gates a conditional step on the outcome of an earlier step.
type Condition struct {
	// Type selects the gate semantics.
	Type ConditionType `json:"type" yaml:"type"`

	// StepID references the prior step whose result the gate inspects.
	// Required for all types except ConditionExpression.
	StepID string `json:"step_id,omitempty" yaml:"step_id,omitempty"`

	// Pattern is the substring matched by ConditionContentContains.
	Pattern string `json:"pattern,omitempty" yaml:"pattern,omitempty"`

	// Expression is the expr-lang source evaluated by ConditionExpression.
	Expression string `json:"expression,omitempty" yaml:"expression,omitempty"`
}

// ChainStep declares one step of a chain. Steps are immutable inputs supplied
// per invocation; the executor never mutates them.
type ChainStep struct {
	// ID is the step identifier, unique within the chain. Later steps
	// reference it in input transforms and conditions.
	ID string `json:"id" yaml:"id"`

	// Task names the processing kind the step requests.
	Task string `json:"task" yaml:"task"`

	// Model optionally pins a specific backend, bypassing router fallback.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// Mode selects sequential, parallel or conditional scheduling.
	// Defaults to ModeSequential when empty.
	Mode ExecutionMode `json:"mode,omitempty" yaml:"mode,omitempty"`

	// ParallelGroup names the barrier group; required iff Mode is parallel.
	// Members of one group must be contiguous in declaration order.
	ParallelGroup string `json:"parallel_group,omitempty" yaml:"parallel_group,omitempty"`

	// Condition gates the step; required iff Mode is conditional.
	Condition *Condition `json:"condition,omitempty" yaml:"condition,omitempty"`

	// RetryCount is the number of additional attempts per backend after the
	// first one fails. Must be >= 0.
	RetryCount int `json:"retry_count,omitempty" yaml:"retry_count,omitempty"`

	// SkipOnFailure converts a terminal failure into a non-fatal SKIPPED
	// result so the chain continues.
	SkipOnFailure bool `json:"skip_on_failure,omitempty" yaml:"skip_on_failure,omitempty"`

	// InputTransform is an optional Go template rendered against the seed
	// content and prior step outputs to produce this step's input.
	InputTransform string `json:"input_transform,omitempty" yaml:"input_transform,omitempty"`

	// OutputTransform is an optional Go template applied to a successful
	// output before the result is stored.
	OutputTransform string `json:"output_transform,omitempty" yaml:"output_transform,omitempty"`

	// Params carries step-level tuning values passed through to the backend.
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// EffectiveMode returns the step's mode, defaulting to sequential.
func (s ChainStep) EffectiveMode() ExecutionMode {
	if s.Mode == "" {
		return ModeSequential
	}
	return s.Mode
}

// Chain is an ordered workflow definition executed as one logical unit.
type Chain struct {
	// ID identifies the chain run; the executor generates one when empty.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	// Seed is the initial content handed to the first step (and to any step
	// whose input transform does not override it).
	Seed string `json:"seed" yaml:"seed"`

	// Steps are executed in declaration order, subject to their modes.
	Steps []ChainStep `json:"steps" yaml:"steps"`
}

// Validate checks the structural invariants of the chain definition:
// non-empty step list, unique step IDs, parallel-group contiguity, mode
// and condition field pairing, forward-only condition references and
// non-negative retry counts. It returns the first violation found.
func (c Chain) Validate() error {
	if len(c.Steps) == 0 {
		return fmt.Errorf("chain has no steps")
	}

	seen := make(map[string]bool, len(c.Steps))
	closedGroups := make(map[string]bool)
	prevGroup := ""

	for i, s := range c.Steps {
		if s.ID == "" {
			return fmt.Errorf("step %d: missing id", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("step %q: duplicate id", s.ID)
		}
		if s.Task == "" {
			return fmt.Errorf("step %q: missing task", s.ID)
		}
		if s.RetryCount < 0 {
			return fmt.Errorf("step %q: negative retry_count", s.ID)
		}

		switch s.EffectiveMode() {
		case ModeSequential:
			if s.ParallelGroup != "" {
				return fmt.Errorf("step %q: parallel_group set on sequential step", s.ID)
			}
		case ModeParallel:
			if s.ParallelGroup == "" {
				return fmt.Errorf("step %q: parallel step missing parallel_group", s.ID)
			}
			// A group must be one contiguous run; once left it may not reopen.
			if s.ParallelGroup != prevGroup && closedGroups[s.ParallelGroup] {
				return fmt.Errorf("step %q: parallel_group %q is not contiguous", s.ID, s.ParallelGroup)
			}
		case ModeConditional:
			// Only PARALLEL steps carry a group; a stray group here would
			// split the surrounding barrier at execution time.
			if s.ParallelGroup != "" {
				return fmt.Errorf("step %q: parallel_group set on conditional step", s.ID)
			}
			if s.Condition == nil {
				return fmt.Errorf("step %q: conditional step missing condition", s.ID)
			}
			if err := validateCondition(s.ID, *s.Condition, seen); err != nil {
				return err
			}
		default:
			return fmt.Errorf("step %q: unknown execution mode %q", s.ID, s.Mode)
		}

		if prevGroup != "" && s.ParallelGroup != prevGroup {
			closedGroups[prevGroup] = true
		}
		prevGroup = s.ParallelGroup
		seen[s.ID] = true
	}

	return nil
}

func validateCondition(stepID string, cond Condition, earlier map[string]bool) error {
	switch cond.Type {
	case ConditionOnSuccess, ConditionOnFailure:
		if cond.StepID == "" {
			return fmt.Errorf("step %q: condition missing step_id", stepID)
		}
	case ConditionContentContains:
		if cond.StepID == "" {
			return fmt.Errorf("step %q: condition missing step_id", stepID)
		}
		if cond.Pattern == "" {
			return fmt.Errorf("step %q: content_contains condition missing pattern", stepID)
		}
	case ConditionExpression:
		if cond.Expression == "" {
			return fmt.Errorf("step %q: expression condition missing expression", stepID)
		}
		return nil
	default:
		return fmt.Errorf("step %q: unknown condition type %q", stepID, cond.Type)
	}
	if !earlier[cond.StepID] {
		return fmt.Errorf("step %q: condition references step %q which does not appear earlier", stepID, cond.StepID)
	}
	return nil
}
