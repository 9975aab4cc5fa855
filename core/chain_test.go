package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validChain() Chain {
	return Chain{
		Seed: "some notes",
		Steps: []ChainStep{
			{ID: "summarize", Task: "summarize"},
			{ID: "extract", Task: "extract_tasks"},
		},
	}
}

func TestChainValidate_Valid(t *testing.T) {
	assert.NoError(t, validChain().Validate())
}

func TestChainValidate_NoSteps(t *testing.T) {
	err := Chain{Seed: "x"}.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no steps")
}

func TestChainValidate_MissingID(t *testing.T) {
	c := Chain{Steps: []ChainStep{{Task: "summarize"}}}
	err := c.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "missing id")
}

func TestChainValidate_DuplicateID(t *testing.T) {
	c := Chain{Steps: []ChainStep{
		{ID: "a", Task: "summarize"},
		{ID: "a", Task: "extract_tasks"},
	}}
	err := c.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate id")
}

func TestChainValidate_MissingTask(t *testing.T) {
	c := Chain{Steps: []ChainStep{{ID: "a"}}}
	err := c.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "missing task")
}

func TestChainValidate_NegativeRetryCount(t *testing.T) {
	c := Chain{Steps: []ChainStep{{ID: "a", Task: "summarize", RetryCount: -1}}}
	err := c.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "negative retry_count")
}

func TestChainValidate_UnknownMode(t *testing.T) {
	c := Chain{Steps: []ChainStep{{ID: "a", Task: "summarize", Mode: "bogus"}}}
	err := c.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown execution mode")
}

func TestChainValidate_SequentialWithParallelGroup(t *testing.T) {
	c := Chain{Steps: []ChainStep{
		{ID: "a", Task: "summarize", ParallelGroup: "g"},
	}}
	err := c.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "parallel_group set on sequential step")
}

func TestChainValidate_ConditionalWithParallelGroup(t *testing.T) {
	c := Chain{Steps: []ChainStep{
		{ID: "a", Task: "summarize"},
		{ID: "b", Task: "classify", Mode: ModeConditional, ParallelGroup: "g", Condition: &Condition{
			Type: ConditionOnSuccess, StepID: "a",
		}},
	}}
	err := c.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "parallel_group set on conditional step")
}

func TestChainValidate_ConditionalInsideParallelGroup(t *testing.T) {
	// A conditional step wedged between two members of the same group
	// would split the barrier in two; Validate must reject it even when
	// the conditional itself names the group.
	c := Chain{Steps: []ChainStep{
		{ID: "a", Task: "summarize", Mode: ModeParallel, ParallelGroup: "g"},
		{ID: "b", Task: "classify", Mode: ModeConditional, ParallelGroup: "g", Condition: &Condition{
			Type: ConditionOnSuccess, StepID: "a",
		}},
		{ID: "c", Task: "summarize", Mode: ModeParallel, ParallelGroup: "g"},
	}}
	err := c.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "parallel_group set on conditional step")
}

func TestChainValidate_ParallelMissingGroup(t *testing.T) {
	c := Chain{Steps: []ChainStep{
		{ID: "a", Task: "summarize", Mode: ModeParallel},
	}}
	err := c.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "missing parallel_group")
}

func TestChainValidate_ParallelGroupContiguous(t *testing.T) {
	c := Chain{Steps: []ChainStep{
		{ID: "a", Task: "summarize", Mode: ModeParallel, ParallelGroup: "g"},
		{ID: "b", Task: "summarize", Mode: ModeParallel, ParallelGroup: "g"},
		{ID: "c", Task: "extract_tasks"},
		{ID: "d", Task: "summarize", Mode: ModeParallel, ParallelGroup: "h"},
	}}
	assert.NoError(t, c.Validate())
}

func TestChainValidate_ParallelGroupReopened(t *testing.T) {
	c := Chain{Steps: []ChainStep{
		{ID: "a", Task: "summarize", Mode: ModeParallel, ParallelGroup: "g"},
		{ID: "b", Task: "extract_tasks"},
		{ID: "c", Task: "summarize", Mode: ModeParallel, ParallelGroup: "g"},
	}}
	err := c.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not contiguous")
}

func TestChainValidate_ConditionalMissingCondition(t *testing.T) {
	c := Chain{Steps: []ChainStep{
		{ID: "a", Task: "summarize"},
		{ID: "b", Task: "extract_tasks", Mode: ModeConditional},
	}}
	err := c.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "missing condition")
}

func TestChainValidate_ConditionForwardReference(t *testing.T) {
	c := Chain{Steps: []ChainStep{
		{ID: "a", Task: "summarize", Mode: ModeConditional, Condition: &Condition{
			Type:   ConditionOnSuccess,
			StepID: "b",
		}},
		{ID: "b", Task: "extract_tasks"},
	}}
	err := c.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "does not appear earlier")
}

func TestChainValidate_ConditionSelfReference(t *testing.T) {
	c := Chain{Steps: []ChainStep{
		{ID: "a", Task: "summarize", Mode: ModeConditional, Condition: &Condition{
			Type:   ConditionOnSuccess,
			StepID: "a",
		}},
	}}
	assert.Error(t, c.Validate())
}

func TestChainValidate_ConditionFieldPairing(t *testing.T) {
	tests := []struct {
		name    string
		cond    Condition
		wantErr string
	}{
		{"on_success missing step_id", Condition{Type: ConditionOnSuccess}, "missing step_id"},
		{"on_failure missing step_id", Condition{Type: ConditionOnFailure}, "missing step_id"},
		{"content_contains missing step_id", Condition{Type: ConditionContentContains, Pattern: "x"}, "missing step_id"},
		{"content_contains missing pattern", Condition{Type: ConditionContentContains, StepID: "a"}, "missing pattern"},
		{"expression missing expression", Condition{Type: ConditionExpression}, "missing expression"},
		{"unknown type", Condition{Type: "bogus", StepID: "a"}, "unknown condition type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Chain{Steps: []ChainStep{
				{ID: "a", Task: "summarize"},
				{ID: "b", Task: "extract_tasks", Mode: ModeConditional, Condition: &tt.cond},
			}}
			err := c.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestChainValidate_ExpressionConditionNeedsNoStepID(t *testing.T) {
	c := Chain{Steps: []ChainStep{
		{ID: "a", Task: "summarize"},
		{ID: "b", Task: "extract_tasks", Mode: ModeConditional, Condition: &Condition{
			Type:       ConditionExpression,
			Expression: `a.succeeded`,
		}},
	}}
	assert.NoError(t, c.Validate())
}

func TestEffectiveMode_DefaultsToSequential(t *testing.T) {
	assert.Equal(t, ModeSequential, ChainStep{}.EffectiveMode())
	assert.Equal(t, ModeParallel, ChainStep{Mode: ModeParallel}.EffectiveMode())
}
