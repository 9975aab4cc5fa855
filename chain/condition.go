package chain

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/SlowSpeedChase/selene-sub000/core"
)

// evalCondition evaluates a conditional step's gate against the results of
// all steps completed so far. A gate referencing a step that produced no
// output (skipped or failed) simply evaluates false; the conditional step is
// recorded as skipped without invoking any backend.
func evalCondition(cond core.Condition, byID map[string]core.StepResult, seed string) (bool, error) {
	switch cond.Type {
	case core.ConditionOnSuccess:
		r, ok := byID[cond.StepID]
		return ok && r.Status == core.StepSucceeded, nil

	case core.ConditionOnFailure:
		// A skipped step did not succeed either; treating it as a failure
		// match lets recovery branches follow skip_on_failure steps.
		r, ok := byID[cond.StepID]
		return ok && r.Status != core.StepSucceeded, nil

	case core.ConditionContentContains:
		r, ok := byID[cond.StepID]
		if !ok || !r.Succeeded() {
			return false, nil
		}
		return strings.Contains(r.Output, cond.Pattern), nil

	case core.ConditionExpression:
		return evalExpression(cond.Expression, byID, seed)

	default:
		return false, fmt.Errorf("unknown condition type %q", cond.Type)
	}
}

// evalExpression compiles and runs an expr-lang expression against an
// environment exposing each completed step as a map with output, status and
// succeeded fields, plus the chain seed.
func evalExpression(expression string, byID map[string]core.StepResult, seed string) (bool, error) {
	env := map[string]any{"seed": seed}
	for id, r := range byID {
		env[id] = map[string]any{
			"output":    r.Output,
			"status":    string(r.Status),
			"succeeded": r.Succeeded(),
		}
	}

	program, err := expr.Compile(expression, expr.Env(env))
	if err != nil {
		return false, fmt.Errorf("compile condition %q: %w", expression, err)
	}

	result, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("evaluate condition %q: %w", expression, err)
	}

	return isTruthy(result), nil
}

// isTruthy converts an expression result to a boolean.
func isTruthy(v any) bool {
	if v == nil {
		return false
	}
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return val != ""
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	default:
		return true
	}
}
