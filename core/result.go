package core

import "time"

// StepStatus is the terminal state of one step execution.
type StepStatus string

const (
	// StepSucceeded means the step produced an output.
	StepSucceeded StepStatus = "succeeded"
	// StepFailed means the step exhausted all backends and retries.
	StepFailed StepStatus = "failed"
	// StepSkipped means the step was gated out by a condition, or its
	// failure was absorbed by skip_on_failure.
	StepSkipped StepStatus = "skipped"
)

// ChainStatus is the overall outcome of one chain execution.
type ChainStatus string

const (
	// ChainSucceeded means every attempted, non-skipped step succeeded.
	ChainSucceeded ChainStatus = "succeeded"
	// ChainPartial means some steps succeeded and at least one failed.
	ChainPartial ChainStatus = "partial"
	// ChainFailed means no step succeeded.
	ChainFailed ChainStatus = "failed"
)

// StepResult records the terminal outcome of one attempted step. Output is
// present iff the step succeeded; Error is present iff it failed.
type StepResult struct {
	StepID       string        `json:"step_id"`
	Status       StepStatus    `json:"status"`
	Output       string        `json:"output,omitempty"`
	Error        string        `json:"error,omitempty"`
	AttemptsUsed int           `json:"attempts_used"`
	Duration     time.Duration `json:"duration"`
}

// Succeeded reports whether the step produced an output.
func (r StepResult) Succeeded() bool { return r.Status == StepSucceeded }

// ChainResult is the complete outcome of one chain execution. StepResults
// holds exactly the steps that were attempted, in declaration order; steps
// never reached after an unrecoverable abort are absent.
type ChainResult struct {
	ChainID       string        `json:"chain_id"`
	StepResults   []StepResult  `json:"step_results"`
	FinalOutput   string        `json:"final_output,omitempty"`
	OverallStatus ChainStatus   `json:"overall_status"`
	Duration      time.Duration `json:"duration"`
}

// Result returns the StepResult for stepID and whether it was attempted.
func (r ChainResult) Result(stepID string) (StepResult, bool) {
	for _, sr := range r.StepResults {
		if sr.StepID == stepID {
			return sr, true
		}
	}
	return StepResult{}, false
}

// Outputs returns a map of step ID to output for all succeeded steps.
// Skipped and failed steps contribute no entry.
func (r ChainResult) Outputs() map[string]string {
	out := make(map[string]string, len(r.StepResults))
	for _, sr := range r.StepResults {
		if sr.Succeeded() {
			out[sr.StepID] = sr.Output
		}
	}
	return out
}
