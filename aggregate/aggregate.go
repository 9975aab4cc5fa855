// Package aggregate combines multiple step outputs into one result. All
// strategies are pure data transformations over already-computed StepResults;
// aggregation never invokes a backend.
package aggregate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/SlowSpeedChase/selene-sub000/core"
)

// Strategy combines the outputs of a set of step results into one string.
// Strategies receive results in declaration order and must not mutate them.
type Strategy interface {
	// Name identifies the strategy for configuration and error reporting.
	Name() string

	// Aggregate produces the combined output. It returns an error only for
	// misconfiguration (wrapped as *core.AggregationError by callers);
	// absence of successful outputs is not an error and yields "".
	Aggregate(results []core.StepResult) (string, error)
}

// Concat joins succeeded outputs in declaration order, each prefixed with
// its step-id label. It is the default chain-level strategy.
type Concat struct {
	// Separator between labeled sections. Defaults to a blank line.
	Separator string
}

// Name implements Strategy.
func (Concat) Name() string { return "concat" }

// Aggregate implements Strategy.
func (c Concat) Aggregate(results []core.StepResult) (string, error) {
	sep := c.Separator
	if sep == "" {
		sep = "\n\n"
	}
	var sections []string
	for _, r := range results {
		if r.Succeeded() {
			sections = append(sections, fmt.Sprintf("[%s]\n%s", r.StepID, r.Output))
		}
	}
	return strings.Join(sections, sep), nil
}

// FirstSuccess returns the earliest succeeded output in declaration order.
type FirstSuccess struct{}

// Name implements Strategy.
func (FirstSuccess) Name() string { return "first-success" }

// Aggregate implements Strategy.
func (FirstSuccess) Aggregate(results []core.StepResult) (string, error) {
	for _, r := range results {
		if r.Succeeded() {
			return r.Output, nil
		}
	}
	return "", nil
}

// Ranker compares two succeeded step results and reports whether candidate
// outranks best. Callers inject the heuristic (longest output, an external
// quality score, etc.); the engine ships none.
type Ranker func(candidate, best core.StepResult) bool

// BestOf picks the highest-ranked succeeded output per the injected Ranker.
type BestOf struct {
	ranker Ranker
}

// NewBestOf constructs a BestOf strategy around ranker.
func NewBestOf(ranker Ranker) BestOf {
	return BestOf{ranker: ranker}
}

// Name implements Strategy.
func (BestOf) Name() string { return "best-of" }

// Aggregate implements Strategy.
func (b BestOf) Aggregate(results []core.StepResult) (string, error) {
	if b.ranker == nil {
		return "", errors.New("best-of requires a ranker")
	}
	var best *core.StepResult
	for i := range results {
		r := results[i]
		if !r.Succeeded() {
			continue
		}
		if best == nil || b.ranker(r, *best) {
			best = &r
		}
	}
	if best == nil {
		return "", nil
	}
	return best.Output, nil
}

// ForName resolves a strategy by its configured name. best-of cannot be
// resolved by name because it needs an injected Ranker; construct it with
// NewBestOf instead. Unknown names yield a *core.AggregationError.
func ForName(name string) (Strategy, error) {
	switch name {
	case "", "concat":
		return Concat{}, nil
	case "first-success":
		return FirstSuccess{}, nil
	case "best-of":
		return nil, &core.AggregationError{Strategy: name, Err: errors.New("best-of requires a ranker; construct it with aggregate.NewBestOf")}
	default:
		return nil, &core.AggregationError{Strategy: name, Err: errors.New("unknown strategy")}
	}
}
