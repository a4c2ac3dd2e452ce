// Package rules defines architecture rules and the conditions that check them against a symbol graph.
package rules

import (
	"fmt"
	"sort"

	archerrors "archguard/internal/errors"
	"archguard/internal/graph"
	"archguard/internal/predicate"
)

// Violation is one detected breach of a rule.
type Violation struct {
	RuleID  string   `json:"rule_id"`
	Message string   `json:"message"`
	Subject string   `json:"subject"`
	Related string   `json:"related,omitempty"`
	Path    []string `json:"path,omitempty"`
	// Error marks a rule that failed to evaluate rather than a detected breach.
	Error bool   `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// String renders the violation as "<rule id>: <message>".
func (v Violation) String() string {
	return v.RuleID + ": " + v.Message
}

// Condition checks a graph and reports violations.
// selected holds the symbols chosen by the rule's selector, or nil when the rule has none.
// Implementations must not mutate the graph.
type Condition interface {
	Check(g *graph.Graph, selected []*graph.Symbol) ([]Violation, error)
}

// Rule is one architectural fitness function.
type Rule struct {
	ID          string
	Description string
	Selector    predicate.Predicate
	Condition   Condition
}

// Validate reports configuration problems as a ConfigurationError.
func (r Rule) Validate() error {
	if r.ID == "" {
		return archerrors.New(archerrors.ConfigurationError, "rule without id")
	}
	if r.Condition == nil {
		return archerrors.Newf(archerrors.ConfigurationError, "rule %q has no condition", r.ID).WithSubject(r.ID)
	}
	if v, ok := r.Condition.(Validator); ok {
		if err := v.Validate(); err != nil {
			return archerrors.Wrap(archerrors.ConfigurationError, fmt.Sprintf("rule %q", r.ID), err).WithSubject(r.ID)
		}
	}
	return nil
}

// Validator is implemented by conditions that can check their configuration before a run.
type Validator interface {
	Validate() error
}

// Evaluate selects the rule's symbols (through cache when given) and runs its condition.
// The returned violations carry the rule ID and are sorted.
func (r Rule) Evaluate(g *graph.Graph, cache *predicate.Cache) ([]Violation, error) {
	var selected []*graph.Symbol
	if !r.Selector.IsZero() {
		if cache != nil {
			selected = cache.Select(r.Selector)
		} else {
			selected = predicate.Select(g, r.Selector)
		}
	}

	vs, err := r.Condition.Check(g, selected)
	if err != nil {
		return nil, err
	}
	for i := range vs {
		vs[i].RuleID = r.ID
	}
	SortViolations(vs)
	return vs, nil
}

// SortViolations orders violations by subject, related symbol and message.
func SortViolations(vs []Violation) {
	sort.SliceStable(vs, func(i, j int) bool {
		a, b := vs[i], vs[j]
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		if a.Related != b.Related {
			return a.Related < b.Related
		}
		return a.Message < b.Message
	})
}

// ConditionFunc adapts a function to Condition.
type ConditionFunc func(g *graph.Graph, selected []*graph.Symbol) ([]Violation, error)

func (f ConditionFunc) Check(g *graph.Graph, selected []*graph.Symbol) ([]Violation, error) {
	return f(g, selected)
}

// dedupe drops violations with identical subject, related symbol and message.
func dedupe(vs []Violation) []Violation {
	seen := make(map[[3]string]bool, len(vs))
	out := vs[:0]
	for _, v := range vs {
		k := [3]string{v.Subject, v.Related, v.Message}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	return out
}

// endpoints resolves both ends of an edge, failing with a GraphAccessError on dangling references.
func endpoints(g *graph.Graph, e graph.Edge) (*graph.Symbol, *graph.Symbol, error) {
	from, err := g.Resolve(e.From)
	if err != nil {
		return nil, nil, err
	}
	to, err := g.Resolve(e.To)
	if err != nil {
		return nil, nil, err
	}
	return from, to, nil
}
