package rules

import (
	"fmt"

	archerrors "archguard/internal/errors"
	"archguard/internal/graph"
)

// GuardedMutation flags methods that call Mutation without calling Guard, unless they also call Exempt.
// Selected types contribute their declared methods; selected methods are checked directly.
type GuardedMutation struct {
	Mutation string
	Exempt   string
	Guard    string
}

// DefaultGuardedMutation is the jOOQ form: execute() needs where() unless it is an insertInto().
func DefaultGuardedMutation() *GuardedMutation {
	return &GuardedMutation{Mutation: "execute", Exempt: "insertInto", Guard: "where"}
}

func (m *GuardedMutation) Validate() error {
	if m.Mutation == "" || m.Guard == "" {
		return archerrors.New(archerrors.ConfigurationError, "guarded mutation needs mutation and guard call names")
	}
	return nil
}

func (m *GuardedMutation) Check(g *graph.Graph, selected []*graph.Symbol) ([]Violation, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	var vs []Violation
	for _, s := range selected {
		methods := []*graph.Symbol{s}
		if s.Kind.IsType() {
			methods = g.Members(s.ID)
		}
		for _, method := range methods {
			if method.Kind != graph.KindMethod {
				continue
			}
			if !m.unguarded(g.CallNames(method.ID)) {
				continue
			}
			vs = append(vs, Violation{
				Message: fmt.Sprintf("%s possible doing .%s() without block %s()", method.FullName(), m.Mutation, m.Guard),
				Subject: method.FullName(),
			})
		}
	}
	return vs, nil
}

func (m *GuardedMutation) unguarded(calls []string) bool {
	var mutates, exempt, guarded bool
	for _, c := range calls {
		switch c {
		case m.Mutation:
			mutates = true
		case m.Guard:
			guarded = true
		}
		if m.Exempt != "" && c == m.Exempt {
			exempt = true
		}
	}
	return mutates && !exempt && !guarded
}

// EventUsage requires each selected class to be called from a listener-annotated code unit
// and to be constructed somewhere. The two requirements produce independent violations.
type EventUsage struct {
	Listener string
}

func (u *EventUsage) Check(g *graph.Graph, selected []*graph.Symbol) ([]Violation, error) {
	listener := u.Listener
	if listener == "" {
		listener = "EventListener"
	}

	var vs []Violation
	for _, s := range selected {
		if !s.Kind.IsType() {
			return nil, archerrors.Newf(archerrors.RuleEvaluationError, "event usage expects types, got %s %s", s.Kind, s.ID).WithSubject(s.ID)
		}

		targets := []string{s.ID}
		for _, m := range g.Members(s.ID) {
			targets = append(targets, m.ID)
		}

		var listened, constructed bool
		for _, id := range targets {
			for _, e := range g.IncomingOf(id) {
				if e.Kind == graph.EdgeConstructorCall {
					constructed = true
				}
				if listened || (e.Kind != graph.EdgeMethodCall && e.Kind != graph.EdgeConstructorCall) {
					continue
				}
				caller, err := g.Resolve(e.From)
				if err != nil {
					return nil, err
				}
				if caller.AnnotatedWith(listener) {
					listened = true
				}
			}
		}

		if !listened {
			vs = append(vs, Violation{
				Message: fmt.Sprintf("%s doesn't have event listener", s.FullName()),
				Subject: s.FullName(),
			})
		}
		if !constructed {
			vs = append(vs, Violation{
				Message: fmt.Sprintf("%s is never constructed", s.FullName()),
				Subject: s.FullName(),
			})
		}
	}
	return vs, nil
}
