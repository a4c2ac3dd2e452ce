package rules

import (
	"fmt"
	"strings"

	archerrors "archguard/internal/errors"
	"archguard/internal/graph"
	"archguard/internal/predicate"
)

// DependencyRestriction forbids edges whose source class satisfies Sources and whose
// target class satisfies Targets. Kinds and CallNames narrow the edges considered.
// SourceMembers, when set, must also hold for the symbol the edge starts from.
type DependencyRestriction struct {
	Sources       predicate.Predicate
	SourceMembers predicate.Predicate
	Targets       predicate.Predicate
	Kinds         []graph.EdgeKind
	CallNames     []string
}

func (d *DependencyRestriction) Validate() error {
	if d.Sources.IsZero() || d.Targets.IsZero() {
		return archerrors.New(archerrors.ConfigurationError, "dependency restriction needs sources and targets")
	}
	return nil
}

func (d *DependencyRestriction) considers(e graph.Edge) bool {
	if len(d.Kinds) > 0 && !containsKind(d.Kinds, e.Kind) {
		return false
	}
	if len(d.CallNames) > 0 && !containsString(d.CallNames, e.CallName) {
		return false
	}
	return true
}

func (d *DependencyRestriction) Check(g *graph.Graph, _ []*graph.Symbol) ([]Violation, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	var vs []Violation
	for _, e := range g.Edges() {
		if !d.considers(e) {
			continue
		}
		from, to, err := endpoints(g, e)
		if err != nil {
			return nil, err
		}
		srcClass, err := g.ClassOf(from.ID)
		if err != nil {
			return nil, err
		}
		tgtClass, err := g.ClassOf(to.ID)
		if err != nil {
			return nil, err
		}
		if srcClass.ID == tgtClass.ID {
			continue
		}
		if !d.Sources.Test(g, srcClass) || !d.Targets.Test(g, tgtClass) {
			continue
		}
		if !d.SourceMembers.IsZero() && !d.SourceMembers.Test(g, from) {
			continue
		}
		vs = append(vs, Violation{
			Message: fmt.Sprintf("%s depends on %s (%s)", from.FullName(), to.FullName(), describeEdge(e)),
			Subject: from.FullName(),
			Related: to.FullName(),
		})
	}
	return dedupe(vs), nil
}

// ConventionLeak reports selected symbols that carry a marker reserved for another package:
// the annotation, or one of the forbidden simple-name substrings. Each carried marker is one violation.
type ConventionLeak struct {
	Annotation   string
	NameContains []string
}

func (c *ConventionLeak) Validate() error {
	if c.Annotation == "" && len(c.NameContains) == 0 {
		return archerrors.New(archerrors.ConfigurationError, "convention leak needs an annotation or a name substring")
	}
	return nil
}

func (c *ConventionLeak) Check(_ *graph.Graph, selected []*graph.Symbol) ([]Violation, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var vs []Violation
	for _, s := range selected {
		if c.Annotation != "" && s.AnnotatedWith(c.Annotation) {
			vs = append(vs, Violation{
				Message: fmt.Sprintf("%s is annotated with @%s outside of its package", s.FullName(), c.Annotation),
				Subject: s.FullName(),
			})
		}
		for _, sub := range c.NameContains {
			if strings.Contains(s.Name, sub) {
				vs = append(vs, Violation{
					Message: fmt.Sprintf("%s has simple name containing \"%s\" outside of its package", s.FullName(), sub),
					Subject: s.FullName(),
				})
			}
		}
	}
	return vs, nil
}

func describeEdge(e graph.Edge) string {
	if e.CallName != "" {
		return fmt.Sprintf("%s %s", e.Kind, e.CallName)
	}
	return string(e.Kind)
}

func containsKind(kinds []graph.EdgeKind, k graph.EdgeKind) bool {
	for _, kk := range kinds {
		if kk == k {
			return true
		}
	}
	return false
}

func containsString(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}
