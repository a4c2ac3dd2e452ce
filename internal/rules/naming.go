package rules

import (
	"fmt"
	"strings"

	archerrors "archguard/internal/errors"
	"archguard/internal/graph"
	"archguard/internal/predicate"
)

// Naming requires every selected symbol to carry Annotation and to have a simple name
// containing NameContains and ending with NameSuffix. Every missing requirement is its own violation.
type Naming struct {
	Annotation   string
	NameContains string
	NameSuffix   string
}

func (n *Naming) Validate() error {
	if n.Annotation == "" && n.NameContains == "" && n.NameSuffix == "" {
		return archerrors.New(archerrors.ConfigurationError, "naming convention without requirements")
	}
	return nil
}

func (n *Naming) Check(_ *graph.Graph, selected []*graph.Symbol) ([]Violation, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}

	var vs []Violation
	for _, s := range selected {
		name := s.FullName()
		if n.Annotation != "" && !s.AnnotatedWith(n.Annotation) {
			vs = append(vs, Violation{
				Message: fmt.Sprintf("%s is not annotated with @%s", name, n.Annotation),
				Subject: name,
			})
		}
		if n.NameContains != "" && !strings.Contains(s.Name, n.NameContains) {
			vs = append(vs, Violation{
				Message: fmt.Sprintf("%s simple name does not contain \"%s\"", name, n.NameContains),
				Subject: name,
			})
		}
		if n.NameSuffix != "" && !strings.HasSuffix(s.Name, n.NameSuffix) {
			vs = append(vs, Violation{
				Message: fmt.Sprintf("%s simple name does not end with \"%s\"", name, n.NameSuffix),
				Subject: name,
			})
		}
	}
	return vs, nil
}

// Conformance requires every selected symbol to satisfy Requirement.
type Conformance struct {
	Requirement predicate.Predicate
}

func (c *Conformance) Validate() error {
	if c.Requirement.IsZero() {
		return archerrors.New(archerrors.ConfigurationError, "conformance rule without requirement")
	}
	return nil
}

func (c *Conformance) Check(g *graph.Graph, selected []*graph.Symbol) ([]Violation, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var vs []Violation
	for _, s := range selected {
		if c.Requirement.Test(g, s) {
			continue
		}
		vs = append(vs, Violation{
			Message: fmt.Sprintf("%s does not satisfy: %s", s.FullName(), c.Requirement),
			Subject: s.FullName(),
		})
	}
	return vs, nil
}
