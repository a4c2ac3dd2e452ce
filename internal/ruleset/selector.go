package ruleset

import (
	"fmt"

	"archguard/internal/graph"
	"archguard/internal/predicate"

	"gopkg.in/yaml.v3"
)

// Selector is the YAML form of a predicate. Every field that is set must hold (they are ANDed);
// an empty selector matches every symbol.
type Selector struct {
	ResideInPackage         StringList `yaml:"resideInPackage"`
	ResideOutsideOfPackages StringList `yaml:"resideOutsideOfPackages"`
	// AnnotatedWith matches when any of the annotations is present.
	AnnotatedWith StringList `yaml:"annotatedWith"`
	// NotAnnotatedWith matches when none of the annotations is present.
	NotAnnotatedWith     StringList `yaml:"notAnnotatedWith"`
	AssignableTo         string     `yaml:"assignableTo"`
	NotAssignableTo      string     `yaml:"notAssignableTo"`
	NameMatches          string     `yaml:"nameMatches"`
	SimpleNameContaining string     `yaml:"simpleNameContaining"`
	SimpleNameEndingWith string     `yaml:"simpleNameEndingWith"`
	Kinds                StringList `yaml:"kinds"`
	Types                *bool      `yaml:"types"`
	Interfaces           *bool      `yaml:"interfaces"`
	Enums                *bool      `yaml:"enums"`
	Nested               *bool      `yaml:"nested"`
	Public               *bool      `yaml:"public"`
	External             *bool      `yaml:"external"`
	DeclaredIn           *Selector  `yaml:"declaredIn"`
	AnyOf                []Selector `yaml:"anyOf"`
	Not                  *Selector  `yaml:"not"`
}

// StringList accepts either a scalar or a sequence of scalars.
type StringList []string

func (l *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*l = StringList{value.Value}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	return fmt.Errorf("line %d: expected a string or a list of strings", value.Line)
}

var symbolKinds = map[string]graph.SymbolKind{
	string(graph.KindClass):       graph.KindClass,
	string(graph.KindInterface):   graph.KindInterface,
	string(graph.KindEnum):        graph.KindEnum,
	string(graph.KindAnnotation):  graph.KindAnnotation,
	string(graph.KindRecord):      graph.KindRecord,
	string(graph.KindMethod):      graph.KindMethod,
	string(graph.KindConstructor): graph.KindConstructor,
	string(graph.KindField):       graph.KindField,
}

// Compile turns the selector into a predicate. A nil selector matches every symbol.
func (s *Selector) Compile() (predicate.Predicate, error) {
	if s == nil {
		return predicate.Any(), nil
	}

	var parts []predicate.Predicate
	if len(s.ResideInPackage) > 0 {
		p, err := predicate.ResideInPackage(s.ResideInPackage...)
		if err != nil {
			return predicate.Predicate{}, err
		}
		parts = append(parts, p)
	}
	if len(s.ResideOutsideOfPackages) > 0 {
		p, err := predicate.ResideOutsideOfPackages(s.ResideOutsideOfPackages...)
		if err != nil {
			return predicate.Predicate{}, err
		}
		parts = append(parts, p)
	}
	if len(s.AnnotatedWith) > 0 {
		parts = append(parts, annotatedWithAny(s.AnnotatedWith))
	}
	if len(s.NotAnnotatedWith) > 0 {
		parts = append(parts, predicate.Not(annotatedWithAny(s.NotAnnotatedWith)))
	}
	if s.AssignableTo != "" {
		parts = append(parts, predicate.AssignableTo(s.AssignableTo))
	}
	if s.NotAssignableTo != "" {
		parts = append(parts, predicate.Not(predicate.AssignableTo(s.NotAssignableTo)))
	}
	if s.NameMatches != "" {
		p, err := predicate.NameMatches(s.NameMatches)
		if err != nil {
			return predicate.Predicate{}, err
		}
		parts = append(parts, p)
	}
	if s.SimpleNameContaining != "" {
		parts = append(parts, predicate.SimpleNameContaining(s.SimpleNameContaining))
	}
	if s.SimpleNameEndingWith != "" {
		parts = append(parts, predicate.SimpleNameEndingWith(s.SimpleNameEndingWith))
	}
	if len(s.Kinds) > 0 {
		kinds := make([]graph.SymbolKind, 0, len(s.Kinds))
		for _, k := range s.Kinds {
			kind, ok := symbolKinds[k]
			if !ok {
				return predicate.Predicate{}, fmt.Errorf("unknown symbol kind %q", k)
			}
			kinds = append(kinds, kind)
		}
		parts = append(parts, predicate.OfKind(kinds...))
	}
	parts = appendFlag(parts, s.Types, predicate.IsType())
	parts = appendFlag(parts, s.Interfaces, predicate.IsInterface())
	parts = appendFlag(parts, s.Enums, predicate.IsEnum())
	parts = appendFlag(parts, s.Nested, predicate.IsNested())
	parts = appendFlag(parts, s.Public, predicate.IsPublic())
	parts = appendFlag(parts, s.External, predicate.IsExternal())

	if s.DeclaredIn != nil {
		owner, err := s.DeclaredIn.Compile()
		if err != nil {
			return predicate.Predicate{}, fmt.Errorf("declaredIn: %w", err)
		}
		parts = append(parts, predicate.DeclaredIn(owner))
	}
	if len(s.AnyOf) > 0 {
		alts := make([]predicate.Predicate, 0, len(s.AnyOf))
		for i := range s.AnyOf {
			p, err := s.AnyOf[i].Compile()
			if err != nil {
				return predicate.Predicate{}, fmt.Errorf("anyOf[%d]: %w", i, err)
			}
			alts = append(alts, p)
		}
		parts = append(parts, predicate.Or(alts...))
	}
	if s.Not != nil {
		p, err := s.Not.Compile()
		if err != nil {
			return predicate.Predicate{}, fmt.Errorf("not: %w", err)
		}
		parts = append(parts, predicate.Not(p))
	}

	if len(parts) == 0 {
		return predicate.Any(), nil
	}
	return predicate.And(parts...), nil
}

func annotatedWithAny(ids []string) predicate.Predicate {
	ps := make([]predicate.Predicate, len(ids))
	for i, id := range ids {
		ps[i] = predicate.AnnotatedWith(id)
	}
	return predicate.Or(ps...)
}

func appendFlag(parts []predicate.Predicate, flag *bool, p predicate.Predicate) []predicate.Predicate {
	if flag == nil {
		return parts
	}
	if *flag {
		return append(parts, p)
	}
	return append(parts, predicate.Not(p))
}
