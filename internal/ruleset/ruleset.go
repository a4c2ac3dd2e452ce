// Package ruleset loads architecture rules from YAML.
package ruleset

import (
	"bytes"
	"fmt"
	"io"
	"os"

	archerrors "archguard/internal/errors"
	"archguard/internal/graph"
	"archguard/internal/rules"

	"gopkg.in/yaml.v3"
)

const (
	TypeLayered         = "layered"
	TypeDependency      = "dependency"
	TypeLeak            = "leak"
	TypeNaming          = "naming"
	TypeCycles          = "cycles"
	TypeGuardedMutation = "guarded_mutation"
	TypeEventUsage      = "event_usage"
	TypeConformance     = "conformance"
)

// File is a rule set document.
type File struct {
	Version int        `yaml:"version"`
	Rules   []RuleSpec `yaml:"rules"`
}

// RuleSpec is one rule entry. Which fields apply depends on Type.
type RuleSpec struct {
	ID          string    `yaml:"id"`
	Description string    `yaml:"description"`
	Type        string    `yaml:"type"`
	Disabled    bool      `yaml:"disabled"`
	Selector    *Selector `yaml:"selector"`

	// layered
	Layers []LayerSpec `yaml:"layers"`

	// dependency
	Sources       *Selector  `yaml:"sources"`
	SourceMembers *Selector  `yaml:"sourceMembers"`
	Targets       *Selector  `yaml:"targets"`
	Kinds         StringList `yaml:"kinds"`
	CallNames     StringList `yaml:"callNames"`

	// leak, naming
	Annotation   string     `yaml:"annotation"`
	NameContains StringList `yaml:"nameContains"`
	NameSuffix   string     `yaml:"nameSuffix"`

	// cycles
	Pattern         string `yaml:"pattern"`
	Naming          string `yaml:"naming"`
	ReportSelfLoops bool   `yaml:"reportSelfLoops"`

	// guarded_mutation
	Mutation string `yaml:"mutation"`
	Exempt   string `yaml:"exempt"`
	Guard    string `yaml:"guard"`

	// event_usage
	Listener string `yaml:"listener"`

	// conformance
	Requirement *Selector `yaml:"requirement"`
}

type LayerSpec struct {
	Name                       string     `yaml:"name"`
	Packages                   StringList `yaml:"packages"`
	MayNotBeAccessedByAnyLayer bool       `yaml:"mayNotBeAccessedByAnyLayer"`
	MayOnlyBeAccessedBy        StringList `yaml:"mayOnlyBeAccessedBy"`
}

var edgeKinds = map[string]graph.EdgeKind{
	string(graph.EdgeMethodCall):      graph.EdgeMethodCall,
	string(graph.EdgeFieldAccess):     graph.EdgeFieldAccess,
	string(graph.EdgeTypeReference):   graph.EdgeTypeReference,
	string(graph.EdgeThrows):          graph.EdgeThrows,
	string(graph.EdgeConstructorCall): graph.EdgeConstructorCall,
	string(graph.EdgeParameterType):   graph.EdgeParameterType,
}

// Load reads and compiles a rule set file.
func Load(path string) ([]rules.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, archerrors.Wrap(archerrors.ConfigurationError, "read rule set "+path, err)
	}
	return Parse(data)
}

// Parse decodes a rule set document and compiles it. Unknown keys are rejected.
func Parse(data []byte) ([]rules.Rule, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, archerrors.Wrap(archerrors.ConfigurationError, "parse rule set", err)
	}
	return Compile(&f)
}

// Compile validates every entry and builds the rules in document order.
// The first problem aborts compilation with a ConfigurationError naming the rule.
func Compile(f *File) ([]rules.Rule, error) {
	if f.Version > 1 {
		return nil, archerrors.Newf(archerrors.ConfigurationError, "unsupported rule set version %d", f.Version)
	}
	seen := make(map[string]bool, len(f.Rules))
	out := make([]rules.Rule, 0, len(f.Rules))
	for i := range f.Rules {
		spec := &f.Rules[i]
		if spec.ID == "" {
			return nil, archerrors.Newf(archerrors.ConfigurationError, "rule #%d has no id", i+1)
		}
		if seen[spec.ID] {
			return nil, archerrors.Newf(archerrors.ConfigurationError, "duplicate rule id %q", spec.ID).WithSubject(spec.ID)
		}
		seen[spec.ID] = true
		if spec.Disabled {
			continue
		}

		rule, err := spec.compile()
		if err != nil {
			if archerrors.IsCode(err, archerrors.ConfigurationError) {
				return nil, err
			}
			return nil, archerrors.Wrap(archerrors.ConfigurationError, fmt.Sprintf("rule %q", spec.ID), err).WithSubject(spec.ID)
		}
		if err := rule.Validate(); err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, nil
}

func (s *RuleSpec) compile() (rules.Rule, error) {
	rule := rules.Rule{ID: s.ID, Description: s.Description}

	switch s.Type {
	case TypeLayered:
		layers := make([]rules.Layer, 0, len(s.Layers))
		for _, ls := range s.Layers {
			layer := rules.Layer{Name: ls.Name, Packages: ls.Packages, AllowedFrom: ls.MayOnlyBeAccessedBy}
			switch {
			case ls.MayNotBeAccessedByAnyLayer:
				layer.Access = rules.MayNotBeAccessedByAnyLayer
			case len(ls.MayOnlyBeAccessedBy) > 0:
				layer.Access = rules.MayOnlyBeAccessedByLayers
			}
			layers = append(layers, layer)
		}
		cond, err := rules.NewLayered(layers)
		if err != nil {
			return rule, err
		}
		rule.Condition = cond
		if rule.Description == "" {
			rule.Description = cond.Description()
		}

	case TypeDependency:
		if s.Sources == nil && s.Targets == nil {
			return rule, fmt.Errorf("dependency rule needs sources or targets")
		}
		sources, err := s.Sources.Compile()
		if err != nil {
			return rule, fmt.Errorf("sources: %w", err)
		}
		targets, err := s.Targets.Compile()
		if err != nil {
			return rule, fmt.Errorf("targets: %w", err)
		}
		kinds, err := compileEdgeKinds(s.Kinds)
		if err != nil {
			return rule, err
		}
		dep := &rules.DependencyRestriction{Sources: sources, Targets: targets, Kinds: kinds, CallNames: s.CallNames}
		if s.SourceMembers != nil {
			members, err := s.SourceMembers.Compile()
			if err != nil {
				return rule, fmt.Errorf("sourceMembers: %w", err)
			}
			dep.SourceMembers = members
		}
		rule.Condition = dep
		if rule.Description == "" {
			rule.Description = fmt.Sprintf("no classes that %s should depend on classes that %s", sources, targets)
			if s.SourceMembers != nil {
				rule.Description = fmt.Sprintf("no members that %s declared in classes that %s should depend on classes that %s",
					dep.SourceMembers, sources, targets)
			}
		}

	case TypeLeak:
		if err := s.withSelector(&rule); err != nil {
			return rule, err
		}
		rule.Condition = &rules.ConventionLeak{Annotation: s.Annotation, NameContains: s.NameContains}

	case TypeNaming:
		if err := s.withSelector(&rule); err != nil {
			return rule, err
		}
		if len(s.NameContains) > 1 {
			return rule, fmt.Errorf("naming rule takes a single nameContains")
		}
		n := &rules.Naming{Annotation: s.Annotation, NameSuffix: s.NameSuffix}
		if len(s.NameContains) == 1 {
			n.NameContains = s.NameContains[0]
		}
		rule.Condition = n

	case TypeCycles:
		cond, err := rules.NewFreeOfCycles(s.Pattern, s.Naming, s.ReportSelfLoops)
		if err != nil {
			return rule, err
		}
		rule.Condition = cond
		if rule.Description == "" {
			rule.Description = fmt.Sprintf("slices matching '%s' should be free of cycles", s.Pattern)
		}

	case TypeGuardedMutation:
		if err := s.withSelector(&rule); err != nil {
			return rule, err
		}
		m := rules.DefaultGuardedMutation()
		if s.Mutation != "" {
			m.Mutation = s.Mutation
		}
		if s.Exempt != "" {
			m.Exempt = s.Exempt
		}
		if s.Guard != "" {
			m.Guard = s.Guard
		}
		rule.Condition = m

	case TypeEventUsage:
		if err := s.withSelector(&rule); err != nil {
			return rule, err
		}
		rule.Condition = &rules.EventUsage{Listener: s.Listener}

	case TypeConformance:
		if err := s.withSelector(&rule); err != nil {
			return rule, err
		}
		if s.Requirement == nil {
			return rule, fmt.Errorf("conformance rule needs a requirement")
		}
		req, err := s.Requirement.Compile()
		if err != nil {
			return rule, fmt.Errorf("requirement: %w", err)
		}
		rule.Condition = &rules.Conformance{Requirement: req}

	case "":
		return rule, fmt.Errorf("missing type")
	default:
		return rule, fmt.Errorf("unknown rule type %q", s.Type)
	}
	return rule, nil
}

func (s *RuleSpec) withSelector(rule *rules.Rule) error {
	p, err := s.Selector.Compile()
	if err != nil {
		return fmt.Errorf("selector: %w", err)
	}
	rule.Selector = p
	if rule.Description == "" {
		rule.Description = fmt.Sprintf("%s rule over symbols that %s", s.Type, p)
	}
	return nil
}

func compileEdgeKinds(names []string) ([]graph.EdgeKind, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make([]graph.EdgeKind, 0, len(names))
	for _, n := range names {
		k, ok := edgeKinds[n]
		if !ok {
			return nil, fmt.Errorf("unknown edge kind %q", n)
		}
		out = append(out, k)
	}
	return out, nil
}

