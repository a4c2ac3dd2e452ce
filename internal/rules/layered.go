package rules

import (
	"fmt"
	"strings"

	archerrors "archguard/internal/errors"
	"archguard/internal/graph"
	"archguard/internal/predicate"
)

type Access int

const (
	Unrestricted Access = iota
	MayNotBeAccessedByAnyLayer
	MayOnlyBeAccessedByLayers
)

func (a Access) String() string {
	switch a {
	case MayNotBeAccessedByAnyLayer:
		return "mayNotBeAccessedByAnyLayer"
	case MayOnlyBeAccessedByLayers:
		return "mayOnlyBeAccessedByLayers"
	default:
		return "unrestricted"
	}
}

// Layer is a named group of packages with an inbound access policy.
type Layer struct {
	Name     string
	Packages []string
	Access   Access
	// AllowedFrom lists the layers that may access this one under MayOnlyBeAccessedByLayers.
	AllowedFrom []string
}

// Layered checks that edges between declared layers respect each target layer's policy.
// Edges with an endpoint outside every layer are ignored, and so are intra-layer edges.
type Layered struct {
	layers   []Layer
	patterns [][]*predicate.PackagePattern
}

// NewLayered validates the layer configuration.
func NewLayered(layers []Layer) (*Layered, error) {
	if len(layers) == 0 {
		return nil, archerrors.New(archerrors.ConfigurationError, "layered architecture without layers")
	}

	l := &Layered{layers: layers, patterns: make([][]*predicate.PackagePattern, len(layers))}
	names := make(map[string]bool, len(layers))
	for i, layer := range layers {
		if layer.Name == "" {
			return nil, archerrors.Newf(archerrors.ConfigurationError, "layer #%d has no name", i+1)
		}
		if names[layer.Name] {
			return nil, archerrors.Newf(archerrors.ConfigurationError, "duplicate layer %q", layer.Name)
		}
		names[layer.Name] = true
		if len(layer.Packages) == 0 {
			return nil, archerrors.Newf(archerrors.ConfigurationError, "layer %q defines no packages", layer.Name)
		}
		for _, raw := range layer.Packages {
			pp, err := predicate.CompilePackagePattern(raw)
			if err != nil {
				return nil, archerrors.Wrap(archerrors.ConfigurationError, fmt.Sprintf("layer %q", layer.Name), err)
			}
			l.patterns[i] = append(l.patterns[i], pp)
		}
	}

	for _, layer := range layers {
		switch layer.Access {
		case MayOnlyBeAccessedByLayers:
			if len(layer.AllowedFrom) == 0 {
				return nil, archerrors.Newf(archerrors.ConfigurationError, "layer %q: mayOnlyBeAccessedByLayers needs at least one layer", layer.Name)
			}
		default:
			if len(layer.AllowedFrom) > 0 {
				return nil, archerrors.Newf(archerrors.ConfigurationError, "layer %q: allowed layers given with %s policy", layer.Name, layer.Access)
			}
		}
		for _, from := range layer.AllowedFrom {
			if !names[from] {
				return nil, archerrors.Newf(archerrors.ConfigurationError, "layer %q: policy references undeclared layer %q", layer.Name, from)
			}
		}
	}

	for i := range layers {
		for j := i + 1; j < len(layers); j++ {
			for _, a := range l.patterns[i] {
				for _, b := range l.patterns[j] {
					if a.Overlaps(b) {
						return nil, archerrors.Newf(archerrors.ConfigurationError, "layers %q and %q overlap: %s / %s",
							layers[i].Name, layers[j].Name, a, b)
					}
				}
			}
		}
	}
	return l, nil
}

// Description summarises the layer definitions and policies.
func (l *Layered) Description() string {
	var parts []string
	for _, layer := range l.layers {
		switch layer.Access {
		case MayNotBeAccessedByAnyLayer:
			parts = append(parts, fmt.Sprintf("layer '%s' may not be accessed by any layer", layer.Name))
		case MayOnlyBeAccessedByLayers:
			parts = append(parts, fmt.Sprintf("layer '%s' may only be accessed by layers ['%s']",
				layer.Name, strings.Join(layer.AllowedFrom, "', '")))
		}
	}
	return "Layered architecture considering only dependencies in layers: " + strings.Join(parts, "; ")
}

// LayerOf returns the layer name a package belongs to, or "" when it is outside every layer.
func (l *Layered) LayerOf(pkg string) string {
	for i, pats := range l.patterns {
		for _, pp := range pats {
			if pp.Matches(pkg) {
				return l.layers[i].Name
			}
		}
	}
	return ""
}

func (l *Layered) allowed(source, target string) bool {
	if source == target {
		return true
	}
	for _, layer := range l.layers {
		if layer.Name != target {
			continue
		}
		switch layer.Access {
		case MayNotBeAccessedByAnyLayer:
			return false
		case MayOnlyBeAccessedByLayers:
			for _, from := range layer.AllowedFrom {
				if from == source {
					return true
				}
			}
			return false
		}
	}
	return true
}

func (l *Layered) Check(g *graph.Graph, _ []*graph.Symbol) ([]Violation, error) {
	var vs []Violation
	for _, e := range g.Edges() {
		from, to, err := endpoints(g, e)
		if err != nil {
			return nil, err
		}
		ls := l.LayerOf(from.Package)
		lt := l.LayerOf(to.Package)
		if ls == "" || lt == "" || l.allowed(ls, lt) {
			continue
		}
		vs = append(vs, Violation{
			Message: fmt.Sprintf("%s accessed by disallowed layer %s: %s -> %s (%s)",
				lt, ls, from.FullName(), to.FullName(), e.Kind),
			Subject: from.FullName(),
			Related: to.FullName(),
		})
	}
	return dedupe(vs), nil
}
