package graph

import (
	"sort"

	archerrors "archguard/internal/errors"
)

// Builder accumulates symbols and edges until Build freezes them into a Graph.
// Edges may reference unknown symbols; such references surface as GraphAccessError at query time.
type Builder struct {
	symbols map[string]*Symbol
	edges   []Edge
	calls   map[string][]string
	errs    []error
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		symbols: make(map[string]*Symbol),
		calls:   make(map[string][]string),
	}
}

// AddSymbol registers a symbol. Empty and duplicate IDs are reported by Build.
func (b *Builder) AddSymbol(s *Symbol) *Builder {
	if s == nil {
		return b
	}
	if s.ID == "" {
		b.errs = append(b.errs, archerrors.New(archerrors.GraphAccessError, "symbol with empty id"))
		return b
	}
	if _, dup := b.symbols[s.ID]; dup {
		b.errs = append(b.errs, archerrors.Newf(archerrors.GraphAccessError, "duplicate symbol %q", s.ID).WithSubject(s.ID))
		return b
	}
	b.symbols[s.ID] = cloneSymbol(s)
	return b
}

// cloneSymbol copies s deeply so later edits by the caller cannot reach the built graph.
func cloneSymbol(s *Symbol) *Symbol {
	cp := *s
	if s.Modifiers != nil {
		cp.Modifiers = make([]Modifier, len(s.Modifiers))
		copy(cp.Modifiers, s.Modifiers)
	}
	if s.Supertypes != nil {
		cp.Supertypes = make([]string, len(s.Supertypes))
		copy(cp.Supertypes, s.Supertypes)
	}
	if s.Annotations != nil {
		cp.Annotations = make([]Annotation, len(s.Annotations))
		for i, a := range s.Annotations {
			cp.Annotations[i] = Annotation{Name: a.Name}
			if a.Params != nil {
				cp.Annotations[i].Params = make(map[string]string, len(a.Params))
				for k, v := range a.Params {
					cp.Annotations[i].Params[k] = v
				}
			}
		}
	}
	return &cp
}

// HasSymbol reports whether id was already added.
func (b *Builder) HasSymbol(id string) bool {
	_, ok := b.symbols[id]
	return ok
}

// AddEdge appends a directed edge.
func (b *Builder) AddEdge(e Edge) *Builder {
	b.edges = append(b.edges, e)
	return b
}

// SetCallNames records the ordered call-site names of a code unit body.
func (b *Builder) SetCallNames(id string, names []string) *Builder {
	b.calls[id] = append([]string(nil), names...)
	return b
}

// Build freezes the builder into an immutable Graph.
func (b *Builder) Build() (*Graph, error) {
	if len(b.errs) > 0 {
		return nil, b.errs[0]
	}

	g := &Graph{
		symbols: b.symbols,
		order:   make([]string, 0, len(b.symbols)),
		edges:   append([]Edge(nil), b.edges...),
		out:     make(map[string][]Edge),
		in:      make(map[string][]Edge),
		calls:   b.calls,
		members: make(map[string][]string),
	}

	for id, s := range b.symbols {
		g.order = append(g.order, id)
		if s.Owner != "" {
			g.members[s.Owner] = append(g.members[s.Owner], id)
		}
	}
	sort.Strings(g.order)
	for owner := range g.members {
		sort.Strings(g.members[owner])
	}

	for _, e := range g.edges {
		g.out[e.From] = append(g.out[e.From], e)
		g.in[e.To] = append(g.in[e.To], e)
	}

	// later Add calls must not reach the frozen graph
	b.symbols = make(map[string]*Symbol)
	b.calls = make(map[string][]string)
	b.edges = nil

	return g, nil
}
