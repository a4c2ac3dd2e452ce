package graph

import (
	"sort"
	"strings"

	archerrors "archguard/internal/errors"
)

// Graph is an immutable snapshot of symbols and their dependency edges.
// Nothing returned by a Graph may be modified by callers.
type Graph struct {
	symbols map[string]*Symbol
	order   []string
	edges   []Edge
	out     map[string][]Edge
	in      map[string][]Edge
	calls   map[string][]string
	members map[string][]string
}

// Symbols returns all symbols sorted by ID.
func (g *Graph) Symbols() []*Symbol {
	out := make([]*Symbol, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.symbols[id])
	}
	return out
}

// Len returns the number of symbols.
func (g *Graph) Len() int {
	return len(g.order)
}

// Symbol looks up a symbol by ID.
func (g *Graph) Symbol(id string) (*Symbol, bool) {
	s, ok := g.symbols[id]
	return s, ok
}

// Resolve looks up a symbol and reports a GraphAccessError when the reference is dangling.
func (g *Graph) Resolve(id string) (*Symbol, error) {
	if s, ok := g.symbols[id]; ok {
		return s, nil
	}
	return nil, archerrors.Newf(archerrors.GraphAccessError, "unresolved symbol reference %q", id).WithSubject(id)
}

// Edges returns every edge in insertion order.
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// EdgesOf returns the outgoing edges of id in insertion order.
func (g *Graph) EdgesOf(id string) []Edge {
	return append([]Edge(nil), g.out[id]...)
}

// IncomingOf returns the edges pointing at id in insertion order.
func (g *Graph) IncomingOf(id string) []Edge {
	return append([]Edge(nil), g.in[id]...)
}

// Annotations returns the annotations attached to id.
func (g *Graph) Annotations(id string) ([]Annotation, error) {
	s, err := g.Resolve(id)
	if err != nil {
		return nil, err
	}
	return append([]Annotation(nil), s.Annotations...), nil
}

// CallNames returns the call-site names made in the body of a method or constructor, in source order.
func (g *Graph) CallNames(id string) []string {
	return append([]string(nil), g.calls[id]...)
}

// Members returns the symbols directly declared by typeID, sorted by ID.
func (g *Graph) Members(typeID string) []*Symbol {
	ids := g.members[typeID]
	out := make([]*Symbol, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.symbols[id])
	}
	return out
}

// ClassOf returns the outermost type declaring id (id itself for a top-level type).
func (g *Graph) ClassOf(id string) (*Symbol, error) {
	s, err := g.Resolve(id)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{s.ID: true}
	for s.Owner != "" {
		owner, err := g.Resolve(s.Owner)
		if err != nil {
			return nil, err
		}
		if seen[owner.ID] {
			return nil, archerrors.Newf(archerrors.GraphAccessError, "ownership cycle at %q", owner.ID).WithSubject(id)
		}
		seen[owner.ID] = true
		s = owner
	}
	return s, nil
}

// TypeOf returns the nearest type declaring id (id itself if it is a type).
func (g *Graph) TypeOf(id string) (*Symbol, error) {
	s, err := g.Resolve(id)
	if err != nil {
		return nil, err
	}
	for !s.Kind.IsType() && s.Owner != "" {
		if s, err = g.Resolve(s.Owner); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// IsAssignableTo reports whether the type id equals typeID or transitively extends/implements it.
// A typeID without a dot is compared by simple name.
func (g *Graph) IsAssignableTo(id, typeID string) bool {
	seen := make(map[string]bool)
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		if typeMatches(cur, typeID) {
			return true
		}
		if s, ok := g.symbols[cur]; ok {
			queue = append(queue, s.Supertypes...)
		}
	}
	return false
}

// Dependencies returns the distinct symbols id has outgoing edges to.
func (g *Graph) Dependencies(id string) []*Symbol {
	return g.collect(g.out[id], func(e Edge) string { return e.To })
}

// Dependents returns the distinct symbols with edges pointing at id.
func (g *Graph) Dependents(id string) []*Symbol {
	return g.collect(g.in[id], func(e Edge) string { return e.From })
}

func (g *Graph) collect(edges []Edge, pick func(Edge) string) []*Symbol {
	seen := make(map[string]bool)
	var deps []*Symbol
	for _, e := range edges {
		id := pick(e)
		if seen[id] {
			continue
		}
		seen[id] = true
		if s, ok := g.symbols[id]; ok {
			deps = append(deps, s)
		}
	}
	sort.Slice(deps, func(i, j int) bool { return deps[i].ID < deps[j].ID })
	return deps
}

func typeMatches(id, typeID string) bool {
	if strings.Contains(typeID, ".") {
		return id == typeID
	}
	return lastSegment(id) == typeID
}
