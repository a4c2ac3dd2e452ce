// Package testutil provides helpers for building symbol graphs in tests.
package testutil

import (
	"strings"
	"testing"

	"archguard/internal/graph"

	"github.com/stretchr/testify/require"
)

// GraphFixture builds a graph.Graph from short FQN-based declarations.
type GraphFixture struct {
	t *testing.T
	b *graph.Builder
}

// NewGraph starts an empty fixture.
func NewGraph(t *testing.T) *GraphFixture {
	t.Helper()
	return &GraphFixture{t: t, b: graph.NewBuilder()}
}

// Class adds a public top-level or nested class. Nested classes use '$' (a.B$C).
// Annotations are given as FQNs.
func (f *GraphFixture) Class(fqn string, annotations ...string) *GraphFixture {
	return f.Type(graph.KindClass, fqn, annotations...)
}

func (f *GraphFixture) Interface(fqn string, annotations ...string) *GraphFixture {
	return f.Type(graph.KindInterface, fqn, annotations...)
}

func (f *GraphFixture) Type(kind graph.SymbolKind, fqn string, annotations ...string) *GraphFixture {
	f.t.Helper()
	pkg, name, owner := SplitType(fqn)
	f.b.AddSymbol(&graph.Symbol{
		ID:          fqn,
		Name:        name,
		Package:     pkg,
		Kind:        kind,
		Owner:       owner,
		Modifiers:   []graph.Modifier{graph.ModPublic},
		Annotations: toAnnotations(annotations),
	})
	return f
}

// Add registers an arbitrary symbol.
func (f *GraphFixture) Add(s *graph.Symbol) *GraphFixture {
	f.b.AddSymbol(s)
	return f
}

// Method adds a public method with no parameters and the given call-site names; it returns the method ID.
func (f *GraphFixture) Method(owner, name string, calls ...string) string {
	return f.member(graph.KindMethod, owner, name, calls, nil)
}

// AnnotatedMethod is Method with annotations on the method itself.
func (f *GraphFixture) AnnotatedMethod(owner, name string, annotations []string, calls ...string) string {
	return f.member(graph.KindMethod, owner, name, calls, annotations)
}

// Constructor adds a no-arg constructor and returns its ID.
func (f *GraphFixture) Constructor(owner string) string {
	_, name, _ := SplitType(owner)
	return f.member(graph.KindConstructor, owner, name, nil, nil)
}

func (f *GraphFixture) member(kind graph.SymbolKind, owner, name string, calls, annotations []string) string {
	pkg, _, _ := SplitType(owner)
	id := owner + "#" + name + "()"
	f.b.AddSymbol(&graph.Symbol{
		ID:          id,
		Name:        name,
		Package:     pkg,
		Kind:        kind,
		Owner:       owner,
		Modifiers:   []graph.Modifier{graph.ModPublic},
		Annotations: toAnnotations(annotations),
		Signature:   strings.ReplaceAll(owner, "$", ".") + "." + name + "()",
	})
	if len(calls) > 0 {
		f.b.SetCallNames(id, calls)
	}
	return id
}

// Edge adds a dependency edge.
func (f *GraphFixture) Edge(from, to string, kind graph.EdgeKind) *GraphFixture {
	f.b.AddEdge(graph.Edge{From: from, To: to, Kind: kind})
	return f
}

// Uses adds a type-reference edge.
func (f *GraphFixture) Uses(from, to string) *GraphFixture {
	return f.Edge(from, to, graph.EdgeTypeReference)
}

// Calls adds a method-call edge carrying the target's simple name as call name.
func (f *GraphFixture) Calls(from, to string) *GraphFixture {
	name := to
	if i := strings.LastIndex(to, "#"); i >= 0 {
		name = to[i+1:]
		if j := strings.Index(name, "("); j >= 0 {
			name = name[:j]
		}
	}
	f.b.AddEdge(graph.Edge{From: from, To: to, Kind: graph.EdgeMethodCall, CallName: name})
	return f
}

// Build freezes the fixture, failing the test on error.
func (f *GraphFixture) Build() *graph.Graph {
	f.t.Helper()
	g, err := f.b.Build()
	require.NoError(f.t, err)
	return g
}

// SplitType splits a type FQN into package, simple name and owning type (for a$b nesting).
func SplitType(fqn string) (pkg, name, owner string) {
	top := fqn
	if i := strings.LastIndex(fqn, "$"); i >= 0 {
		owner = fqn[:i]
		name = fqn[i+1:]
		top = fqn[:strings.Index(fqn, "$")]
	}
	if i := strings.LastIndex(top, "."); i >= 0 {
		pkg = top[:i]
		if name == "" {
			name = top[i+1:]
		}
	} else if name == "" {
		name = top
	}
	return pkg, name, owner
}

func toAnnotations(ids []string) []graph.Annotation {
	if len(ids) == 0 {
		return nil
	}
	out := make([]graph.Annotation, len(ids))
	for i, id := range ids {
		out[i] = graph.Annotation{Name: id}
	}
	return out
}
