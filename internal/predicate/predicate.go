// Package predicate provides composable, side-effect free selectors over graph symbols.
package predicate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"archguard/internal/graph"
)

// Predicate is a named boolean test over a symbol.
// Predicates must not mutate the graph; equal descriptions imply equal semantics.
type Predicate struct {
	desc string
	fn   func(g *graph.Graph, s *graph.Symbol) bool
}

// New wraps fn as a Predicate.
func New(desc string, fn func(g *graph.Graph, s *graph.Symbol) bool) Predicate {
	return Predicate{desc: desc, fn: fn}
}

func (p Predicate) String() string { return p.desc }

// Test evaluates the predicate. The zero Predicate matches nothing.
func (p Predicate) Test(g *graph.Graph, s *graph.Symbol) bool {
	if p.fn == nil || s == nil {
		return false
	}
	return p.fn(g, s)
}

// IsZero reports whether p was never constructed.
func (p Predicate) IsZero() bool { return p.fn == nil }

func Any() Predicate {
	return New("any symbol", func(*graph.Graph, *graph.Symbol) bool { return true })
}

func And(ps ...Predicate) Predicate {
	if len(ps) == 1 {
		return ps[0]
	}
	return New(join(ps, " and "), func(g *graph.Graph, s *graph.Symbol) bool {
		for _, p := range ps {
			if !p.Test(g, s) {
				return false
			}
		}
		return true
	})
}

func Or(ps ...Predicate) Predicate {
	if len(ps) == 1 {
		return ps[0]
	}
	return New("("+join(ps, " or ")+")", func(g *graph.Graph, s *graph.Symbol) bool {
		for _, p := range ps {
			if p.Test(g, s) {
				return true
			}
		}
		return false
	})
}

func Not(p Predicate) Predicate {
	return New("not ("+p.desc+")", func(g *graph.Graph, s *graph.Symbol) bool {
		return !p.Test(g, s)
	})
}

// ResideInPackage matches symbols whose package matches any of the patterns.
func ResideInPackage(patterns ...string) (Predicate, error) {
	compiled := make([]*PackagePattern, 0, len(patterns))
	for _, raw := range patterns {
		pp, err := CompilePackagePattern(raw)
		if err != nil {
			return Predicate{}, err
		}
		compiled = append(compiled, pp)
	}
	desc := fmt.Sprintf("reside in package %s", quoteAll(patterns))
	return New(desc, func(_ *graph.Graph, s *graph.Symbol) bool {
		for _, pp := range compiled {
			if pp.Matches(s.Package) {
				return true
			}
		}
		return false
	}), nil
}

// ResideOutsideOfPackages matches symbols whose package matches none of the patterns.
func ResideOutsideOfPackages(patterns ...string) (Predicate, error) {
	in, err := ResideInPackage(patterns...)
	if err != nil {
		return Predicate{}, err
	}
	return New(fmt.Sprintf("reside outside of packages %s", quoteAll(patterns)), func(g *graph.Graph, s *graph.Symbol) bool {
		return !in.Test(g, s)
	}), nil
}

// AnnotatedWith matches symbols carrying the annotation. See graph.Annotation.Matches for id rules.
func AnnotatedWith(id string) Predicate {
	return New("annotated with @"+id, func(_ *graph.Graph, s *graph.Symbol) bool {
		return s.AnnotatedWith(id)
	})
}

// AssignableTo matches types that equal or extend/implement typeID. Members are judged by their declaring type.
func AssignableTo(typeID string) Predicate {
	return New("assignable to "+typeID, func(g *graph.Graph, s *graph.Symbol) bool {
		t := s
		if !s.Kind.IsType() {
			owner, err := g.TypeOf(s.ID)
			if err != nil {
				return false
			}
			t = owner
		}
		return g.IsAssignableTo(t.ID, typeID)
	})
}

// NameMatches matches the fully-qualified ID against a regular expression anchored at both ends.
func NameMatches(expr string) (Predicate, error) {
	re, err := regexp.Compile("^(?:" + expr + ")$")
	if err != nil {
		return Predicate{}, fmt.Errorf("name pattern %q: %w", expr, err)
	}
	return New(fmt.Sprintf("have name matching '%s'", expr), func(_ *graph.Graph, s *graph.Symbol) bool {
		return re.MatchString(s.ID)
	}), nil
}

func SimpleNameContaining(sub string) Predicate {
	return New(fmt.Sprintf("have simple name containing '%s'", sub), func(_ *graph.Graph, s *graph.Symbol) bool {
		return strings.Contains(s.Name, sub)
	})
}

func SimpleNameEndingWith(suffix string) Predicate {
	return New(fmt.Sprintf("have simple name ending with '%s'", suffix), func(_ *graph.Graph, s *graph.Symbol) bool {
		return strings.HasSuffix(s.Name, suffix)
	})
}

func IsInterface() Predicate {
	return OfKind(graph.KindInterface)
}

func IsEnum() Predicate {
	return OfKind(graph.KindEnum)
}

// IsNested matches types declared inside another type.
func IsNested() Predicate {
	return New("nested", func(_ *graph.Graph, s *graph.Symbol) bool {
		return s.Kind.IsType() && s.Owner != ""
	})
}

func IsPublic() Predicate {
	return New("public", func(_ *graph.Graph, s *graph.Symbol) bool {
		return s.HasModifier(graph.ModPublic)
	})
}

// IsType matches class-like declarations (classes, interfaces, enums, annotations, records).
func IsType() Predicate {
	return New("type", func(_ *graph.Graph, s *graph.Symbol) bool {
		return s.Kind.IsType()
	})
}

// IsExternal matches stub symbols that were referenced but not analysed.
func IsExternal() Predicate {
	return New("external", func(_ *graph.Graph, s *graph.Symbol) bool {
		return s.External
	})
}

func OfKind(kinds ...graph.SymbolKind) Predicate {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return New("kind "+strings.Join(names, "|"), func(_ *graph.Graph, s *graph.Symbol) bool {
		for _, k := range kinds {
			if s.Kind == k {
				return true
			}
		}
		return false
	})
}

// DeclaredIn matches members whose declaring type satisfies owner.
// The owner description is bracketed so that conditions on the member never read as conditions on the owner.
func DeclaredIn(owner Predicate) Predicate {
	return New("declared in classes that ("+owner.desc+")", func(g *graph.Graph, s *graph.Symbol) bool {
		if s.Owner == "" {
			return false
		}
		o, ok := g.Symbol(s.Owner)
		return ok && owner.Test(g, o)
	})
}

// Select returns the symbols of g satisfying p, sorted by ID.
func Select(g *graph.Graph, p Predicate) []*graph.Symbol {
	var out []*graph.Symbol
	for _, s := range g.Symbols() {
		if p.Test(g, s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func join(ps []Predicate, sep string) string {
	descs := make([]string, len(ps))
	for i, p := range ps {
		descs[i] = p.desc
	}
	return strings.Join(descs, sep)
}

func quoteAll(ss []string) string {
	q := make([]string, len(ss))
	for i, s := range ss {
		q[i] = "'" + s + "'"
	}
	return strings.Join(q, ", ")
}
